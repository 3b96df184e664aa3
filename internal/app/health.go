package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/media-identity/internal/dto"
)

const healthCheckTimeout = 2 * time.Second

// pinger is satisfied by the Postgres and Redis clients
type pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker reports whether the service's dependencies are reachable
type HealthChecker struct {
	deps map[string]pinger
}

func NewHealthChecker(postgres, redis pinger) *HealthChecker {
	return &HealthChecker{
		deps: map[string]pinger{
			"postgres": postgres,
			"redis":    redis,
		},
	}
}

func (h *HealthChecker) check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	errs := make(chan error, len(h.deps))

	for name, dep := range h.deps {
		go func() {
			if err := dep.Ping(ctx); err != nil {
				errs <- fmt.Errorf("%s: %w", name, err)
				return
			}
			errs <- nil
		}()
	}

	var joined []error
	for range h.deps {
		joined = append(joined, <-errs)
	}
	return errors.Join(joined...)
}

func (h *HealthChecker) Handler(c *gin.Context) {
	if err := h.check(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable,
			dto.NewAPIErrorResponse(http.StatusServiceUnavailable, "fail", err.Error()))
		return
	}

	c.JSON(http.StatusOK, dto.NewAPIResponse(http.StatusOK, gin.H{"status": "pass"}, "pass"))
}
