package observability

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PrometheusHandler serves the scrape endpoint of t through gin
func PrometheusHandler(t *Telemetry) gin.HandlerFunc {
	return func(c *gin.Context) {
		if t == nil || t.Handler == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"statusCode": http.StatusServiceUnavailable,
				"message":    "metrics are not enabled",
				"success":    false,
			})
			return
		}
		t.Handler.ServeHTTP(c.Writer, c.Request)
	}
}
