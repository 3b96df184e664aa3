package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/media-identity/internal/domain"
	"github.com/prperemyshlev/media-identity/internal/dto"
	"github.com/prperemyshlev/media-identity/internal/service"
	"go.uber.org/zap"
)

const (
	contextUserKey   = "user"
	contextUserIDKey = "user_id"
)

// AuthMiddleware resolves the caller from the accessToken cookie or a Bearer
// header and stores the user in the context
func AuthMiddleware(authService service.AuthService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := accessTokenFrom(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewAPIErrorResponse(http.StatusUnauthorized, service.MsgUnauthorizedRequest))
			return
		}

		user, err := authService.Authenticate(c.Request.Context(), token)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.Set(contextUserKey, user)
		c.Set(contextUserIDKey, user.ID)

		c.Next()
	}
}

func accessTokenFrom(c *gin.Context) string {
	if token, err := c.Cookie(accessTokenCookie); err == nil && token != "" {
		return token
	}

	scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// currentUser returns the user stored by AuthMiddleware
func currentUser(c *gin.Context) (*domain.User, bool) {
	value, exists := c.Get(contextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*domain.User)
	return user, ok
}
