package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/media-identity/internal/config"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

// sessionCookies writes and clears the session cookies with identical attributes
type sessionCookies struct {
	cfg        config.CookieConfig
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func (s sessionCookies) write(c *gin.Context, name, value string, maxAge int) {
	path := s.cfg.Path
	if path == "" {
		path = "/"
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, value, maxAge, path, s.cfg.Domain, s.cfg.Secure, true)
}

func (s sessionCookies) set(c *gin.Context, accessToken, refreshToken string) {
	s.write(c, accessTokenCookie, accessToken, int(s.accessTTL.Seconds()))
	s.write(c, refreshTokenCookie, refreshToken, int(s.refreshTTL.Seconds()))
}

func (s sessionCookies) clear(c *gin.Context) {
	s.write(c, accessTokenCookie, "", -1)
	s.write(c, refreshTokenCookie, "", -1)
}
