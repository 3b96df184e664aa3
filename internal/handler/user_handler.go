package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/media-identity/internal/config"
	"github.com/prperemyshlev/media-identity/internal/dto"
	"github.com/prperemyshlev/media-identity/internal/service"
	"go.uber.org/zap"
)

// Options configures a UserHandler
type Options struct {
	Cookie          config.CookieConfig
	UploadDir       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// UserHandler handles account, session and profile requests
type UserHandler struct {
	authService    service.AuthService
	profileService service.ProfileService
	media          service.MediaStore
	cookies        sessionCookies
	uploadDir      string
	logger         *zap.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(
	authService service.AuthService,
	profileService service.ProfileService,
	media service.MediaStore,
	opts Options,
	logger *zap.Logger,
) *UserHandler {
	return &UserHandler{
		authService:    authService,
		profileService: profileService,
		media:          media,
		cookies: sessionCookies{
			cfg:        opts.Cookie,
			accessTTL:  opts.AccessTokenTTL,
			refreshTTL: opts.RefreshTokenTTL,
		},
		uploadDir: opts.UploadDir,
		logger:    logger,
	}
}

// RegisterRoutes mounts the user routes on rg; auth guards the protected ones
func (h *UserHandler) RegisterRoutes(rg *gin.RouterGroup, auth gin.HandlerFunc) {
	rg.POST("/register", h.Register)
	rg.POST("/login", h.Login)
	rg.POST("/refresh-token", h.RefreshToken)

	secured := rg.Group("", auth)
	{
		secured.POST("/logout", h.Logout)
		secured.POST("/change-password", h.ChangePassword)
		secured.GET("/current-user", h.CurrentUser)
		secured.PATCH("/update-account", h.UpdateAccount)
		secured.PATCH("/avatar", h.UpdateAvatar)
		secured.PATCH("/cover-image", h.UpdateCoverImage)
		secured.GET("/c/:username", h.ChannelProfile)
		secured.GET("/history", h.WatchHistory)
	}
}

// Register handles multipart registration with avatar and optional coverImage files
func (h *UserHandler) Register(c *gin.Context) {
	avatarPath, err := saveUpload(c, h.uploadDir, "avatar")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	coverPath, err := saveUpload(c, h.uploadDir, "coverImage")
	if err != nil {
		h.media.Discard(avatarPath)
		respondError(c, h.logger, err)
		return
	}

	var req dto.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		h.media.Discard(avatarPath)
		h.media.Discard(coverPath)
		badRequest(c, service.MsgFillAllFields, err)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), &req, avatarPath, coverPath)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusCreated, user, "User registered successfully")
}

// Login handles login by user name or email
func (h *UserHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.cookies.set(c, resp.AccessToken, resp.RefreshToken)
	respond(c, http.StatusOK, resp, "User logged in successfully")
}

// Logout ends the caller's session and clears the session cookies
func (h *UserHandler) Logout(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		respondError(c, h.logger, &service.Error{Kind: service.KindUnauthorized, Message: service.MsgUnauthorizedRequest})
		return
	}

	if err := h.authService.Logout(c.Request.Context(), user.ID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.cookies.clear(c)
	respond(c, http.StatusOK, nil, "User logged out")
}

// RefreshToken rotates the session using the refreshToken cookie or body field
func (h *UserHandler) RefreshToken(c *gin.Context) {
	token, err := c.Cookie(refreshTokenCookie)
	if err != nil || token == "" {
		var req dto.RefreshRequest
		// An empty or non-JSON body simply carries no token.
		_ = c.ShouldBind(&req)
		token = req.RefreshToken
	}

	resp, err := h.authService.RefreshToken(c.Request.Context(), token)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.cookies.set(c, resp.AccessToken, resp.RefreshToken)
	respond(c, http.StatusOK, resp, "Access token refreshed")
}

// ChangePassword changes the caller's password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	user, _ := currentUser(c)

	var req dto.ChangePasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), user.ID, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, nil, "Password changed successfully")
}

// CurrentUser returns the caller's sanitized record
func (h *UserHandler) CurrentUser(c *gin.Context) {
	user, _ := currentUser(c)

	resp, err := h.authService.GetCurrentUser(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, resp, "Current user fetched successfully")
}

// UpdateAccount updates the caller's full name and email
func (h *UserHandler) UpdateAccount(c *gin.Context) {
	user, _ := currentUser(c)

	var req dto.UpdateAccountRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	resp, err := h.authService.UpdateAccount(c.Request.Context(), user.ID, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, resp, "Account details updated successfully")
}

// UpdateAvatar replaces the caller's avatar with the multipart avatar file
func (h *UserHandler) UpdateAvatar(c *gin.Context) {
	h.updateImage(c, "avatar", h.authService.UpdateAvatar, "Avatar updated successfully")
}

// UpdateCoverImage replaces the caller's cover image with the multipart coverImage file
func (h *UserHandler) UpdateCoverImage(c *gin.Context) {
	h.updateImage(c, "coverImage", h.authService.UpdateCoverImage, "Cover image updated successfully")
}

type imageUpdater func(ctx context.Context, userID, localPath string) (*dto.UserResponse, error)

func (h *UserHandler) updateImage(c *gin.Context, field string, update imageUpdater, message string) {
	user, _ := currentUser(c)

	path, err := saveUpload(c, h.uploadDir, field)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp, err := update(c.Request.Context(), user.ID, path)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, resp, message)
}

// ChannelProfile returns the channel read model as seen by the caller
func (h *UserHandler) ChannelProfile(c *gin.Context) {
	viewer, _ := currentUser(c)

	profile, err := h.profileService.ChannelProfile(c.Request.Context(), c.Param("username"), viewer.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, profile, "User channel fetched successfully")
}

// WatchHistory returns the caller's watched videos in watch order
func (h *UserHandler) WatchHistory(c *gin.Context) {
	user, _ := currentUser(c)

	videos, err := h.profileService.WatchHistory(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, videos, "Watch history fetched successfully")
}
