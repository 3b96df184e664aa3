package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/media-identity/internal/config"
	"github.com/prperemyshlev/media-identity/internal/handler"
	"github.com/prperemyshlev/media-identity/internal/repository"
	"github.com/prperemyshlev/media-identity/internal/service"
	"github.com/prperemyshlev/media-identity/internal/utils"
	"github.com/prperemyshlev/media-identity/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const (
	serviceName     = "media-identity"
	shutdownTimeout = 5 * time.Second
)

type App struct {
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server
}

func NewApp(infra Infrastructure, cfg *config.Config) *App {
	logger := infra.Logger()
	repos := repository.NewRepositories(infra.Postgres())

	jwtManager := utils.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry.Duration,
		cfg.JWT.RefreshTokenExpiry.Duration,
	)
	hasher := utils.NewPasswordHasher(cfg.Security.BCryptCost)
	userCache := service.NewUserCache(infra.Redis(), cfg.Cache.UserTTL.Duration, logger)

	var recorder service.EventRecorder
	if t := infra.Telemetry(); t != nil && t.Auth != nil {
		recorder = t.Auth
	}

	authService := service.NewAuthService(
		repos.User,
		jwtManager,
		hasher,
		infra.Media(),
		userCache,
		recorder,
		logger,
	)
	profileService := service.NewProfileService(repos.User)

	userHandler := handler.NewUserHandler(authService, profileService, infra.Media(), handler.Options{
		Cookie:          cfg.Cookie,
		UploadDir:       cfg.Upload.TempDir,
		AccessTokenTTL:  cfg.JWT.AccessTokenExpiry.Duration,
		RefreshTokenTTL: cfg.JWT.RefreshTokenExpiry.Duration,
	}, logger)

	healthChecker := NewHealthChecker(infra.Postgres(), infra.Redis())

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(handler.LoggerMiddleware(logger))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, userHandler, handler.AuthMiddleware(authService, logger), healthChecker, infra.Telemetry())

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:  infra,
		config: cfg,
		router: router,
		server: srv,
	}
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(
	router *gin.Engine,
	userHandler *handler.UserHandler,
	auth gin.HandlerFunc,
	healthChecker *HealthChecker,
	telemetry *observability.Telemetry,
) {
	router.GET("/metrics", observability.PrometheusHandler(telemetry))
	router.GET("/health", healthChecker.Handler)

	api := router.Group("/api/v1")
	{
		userHandler.RegisterRoutes(api.Group("/users"), auth)
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

// Shutdown drains in-flight requests before closing the infrastructure
func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	serverErr := a.server.Shutdown(ctx)
	err := errors.Join(serverErr, a.infra.Shutdown(ctx))
	if err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
