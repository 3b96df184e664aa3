package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prperemyshlev/media-identity/internal/config"
	"github.com/prperemyshlev/media-identity/internal/media"
	"github.com/prperemyshlev/media-identity/pkg/database"
	"github.com/prperemyshlev/media-identity/pkg/observability"
	"go.uber.org/zap"
)

// Infrastructure owns the process-wide connections and clients
type Infrastructure interface {
	Postgres() *database.Postgres
	Redis() *database.Redis
	Media() *media.S3Store
	Logger() *zap.Logger
	Telemetry() *observability.Telemetry

	Shutdown(ctx context.Context) error
}

type infrastructure struct {
	postgres  *database.Postgres
	redis     *database.Redis
	media     *media.S3Store
	logger    *zap.Logger
	telemetry *observability.Telemetry
}

var _ Infrastructure = &infrastructure{}

// NewInfrastructure connects to Postgres and Redis, applies migrations when
// enabled and builds the media store and telemetry
func NewInfrastructure(ctx context.Context, cfg config.Config) (*infrastructure, error) {
	i := &infrastructure{}

	logger, err := observability.InitLogger(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	i.logger = logger

	postgres, err := database.NewPostgres(ctx, cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	i.postgres = postgres

	if cfg.Postgres.AutoMigrate {
		if err := postgres.Migrate(); err != nil {
			_ = i.postgres.Close()
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		logger.Info("database migrations applied")
	}

	redis, err := database.NewRedis(ctx, cfg.Redis.Address(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		_ = i.postgres.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	i.redis = redis

	store, err := media.NewS3Store(ctx, cfg.Media, logger)
	if err != nil {
		_ = i.postgres.Close()
		_ = i.redis.Close()
		return nil, fmt.Errorf("failed to initialize media store: %w", err)
	}
	i.media = store

	telemetry, err := observability.InitTelemetry("media-identity")
	if err != nil {
		_ = i.postgres.Close()
		_ = i.redis.Close()
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	i.telemetry = telemetry

	return i, nil
}

func (i *infrastructure) Postgres() *database.Postgres {
	return i.postgres
}

func (i *infrastructure) Redis() *database.Redis {
	return i.redis
}

func (i *infrastructure) Media() *media.S3Store {
	return i.media
}

func (i *infrastructure) Logger() *zap.Logger {
	return i.logger
}

func (i *infrastructure) Telemetry() *observability.Telemetry {
	return i.telemetry
}

func (i *infrastructure) Shutdown(ctx context.Context) error {
	errs := make(chan error, 3)

	go func() { errs <- i.postgres.Close() }()
	go func() { errs <- i.redis.Close() }()
	go func() { errs <- i.telemetry.Shutdown(ctx, i.logger) }()

	return errors.Join(<-errs, <-errs, <-errs)
}
