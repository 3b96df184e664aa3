package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

// Telemetry bundles the meter provider, the Prometheus scrape handler and the service instruments
type Telemetry struct {
	MeterProvider *sdkmetric.MeterProvider
	Handler       http.Handler
	Auth          *AuthMetrics
}

// InitTelemetry initializes OpenTelemetry metrics exported through a private Prometheus registry
func InitTelemetry(serviceName string) (*Telemetry, error) {
	registry := prometheus.NewRegistry()

	exporter, err := otelprom.New(
		otelprom.WithRegisterer(registry),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)

	// otelgin picks the global provider up for its request instruments
	otel.SetMeterProvider(meterProvider)

	auth, err := NewAuthMetrics(meterProvider.Meter(serviceName))
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		MeterProvider: meterProvider,
		Handler:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Auth:          auth,
	}, nil
}

// InitLogger initializes the structured logger; production mode emits JSON
func InitLogger(env string) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	if env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	zap.ReplaceGlobals(logger)

	return logger, nil
}

// Shutdown flushes the meter provider and the logger
func (t *Telemetry) Shutdown(ctx context.Context, logger *zap.Logger) error {
	if t != nil && t.MeterProvider != nil {
		if err := t.MeterProvider.Shutdown(ctx); err != nil {
			logger.Error("failed to shutdown meter provider", zap.Error(err))
			return err
		}
	}

	if logger != nil {
		// Sync fails on stdout/stderr in some environments
		_ = logger.Sync()
	}

	return nil
}
