package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AuthMetrics counts account and session events by outcome
type AuthMetrics struct {
	events metric.Int64Counter
}

// NewAuthMetrics registers the auth instruments on meter
func NewAuthMetrics(meter metric.Meter) (*AuthMetrics, error) {
	events, err := meter.Int64Counter(
		"identity_auth_events_total",
		metric.WithDescription("Authentication and session events by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth events counter: %w", err)
	}

	return &AuthMetrics{events: events}, nil
}

// Record increments the counter for event with the given outcome
func (m *AuthMetrics) Record(ctx context.Context, event, outcome string) {
	m.events.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", event),
		attribute.String("outcome", outcome),
	))
}
