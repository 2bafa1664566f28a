package gateway

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metrics holds the OTel instruments for gateway calls. A nil *metrics is a
// no-op so the Client works without a meter provider in tests.
type metrics struct {
	attempts metric.Int64Counter
	failures metric.Int64Counter
}

// WithMeterProvider installs attempt and failure counters on the client.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cl *Client) {
		meter := mp.Meter("course-checkout/gateway")

		attempts, err := meter.Int64Counter("payment.gateway.attempts",
			metric.WithDescription("Create+process attempt sequences against the payment service"),
		)
		if err != nil {
			return
		}
		failures, err := meter.Int64Counter("payment.gateway.failures",
			metric.WithDescription("Failed create+process attempt sequences"),
		)
		if err != nil {
			return
		}

		cl.metrics = &metrics{attempts: attempts, failures: failures}
	}
}

func (m *metrics) recordAttempt(ctx context.Context, attempt int, ok bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Int("attempt", attempt))
	m.attempts.Add(ctx, 1, attrs)
	if !ok {
		m.failures.Add(ctx, 1, attrs)
	}
}
