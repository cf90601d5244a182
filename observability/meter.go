package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/rxkit/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Instrument names recorded by StreamMetrics.
const (
	MetricStreamEmitted          = "stream.emitted"
	MetricStreamDelivered        = "stream.delivered"
	MetricStreamDropped          = "stream.dropped"
	MetricStreamRecovered        = "stream.recovered"
	MetricStreamSubscriberErrors = "stream.subscriber_errors"
	MetricRetryAttempts          = "retry.attempts"
	MetricRetryExhausted         = "retry.exhausted"
)

// StreamMetrics holds the instruments recorded by streams and retries.
// All methods are safe to call on a nil *StreamMetrics.
type StreamMetrics struct {
	emitted          metric.Int64Counter
	delivered        metric.Int64Counter
	dropped          metric.Int64Counter
	recovered        metric.Int64Counter
	subscriberErrors metric.Int64Counter
	retryAttempts    metric.Int64Counter
	retryExhausted   metric.Int64Counter
}

// NewStreamMetrics creates metric instruments on the given meter.
func NewStreamMetrics(meter metric.Meter) (*StreamMetrics, error) {
	m := &StreamMetrics{}
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.emitted, MetricStreamEmitted, "Values accepted by a stream"},
		{&m.delivered, MetricStreamDelivered, "Values delivered to subscribers"},
		{&m.dropped, MetricStreamDropped, "Values dropped by a full bounded stream"},
		{&m.recovered, MetricStreamRecovered, "Emissions recovered by an error handler"},
		{&m.subscriberErrors, MetricStreamSubscriberErrors, "Subscriber failures isolated by a bounded stream"},
		{&m.retryAttempts, MetricRetryAttempts, "Attempts made by retry helpers"},
		{&m.retryExhausted, MetricRetryExhausted, "Retry loops that ran out of attempts"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("creating %s counter: %w", c.name, err)
		}
		*c.dst = counter
	}
	return m, nil
}

func streamAttrs(stream string) metric.AddOption {
	return metric.WithAttributes(attribute.String(AttrStream, stream))
}

// RecordEmitted counts a value accepted by a stream.
func (m *StreamMetrics) RecordEmitted(ctx context.Context, stream string) {
	if m == nil {
		return
	}
	m.emitted.Add(ctx, 1, streamAttrs(stream))
}

// RecordDelivered counts a value handed to a stream's subscribers.
func (m *StreamMetrics) RecordDelivered(ctx context.Context, stream string) {
	if m == nil {
		return
	}
	m.delivered.Add(ctx, 1, streamAttrs(stream))
}

// RecordDropped counts a value a bounded stream could not enqueue.
func (m *StreamMetrics) RecordDropped(ctx context.Context, stream, policy string) {
	if m == nil {
		return
	}
	m.dropped.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrStream, stream),
		attribute.String(AttrPolicy, policy),
	))
}

// RecordRecovered counts an emission whose failure was replaced by a recovery value.
func (m *StreamMetrics) RecordRecovered(ctx context.Context, stream string) {
	if m == nil {
		return
	}
	m.recovered.Add(ctx, 1, streamAttrs(stream))
}

// RecordSubscriberError counts a subscriber failure swallowed by a consumer loop.
func (m *StreamMetrics) RecordSubscriberError(ctx context.Context, stream string) {
	if m == nil {
		return
	}
	m.subscriberErrors.Add(ctx, 1, streamAttrs(stream))
}

// RecordRetryAttempt counts one invocation of a retried operation.
func (m *StreamMetrics) RecordRetryAttempt(ctx context.Context, operation, status string) {
	if m == nil {
		return
	}
	m.retryAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrOperationName, operation),
		attribute.String(AttrStatus, status),
	))
}

// RecordRetryExhausted counts a retry loop that gave up.
func (m *StreamMetrics) RecordRetryExhausted(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.retryExhausted.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrOperationName, operation),
	))
}
