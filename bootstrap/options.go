package bootstrap

import (
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/kbukum/rxkit/logger"
)

// Option configures the App during creation.
// Options are non-generic so they can be used with any config type.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	meter           metric.Meter
	gracefulTimeout *time.Duration
}

func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets a custom logger for the application.
// If not set, the logger is initialised from the config's Logging field.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) {
		o.logger = l
	}
}

// WithMeter records App.Metrics on m instead of the global meter provider.
func WithMeter(m metric.Meter) Option {
	return func(o *appOptions) {
		o.meter = m
	}
}

// WithGracefulTimeout sets the maximum duration for shutdown hooks.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) {
		o.gracefulTimeout = &d
	}
}
