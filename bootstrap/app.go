package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/kbukum/rxkit/logger"
	"github.com/kbukum/rxkit/observability"
	"github.com/kbukum/rxkit/version"
)

// loggerComponents get registry loggers derived from the configured global
// logger, so packages calling logger.Get pick up its output and level.
var loggerComponents = []string{"config", "stream", "resilience"}

// App runs a finite stream workload with a uniform lifecycle: config
// validation, logging, optional OTLP export, start hooks, the task, stop
// hooks and a final health report.
//
// Example:
//
//	cfg, err := config.Load("rxdemo")
//	app, err := bootstrap.NewApp(cfg)
//	err = app.RunTask(ctx, func(ctx context.Context) error {
//	    return run(ctx, app.Cfg, app.Metrics)
//	})
type App[C Config] struct {
	Name    string
	Version string
	Cfg     C
	Logger  *logger.Logger
	// Metrics records stream and retry activity. Without OTLP export it is
	// backed by the global no-op provider.
	Metrics *observability.StreamMetrics

	gracefulTimeout time.Duration
	meter           metric.Meter
	checkers        []observability.HealthChecker

	onStart []Hook
	onStop  []Hook
}

// NewApp creates a new application instance from a typed config.
// It applies defaults, validates the config, and initializes the logger.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	base := cfg.GetServiceConfig()

	app := &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		gracefulTimeout: 15 * time.Second,
	}
	if app.Version == "" || app.Version == "dev" {
		app.Version = version.Get().String()
	}

	o := resolveOptions(opts)
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}
	if o.logger != nil {
		app.Logger = o.logger
	} else {
		logger.Init(base.Logging)
		logger.RegisterDefaults(loggerComponents...)
		app.Logger = logger.GetGlobalLogger()
	}
	app.meter = o.meter
	return app, nil
}

// AddHealthCheck registers components reported by Health.
func (a *App[C]) AddHealthCheck(checkers ...observability.HealthChecker) {
	a.checkers = append(a.checkers, checkers...)
}

// Health checks every registered component.
func (a *App[C]) Health(ctx context.Context) *observability.ServiceHealth {
	return observability.NewServiceHealth(a.Name, a.Version).Check(ctx, a.checkers...)
}

// ReadyCheck returns an error naming every component that is not up.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	var unhealthy []string
	for _, h := range a.Health(ctx).Components {
		if h.Status != observability.HealthStatusUp {
			detail := h.Name + "=" + string(h.Status)
			if h.Message != "" {
				detail += "(" + h.Message + ")"
			}
			unhealthy = append(unhealthy, detail)
		}
	}
	if len(unhealthy) > 0 {
		return fmt.Errorf("unhealthy components: %s", strings.Join(unhealthy, ", "))
	}
	return nil
}

// RunTask executes task with the full lifecycle and returns its error.
// SIGINT and SIGTERM cancel the task context. Stop hooks always run once
// startup succeeded; their error is returned only if the task succeeded.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		return err
	}

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			a.Logger.Info("received signal, canceling task", logger.Fields("signal", sig.String()))
			cancel()
		case <-taskCtx.Done():
		}
	}()

	start := time.Now()
	taskErr := task(taskCtx)
	if taskErr != nil {
		a.Logger.WithError(taskErr).Error("task failed", logger.DurationFields("task", time.Since(start)))
	} else {
		a.Logger.Info("task finished", logger.DurationFields("task", time.Since(start)))
	}

	if stopErr := a.stop(); stopErr != nil && taskErr == nil {
		return stopErr
	}
	return taskErr
}

func (a *App[C]) startup(ctx context.Context) error {
	a.Logger.Info("starting application", logger.Fields(
		"name", a.Name,
		"version", a.Version,
		"go_version", version.Get().GoVersion,
	))

	if err := a.initTelemetry(ctx); err != nil {
		return fmt.Errorf("telemetry initialization failed: %w", err)
	}
	if err := runHooks(ctx, a.onStart); err != nil {
		return fmt.Errorf("onStart hook failed: %w", err)
	}
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("ready check reported issues", logger.Fields(logger.FieldError, err.Error()))
	}
	return nil
}

// initTelemetry starts OTLP export when enabled and creates App.Metrics.
// Provider shutdown is queued as the last stop hooks.
func (a *App[C]) initTelemetry(ctx context.Context) error {
	base := a.Cfg.GetServiceConfig()
	if base.Observability.Enabled {
		mc := base.MeterConfig()
		mc.ServiceVersion = a.Version
		mp, err := observability.InitMeter(ctx, &mc)
		if err != nil {
			return err
		}
		tc := base.TracerConfig()
		tc.ServiceVersion = a.Version
		tp, err := observability.InitTracer(ctx, tc)
		if err != nil {
			_ = mp.Shutdown(ctx)
			return err
		}
		a.onStop = append(a.onStop, tp.Shutdown, mp.Shutdown)
	}

	meter := a.meter
	if meter == nil {
		meter = observability.Meter(a.Name)
	}
	metrics, err := observability.NewStreamMetrics(meter)
	if err != nil {
		return err
	}
	a.Metrics = metrics
	return nil
}

func (a *App[C]) stop() error {
	a.Logger.Info("shutting down application", logger.Fields("timeout", a.gracefulTimeout.String()))

	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	err := runHooks(ctx, a.onStop)
	if err != nil {
		a.Logger.WithError(err).Error("onStop hook error")
	}

	health := a.Health(ctx)
	fields := logger.Fields("status", string(health.Status))
	for _, c := range health.Components {
		fields[c.Name] = string(c.Status)
	}
	a.Logger.Info("application shutdown complete", fields)
	return err
}
