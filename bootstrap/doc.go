// Package bootstrap runs rxkit workloads with a uniform lifecycle.
//
// NewApp validates the configuration and initialises logging. RunTask then
// starts OTLP export when observability is enabled, runs start hooks, the
// task, and stop hooks, and logs the health of every registered component:
//
//	app, err := bootstrap.NewApp(cfg)
//	if err != nil {
//	    return err
//	}
//	ingest, _ := stream.NewBounded[Event](cfg.Stream.Capacity, stream.WithMetrics(app.Metrics))
//	app.AddHealthCheck(ingest)
//	app.OnStop(ingest.Close)
//	return app.RunTask(ctx, produce)
//
// SIGINT and SIGTERM cancel the task context.
package bootstrap
