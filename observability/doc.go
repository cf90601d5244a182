// Package observability provides OpenTelemetry tracing and metrics for
// rxkit streams and retries.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("rxdemo"))
//	defer tp.Shutdown(ctx)
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("rxdemo"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewStreamMetrics(observability.Meter("rxdemo"))
//	bounded, err := stream.NewBounded[int](64, stream.WithMetrics(metrics))
//
// Health:
//
//	health := observability.NewServiceHealth("rxdemo", "1.0.0")
//	health.AddComponent(bounded.CheckHealth(ctx))
package observability
