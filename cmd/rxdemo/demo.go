package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/rxkit/config"
	"github.com/kbukum/rxkit/logger"
	"github.com/kbukum/rxkit/observability"
	"github.com/kbukum/rxkit/resilience"
	"github.com/kbukum/rxkit/stream"
)

var errUnpriced = stderrors.New("order has no price")

type order struct {
	ID    int
	Price int
}

type healthRegistry interface {
	AddHealthCheck(checkers ...observability.HealthChecker)
}

type demo struct {
	cfg     *config.ServiceConfig
	log     *logger.Logger
	metrics *observability.StreamMetrics

	// slowConsumer is how long the bounded stream's subscriber takes per value.
	slowConsumer time.Duration
}

func newDemo(cfg *config.ServiceConfig, log *logger.Logger, metrics *observability.StreamMetrics) *demo {
	return &demo{cfg: cfg, log: log, metrics: metrics, slowConsumer: 5 * time.Millisecond}
}

func (d *demo) options(name string) []stream.Option {
	return []stream.Option{
		stream.WithName(name),
		stream.WithLogger(d.log.WithComponent("stream")),
		stream.WithMetrics(d.metrics),
	}
}

func (d *demo) run(ctx context.Context, health healthRegistry) error {
	totals, err := d.pipeline()
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	d.log.Info("pipeline delivered", logger.Fields("totals", totals))

	stats, err := d.backpressure(ctx, health)
	if err != nil {
		return fmt.Errorf("backpressure: %w", err)
	}
	d.log.Info("bounded stream drained", logger.Fields(
		"emitted", stats.Emitted,
		"delivered", stats.Delivered,
		"dropped", stats.Dropped,
	))

	lines, err := d.zip()
	if err != nil {
		return fmt.Errorf("zip: %w", err)
	}
	d.log.Info("zip delivered", logger.Fields("lines", lines))

	readings, err := d.merge()
	if err != nil {
		return fmt.Errorf("merge: %w", err)
	}
	d.log.Info("merge delivered", logger.Fields("readings", readings))

	quote, err := d.retry(ctx)
	if err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	d.log.Info("retry succeeded", logger.Fields("quote", quote))
	return nil
}

// pipeline filters out empty orders, prices the rest and substitutes a
// zero total for orders that cannot be priced.
func (d *demo) pipeline() ([]int, error) {
	var totals []int
	orders := stream.New[order](d.options("orders")...).
		Filter(func(o order) bool { return o.ID > 0 }).
		Map(func(o order) (order, error) {
			if o.Price < 0 {
				return o, fmt.Errorf("order %d: %w", o.ID, errUnpriced)
			}
			o.Price *= 2
			return o, nil
		}).
		OnError(func(err error) order {
			d.log.Warn("order recovered", logger.ErrorFields("price", err))
			return order{}
		}).
		OnComplete(func() { d.log.Debug("orders completed") })
	orders.Subscribe(func(o order) { totals = append(totals, o.Price) })

	for _, o := range []order{{1, 10}, {0, 99}, {2, -1}, {3, 7}} {
		if err := orders.Emit(o); err != nil {
			return nil, err
		}
	}
	return totals, orders.Complete()
}

// backpressure feeds a bounded stream faster than its subscriber drains it.
func (d *demo) backpressure(ctx context.Context, health healthRegistry) (stream.Stats, error) {
	policy, err := stream.ParseOverflowPolicy(d.cfg.Stream.Policy)
	if err != nil {
		return stream.Stats{}, err
	}
	opts := append(d.options("ingest"),
		stream.WithOverflowPolicy(policy),
		stream.WithOfferTimeout(d.cfg.Stream.OfferTimeout),
	)
	ingest, err := stream.NewBounded[int](d.cfg.Stream.Capacity, opts...)
	if err != nil {
		return stream.Stats{}, err
	}
	health.AddHealthCheck(ingest)

	var mu sync.Mutex
	last, disordered := 0, 0
	ingest.Subscribe(func(n int) {
		time.Sleep(d.slowConsumer)
		mu.Lock()
		defer mu.Unlock()
		if n <= last {
			disordered++
		}
		last = n
	})

	for n := 1; n <= d.cfg.Stream.Capacity*4; n++ {
		if err := ingest.Emit(n); err != nil && !stderrors.Is(err, stream.ErrBackpressure) {
			return ingest.Stats(), err
		}
	}

	closeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := ingest.Close(closeCtx); err != nil {
		return ingest.Stats(), err
	}
	if disordered > 0 {
		return ingest.Stats(), fmt.Errorf("%d values delivered out of order", disordered)
	}
	return ingest.Stats(), nil
}

// zip pairs prices with quantities by position.
func (d *demo) zip() ([]string, error) {
	prices := stream.New[float64](d.options("prices")...)
	quantities := stream.New[int](d.options("quantities")...)
	var lines []string
	stream.Zip(prices, quantities, func(p float64, q int) string {
		return fmt.Sprintf("%d x %.2f = %.2f", q, p, p*float64(q))
	}, d.options("order-lines")...).
		Subscribe(func(l string) { lines = append(lines, l) })

	for _, p := range []float64{2.5, 4, 1.25} {
		if err := prices.Emit(p); err != nil {
			return nil, err
		}
	}
	for _, q := range []int{3, 1, 8, 2} {
		if err := quantities.Emit(q); err != nil {
			return nil, err
		}
	}
	return lines, stderrors.Join(prices.Complete(), quantities.Complete())
}

// merge fans two sensor feeds into one.
func (d *demo) merge() ([]string, error) {
	north := stream.New[string](d.options("north")...)
	south := stream.New[string](d.options("south")...)
	var readings []string
	stream.NewMerger([]*stream.Stream[string]{north, south}, d.options("sensors")...).
		ForEach(func(r string) { readings = append(readings, r) })

	emits := []struct {
		s *stream.Stream[string]
		v string
	}{{north, "n1"}, {south, "s1"}, {north, "n2"}, {south, "s2"}}
	for _, e := range emits {
		if err := e.s.Emit(e.v); err != nil {
			return nil, err
		}
	}
	return readings, stderrors.Join(north.Complete(), south.Complete())
}

// retry fetches a quote from a source that fails twice before answering.
func (d *demo) retry(ctx context.Context) (int, error) {
	calls := 0
	return resilience.Retry(ctx, resilience.RetryConfig{
		Name:        "fetch_quote",
		MaxAttempts: d.cfg.Retry.MaxAttempts,
		Backoff:     resilience.LinearBackoff(d.cfg.Retry.BaseDelay),
		RetryIf:     func(error) bool { return true },
		Metrics:     d.metrics,
		Logger:      d.log.WithComponent("resilience"),
	}, func() (int, error) {
		calls++
		if calls <= 2 {
			return 0, fmt.Errorf("quote service unavailable (call %d)", calls)
		}
		return 42, nil
	})
}
