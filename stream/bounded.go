package stream

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/rxkit/errors"
	"github.com/kbukum/rxkit/logger"
	"github.com/kbukum/rxkit/observability"
)

// Bounded is a stream backed by a fixed-capacity buffer. A dedicated
// consumer goroutine, started by NewBounded, drains the buffer in FIFO
// order and delivers each value to every subscriber.
//
// Emit is safe for concurrent producers. When the buffer stays full for the
// offer timeout the overflow policy applies; the buffer never grows past
// its capacity.
type Bounded[T any] struct {
	name         string
	capacity     int
	policy       OverflowPolicy
	offerTimeout time.Duration
	log          *logger.Logger
	metrics      *observability.StreamMetrics

	buf chan T

	// mu orders Complete after every in-flight Emit.
	mu         sync.RWMutex
	completed  bool
	completeCh chan struct{}

	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	subMu       sync.RWMutex
	subscribers []func(T) error
	onDrop      func(T)

	emitted          atomic.Int64
	delivered        atomic.Int64
	dropped          atomic.Int64
	subscriberErrors atomic.Int64
}

// Stats is a point-in-time snapshot of a bounded stream's counters.
type Stats struct {
	Name             string
	Capacity         int
	Buffered         int
	Emitted          int64
	Delivered        int64
	Dropped          int64
	SubscriberErrors int64
	Completed        bool
	Running          bool
}

// NewBounded creates a bounded stream and starts its consumer goroutine.
// capacity must be positive.
func NewBounded[T any](capacity int, opts ...Option) (*Bounded[T], error) {
	if capacity <= 0 {
		return nil, errors.InvalidInput("capacity", "must be a positive integer").
			WithDetail("capacity", capacity)
	}
	o := applyOptions("bounded", opts)
	b := &Bounded[T]{
		name:         o.name,
		capacity:     capacity,
		policy:       o.policy,
		offerTimeout: o.offerTimeout,
		log:          o.logger,
		metrics:      o.metrics,
		buf:          make(chan T, capacity),
		completeCh:   make(chan struct{}),
		stopCh:       make(chan struct{}),
		done:         make(chan struct{}),
	}
	go b.run()
	return b, nil
}

// Name returns the stream name used in logs and metrics.
func (b *Bounded[T]) Name() string { return b.name }

// Capacity returns the buffer capacity.
func (b *Bounded[T]) Capacity() int { return b.capacity }

// Subscribe registers fn with the consumer goroutine. It may be called
// at any time; fn sees values delivered after registration.
func (b *Bounded[T]) Subscribe(fn func(T)) *Bounded[T] {
	return b.Sink(func(v T) error {
		fn(v)
		return nil
	})
}

// Sink registers a subscriber that can fail. Failures and panics are
// logged and counted; delivery to the remaining subscribers continues.
func (b *Bounded[T]) Sink(fn func(T) error) *Bounded[T] {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	b.subscribers = append(b.subscribers, fn)
	return b
}

// OnDrop sets a callback invoked on the producer goroutine with every value
// the overflow policy discards.
func (b *Bounded[T]) OnDrop(fn func(T)) *Bounded[T] {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	b.onDrop = fn
	return b
}

// Emit enqueues v, waiting up to the offer timeout for space.
//
// If the buffer is still full the value is discarded and counted. Under
// DropNewest Emit returns nil; under Reject it returns ErrBackpressure.
// Emit returns ErrCompleted after Complete and ErrClosed if the consumer
// was stopped.
func (b *Bounded[T]) Emit(v T) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.completed {
		return ErrCompleted
	}

	select {
	case b.buf <- v:
		b.accepted()
		return nil
	default:
	}

	timer := time.NewTimer(b.offerTimeout)
	defer timer.Stop()
	select {
	case b.buf <- v:
		b.accepted()
		return nil
	case <-b.stopCh:
		return ErrClosed
	case <-timer.C:
	}
	return b.overflow(v)
}

func (b *Bounded[T]) accepted() {
	b.emitted.Add(1)
	b.metrics.RecordEmitted(context.Background(), b.name)
}

func (b *Bounded[T]) overflow(v T) error {
	b.dropped.Add(1)
	b.metrics.RecordDropped(context.Background(), b.name, b.policy.String())
	b.log.Warn("backpressure applied, value discarded", logger.Fields(
		logger.FieldCapacity, b.capacity,
		logger.FieldPolicy, b.policy.String(),
		"dropped_total", b.dropped.Load(),
	))

	b.subMu.RLock()
	onDrop := b.onDrop
	b.subMu.RUnlock()
	if onDrop != nil {
		if err := guard("drop callback", func() error {
			onDrop(v)
			return nil
		}); err != nil {
			b.log.WithError(err).Error("drop callback failed")
		}
	}

	if b.policy == Reject {
		return ErrBackpressure
	}
	return nil
}

// Complete marks the stream complete. Emit calls already waiting for space
// finish first. The consumer delivers everything still buffered and then
// exits. Later calls return ErrCompleted.
func (b *Bounded[T]) Complete() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.completed {
		return ErrCompleted
	}
	b.completed = true
	close(b.completeCh)
	return nil
}

// Close completes the stream and waits for the consumer to drain the
// buffer. If ctx ends first the consumer is told to stop without draining
// the rest and ctx.Err() is returned.
func (b *Bounded[T]) Close(ctx context.Context) error {
	_ = b.Complete()
	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		b.stop()
		return ctx.Err()
	}
}

// Done is closed when the consumer goroutine has exited.
func (b *Bounded[T]) Done() <-chan struct{} { return b.done }

func (b *Bounded[T]) stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
}

func (b *Bounded[T]) run() {
	defer close(b.done)
	b.log.Debug("consumer started", logger.Fields(logger.FieldCapacity, b.capacity))
	for {
		if isClosed(b.stopCh) {
			b.log.Debug("consumer stopped", logger.Fields("abandoned", len(b.buf)))
			return
		}
		select {
		case v := <-b.buf:
			b.deliver(v)
		case <-b.stopCh:
		case <-b.completeCh:
			b.drain()
			b.log.Debug("consumer finished", logger.Fields("delivered", b.delivered.Load()))
			return
		}
	}
}

// drain delivers what is left once no producer can enqueue any more.
func (b *Bounded[T]) drain() {
	for {
		select {
		case <-b.stopCh:
			return
		default:
		}
		select {
		case v := <-b.buf:
			b.deliver(v)
		default:
			return
		}
	}
}

func (b *Bounded[T]) deliver(v T) {
	b.subMu.RLock()
	subs := b.subscribers
	b.subMu.RUnlock()

	for i, sub := range subs {
		if err := guard("subscriber", func() error { return sub(v) }); err != nil {
			b.subscriberErrors.Add(1)
			b.metrics.RecordSubscriberError(context.Background(), b.name)
			b.log.WithError(err).Error("subscriber failed", logger.Fields("subscriber", i))
		}
	}
	b.delivered.Add(1)
	b.metrics.RecordDelivered(context.Background(), b.name)
}

// Stats returns a snapshot of the stream's counters.
func (b *Bounded[T]) Stats() Stats {
	b.mu.RLock()
	completed := b.completed
	b.mu.RUnlock()
	return Stats{
		Name:             b.name,
		Capacity:         b.capacity,
		Buffered:         len(b.buf),
		Emitted:          b.emitted.Load(),
		Delivered:        b.delivered.Load(),
		Dropped:          b.dropped.Load(),
		SubscriberErrors: b.subscriberErrors.Load(),
		Completed:        completed,
		Running:          !isClosed(b.done),
	}
}

// CheckHealth reports up while the consumer runs or after a full drain,
// degraded while the buffer is full, and down if the consumer was stopped
// before draining.
func (b *Bounded[T]) CheckHealth(_ context.Context) observability.Health {
	st := b.Stats()
	h := observability.Health{
		Name:   b.name,
		Status: observability.HealthStatusUp,
		Details: map[string]string{
			"capacity": strconv.Itoa(st.Capacity),
			"buffered": strconv.Itoa(st.Buffered),
			"dropped":  strconv.FormatInt(st.Dropped, 10),
			"policy":   b.policy.String(),
		},
	}
	switch {
	case isClosed(b.stopCh) && !st.Running:
		h.Status = observability.HealthStatusDown
		h.Message = "consumer stopped"
	case !st.Running:
		h.Message = "completed"
	case st.Buffered >= st.Capacity:
		h.Status = observability.HealthStatusDegraded
		h.Message = "buffer full"
	}
	return h
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
