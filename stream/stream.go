package stream

import (
	"context"
	stderrors "errors"

	"github.com/kbukum/rxkit/logger"
	"github.com/kbukum/rxkit/observability"
)

// Stream is a push-based stream of T.
//
// Configuration methods return the receiver so calls can be chained.
// A Stream is not safe for concurrent use.
type Stream[T any] struct {
	name    string
	log     *logger.Logger
	metrics *observability.StreamMetrics

	filters            []func(T) bool
	transforms         []func(T) (T, error)
	subscribers        []func(T) error
	errorHandler       func(error) T
	completionHandlers []func()
	completed          bool
}

// New creates an empty stream.
func New[T any](opts ...Option) *Stream[T] {
	return newStream[T]("stream", opts)
}

func newStream[T any](prefix string, opts []Option) *Stream[T] {
	o := applyOptions(prefix, opts)
	return &Stream[T]{
		name:    o.name,
		log:     o.logger,
		metrics: o.metrics,
	}
}

// Name returns the stream name used in logs and metrics.
func (s *Stream[T]) Name() string { return s.name }

// Completed reports whether Complete has been called.
func (s *Stream[T]) Completed() bool { return s.completed }

// Subscribe registers fn to receive every value that passes the stream.
// Subscribers are notified in registration order and see only values
// emitted after they subscribed. Registering the same function twice
// delivers each value twice.
func (s *Stream[T]) Subscribe(fn func(T)) *Stream[T] {
	s.subscribers = append(s.subscribers, func(v T) error {
		fn(v)
		return nil
	})
	return s
}

// Sink registers a subscriber that can fail. A non-nil error is treated
// like any other failure inside Emit.
func (s *Stream[T]) Sink(fn func(T) error) *Stream[T] {
	s.subscribers = append(s.subscribers, fn)
	return s
}

// Map registers a transformation. Transformations run after all filters,
// in registration order, each replacing the running value.
func (s *Stream[T]) Map(fn func(T) (T, error)) *Stream[T] {
	s.transforms = append(s.transforms, fn)
	return s
}

// Filter registers a predicate. A value is delivered only if every
// predicate accepts it; evaluation stops at the first rejection.
func (s *Stream[T]) Filter(fn func(T) bool) *Stream[T] {
	s.filters = append(s.filters, fn)
	return s
}

// OnError sets the recovery function. When a filter, transformation or
// subscriber fails during Emit, fn is called once with the error and its
// result is delivered to every subscriber instead. A later call replaces
// the earlier handler.
func (s *Stream[T]) OnError(fn func(error) T) *Stream[T] {
	s.errorHandler = fn
	return s
}

// OnComplete registers fn to run when Complete is called.
func (s *Stream[T]) OnComplete(fn func()) *Stream[T] {
	s.completionHandlers = append(s.completionHandlers, fn)
	return s
}

// Emit pushes v through filters, transformations and subscribers.
//
// Panics in any callback are recovered and handled as errors. Without an
// error handler the failure is returned and the stream stays usable. With
// one, the recovery value is delivered to all subscribers and only a
// failure during that delivery is returned.
//
// Emit returns ErrCompleted after Complete.
func (s *Stream[T]) Emit(v T) error {
	if s.completed {
		return ErrCompleted
	}
	ctx := context.Background()
	s.metrics.RecordEmitted(ctx, s.name)

	out, keep, err := s.process(v)
	if err == nil {
		if !keep {
			return nil
		}
		if err = s.publish(out); err == nil {
			return nil
		}
	}
	if s.errorHandler == nil {
		return err
	}

	var recovered T
	if herr := guard("error handler", func() error {
		recovered = s.errorHandler(err)
		return nil
	}); herr != nil {
		return stderrors.Join(err, herr)
	}
	s.metrics.RecordRecovered(ctx, s.name)
	s.log.Debug("emission recovered", logger.ErrorFields("emit", err))
	return s.publish(recovered)
}

// process applies filters then transformations. keep is false when a
// filter rejected the value.
func (s *Stream[T]) process(v T) (out T, keep bool, err error) {
	for _, filter := range s.filters {
		var ok bool
		if err := guard("filter", func() error {
			ok = filter(v)
			return nil
		}); err != nil {
			return v, false, err
		}
		if !ok {
			return v, false, nil
		}
	}
	for _, transform := range s.transforms {
		if err := guard("map", func() error {
			var terr error
			v, terr = transform(v)
			return terr
		}); err != nil {
			return v, false, err
		}
	}
	return v, true, nil
}

// publish delivers v to every subscriber, stopping at the first failure.
func (s *Stream[T]) publish(v T) error {
	for _, sub := range s.subscribers {
		if err := guard("subscriber", func() error { return sub(v) }); err != nil {
			return err
		}
	}
	s.metrics.RecordDelivered(context.Background(), s.name)
	return nil
}

// Complete runs every completion handler once, in registration order.
// Registered subscribers and operators are kept. Later calls return
// ErrCompleted without running handlers again.
func (s *Stream[T]) Complete() error {
	if s.completed {
		return ErrCompleted
	}
	s.completed = true

	var errs []error
	for _, h := range s.completionHandlers {
		if err := guard("completion handler", func() error {
			h()
			return nil
		}); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// completeLogged completes s on behalf of an operator and logs handler
// failures, since no caller is left to receive them.
func (s *Stream[T]) completeLogged() {
	err := s.Complete()
	if err == nil || stderrors.Is(err, ErrCompleted) {
		return
	}
	s.log.WithError(err).Error("completion handler failed", logger.Fields(logger.FieldStream, s.name))
}
