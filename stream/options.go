package stream

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/rxkit/errors"
	"github.com/kbukum/rxkit/logger"
	"github.com/kbukum/rxkit/observability"
)

// DefaultOfferTimeout is how long a bounded Emit waits for buffer space
// before the overflow policy applies.
const DefaultOfferTimeout = 100 * time.Millisecond

// OverflowPolicy decides what a bounded stream does with a value that could
// not be enqueued within the offer timeout.
type OverflowPolicy int

const (
	// DropNewest discards the value that could not be enqueued and logs it.
	// Emit returns nil.
	DropNewest OverflowPolicy = iota
	// Reject discards the value and returns ErrBackpressure to the producer.
	Reject
)

// String returns the config name of the policy.
func (p OverflowPolicy) String() string {
	switch p {
	case DropNewest:
		return "drop_newest"
	case Reject:
		return "reject"
	default:
		return fmt.Sprintf("OverflowPolicy(%d)", int(p))
	}
}

// ParseOverflowPolicy parses a policy name as written in configuration.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "drop_newest", "drop":
		return DropNewest, nil
	case "reject":
		return Reject, nil
	default:
		return DropNewest, errors.InvalidFormat("policy", "drop_newest or reject")
	}
}

// Option configures a stream using the functional options pattern.
type Option func(*options)

type options struct {
	name         string
	logger       *logger.Logger
	metrics      *observability.StreamMetrics
	policy       OverflowPolicy
	offerTimeout time.Duration
}

// WithName sets the name used in logs and metrics.
// Defaults to a generated identifier.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger sets the logger. Defaults to logger.Get("stream").
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records stream activity on m.
func WithMetrics(m *observability.StreamMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithOverflowPolicy sets the bounded stream's full-buffer policy.
// Ignored by unbounded streams.
func WithOverflowPolicy(p OverflowPolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithOfferTimeout sets how long a bounded Emit waits for space.
// Ignored by unbounded streams.
func WithOfferTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.offerTimeout = d
		}
	}
}

func applyOptions(prefix string, opts []Option) *options {
	o := &options{
		policy:       DropNewest,
		offerTimeout: DefaultOfferTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.name == "" {
		o.name = prefix + "-" + uuid.NewString()[:8]
	}
	if o.logger == nil {
		o.logger = logger.Get("stream")
	}
	o.logger = o.logger.WithFields(logger.Fields(logger.FieldStream, o.name))
	return o
}
