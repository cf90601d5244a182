package stream

import "github.com/kbukum/rxkit/logger"

// Combiner pairs the values of two streams index by index: the Nth pair
// holds the Nth value of each side, whatever order they arrived in.
//
// Values are buffered from the moment the combiner is created. Pairs are
// formed only once at least one output exists (see Combine), so buffered
// values are never consumed without a receiver. Once the combiner has
// completed, further upstream values are ignored.
type Combiner[A, B any] struct {
	left    []A
	right   []B
	outputs []combineOutput[A, B]
	log     *logger.Logger

	leftDone  bool
	rightDone bool
	completed bool
}

type combineOutput[A, B any] struct {
	emit     func(A, B) error
	complete func()
}

// NewCombiner subscribes to a and b and starts buffering their values.
// Only the logger option is used.
func NewCombiner[A, B any](a *Stream[A], b *Stream[B], opts ...Option) *Combiner[A, B] {
	c := &Combiner[A, B]{log: applyOptions("combiner", opts).logger}
	a.Sink(func(v A) error {
		if c.completed {
			return nil
		}
		c.left = append(c.left, v)
		return c.drain()
	}).OnComplete(func() {
		c.leftDone = true
		c.settle()
	})
	b.Sink(func(v B) error {
		if c.completed {
			return nil
		}
		c.right = append(c.right, v)
		return c.drain()
	}).OnComplete(func() {
		c.rightDone = true
		c.settle()
	})
	return c
}

// Combine returns a stream that receives fn(a, b) for every pair the
// combiner forms from now on. Pairs left buffered from before the output
// existed are formed on the next upstream value, on upstream completion,
// or on Flush.
//
// The returned stream completes once no further pair can be formed: one
// side completed with nothing buffered.
func Combine[A, B, R any](c *Combiner[A, B], fn func(A, B) R, opts ...Option) *Stream[R] {
	out := newStream[R]("zip", opts)
	if c.completed {
		out.completeLogged()
		return out
	}
	c.outputs = append(c.outputs, combineOutput[A, B]{
		emit: func(a A, b B) error {
			return out.Emit(fn(a, b))
		},
		complete: out.completeLogged,
	})
	return out
}

// Zip is shorthand for Combine(NewCombiner(a, b), fn).
func Zip[A, B, R any](a *Stream[A], b *Stream[B], fn func(A, B) R, opts ...Option) *Stream[R] {
	return Combine(NewCombiner(a, b, opts...), fn, opts...)
}

// Pending returns how many values each side holds without a partner.
func (c *Combiner[A, B]) Pending() (left, right int) {
	return len(c.left), len(c.right)
}

// Flush delivers every pair the buffers already allow to the registered
// outputs. Call it after subscribing to an output created while both sides
// held values.
func (c *Combiner[A, B]) Flush() error {
	return c.drain()
}

// settle runs on upstream completion. Pairs still formable are delivered
// first so a completed side is only judged exhausted once it is empty.
func (c *Combiner[A, B]) settle() {
	if err := c.drain(); err != nil {
		c.log.WithError(err).Error("combiner output failed on completion")
	}
}

// drain forms pairs until one side is empty. A failing output stops the
// drain and the error reaches the upstream Emit; unpaired values stay
// buffered for the next arrival.
func (c *Combiner[A, B]) drain() error {
	for len(c.outputs) > 0 && len(c.left) > 0 && len(c.right) > 0 {
		a, b := c.popLeft(), c.popRight()
		for _, o := range c.outputs {
			if err := o.emit(a, b); err != nil {
				return err
			}
		}
	}
	c.completeIfExhausted()
	return nil
}

func (c *Combiner[A, B]) popLeft() A {
	var zero A
	v := c.left[0]
	c.left[0] = zero
	c.left = c.left[1:]
	return v
}

func (c *Combiner[A, B]) popRight() B {
	var zero B
	v := c.right[0]
	c.right[0] = zero
	c.right = c.right[1:]
	return v
}

// completeIfExhausted completes the outputs once a completed side has
// nothing left to pair. Surplus on the other side is released.
func (c *Combiner[A, B]) completeIfExhausted() {
	if c.completed {
		return
	}
	if (c.leftDone && len(c.left) == 0) || (c.rightDone && len(c.right) == 0) {
		c.completed = true
		c.left, c.right = nil, nil
		for _, o := range c.outputs {
			o.complete()
		}
	}
}
