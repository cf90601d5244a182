package stream

// Merger republishes every value of several streams onto one outgoing
// stream, in the order the upstream Emit calls happen. Nothing is buffered
// or deduplicated.
type Merger[T any] struct {
	out       *Stream[T]
	sources   []*Stream[T]
	remaining int
}

// NewMerger subscribes to every stream in streams. The outgoing stream
// completes after every upstream has completed.
func NewMerger[T any](streams []*Stream[T], opts ...Option) *Merger[T] {
	m := &Merger[T]{
		out:       newStream[T]("merge", opts),
		sources:   streams,
		remaining: len(streams),
	}
	for _, src := range streams {
		src.Sink(m.out.Emit).OnComplete(m.sourceCompleted)
	}
	if m.remaining == 0 {
		m.out.completeLogged()
	}
	return m
}

// Merge is shorthand for NewMerger(streams).Stream().
func Merge[T any](streams ...*Stream[T]) *Stream[T] {
	return NewMerger(streams).Stream()
}

// ForEach subscribes fn to the merged stream.
func (m *Merger[T]) ForEach(fn func(T)) *Merger[T] {
	m.out.Subscribe(fn)
	return m
}

// Stream returns the outgoing stream, for chaining further operators.
func (m *Merger[T]) Stream() *Stream[T] { return m.out }

// Sources returns the upstream streams the merger subscribed to.
func (m *Merger[T]) Sources() []*Stream[T] { return m.sources }

func (m *Merger[T]) sourceCompleted() {
	m.remaining--
	if m.remaining == 0 {
		m.out.completeLogged()
	}
}
