package stream

import (
	"context"
	stderrors "errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/rxkit/errors"
	"github.com/kbukum/rxkit/observability"
)

// recorder is a goroutine-safe subscriber.
type recorder[T any] struct {
	mu     sync.Mutex
	values []T
}

func (r *recorder[T]) add(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder[T]) snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.values)
}

func newTestBounded[T any](t *testing.T, capacity int, opts ...Option) *Bounded[T] {
	t.Helper()
	b, err := NewBounded[T](capacity, append([]Option{quiet}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = b.Close(ctx)
	})
	return b
}

func closeWithin(t *testing.T, b interface{ Close(context.Context) error }, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, b.Close(ctx))
}

func TestNewBounded_RejectsNonPositiveCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		b, err := NewBounded[int](capacity, quiet)
		assert.Nil(t, b)
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeInvalidInput, errors.CodeOf(err))
	}
}

func TestBounded_DeliversInOrder(t *testing.T) {
	b := newTestBounded[int](t, 4)
	rec := &recorder[int]{}
	b.Subscribe(rec.add)

	for i := 1; i <= 20; i++ {
		require.NoError(t, b.Emit(i))
	}
	closeWithin(t, b, time.Second)

	want := make([]int, 20)
	for i := range want {
		want[i] = i + 1
	}
	assert.Equal(t, want, rec.snapshot())
	st := b.Stats()
	assert.Equal(t, int64(20), st.Emitted)
	assert.Equal(t, int64(20), st.Delivered)
	assert.Zero(t, st.Dropped)
}

func TestBounded_FullBufferDropsNewestAndKeepsOrder(t *testing.T) {
	gate := make(chan struct{})
	b := newTestBounded[int](t, 3, WithOfferTimeout(5*time.Millisecond))
	rec := &recorder[int]{}
	b.Subscribe(func(v int) {
		<-gate
		rec.add(v)
	})

	for i := 1; i <= 10; i++ {
		require.NoError(t, b.Emit(i), "drop_newest never fails the producer")
	}
	close(gate)
	closeWithin(t, b, time.Second)

	got := rec.snapshot()
	st := b.Stats()
	// At most one value in the blocked subscriber plus a full buffer.
	assert.LessOrEqual(t, len(got), 4)
	assert.GreaterOrEqual(t, st.Dropped, int64(6))
	assert.Equal(t, int64(10), st.Dropped+st.Emitted)
	assert.Equal(t, st.Emitted, int64(len(got)))
	assert.True(t, slices.IsSorted(got), "delivered out of order: %v", got)
	assert.Equal(t, 1, got[0])
}

func TestBounded_RejectPolicyReturnsBackpressure(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	b := newTestBounded[int](t, 1,
		WithOverflowPolicy(Reject),
		WithOfferTimeout(5*time.Millisecond),
	)
	var mu sync.Mutex
	var dropped []int
	b.Subscribe(func(int) { <-gate }).OnDrop(func(v int) {
		mu.Lock()
		dropped = append(dropped, v)
		mu.Unlock()
	})

	var rejected []error
	for i := 1; i <= 4; i++ {
		if err := b.Emit(i); err != nil {
			rejected = append(rejected, err)
		}
	}

	require.NotEmpty(t, rejected)
	for _, err := range rejected {
		assert.ErrorIs(t, err, ErrBackpressure)
		assert.True(t, errors.IsRetryable(err))
	}
	mu.Lock()
	assert.Len(t, dropped, len(rejected))
	mu.Unlock()
}

func TestBounded_SubscriberFailureIsIsolated(t *testing.T) {
	b := newTestBounded[int](t, 8)
	healthy := &recorder[int]{}
	b.Sink(func(v int) error {
		if v%2 == 0 {
			return stderrors.New("even")
		}
		return nil
	})
	b.Subscribe(func(v int) {
		if v == 3 {
			panic("three")
		}
	})
	b.Subscribe(healthy.add)

	for i := 1; i <= 4; i++ {
		require.NoError(t, b.Emit(i))
	}
	closeWithin(t, b, time.Second)

	assert.Equal(t, []int{1, 2, 3, 4}, healthy.snapshot())
	assert.Equal(t, int64(3), b.Stats().SubscriberErrors)
}

func TestBounded_ConcurrentProducers(t *testing.T) {
	const producers, perProducer = 8, 50
	b := newTestBounded[[2]int](t, 16, WithOfferTimeout(time.Second))
	rec := &recorder[[2]int]{}
	b.Subscribe(rec.add)

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perProducer {
				assert.NoError(t, b.Emit([2]int{p, i}))
			}
		}()
	}
	wg.Wait()
	closeWithin(t, b, 2*time.Second)

	got := rec.snapshot()
	require.Len(t, got, producers*perProducer)
	next := make([]int, producers)
	for _, v := range got {
		assert.Equal(t, next[v[0]], v[1], "producer %d reordered", v[0])
		next[v[0]]++
	}
}

func TestBounded_EmitAfterComplete(t *testing.T) {
	b := newTestBounded[int](t, 2)

	require.NoError(t, b.Complete())
	assert.ErrorIs(t, b.Emit(1), ErrCompleted)
	assert.ErrorIs(t, b.Complete(), ErrCompleted)

	select {
	case <-b.Done():
	case <-time.After(time.Second):
		t.Fatal("consumer did not exit after Complete")
	}
}

func TestBounded_CloseDrainsBuffer(t *testing.T) {
	gate := make(chan struct{})
	b := newTestBounded[int](t, 5)
	rec := &recorder[int]{}
	b.Subscribe(func(v int) {
		<-gate
		rec.add(v)
	})
	for i := 1; i <= 5; i++ {
		require.NoError(t, b.Emit(i))
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(gate)
	}()
	closeWithin(t, b, time.Second)

	assert.Equal(t, []int{1, 2, 3, 4, 5}, rec.snapshot())
	assert.False(t, b.Stats().Running)
}

func TestBounded_CloseHonoursContext(t *testing.T) {
	gate := make(chan struct{})
	b := newTestBounded[int](t, 4)
	b.Subscribe(func(int) { <-gate })
	for i := range 3 {
		require.NoError(t, b.Emit(i))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := b.Close(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(gate)
	require.Eventually(t, func() bool { return !b.Stats().Running }, time.Second, 5*time.Millisecond)
	assert.Less(t, b.Stats().Delivered, int64(3), "stopped consumer must not drain")
	assert.Equal(t, observability.HealthStatusDown, b.CheckHealth(context.Background()).Status)
}

func TestBounded_CheckHealth(t *testing.T) {
	gate := make(chan struct{})
	b := newTestBounded[int](t, 1, WithName("ingest"), WithOfferTimeout(time.Millisecond))
	b.Subscribe(func(int) { <-gate })

	h := b.CheckHealth(context.Background())
	assert.Equal(t, "ingest", h.Name)
	assert.Equal(t, observability.HealthStatusUp, h.Status)
	assert.Equal(t, "1", h.Details["capacity"])
	assert.Equal(t, "drop_newest", h.Details["policy"])

	require.NoError(t, b.Emit(1))
	require.Eventually(t, func() bool {
		_ = b.Emit(2)
		return b.CheckHealth(context.Background()).Status == observability.HealthStatusDegraded
	}, time.Second, 5*time.Millisecond)

	close(gate)
	closeWithin(t, b, time.Second)
	h = b.CheckHealth(context.Background())
	assert.Equal(t, observability.HealthStatusUp, h.Status)
	assert.Equal(t, "completed", h.Message)
}

func TestBounded_FeedsStreamPipeline(t *testing.T) {
	b := newTestBounded[int](t, 4)
	s := New[int](quiet).Filter(func(n int) bool { return n > 1 })
	var mu sync.Mutex
	var got []int
	s.Subscribe(func(n int) {
		mu.Lock()
		got = append(got, n)
		mu.Unlock()
	})
	b.Sink(s.Emit)

	for i := 1; i <= 3; i++ {
		require.NoError(t, b.Emit(i))
	}
	closeWithin(t, b, time.Second)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{2, 3}, got)
}

func TestParseOverflowPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    OverflowPolicy
		wantErr bool
	}{
		{"", DropNewest, false},
		{"drop_newest", DropNewest, false},
		{" Drop ", DropNewest, false},
		{"reject", Reject, false},
		{"REJECT", Reject, false},
		{"block", DropNewest, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOverflowPolicy(tt.in)
			if tt.wantErr {
				assert.Equal(t, errors.ErrCodeInvalidFormat, errors.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.String(), got.String())
		})
	}
	assert.Equal(t, "OverflowPolicy(7)", OverflowPolicy(7).String())
}
