// Package stream provides a small push-based reactive stream runtime.
//
// A Stream threads every emitted value through its filters, then its
// transformations, then its subscribers, synchronously on the caller's
// goroutine. Streams compose: Zip pairs two streams index by index, Merge
// fans several streams into one, and Bounded decouples a producer from its
// subscribers with a fixed-capacity buffer drained by a dedicated consumer
// goroutine.
//
// # Operators
//
//   - Subscribe / Sink: register subscribers (Sink subscribers may fail)
//   - Map: replace the running value
//   - Filter: drop values that do not satisfy a predicate
//   - OnError: substitute a recovery value when a step fails
//   - OnComplete: run once when the producer signals completion
//
// # Usage
//
//	s := stream.New[int]().
//	    Filter(func(n int) bool { return n%2 == 0 }).
//	    Map(func(n int) (int, error) { return n * 10, nil }).
//	    Subscribe(func(n int) { fmt.Println(n) })
//	_ = s.Emit(2) // prints 20
//	_ = s.Complete()
//
// Bounded streams feed pipelines through Sink:
//
//	b, _ := stream.NewBounded[int](64)
//	b.Sink(s.Emit)
//	defer b.Close(ctx)
//
// # Concurrency
//
// Stream, Combiner and Merger are not safe for concurrent use: each must be
// driven by a single producer goroutine. Bounded is safe for concurrent
// producers and owns exactly one consumer goroutine.
package stream
