package flowz

import (
	"context"

	"github.com/birdayz/flowz/gdag"
	"github.com/birdayz/flowz/internal/engine"
)

// Sink describes a graph fragment with exactly one open inlet consuming
// elements of type T and computing a materialized result.
//
// A Sink value is bound to a single run: its Result resolves once. Build
// a fresh sink (and graph) per run.
type Sink[T any] struct {
	build func(gb *GraphBuilder) Inlet[T]
}

// AddSink instantiates the sink's stage in the builder and returns its
// open inlet for wiring.
func AddSink[T any](gb *GraphBuilder, sink *Sink[T]) Inlet[T] {
	return sink.build(gb)
}

// Result is the typed materialized value of a sink. It resolves when the
// sink reaches a terminal state: completion, failure, or cancellation.
type Result[T any] struct {
	cell *engine.Cell
	conv func(any) T
}

// Wait blocks until the result resolves or ctx is done.
func (r *Result[T]) Wait(ctx context.Context) (T, error) {
	v, err := r.cell.Wait(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	return r.conv(v), nil
}

// Done is closed once the result has resolved.
func (r *Result[T]) Done() <-chan struct{} { return r.cell.Done() }

// sinkStage registers a sink stage descriptor bound to the given cell.
func sinkStage[T any](gb *GraphBuilder, prefix string, build func() engine.Logic) Inlet[T] {
	id := gb.nextID(prefix)
	gb.addStage(&gdag.Stage{
		ID:      id,
		Kind:    gdag.KindSink,
		InTypes: repeatType(typeOf[T](), 1),
		Builder: &runtimeBuilder{kind: gdag.KindSink, build: build},
	})
	return Inlet[T]{ref: gdag.PortRef{Stage: id, Port: 0}}
}

// Collect creates a sink gathering every element, materializing the full
// sequence on completion.
func Collect[T any]() (*Sink[T], *Result[[]T]) {
	cell := engine.NewCell()
	sink := &Sink[T]{build: func(gb *GraphBuilder) Inlet[T] {
		return sinkStage[T](gb, "collect-sink", func() engine.Logic {
			return engine.NewCollectSink(cell)
		})
	}}
	return sink, &Result[[]T]{cell: cell, conv: func(v any) []T {
		if v == nil {
			return nil
		}
		boxed := v.([]any)
		items := make([]T, len(boxed))
		for i, b := range boxed {
			items[i] = b.(T)
		}
		return items
	}}
}

// First creates a sink materializing the first element and cancelling
// the rest of the stream. Fails with ErrNoElement on an empty stream.
func First[T any]() (*Sink[T], *Result[T]) {
	cell := engine.NewCell()
	sink := &Sink[T]{build: func(gb *GraphBuilder) Inlet[T] {
		return sinkStage[T](gb, "first-sink", func() engine.Logic {
			return engine.NewFirstSink(cell)
		})
	}}
	return sink, &Result[T]{cell: cell, conv: func(v any) T { return v.(T) }}
}

// Fold creates a sink reducing the stream into an accumulator,
// materializing the aggregate on completion. An fn error fails the
// stream.
func Fold[T, A any](zero A, fn func(A, T) (A, error)) (*Sink[T], *Result[A]) {
	cell := engine.NewCell()
	sink := &Sink[T]{build: func(gb *GraphBuilder) Inlet[T] {
		return sinkStage[T](gb, "fold-sink", func() engine.Logic {
			return engine.NewFoldSink(cell, zero, func(acc, v any) (any, error) {
				return fn(acc.(A), v.(T))
			})
		})
	}}
	return sink, &Result[A]{cell: cell, conv: func(v any) A { return v.(A) }}
}

// ForEach creates a sink invoking fn per element, materializing
// completion. An fn error fails the stream.
func ForEach[T any](fn func(T) error) (*Sink[T], *Result[struct{}]) {
	cell := engine.NewCell()
	sink := &Sink[T]{build: func(gb *GraphBuilder) Inlet[T] {
		return sinkStage[T](gb, "foreach-sink", func() engine.Logic {
			return engine.NewForeachSink(cell, func(v any) error {
				return fn(v.(T))
			})
		})
	}}
	return sink, &Result[struct{}]{cell: cell, conv: func(any) struct{} { return struct{}{} }}
}

// Ignore creates a sink draining and discarding the stream,
// materializing only its completion.
func Ignore[T any]() (*Sink[T], *Result[struct{}]) {
	cell := engine.NewCell()
	sink := &Sink[T]{build: func(gb *GraphBuilder) Inlet[T] {
		return sinkStage[T](gb, "ignore-sink", func() engine.Logic {
			return engine.NewIgnoreSink(cell)
		})
	}}
	return sink, &Result[struct{}]{cell: cell, conv: func(any) struct{} { return struct{}{} }}
}
