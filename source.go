package flowz

import (
	"github.com/birdayz/flowz/gdag"
	"github.com/birdayz/flowz/internal/engine"
)

// Source describes a graph fragment with exactly one open outlet
// emitting elements of type T. Sources are immutable blueprints: adding
// one to a builder instantiates fresh stages each time.
type Source[T any] struct {
	build func(gb *GraphBuilder) Outlet[T]
}

// AddSource instantiates the source's stages in the builder and returns
// its open outlet for wiring.
func AddSource[T any](gb *GraphBuilder, src *Source[T]) Outlet[T] {
	return src.build(gb)
}

// sourceStage registers a single source stage descriptor with the given
// logic builder.
func sourceStage[T any](gb *GraphBuilder, prefix string, build func() engine.Logic) Outlet[T] {
	id := gb.nextID(prefix)
	gb.addStage(&gdag.Stage{
		ID:       id,
		Kind:     gdag.KindSource,
		OutTypes: repeatType(typeOf[T](), 1),
		Builder:  &runtimeBuilder{kind: gdag.KindSource, build: build},
	})
	return Outlet[T]{ref: gdag.PortRef{Stage: id, Port: 0}}
}

// FromSlice creates a source emitting the given elements in order, then
// completing.
func FromSlice[T any](items []T) *Source[T] {
	boxed := make([]any, len(items))
	for i, v := range items {
		boxed[i] = v
	}
	return &Source[T]{build: func(gb *GraphBuilder) Outlet[T] {
		return sourceStage[T](gb, "slice-source", func() engine.Logic {
			return engine.NewSliceSourceLogic(boxed)
		})
	}}
}

// Single creates a source emitting exactly one element. A single-element
// source is the canonical injection tool for seeding a cyclic graph with
// its first round-trip value.
func Single[T any](v T) *Source[T] {
	return FromSlice([]T{v})
}

// Empty creates a source that completes immediately without emitting.
func Empty[T any]() *Source[T] {
	return FromSlice([]T(nil))
}

// Failed creates a source that fails the stream immediately with err.
func Failed[T any](err error) *Source[T] {
	return &Source[T]{build: func(gb *GraphBuilder) Outlet[T] {
		return sourceStage[T](gb, "failed-source", func() engine.Logic {
			return engine.NewFailedSourceLogic(err)
		})
	}}
}

// Iterate creates a source driven by a generator. next is invoked once
// per element of downstream demand; returning false completes the
// source. The generator must be usable from the source stage's
// goroutine.
func Iterate[T any](next func() (T, bool)) *Source[T] {
	return &Source[T]{build: func(gb *GraphBuilder) Outlet[T] {
		return sourceStage[T](gb, "iterate-source", func() engine.Logic {
			return engine.NewIterateSourceLogic(func() (any, bool) {
				v, ok := next()
				return v, ok
			})
		})
	}}
}

// Via attaches a flow after the source, producing a new source.
func Via[In, Out any](src *Source[In], flow *Flow[In, Out]) *Source[Out] {
	return &Source[Out]{build: func(gb *GraphBuilder) Outlet[Out] {
		out := src.build(gb)
		in, downstream := flow.build(gb)
		Connect(gb, out, in)
		return downstream
	}}
}

// To terminates the source with a sink, yielding a runnable graph.
func To[T any](src *Source[T], sink *Sink[T]) *Runnable {
	gb := NewGraphBuilder()
	out := src.build(gb)
	in := sink.build(gb)
	Connect(gb, out, in)
	return gb.Runnable()
}
