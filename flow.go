package flowz

import (
	"time"

	"github.com/birdayz/flowz/gdag"
	"github.com/birdayz/flowz/internal/engine"
)

// Flow describes a graph fragment with one open inlet and one open
// outlet: a reusable processing segment between a source and a sink.
type Flow[In, Out any] struct {
	build func(gb *GraphBuilder) (Inlet[In], Outlet[Out])
}

// AddFlow instantiates the flow's stages in the builder and returns its
// open ports for wiring.
func AddFlow[In, Out any](gb *GraphBuilder, flow *Flow[In, Out]) (Inlet[In], Outlet[Out]) {
	return flow.build(gb)
}

// ViaFlow composes two flows end to end.
func ViaFlow[A, B, C any](first *Flow[A, B], second *Flow[B, C]) *Flow[A, C] {
	return &Flow[A, C]{build: func(gb *GraphBuilder) (Inlet[A], Outlet[C]) {
		in, mid := first.build(gb)
		midIn, out := second.build(gb)
		Connect(gb, mid, midIn)
		return in, out
	}}
}

// flowStage registers a single 1:1 flow stage descriptor.
func flowStage[In, Out any](gb *GraphBuilder, prefix string, kind gdag.StageKind, maxDemand int, build func() engine.Logic) (Inlet[In], Outlet[Out]) {
	id := gb.nextID(prefix)
	gb.addStage(&gdag.Stage{
		ID:        id,
		Kind:      kind,
		InTypes:   repeatType(typeOf[In](), 1),
		OutTypes:  repeatType(typeOf[Out](), 1),
		MaxDemand: maxDemand,
		Builder:   &runtimeBuilder{kind: kind, build: build},
	})
	return Inlet[In]{ref: gdag.PortRef{Stage: id, Port: 0}},
		Outlet[Out]{ref: gdag.PortRef{Stage: id, Port: 0}}
}

func simpleFlow[In, Out any](prefix string, build func() engine.Logic) *Flow[In, Out] {
	return &Flow[In, Out]{build: func(gb *GraphBuilder) (Inlet[In], Outlet[Out]) {
		return flowStage[In, Out](gb, prefix, gdag.KindFlow, 1, build)
	}}
}

// Map creates a flow applying fn to every element.
func Map[In, Out any](fn func(In) Out) *Flow[In, Out] {
	return simpleFlow[In, Out]("map", func() engine.Logic {
		return engine.NewMapLogic(func(v any) (any, error) {
			return fn(v.(In)), nil
		})
	})
}

// MapErr is Map for transformations that can fail; an error fails the
// stream.
func MapErr[In, Out any](fn func(In) (Out, error)) *Flow[In, Out] {
	return simpleFlow[In, Out]("map", func() engine.Logic {
		return engine.NewMapLogic(func(v any) (any, error) {
			return fn(v.(In))
		})
	})
}

// Filter creates a flow forwarding only elements satisfying pred.
func Filter[T any](pred func(T) bool) *Flow[T, T] {
	return simpleFlow[T, T]("filter", func() engine.Logic {
		return engine.NewFilterLogic(func(v any) bool {
			return pred(v.(T))
		})
	})
}

// Take creates a flow passing through the first n elements, then
// completing downstream and cancelling upstream.
func Take[T any](n int) *Flow[T, T] {
	return simpleFlow[T, T]("take", func() engine.Logic {
		return engine.NewTakeLogic(n)
	})
}

// Buffer creates a flow holding up to capacity elements, decoupling
// upstream speed from downstream demand according to the overflow
// strategy. Placing a buffer inside a feedback loop is one of the
// standard ways to keep a cyclic graph live.
func Buffer[T any](capacity int, strategy OverflowStrategy) *Flow[T, T] {
	return &Flow[T, T]{build: func(gb *GraphBuilder) (Inlet[T], Outlet[T]) {
		return flowStage[T, T](gb, "buffer", gdag.KindBuffer, capacity, func() engine.Logic {
			return engine.NewBufferLogic(capacity, strategy)
		})
	}}
}

// Recover creates the explicit failure-interception flow: on upstream
// failure fn may convert the error into one final element, after which
// the stream completes. If fn returns false the failure propagates
// unchanged.
func Recover[T any](fn func(error) (T, bool)) *Flow[T, T] {
	return simpleFlow[T, T]("recover", func() engine.Logic {
		return engine.NewRecoverLogic(func(err error) (any, bool) {
			v, ok := fn(err)
			return v, ok
		})
	})
}

// IdleTimeout creates a pass-through flow that fails the stream with
// ErrIdleTimeout if no element arrives within d. The engine defines no
// timeouts of its own; this is an ordinary stage composed like any
// other.
func IdleTimeout[T any](d time.Duration) *Flow[T, T] {
	return simpleFlow[T, T]("idle-timeout", func() engine.Logic {
		return engine.NewIdleTimeoutLogic(d)
	})
}
