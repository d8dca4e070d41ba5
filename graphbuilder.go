package flowz

import (
	"fmt"
	"reflect"

	"github.com/birdayz/flowz/gdag"
	"github.com/birdayz/flowz/internal/engine"
)

// Inlet is a typed reference to an open input port of a stage under
// construction.
type Inlet[T any] struct {
	ref gdag.PortRef
}

// Ref returns the untyped port reference.
func (i Inlet[T]) Ref() gdag.PortRef { return i.ref }

// Outlet is a typed reference to an open output port of a stage under
// construction.
type Outlet[T any] struct {
	ref gdag.PortRef
}

// Ref returns the untyped port reference.
func (o Outlet[T]) Ref() gdag.PortRef { return o.ref }

// GraphBuilder constructs arbitrary graph topologies, including cyclic
// ones, from stages and junctions. For simple linear pipelines prefer
// the Source/Flow/Sink combinators; the builder exists for everything
// they cannot express.
//
// IMPORTANT: GraphBuilder is NOT safe for concurrent use. All methods
// must be called from a single goroutine.
type GraphBuilder struct {
	b   *gdag.Builder
	seq int
}

// NewGraphBuilder creates an empty graph builder.
func NewGraphBuilder() *GraphBuilder {
	return &GraphBuilder{b: gdag.NewBuilder()}
}

// Err returns the first construction error, if any. Errors are sticky:
// once recorded, later operations are no-ops.
func (gb *GraphBuilder) Err() error { return gb.b.Err() }

// Runnable finalizes the graph for materialization. The graph must be
// closed (no open ports).
func (gb *GraphBuilder) Runnable() *Runnable {
	return &Runnable{gb: gb}
}

// nextID generates a deterministic stage ID for unnamed stages.
func (gb *GraphBuilder) nextID(prefix string) gdag.StageID {
	gb.seq++
	return gdag.StageID(fmt.Sprintf("%s-%d", prefix, gb.seq))
}

// Connect wires an outlet to an inlet carrying the same element type.
// Element types are additionally re-checked via reflection inside the
// description layer, so untyped construction paths fail at build time
// rather than mid-stream.
func Connect[T any](gb *GraphBuilder, from Outlet[T], to Inlet[T]) {
	gb.b.Connect(from.ref, to.ref)
}

// runtimeBuilder carries the closure that constructs a stage's live
// logic at materialization time. It implements gdag.RuntimeBuilder; the
// generic element types are erased here and re-established by the typed
// handles.
type runtimeBuilder struct {
	kind  gdag.StageKind
	build func() engine.Logic
}

func (r *runtimeBuilder) BuilderKind() gdag.StageKind { return r.kind }

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func repeatType(t reflect.Type, n int) []reflect.Type {
	types := make([]reflect.Type, n)
	for i := range types {
		types[i] = t
	}
	return types
}

// addStage registers a stage descriptor, routing errors into the
// builder's sticky error.
func (gb *GraphBuilder) addStage(stage *gdag.Stage) {
	gb.b.AddStage(stage)
}
