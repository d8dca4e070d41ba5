package flowz

import (
	"reflect"

	"github.com/birdayz/flowz/gdag"
	"github.com/birdayz/flowz/internal/engine"
)

// Junction handles expose the typed ports of fan-in and fan-out stages.
// Every port must be connected before the graph can be materialized.

// MergeHandle is the port set of a Merge junction.
type MergeHandle[T any] struct {
	id gdag.StageID
	n  int
}

// AddMerge adds a Merge junction with n inlets: elements from any inlet
// are forwarded downstream one at a time, with round-robin fairness
// among inlets that have an element ready.
func AddMerge[T any](gb *GraphBuilder, n int) *MergeHandle[T] {
	id := gb.nextID("merge")
	gb.addStage(&gdag.Stage{
		ID:       id,
		Kind:     gdag.KindMerge,
		InTypes:  repeatType(typeOf[T](), n),
		OutTypes: repeatType(typeOf[T](), 1),
		Builder: &runtimeBuilder{kind: gdag.KindMerge, build: func() engine.Logic {
			return engine.NewMergeLogic(n)
		}},
	})
	return &MergeHandle[T]{id: id, n: n}
}

// In returns the i-th inlet.
func (m *MergeHandle[T]) In(i int) Inlet[T] {
	return Inlet[T]{ref: gdag.PortRef{Stage: m.id, Port: i}}
}

// Out returns the single outlet.
func (m *MergeHandle[T]) Out() Outlet[T] {
	return Outlet[T]{ref: gdag.PortRef{Stage: m.id, Port: 0}}
}

// MergePreferredHandle is the port set of a MergePreferred junction.
type MergePreferredHandle[T any] struct {
	id gdag.StageID
	n  int
}

// AddMergePreferred adds a MergePreferred junction with one preferred
// inlet and n regular inlets. Whenever the preferred inlet has an
// element ready it is served first; the regular inlets share merge
// fairness among themselves.
func AddMergePreferred[T any](gb *GraphBuilder, n int) *MergePreferredHandle[T] {
	id := gb.nextID("merge-preferred")
	gb.addStage(&gdag.Stage{
		ID:       id,
		Kind:     gdag.KindMergePreferred,
		InTypes:  repeatType(typeOf[T](), n+1),
		OutTypes: repeatType(typeOf[T](), 1),
		Builder: &runtimeBuilder{kind: gdag.KindMergePreferred, build: func() engine.Logic {
			return engine.NewMergePreferredLogic(n)
		}},
	})
	return &MergePreferredHandle[T]{id: id, n: n}
}

// Preferred returns the preferred inlet.
func (m *MergePreferredHandle[T]) Preferred() Inlet[T] {
	return Inlet[T]{ref: gdag.PortRef{Stage: m.id, Port: 0}}
}

// In returns the i-th regular inlet.
func (m *MergePreferredHandle[T]) In(i int) Inlet[T] {
	return Inlet[T]{ref: gdag.PortRef{Stage: m.id, Port: i + 1}}
}

// Out returns the single outlet.
func (m *MergePreferredHandle[T]) Out() Outlet[T] {
	return Outlet[T]{ref: gdag.PortRef{Stage: m.id, Port: 0}}
}

// BroadcastHandle is the port set of a Broadcast junction.
type BroadcastHandle[T any] struct {
	id gdag.StageID
	n  int
}

// AddBroadcast adds a Broadcast junction with n outlets: every element
// is delivered to every outlet, advancing only at the pace of the
// slowest consumer. With eagerCancel, the first downstream cancellation
// tears the junction down; otherwise cancelled outlets are dropped and
// the junction keeps serving the rest.
func AddBroadcast[T any](gb *GraphBuilder, n int, eagerCancel bool) *BroadcastHandle[T] {
	id := gb.nextID("broadcast")
	gb.addStage(&gdag.Stage{
		ID:       id,
		Kind:     gdag.KindBroadcast,
		InTypes:  repeatType(typeOf[T](), 1),
		OutTypes: repeatType(typeOf[T](), n),
		Builder: &runtimeBuilder{kind: gdag.KindBroadcast, build: func() engine.Logic {
			return engine.NewBroadcastLogic(n, eagerCancel)
		}},
	})
	return &BroadcastHandle[T]{id: id, n: n}
}

// In returns the single inlet.
func (b *BroadcastHandle[T]) In() Inlet[T] {
	return Inlet[T]{ref: gdag.PortRef{Stage: b.id, Port: 0}}
}

// Out returns the i-th outlet.
func (b *BroadcastHandle[T]) Out(i int) Outlet[T] {
	return Outlet[T]{ref: gdag.PortRef{Stage: b.id, Port: i}}
}

// ZipHandle is the port set of a Zip junction.
type ZipHandle[A, B any] struct {
	id gdag.StageID
}

// AddZip adds a Zip junction pairing elements positionally: the i-th
// element of the first inlet with the i-th of the second. Completes as
// soon as either inlet can no longer contribute to a pair.
func AddZip[A, B any](gb *GraphBuilder) *ZipHandle[A, B] {
	id := gb.nextID("zip")
	gb.addStage(&gdag.Stage{
		ID:       id,
		Kind:     gdag.KindZip,
		InTypes:  []reflect.Type{typeOf[A](), typeOf[B]()},
		OutTypes: []reflect.Type{typeOf[Pair[A, B]]()},
		Builder: &runtimeBuilder{kind: gdag.KindZip, build: func() engine.Logic {
			return engine.NewZipLogic(func(a, b any) any {
				return Pair[A, B]{First: a.(A), Second: b.(B)}
			})
		}},
	})
	return &ZipHandle[A, B]{id: id}
}

// First returns the inlet for the pair's first component.
func (z *ZipHandle[A, B]) First() Inlet[A] {
	return Inlet[A]{ref: gdag.PortRef{Stage: z.id, Port: 0}}
}

// Second returns the inlet for the pair's second component.
func (z *ZipHandle[A, B]) Second() Inlet[B] {
	return Inlet[B]{ref: gdag.PortRef{Stage: z.id, Port: 1}}
}

// Out returns the outlet emitting matched pairs.
func (z *ZipHandle[A, B]) Out() Outlet[Pair[A, B]] {
	return Outlet[Pair[A, B]]{ref: gdag.PortRef{Stage: z.id, Port: 0}}
}

// ConcatHandle is the port set of a Concat junction.
type ConcatHandle[T any] struct {
	id gdag.StageID
	n  int
}

// AddConcat adds a Concat junction with n inlets: inlet 0 is drained to
// completion before inlet 1 is pulled at all, and so on.
func AddConcat[T any](gb *GraphBuilder, n int) *ConcatHandle[T] {
	id := gb.nextID("concat")
	gb.addStage(&gdag.Stage{
		ID:       id,
		Kind:     gdag.KindConcat,
		InTypes:  repeatType(typeOf[T](), n),
		OutTypes: repeatType(typeOf[T](), 1),
		Builder: &runtimeBuilder{kind: gdag.KindConcat, build: func() engine.Logic {
			return engine.NewConcatLogic(n)
		}},
	})
	return &ConcatHandle[T]{id: id, n: n}
}

// In returns the i-th inlet.
func (c *ConcatHandle[T]) In(i int) Inlet[T] {
	return Inlet[T]{ref: gdag.PortRef{Stage: c.id, Port: i}}
}

// Out returns the single outlet.
func (c *ConcatHandle[T]) Out() Outlet[T] {
	return Outlet[T]{ref: gdag.PortRef{Stage: c.id, Port: 0}}
}

// InterleaveHandle is the port set of an Interleave junction.
type InterleaveHandle[T any] struct {
	id gdag.StageID
	n  int
}

// AddInterleave adds an Interleave junction with n inlets: segmentSize
// consecutive elements are taken from each inlet in turn, cycling.
// Inlets that complete early are skipped.
func AddInterleave[T any](gb *GraphBuilder, n, segmentSize int) *InterleaveHandle[T] {
	id := gb.nextID("interleave")
	gb.addStage(&gdag.Stage{
		ID:       id,
		Kind:     gdag.KindInterleave,
		InTypes:  repeatType(typeOf[T](), n),
		OutTypes: repeatType(typeOf[T](), 1),
		Builder: &runtimeBuilder{kind: gdag.KindInterleave, build: func() engine.Logic {
			return engine.NewInterleaveLogic(n, segmentSize)
		}},
	})
	return &InterleaveHandle[T]{id: id, n: n}
}

// In returns the i-th inlet.
func (i *InterleaveHandle[T]) In(k int) Inlet[T] {
	return Inlet[T]{ref: gdag.PortRef{Stage: i.id, Port: k}}
}

// Out returns the single outlet.
func (i *InterleaveHandle[T]) Out() Outlet[T] {
	return Outlet[T]{ref: gdag.PortRef{Stage: i.id, Port: 0}}
}
