// Package engine executes materialized dataflow graphs. Each stage runs
// as one goroutine owning all of its state, consuming a bounded mailbox
// of signals; stages interact only by enqueueing signals to each other.
//
// The mailbox capacity is computed by the materializer from the demand
// limits of the connected stages so that every protocol-conforming send
// finds room without blocking. A full mailbox therefore indicates a bug
// in the engine itself, not backpressure.
//
// The element type is any throughout; static typing is layered on top
// by the root package's generic handles.
package engine
