// Package gdag provides the build-time description layer for dataflow
// graphs: stage descriptors, typed ports, edges, and shape projections.
//
// # Overview
//
// A dataflow graph is described before it is run. gdag separates the two
// concerns through a two-phase architecture:
//
// 1. **Build Phase**: Describe stages and connect their ports, with
// composition-time type checking.
// 2. **Run Phase**: The materializer in the root package turns a closed
// graph into live, concurrently executing stage instances.
//
// A Graph is a set of stage descriptors plus an edge list. Every inlet
// carries at most one incoming edge and every outlet at most one outgoing
// edge; fan-in and fan-out beyond 1:1 must go through explicit junction
// stages. A graph is "closed" once it has zero unconnected ports, and
// only closed graphs may be materialized.
//
// # Cycles
//
// Unlike a strict DAG builder, gdag permits cycles: a flow whose output
// feeds back into its own input is a legal topology. HasCycle/Cycle
// report structural cycles for diagnostics, but a cycle is never a build
// error. Liveness of a cyclic graph depends on how it was composed (an
// injection source, a buffer inside the loop, or eager cancellation at a
// broadcast) and is deliberately not checked here.
//
// # Type Safety
//
// Element types are captured per port as reflect.Type by the typed
// constructors in the root package. Connect validates that the outlet's
// element type matches the inlet's, failing with ErrTypeMismatch at
// composition time rather than mid-stream.
//
// All validation errors use sentinel errors (ErrGraphNotClosed,
// ErrTypeMismatch, ErrPortAlreadyConnected, ...) that can be checked
// with errors.Is().
//
// # Thread Safety
//
// IMPORTANT: Builder is NOT safe for concurrent use. All registration
// methods must be called from a single goroutine. A built Graph is
// immutable and safe to use concurrently.
package gdag
