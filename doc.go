// Package flowz is a demand-driven dataflow runtime: graphs of stages
// exchanging elements under an explicit backpressure protocol.
//
// # Composition
//
// Linear pipelines compose from Source, Flow, and Sink blueprints:
//
//	src := flowz.FromSlice([]int{1, 2, 3})
//	doubled := flowz.Via(src, flowz.Map(func(v int) int { return v * 2 }))
//	sink, result := flowz.Collect[int]()
//	run, err := flowz.To(doubled, sink).Run()
//
// Arbitrary topologies, including cyclic ones, use a GraphBuilder with
// explicit junctions (Merge, MergePreferred, Broadcast, Zip, Concat,
// Interleave) and typed port handles. A graph must be closed, every
// port connected, before it can be run.
//
// # Backpressure
//
// Demand flows upstream, elements flow downstream: a stage may push an
// element on an outlet only against demand previously granted by a
// pull. On every edge the count of pushes never exceeds the count of
// pulls. A stage that pushes without demand commits a protocol
// violation and its run fails; conforming stages can never be flooded.
//
// # Cycles
//
// Cyclic graphs are legal but not automatically live: a loop in which
// every stage waits for its own output deadlocks by construction.
// Liveness is supplied compositionally, by injecting an initial element
// into the loop (Single into a Merge), buffering inside the loop, or
// breaking the demand chain with MergePreferred.
//
// # Errors
//
// Failures propagate downstream, cancellations upstream. Run.Wait
// reports each failure once, at the stage where it originated.
package flowz
