package flowz

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

// TestCycleWithInjection builds the classic feedback loop: each traveler
// is paired with the previous traveler, and the pairing is fed back into
// the loop. A single injected element ignites the cycle; without it the
// loop would deadlock by construction.
//
//	travelers --> zip --> broadcast --> collect
//	               ^           |
//	             merge <-- map(first) (feedback)
//	               ^
//	            ignition
func TestCycleWithInjection(t *testing.T) {
	gb := NewGraphBuilder()

	travelers := AddSource(gb, FromSlice([]string{"traveler1", "traveler2"}))
	ignition := AddSource(gb, Single("ignition"))
	merge := AddMerge[string](gb, 2)
	zip := AddZip[string, string](gb)
	bcast := AddBroadcast[Pair[string, string]](gb, 2, false)
	feedbackIn, feedbackOut := AddFlow(gb, Map(func(p Pair[string, string]) string {
		return p.First
	}))
	sink, result := Collect[Pair[string, string]]()

	Connect(gb, ignition, merge.In(0))
	Connect(gb, feedbackOut, merge.In(1))
	Connect(gb, travelers, zip.First())
	Connect(gb, merge.Out(), zip.Second())
	Connect(gb, zip.Out(), bcast.In())
	Connect(gb, bcast.Out(0), AddSink(gb, sink))
	Connect(gb, bcast.Out(1), feedbackIn)

	run, err := gb.Runnable().Run()
	assert.NoError(t, err)
	assert.NoError(t, run.Wait())

	items, err := result.Wait(testCtx(t))
	assert.NoError(t, err)
	assert.Equal(t, []Pair[string, string]{
		{First: "traveler1", Second: "ignition"},
		{First: "traveler2", Second: "traveler1"},
	}, items)
}

// A loop buffered from inside stays live without an injected element as
// long as an external source keeps feeding it.
func TestCycleWithBuffer(t *testing.T) {
	gb := NewGraphBuilder()

	src := AddSource(gb, FromSlice([]int{1, 2, 3}))
	merge := AddMergePreferred[int](gb, 1)
	takeIn, takeOut := AddFlow(gb, Take[int](6))
	bcast := AddBroadcast[int](gb, 2, false)
	bufIn, bufOut := AddFlow(gb, Buffer[int](4, Backpressure))
	dblIn, dblOut := AddFlow(gb, Map(func(v int) int { return v * 2 }))
	sink, result := Collect[int]()

	// The feedback edge enters the preferred inlet through a buffer, so
	// the merge favors recycled elements and the buffer decouples the
	// loop's demand chain.
	Connect(gb, src, merge.In(0))
	Connect(gb, merge.Out(), takeIn)
	Connect(gb, takeOut, bcast.In())
	Connect(gb, bcast.Out(0), AddSink(gb, sink))
	Connect(gb, bcast.Out(1), dblIn)
	Connect(gb, dblOut, bufIn)
	Connect(gb, bufOut, merge.Preferred())

	run, err := gb.Runnable().Run()
	assert.NoError(t, err)
	run.Wait()

	items, err := result.Wait(testCtx(t))
	assert.NoError(t, err)
	assert.Equal(t, 6, len(items))
	assert.Equal(t, 1, items[0])
}
