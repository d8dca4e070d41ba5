package engine

// junctionKind is the closed set of junction policies. Junction behavior
// is dispatched by a single switch per handler; each kind carries only
// the state its policy needs.
type junctionKind int

const (
	junctionMerge junctionKind = iota
	junctionMergePreferred
	junctionBroadcast
	junctionZip
	junctionConcat
	junctionInterleave
)

// junctionLogic implements all fan-in/fan-out policies.
//
// Fan-in kinds (merge, mergePreferred, zip) hold one pending-element slot
// per inlet. Sequencing kinds (concat, interleave) pull only the active
// inlet and track in-flight demand toward it. Broadcast is the only
// fan-out kind.
type junctionLogic struct {
	BaseLogic
	kind junctionKind

	// fan-in slots, one per inlet
	slots    []any
	slotFull []bool
	finished []bool

	// merge: round-robin cursor over inlets (least recently served next)
	cursor int

	// zip: combines the two pending elements into the emitted value
	combine func(a, b any) any
	zipDone bool // an inlet finished; complete after the pending pair

	// concat/interleave: active inlet, pulls in flight toward it, and
	// elements remaining in the current segment (interleave only)
	current     int
	inFlight    int
	segmentSize int
	segment     int

	// broadcast
	eagerCancel bool
	pulled      bool
}

// NewMergeLogic creates a Merge(n): n inlets, 1 outlet, round-robin
// fairness among inlets holding a pending element.
func NewMergeLogic(n int) Logic {
	return &junctionLogic{
		kind:     junctionMerge,
		slots:    make([]any, n),
		slotFull: make([]bool, n),
		finished: make([]bool, n),
	}
}

// NewMergePreferredLogic creates a MergePreferred(n): inlet 0 is the
// preferred inlet and always wins when it holds an element; inlets 1..n
// fall back to merge fairness.
func NewMergePreferredLogic(n int) Logic {
	return &junctionLogic{
		kind:     junctionMergePreferred,
		slots:    make([]any, n+1),
		slotFull: make([]bool, n+1),
		finished: make([]bool, n+1),
		cursor:   1,
	}
}

// NewBroadcastLogic creates a Broadcast(n): 1 inlet, n outlets. With
// eagerCancel, the first downstream cancellation tears down the inlet
// and the remaining outlets; otherwise the inlet is cancelled only once
// every outlet has cancelled.
func NewBroadcastLogic(n int, eagerCancel bool) Logic {
	_ = n
	return &junctionLogic{
		kind:        junctionBroadcast,
		eagerCancel: eagerCancel,
	}
}

// NewZipLogic creates a Zip: 2 inlets, 1 outlet, emitting one combined
// value per matched pair. combine builds the emitted pair value.
func NewZipLogic(combine func(a, b any) any) Logic {
	return &junctionLogic{
		kind:     junctionZip,
		slots:    make([]any, 2),
		slotFull: make([]bool, 2),
		finished: make([]bool, 2),
		combine:  combine,
	}
}

// NewConcatLogic creates a Concat(n): drains inlet 0 to completion, then
// inlet 1, and so on.
func NewConcatLogic(n int) Logic {
	return &junctionLogic{
		kind:     junctionConcat,
		finished: make([]bool, n),
	}
}

// NewInterleaveLogic creates an Interleave(n, segmentSize): emits
// segmentSize consecutive elements per inlet, cycling; inlets that
// complete early are skipped.
func NewInterleaveLogic(n, segmentSize int) Logic {
	return &junctionLogic{
		kind:        junctionInterleave,
		finished:    make([]bool, n),
		segmentSize: segmentSize,
	}
}

func (j *junctionLogic) OnStart(env *Env) {
	switch j.kind {
	case junctionMerge, junctionMergePreferred, junctionZip:
		for in := range j.slots {
			env.Pull(in)
		}
	case junctionConcat, junctionInterleave:
		// Demand-driven: the active inlet is pulled on downstream pull.
	case junctionBroadcast:
		// Pulled once every outlet has demand.
	}
}

func (j *junctionLogic) OnPush(env *Env, in int, v any) {
	switch j.kind {
	case junctionMerge, junctionMergePreferred:
		j.slots[in] = v
		j.slotFull[in] = true
		j.mergeEmit(env)

	case junctionZip:
		j.slots[in] = v
		j.slotFull[in] = true
		j.zipEmit(env)

	case junctionConcat, junctionInterleave:
		j.inFlight--
		env.Push(0, v)
		if j.kind == junctionInterleave {
			j.segment++
			if j.segment >= j.segmentSize {
				j.advance(env)
			}
		}
		j.refill(env)

	case junctionBroadcast:
		j.pulled = false
		for out := 0; out < env.stage.NumOutlets(); out++ {
			if !env.OutletClosed(out) {
				env.Push(out, v)
			}
		}
		j.broadcastPull(env)
	}
}

func (j *junctionLogic) OnPull(env *Env, out int) {
	switch j.kind {
	case junctionMerge, junctionMergePreferred:
		j.mergeEmit(env)
	case junctionZip:
		j.zipEmit(env)
	case junctionConcat, junctionInterleave:
		j.refill(env)
	case junctionBroadcast:
		j.broadcastPull(env)
	}
}

func (j *junctionLogic) OnUpstreamFinish(env *Env, in int) {
	switch j.kind {
	case junctionMerge, junctionMergePreferred:
		j.finished[in] = true
		j.mergeMaybeComplete(env)

	case junctionZip:
		j.finished[in] = true
		if !j.slotFull[in] {
			// No pair can ever form again.
			j.completeZip(env)
		} else {
			j.zipDone = true
		}

	case junctionConcat, junctionInterleave:
		j.finished[in] = true
		if in == j.current {
			j.inFlight = 0
			j.segment = 0
			j.advance(env)
			j.refill(env)
		}

	case junctionBroadcast:
		env.CompleteAll()
	}
}

func (j *junctionLogic) OnDownstreamCancel(env *Env, out int, cause error) {
	if j.kind != junctionBroadcast {
		env.CancelAll(cause)
		return
	}

	if j.eagerCancel {
		env.Cancel(0, cause)
		env.CompleteAll()
		return
	}
	if env.OpenOutlets() == 0 {
		env.Cancel(0, cause)
		return
	}
	// One gate fewer; the rest may now satisfy the pull condition.
	j.broadcastPull(env)
}

// mergeEmit drains pending slots into downstream demand, serving the
// least recently served ready inlet first.
func (j *junctionLogic) mergeEmit(env *Env) {
	if env.OutletClosed(0) {
		return
	}
	for env.HasDemand(0) {
		idx, ok := j.pickReady()
		if !ok {
			return
		}
		env.Push(0, j.slots[idx])
		j.slots[idx] = nil
		j.slotFull[idx] = false
		if !j.finished[idx] {
			env.Pull(idx)
		}
		if j.mergeMaybeComplete(env) {
			return
		}
	}
}

func (j *junctionLogic) pickReady() (int, bool) {
	n := len(j.slots)
	if j.kind == junctionMergePreferred {
		if j.slotFull[0] {
			return 0, true
		}
		for k := 0; k < n-1; k++ {
			idx := 1 + (j.cursor-1+k)%(n-1)
			if j.slotFull[idx] {
				j.cursor = 1 + (idx-1+1)%(n-1)
				return idx, true
			}
		}
		return 0, false
	}
	for k := 0; k < n; k++ {
		idx := (j.cursor + k) % n
		if j.slotFull[idx] {
			j.cursor = (idx + 1) % n
			return idx, true
		}
	}
	return 0, false
}

func (j *junctionLogic) mergeMaybeComplete(env *Env) bool {
	for in := range j.finished {
		if !j.finished[in] || j.slotFull[in] {
			return false
		}
	}
	if !env.OutletClosed(0) {
		env.Complete(0)
	}
	return true
}

func (j *junctionLogic) zipEmit(env *Env) {
	if env.OutletClosed(0) || !env.HasDemand(0) {
		return
	}
	if !j.slotFull[0] || !j.slotFull[1] {
		return
	}
	env.Push(0, j.combine(j.slots[0], j.slots[1]))
	j.slots[0], j.slots[1] = nil, nil
	j.slotFull[0], j.slotFull[1] = false, false
	if j.zipDone {
		j.completeZip(env)
		return
	}
	env.Pull(0)
	env.Pull(1)
}

func (j *junctionLogic) completeZip(env *Env) {
	if !env.OutletClosed(0) {
		env.Complete(0)
	}
	env.CancelAll(nil)
}

// advance moves concat/interleave to the next inlet that has not
// finished, completing the junction once none remains.
func (j *junctionLogic) advance(env *Env) {
	n := len(j.finished)
	j.segment = 0
	for k := 1; k <= n; k++ {
		idx := (j.current + k) % n
		if !j.finished[idx] {
			j.current = idx
			return
		}
	}
	if !env.OutletClosed(0) {
		env.Complete(0)
	}
}

// refill pulls the active inlet when downstream demand is unsatisfied
// and no pull is in flight. One element at a time: sequencing junctions
// have a demand limit of one, and mailbox sizing relies on it.
func (j *junctionLogic) refill(env *Env) {
	if env.OutletClosed(0) || j.allFinished() {
		return
	}
	if j.inFlight == 0 && env.HasDemand(0) {
		env.Pull(j.current)
		j.inFlight = 1
	}
}

func (j *junctionLogic) allFinished() bool {
	for _, f := range j.finished {
		if !f {
			return false
		}
	}
	return true
}

// broadcastPull pulls the inlet once every open outlet has demand and no
// pull is outstanding.
func (j *junctionLogic) broadcastPull(env *Env) {
	if j.pulled || env.InletClosed(0) {
		return
	}
	open := 0
	for out := 0; out < env.stage.NumOutlets(); out++ {
		if env.OutletClosed(out) {
			continue
		}
		open++
		if !env.HasDemand(out) {
			return
		}
	}
	if open == 0 {
		return
	}
	j.pulled = true
	env.Pull(0)
}
