package engine

import (
	"fmt"
	"time"
)

// throughput tracks in-flight demand for 1-inlet/1-outlet stages that
// forward elements without buffering. At most one pull is outstanding at
// a time, whatever downstream demand accumulates: the stage's demand
// limit is one, and mailbox sizing relies on it. Run-ahead is a buffer's
// job, not a pass-through stage's.
type throughput struct {
	inFlight int
}

// refill issues a pull when downstream demand is unsatisfied and none is
// in flight.
func (t *throughput) refill(env *Env) {
	if env.OutletClosed(0) || env.InletClosed(0) {
		return
	}
	if t.inFlight == 0 && env.HasDemand(0) {
		env.Pull(0)
		t.inFlight = 1
	}
}

// mapLogic applies fn to every element. An fn error fails the stream.
type mapLogic struct {
	BaseLogic
	throughput
	fn func(any) (any, error)
}

// NewMapLogic creates a 1:1 transformation stage.
func NewMapLogic(fn func(any) (any, error)) Logic {
	return &mapLogic{fn: fn}
}

func (m *mapLogic) OnPull(env *Env, out int) { m.refill(env) }

func (m *mapLogic) OnPush(env *Env, in int, v any) {
	m.inFlight--
	r, err := m.fn(v)
	if err != nil {
		env.Cancel(in, err)
		env.FailAll(err)
		return
	}
	env.Push(0, r)
	m.refill(env)
}

// filterLogic forwards elements satisfying pred and re-pulls for the
// ones it drops, keeping downstream demand satisfied.
type filterLogic struct {
	BaseLogic
	throughput
	pred func(any) bool
}

// NewFilterLogic creates a filtering stage.
func NewFilterLogic(pred func(any) bool) Logic {
	return &filterLogic{pred: pred}
}

func (f *filterLogic) OnPull(env *Env, out int) { f.refill(env) }

func (f *filterLogic) OnPush(env *Env, in int, v any) {
	f.inFlight--
	if f.pred(v) {
		env.Push(0, v)
	}
	f.refill(env)
}

// takeLogic forwards the first n elements, then completes downstream and
// cancels upstream.
type takeLogic struct {
	BaseLogic
	throughput
	remaining int
}

// NewTakeLogic creates a stage that passes through n elements and then
// terminates the stream early.
func NewTakeLogic(n int) Logic {
	return &takeLogic{remaining: n}
}

func (t *takeLogic) OnStart(env *Env) {
	if t.remaining <= 0 {
		env.Cancel(0, nil)
		env.CompleteAll()
	}
}

func (t *takeLogic) OnPull(env *Env, out int) {
	if t.remaining > t.inFlight {
		t.refill(env)
	}
}

func (t *takeLogic) OnPush(env *Env, in int, v any) {
	t.inFlight--
	t.remaining--
	env.Push(0, v)
	if t.remaining == 0 {
		env.Complete(0)
		env.Cancel(in, nil)
		return
	}
	t.refill(env)
}

// recoverLogic passes elements through; on upstream failure it consults
// fn to convert the error into one final element. If fn declines, the
// failure propagates unchanged.
type recoverLogic struct {
	BaseLogic
	throughput
	fn func(error) (any, bool)

	pending      any
	pendingValid bool
}

// NewRecoverLogic creates the explicit failure-interception stage.
func NewRecoverLogic(fn func(error) (any, bool)) Logic {
	return &recoverLogic{fn: fn}
}

func (r *recoverLogic) OnPull(env *Env, out int) {
	if r.pendingValid {
		if env.HasDemand(0) {
			env.Push(0, r.pending)
			r.pendingValid = false
			env.Complete(0)
		}
		return
	}
	r.refill(env)
}

func (r *recoverLogic) OnPush(env *Env, in int, v any) {
	r.inFlight--
	env.Push(0, v)
	r.refill(env)
}

func (r *recoverLogic) OnUpstreamFailure(env *Env, in int, err error) {
	v, ok := r.fn(err)
	if !ok {
		env.FailAll(err)
		return
	}
	if env.HasDemand(0) {
		env.Push(0, v)
		env.Complete(0)
		return
	}
	r.pending = v
	r.pendingValid = true
}

// idleTimeoutLogic fails the stream if no element passes through within
// the configured interval. Timeouts are ordinary stages; the engine
// itself defines none.
type idleTimeoutLogic struct {
	BaseLogic
	throughput
	timeout time.Duration
}

// NewIdleTimeoutLogic creates a pass-through stage that fails with
// ErrIdleTimeout after timeout without traffic.
func NewIdleTimeoutLogic(timeout time.Duration) Logic {
	return &idleTimeoutLogic{timeout: timeout}
}

func (l *idleTimeoutLogic) OnStart(env *Env) {
	env.ScheduleTimer(l.timeout)
}

func (l *idleTimeoutLogic) OnPull(env *Env, out int) { l.refill(env) }

func (l *idleTimeoutLogic) OnPush(env *Env, in int, v any) {
	l.inFlight--
	env.ScheduleTimer(l.timeout)
	env.Push(0, v)
	l.refill(env)
}

func (l *idleTimeoutLogic) OnUpstreamFinish(env *Env, in int) {
	env.CancelTimer()
	env.CompleteAll()
}

func (l *idleTimeoutLogic) OnTimer(env *Env) {
	err := fmt.Errorf("%w: %s", ErrIdleTimeout, l.timeout)
	env.Cancel(0, err)
	env.FailAll(err)
}
