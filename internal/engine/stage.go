package engine

import (
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"go.uber.org/multierr"
)

// connection is one end of a wired edge: the peer stage's mailbox plus
// the index of the peer's port on the other side.
type connection struct {
	peer     *Stage
	peerPort int
}

// outlet is the runtime state of an output port. demand is the number of
// elements downstream has requested and not yet received.
type outlet struct {
	conn   connection
	demand int
	closed bool
}

// inlet is the runtime state of an input port. outstanding is the number
// of pulls sent upstream that have not been satisfied by a push.
type inlet struct {
	conn        connection
	outstanding int
	closed      bool
}

// Stage is a live stage instance: a Logic plus its ports and a
// single-consumer mailbox. All state is owned by the stage's own
// goroutine; other stages interact with it only by enqueueing signals.
type Stage struct {
	name  string
	logic Logic
	log   logr.Logger

	inlets  []inlet
	outlets []outlet

	mailbox chan signal
	stopped chan struct{}

	env Env

	// violation is set by Env operations that break the port protocol;
	// the run loop turns it into a fatal stage failure.
	violation error

	// failure accumulates errors that originate at this stage (as
	// opposed to failures merely propagated from upstream).
	failure error

	// propagating is true while OnUpstreamFailure is being dispatched,
	// so that Env.Fail can tell origination from propagation.
	propagating bool

	timer    *time.Timer
	timerGen int
}

// NewStage creates a stage instance with the given port arity. The
// mailbox is allocated by InitMailbox once the materializer has computed
// its capacity; ports are wired via ConnectInlet/ConnectOutlet.
func NewStage(name string, logic Logic, numIn, numOut int, log logr.Logger) *Stage {
	s := &Stage{
		name:    name,
		logic:   logic,
		log:     log.WithValues("stage", name),
		inlets:  make([]inlet, numIn),
		outlets: make([]outlet, numOut),
		stopped: make(chan struct{}),
	}
	s.env = Env{stage: s}
	return s
}

// Name returns the stage's name.
func (s *Stage) Name() string { return s.name }

// NumInlets returns the number of inlets.
func (s *Stage) NumInlets() int { return len(s.inlets) }

// NumOutlets returns the number of outlets.
func (s *Stage) NumOutlets() int { return len(s.outlets) }

// ConnectInlet wires inlet in to the peer stage's outlet peerOut.
func (s *Stage) ConnectInlet(in int, peer *Stage, peerOut int) {
	s.inlets[in].conn = connection{peer: peer, peerPort: peerOut}
}

// ConnectOutlet wires outlet out to the peer stage's inlet peerIn.
func (s *Stage) ConnectOutlet(out int, peer *Stage, peerIn int) {
	s.outlets[out].conn = connection{peer: peer, peerPort: peerIn}
}

// InitMailbox allocates the mailbox. Capacity must cover the maximum
// number of in-flight signals a protocol-conforming peer set can send,
// plus control-signal slack; the materializer computes this from the
// connected stages' demand limits.
func (s *Stage) InitMailbox(capacity int) {
	s.mailbox = make(chan signal, capacity)
}

// Shutdown requests run-level cancellation, delivered as if the stage's
// downstream had cancelled. Safe to call from outside the stage's
// goroutine.
func (s *Stage) Shutdown(cause error) {
	select {
	case s.mailbox <- signal{kind: sigShutdown, err: cause}:
	case <-s.stopped:
	}
}

// enqueue delivers a signal from a peer stage. Protocol-conforming
// traffic always fits; a full mailbox means the engine's own invariant
// is broken and the sender fails loudly.
func (s *Stage) enqueue(sig signal) error {
	select {
	case s.mailbox <- sig:
		return nil
	case <-s.stopped:
		return nil
	default:
	}
	select {
	case s.mailbox <- sig:
		return nil
	case <-s.stopped:
		return nil
	case <-time.After(time.Second):
		return fmt.Errorf("%w: %s rejected %s", ErrMailboxOverflow, s.name, sig.kind)
	}
}

// done reports whether every port has reached a terminal state.
func (s *Stage) done() bool {
	for i := range s.inlets {
		if !s.inlets[i].closed {
			return false
		}
	}
	for i := range s.outlets {
		if !s.outlets[i].closed {
			return false
		}
	}
	return true
}

// Run executes the stage until all its ports are terminated. It returns
// an error only for failures that originate at this stage (protocol
// violations, internal errors, or user-code errors raised here);
// propagated upstream failures surface at their origin instead.
func (s *Stage) Run() error {
	defer s.stop()

	s.log.V(1).Info("stage started")
	s.logic.OnStart(&s.env)
	if err := s.checkViolation(); err != nil {
		return err
	}

	for !s.done() {
		sig := <-s.mailbox
		s.dispatch(sig)
		if err := s.checkViolation(); err != nil {
			return err
		}
	}

	s.log.V(1).Info("stage finished", "err", s.failure)
	return s.failure
}

func (s *Stage) stop() {
	close(s.stopped)
	if s.timer != nil {
		s.timer.Stop()
	}
	if sl, ok := s.logic.(StopLogic); ok {
		sl.OnStop(&s.env)
	}
}

// checkViolation converts a recorded protocol violation into a fatal
// stage failure: all outlets fail, all inlets cancel, the run errors.
func (s *Stage) checkViolation() error {
	if s.violation == nil {
		return nil
	}
	err := fmt.Errorf("stage %s: %w", s.name, s.violation)
	s.log.Error(err, "protocol violation")
	for out := range s.outlets {
		if !s.outlets[out].closed {
			s.outlets[out].closed = true
			s.sendTo(s.outlets[out].conn, signal{kind: sigFail, err: err})
		}
	}
	for in := range s.inlets {
		if !s.inlets[in].closed {
			s.inlets[in].closed = true
			s.sendTo(s.inlets[in].conn, signal{kind: sigCancel, err: err})
		}
	}
	return err
}

func (s *Stage) dispatch(sig signal) {
	s.log.V(2).Info("signal", "kind", sig.kind.String(), "port", sig.port)

	switch sig.kind {
	case sigPull:
		out := &s.outlets[sig.port]
		if out.closed {
			return
		}
		out.demand += sig.count
		s.logic.OnPull(&s.env, sig.port)

	case sigCancel:
		out := &s.outlets[sig.port]
		if out.closed {
			return
		}
		out.closed = true
		s.logic.OnDownstreamCancel(&s.env, sig.port, sig.err)

	case sigPush:
		in := &s.inlets[sig.port]
		if in.closed {
			// Cancelled inlet; element raced the cancellation.
			return
		}
		in.outstanding--
		if in.outstanding < 0 {
			s.violation = fmt.Errorf("%w: inlet %d received unrequested element", ErrPushWithoutDemand, sig.port)
			return
		}
		s.logic.OnPush(&s.env, sig.port, sig.value)

	case sigComplete:
		in := &s.inlets[sig.port]
		if in.closed {
			return
		}
		in.closed = true
		s.logic.OnUpstreamFinish(&s.env, sig.port)

	case sigFail:
		in := &s.inlets[sig.port]
		if in.closed {
			return
		}
		in.closed = true
		s.propagating = true
		s.logic.OnUpstreamFailure(&s.env, sig.port, sig.err)
		s.propagating = false

	case sigShutdown:
		cause := sig.err
		if cause == nil {
			cause = ErrRunCancelled
		}
		s.logic.OnShutdown(&s.env, cause)

	case sigTimer:
		if sig.count != s.timerGen {
			// Stale timer, superseded by a reschedule.
			return
		}
		if tl, ok := s.logic.(TimerLogic); ok {
			tl.OnTimer(&s.env)
		}
	}
}

func (s *Stage) sendTo(conn connection, sig signal) {
	sig.port = conn.peerPort
	if err := conn.peer.enqueue(sig); err != nil {
		if s.violation == nil {
			s.violation = err
		}
	}
}

// Env is the interface a Logic uses to act on its stage's ports. All
// methods must be called from the stage's own goroutine (i.e. from
// within Logic handlers).
type Env struct {
	stage *Stage
}

// Log returns the stage-scoped logger.
func (e *Env) Log() logr.Logger { return e.stage.log }

// Pull requests exactly one more element on the given inlet.
func (e *Env) Pull(in int) { e.PullN(in, 1) }

// PullN grants demand for n elements on the given inlet. Used by
// buffering stages to let upstream run ahead.
func (e *Env) PullN(in int, n int) {
	s := e.stage
	i := &s.inlets[in]
	if i.closed || n <= 0 {
		return
	}
	i.outstanding += n
	s.sendTo(i.conn, signal{kind: sigPull, count: n})
}

// Cancel terminates the given inlet. Upstream must stop scheduling work
// for this port.
func (e *Env) Cancel(in int, cause error) {
	s := e.stage
	i := &s.inlets[in]
	if i.closed {
		return
	}
	i.closed = true
	s.sendTo(i.conn, signal{kind: sigCancel, err: cause})
}

// Push emits one element on the given outlet. Pushing without demand or
// on a terminated port is a protocol violation that fails the stage.
func (e *Env) Push(out int, v any) {
	s := e.stage
	o := &s.outlets[out]
	if o.closed {
		s.violation = fmt.Errorf("%w: push on outlet %d", ErrPortClosed, out)
		return
	}
	if o.demand <= 0 {
		s.violation = fmt.Errorf("%w: outlet %d", ErrPushWithoutDemand, out)
		return
	}
	o.demand--
	s.sendTo(o.conn, signal{kind: sigPush, value: v})
}

// Complete terminates the given outlet normally. Completing a port twice
// is a protocol violation.
func (e *Env) Complete(out int) {
	s := e.stage
	o := &s.outlets[out]
	if o.closed {
		s.violation = fmt.Errorf("%w: complete on outlet %d", ErrPortClosed, out)
		return
	}
	o.closed = true
	s.sendTo(o.conn, signal{kind: sigComplete})
}

// Fail terminates the given outlet with an error. Failing a port twice
// is a protocol violation.
func (e *Env) Fail(out int, err error) {
	s := e.stage
	o := &s.outlets[out]
	if o.closed {
		s.violation = fmt.Errorf("%w: fail on outlet %d", ErrPortClosed, out)
		return
	}
	o.closed = true
	if !s.propagating {
		s.failure = multierr.Append(s.failure, err)
	}
	s.sendTo(o.conn, signal{kind: sigFail, err: err})
}

// CompleteAll completes every outlet that is still open.
func (e *Env) CompleteAll() {
	for out := range e.stage.outlets {
		if !e.stage.outlets[out].closed {
			e.Complete(out)
		}
	}
}

// FailAll fails every outlet that is still open.
func (e *Env) FailAll(err error) {
	s := e.stage
	recorded := false
	for out := range s.outlets {
		if !s.outlets[out].closed {
			s.outlets[out].closed = true
			s.sendTo(s.outlets[out].conn, signal{kind: sigFail, err: err})
			recorded = true
		}
	}
	if recorded && !s.propagating {
		s.failure = multierr.Append(s.failure, err)
	}
}

// CancelAll cancels every inlet that is still open.
func (e *Env) CancelAll(cause error) {
	for in := range e.stage.inlets {
		if !e.stage.inlets[in].closed {
			e.Cancel(in, cause)
		}
	}
}

// RecordFailure marks err as originating at this stage without touching
// any port. Sinks use it when their own user code fails.
func (e *Env) RecordFailure(err error) {
	e.stage.failure = multierr.Append(e.stage.failure, err)
}

// Demand returns the outstanding demand on the given outlet.
func (e *Env) Demand(out int) int { return e.stage.outlets[out].demand }

// HasDemand reports whether the given outlet may be pushed to.
func (e *Env) HasDemand(out int) bool { return e.stage.outlets[out].demand > 0 }

// Outstanding returns the number of unsatisfied pulls on the given inlet.
func (e *Env) Outstanding(in int) int { return e.stage.inlets[in].outstanding }

// InletClosed reports whether the given inlet has terminated.
func (e *Env) InletClosed(in int) bool { return e.stage.inlets[in].closed }

// OutletClosed reports whether the given outlet has terminated.
func (e *Env) OutletClosed(out int) bool { return e.stage.outlets[out].closed }

// OpenInlets returns the number of inlets still open.
func (e *Env) OpenInlets() int {
	n := 0
	for in := range e.stage.inlets {
		if !e.stage.inlets[in].closed {
			n++
		}
	}
	return n
}

// OpenOutlets returns the number of outlets still open.
func (e *Env) OpenOutlets() int {
	n := 0
	for out := range e.stage.outlets {
		if !e.stage.outlets[out].closed {
			n++
		}
	}
	return n
}

// ScheduleTimer arms the stage's timer to fire after d, replacing any
// previously scheduled timer.
func (e *Env) ScheduleTimer(d time.Duration) {
	s := e.stage
	s.timerGen++
	gen := s.timerGen
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(d, func() {
		select {
		case s.mailbox <- signal{kind: sigTimer, count: gen}:
		case <-s.stopped:
		}
	})
}

// CancelTimer disarms any scheduled timer.
func (e *Env) CancelTimer() {
	s := e.stage
	s.timerGen++
	if s.timer != nil {
		s.timer.Stop()
	}
}
