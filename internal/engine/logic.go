package engine

// Logic is the behavior of a stage instance. The stage's run loop invokes
// exactly one handler at a time, always from the stage's own goroutine,
// so a Logic needs no internal synchronization.
//
// Handlers react to signals and emit follow-up signals through the Env.
// A handler must never block; suspension happens implicitly between
// signals when the stage parks on its mailbox.
type Logic interface {
	// OnStart runs once before any signal is processed. Sinks issue
	// their initial pull here.
	OnStart(env *Env)

	// OnPush is invoked when inlet in delivers an element.
	OnPush(env *Env, in int, v any)

	// OnPull is invoked when outlet out gains demand. The logic may push
	// up to env.Demand(out) elements.
	OnPull(env *Env, out int)

	// OnUpstreamFinish is invoked when inlet in completes normally.
	OnUpstreamFinish(env *Env, in int)

	// OnUpstreamFailure is invoked when inlet in fails. Failures are
	// never buffered or delayed.
	OnUpstreamFailure(env *Env, in int, err error)

	// OnDownstreamCancel is invoked when outlet out is cancelled by its
	// downstream.
	OnDownstreamCancel(env *Env, out int, cause error)

	// OnShutdown is invoked when the run is cancelled externally. The
	// stage must reach a consistent terminal state.
	OnShutdown(env *Env, cause error)
}

// TimerLogic is implemented by logics that schedule timers via
// Env.ScheduleTimer.
type TimerLogic interface {
	OnTimer(env *Env)
}

// StopLogic is implemented by logics that need a final callback when the
// stage's run loop exits, regardless of how it terminated. Sinks use it
// to resolve their materialized value if nothing else did.
type StopLogic interface {
	OnStop(env *Env)
}

// BaseLogic provides the default reactions shared by most stages:
//
//   - upstream finish: once all inlets are done, complete all outlets
//   - upstream failure: fail all outlets and cancel the remaining inlets
//   - downstream cancel: once all outlets are gone, cancel all inlets
//   - shutdown: cancel inlets, complete outlets
//
// Concrete logics embed BaseLogic and override what they need.
type BaseLogic struct{}

func (BaseLogic) OnStart(env *Env)                {}
func (BaseLogic) OnPush(env *Env, in int, v any)  {}
func (BaseLogic) OnPull(env *Env, out int)        {}

func (BaseLogic) OnUpstreamFinish(env *Env, in int) {
	if env.OpenInlets() == 0 {
		env.CompleteAll()
	}
}

func (BaseLogic) OnUpstreamFailure(env *Env, in int, err error) {
	env.FailAll(err)
	env.CancelAll(err)
}

func (BaseLogic) OnDownstreamCancel(env *Env, out int, cause error) {
	if env.OpenOutlets() == 0 {
		env.CancelAll(cause)
	}
}

func (BaseLogic) OnShutdown(env *Env, cause error) {
	env.CancelAll(cause)
	env.CompleteAll()
}
