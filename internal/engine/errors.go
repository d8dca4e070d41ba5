package engine

import "errors"

// Sentinel errors for protocol violations and terminal conditions.
var (
	// ErrPushWithoutDemand is a protocol violation: an outlet pushed an
	// element while its outstanding demand was zero. The engine rejects
	// it by failing the offending stage's run.
	ErrPushWithoutDemand = errors.New("push without demand")

	// ErrPortClosed is a protocol violation: a port was completed,
	// failed, or pushed after it had already been terminated.
	ErrPortClosed = errors.New("port already closed")

	// ErrMailboxOverflow indicates the engine's own invariant was
	// broken: a protocol-conforming signal found no room in the
	// receiver's mailbox. This is an internal error, never a user error.
	ErrMailboxOverflow = errors.New("stage mailbox overflow")

	// ErrBufferOverflow is raised by a buffer stage configured with the
	// Fail overflow strategy when an element arrives into a full buffer.
	ErrBufferOverflow = errors.New("buffer overflow")

	// ErrIdleTimeout is raised by an idle-timeout stage when no element
	// arrived within the configured interval.
	ErrIdleTimeout = errors.New("no element emitted within idle timeout")

	// ErrNoElement is the result of a first-element sink whose upstream
	// completed without ever emitting.
	ErrNoElement = errors.New("upstream completed without emitting an element")

	// ErrRunCancelled resolves materialized values of sinks whose run
	// was cancelled externally. Cancellation itself is not a run error.
	ErrRunCancelled = errors.New("run cancelled")
)
