package engine

// signalKind enumerates the demand-protocol signals exchanged between
// connected stage instances, plus the two stage-local control signals
// (shutdown, timer).
type signalKind uint8

const (
	// Sent downstream-to-upstream.
	sigPull   signalKind = iota // grants demand for count more elements
	sigCancel                   // downstream cancels; err carries the cause

	// Sent upstream-to-downstream.
	sigPush     // delivers one element
	sigComplete // no more elements will come
	sigFail     // terminates the port pair with an error

	// Stage-local control.
	sigShutdown // run-level cancellation, delivered as if the sink cancelled
	sigTimer    // scheduled timer fired; count carries the generation
)

func (k signalKind) String() string {
	switch k {
	case sigPull:
		return "pull"
	case sigCancel:
		return "cancel"
	case sigPush:
		return "push"
	case sigComplete:
		return "complete"
	case sigFail:
		return "fail"
	case sigShutdown:
		return "shutdown"
	case sigTimer:
		return "timer"
	default:
		return "unknown"
	}
}

// signal is a single message in a stage's mailbox. port is the index of
// the receiving stage's own port the signal concerns.
type signal struct {
	kind  signalKind
	port  int
	count int
	value any
	err   error
}
