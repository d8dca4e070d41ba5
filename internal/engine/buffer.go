package engine

// OverflowStrategy selects what a buffer stage does when an element
// arrives while the buffer is full.
type OverflowStrategy int

const (
	// Backpressure withholds demand from upstream until space frees up.
	// The buffer never overflows; upstream waits.
	Backpressure OverflowStrategy = iota
	// DropHead evicts the oldest buffered element to admit the new one.
	DropHead
	// DropTail evicts the newest buffered element to admit the new one.
	DropTail
	// FailOverflow fails the stream with ErrBufferOverflow.
	FailOverflow
)

func (s OverflowStrategy) String() string {
	switch s {
	case Backpressure:
		return "backpressure"
	case DropHead:
		return "dropHead"
	case DropTail:
		return "dropTail"
	case FailOverflow:
		return "fail"
	default:
		return "unknown"
	}
}

// bufferLogic decouples upstream from downstream by holding up to
// capacity elements, letting the producer run ahead of an unresolved
// pull. This is one of the liveness tools for cyclic graphs.
type bufferLogic struct {
	BaseLogic
	capacity int
	strategy OverflowStrategy

	buf          []any
	upstreamDone bool
}

// NewBufferLogic creates a buffer stage logic with the given capacity
// and overflow strategy.
func NewBufferLogic(capacity int, strategy OverflowStrategy) Logic {
	return &bufferLogic{
		capacity: capacity,
		strategy: strategy,
		buf:      make([]any, 0, capacity),
	}
}

func (b *bufferLogic) OnStart(env *Env) {
	env.PullN(0, b.capacity)
}

func (b *bufferLogic) OnPush(env *Env, in int, v any) {
	if env.HasDemand(0) && len(b.buf) == 0 {
		env.Push(0, v)
		b.repull(env)
		return
	}

	if len(b.buf) >= b.capacity {
		switch b.strategy {
		case DropHead:
			b.buf = b.buf[1:]
		case DropTail:
			b.buf = b.buf[:len(b.buf)-1]
		case FailOverflow:
			env.Cancel(0, ErrBufferOverflow)
			env.FailAll(ErrBufferOverflow)
			return
		case Backpressure:
			// Unreachable: demand granted never exceeds free space.
			env.Cancel(0, ErrBufferOverflow)
			env.FailAll(ErrBufferOverflow)
			return
		}
	}
	b.buf = append(b.buf, v)
	b.repull(env)
	b.drain(env)
}

func (b *bufferLogic) OnPull(env *Env, out int) {
	b.drain(env)
}

func (b *bufferLogic) OnUpstreamFinish(env *Env, in int) {
	b.upstreamDone = true
	if len(b.buf) == 0 {
		env.CompleteAll()
	}
}

// drain pushes buffered elements into available demand, completing once
// the buffer empties after upstream finished.
func (b *bufferLogic) drain(env *Env) {
	if env.OutletClosed(0) {
		return
	}
	for env.HasDemand(0) && len(b.buf) > 0 {
		v := b.buf[0]
		b.buf = b.buf[1:]
		env.Push(0, v)
		b.repull(env)
	}
	if b.upstreamDone && len(b.buf) == 0 {
		env.CompleteAll()
	}
}

// repull tops outstanding demand toward upstream back up. For the
// backpressure strategy the invariant is outstanding + buffered <=
// capacity; drop strategies keep upstream running at full demand.
func (b *bufferLogic) repull(env *Env) {
	if env.InletClosed(0) {
		return
	}
	var want int
	switch b.strategy {
	case Backpressure:
		want = b.capacity - len(b.buf) - env.Outstanding(0)
	default:
		want = b.capacity - env.Outstanding(0)
	}
	if want > 0 {
		env.PullN(0, want)
	}
}
