package flowz

import "github.com/birdayz/flowz/internal/engine"

// OverflowStrategy selects what a buffer does when an element arrives
// while the buffer is full.
type OverflowStrategy = engine.OverflowStrategy

const (
	// Backpressure withholds demand from upstream until space frees up.
	Backpressure = engine.Backpressure
	// DropHead evicts the oldest buffered element to admit the new one.
	DropHead = engine.DropHead
	// DropTail evicts the newest buffered element to admit the new one.
	DropTail = engine.DropTail
	// FailOverflow fails the stream with ErrBufferOverflow.
	FailOverflow = engine.FailOverflow
)
