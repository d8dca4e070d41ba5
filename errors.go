package flowz

import (
	"github.com/birdayz/flowz/gdag"
	"github.com/birdayz/flowz/internal/engine"
)

// Composition-time errors, re-exported from the description layer.
var (
	ErrStageAlreadyExists   = gdag.ErrStageAlreadyExists
	ErrStageNotFound        = gdag.ErrStageNotFound
	ErrInvalidStageID       = gdag.ErrInvalidStageID
	ErrPortOutOfRange       = gdag.ErrPortOutOfRange
	ErrPortAlreadyConnected = gdag.ErrPortAlreadyConnected
	ErrTypeMismatch         = gdag.ErrTypeMismatch
	ErrGraphNotClosed       = gdag.ErrGraphNotClosed
)

// Runtime errors, re-exported from the engine.
var (
	ErrPushWithoutDemand = engine.ErrPushWithoutDemand
	ErrBufferOverflow    = engine.ErrBufferOverflow
	ErrIdleTimeout       = engine.ErrIdleTimeout
	ErrNoElement         = engine.ErrNoElement
	ErrRunCancelled      = engine.ErrRunCancelled
)
