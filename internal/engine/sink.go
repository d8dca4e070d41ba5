package engine

import (
	"context"
	"sync"
)

// Cell is a single-assignment result slot for a sink's materialized
// value. It is resolved exactly once, from the sink stage's goroutine,
// and read from anywhere.
type Cell struct {
	once  sync.Once
	done  chan struct{}
	value any
	err   error
}

// NewCell creates an unresolved cell.
func NewCell() *Cell {
	return &Cell{done: make(chan struct{})}
}

// Resolve sets the cell's value or error. Later calls are no-ops.
func (c *Cell) Resolve(v any, err error) {
	c.once.Do(func() {
		c.value = v
		c.err = err
		close(c.done)
	})
}

// Done is closed once the cell is resolved.
func (c *Cell) Done() <-chan struct{} { return c.done }

// Wait blocks until the cell resolves or ctx is done.
func (c *Cell) Wait(ctx context.Context) (any, error) {
	select {
	case <-c.done:
		return c.value, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// sinkLogic is the shared scaffolding for terminal stages: pull one
// element at a time, resolve the cell on any terminal condition.
type sinkLogic struct {
	BaseLogic
	cell *Cell
}

func (s *sinkLogic) OnStart(env *Env) {
	env.Pull(0)
}

func (s *sinkLogic) OnUpstreamFailure(env *Env, in int, err error) {
	s.cell.Resolve(nil, err)
}

func (s *sinkLogic) OnShutdown(env *Env, cause error) {
	env.CancelAll(cause)
	s.cell.Resolve(nil, cause)
}

func (s *sinkLogic) OnStop(env *Env) {
	// Safety net: a sink must never leave its materialized value
	// unresolved, whatever terminated the run.
	s.cell.Resolve(nil, ErrRunCancelled)
}

// collectSink gathers every element into a slice.
type collectSink struct {
	sinkLogic
	items []any
}

// NewCollectSink creates a sink materializing the full element sequence.
func NewCollectSink(cell *Cell) Logic {
	return &collectSink{sinkLogic: sinkLogic{cell: cell}}
}

func (s *collectSink) OnPush(env *Env, in int, v any) {
	s.items = append(s.items, v)
	env.Pull(in)
}

func (s *collectSink) OnUpstreamFinish(env *Env, in int) {
	s.cell.Resolve(s.items, nil)
}

// firstSink materializes the first element and cancels the rest of the
// stream.
type firstSink struct {
	sinkLogic
}

// NewFirstSink creates a sink materializing the first element, failing
// with ErrNoElement if upstream completes empty.
func NewFirstSink(cell *Cell) Logic {
	return &firstSink{sinkLogic{cell: cell}}
}

func (s *firstSink) OnPush(env *Env, in int, v any) {
	s.cell.Resolve(v, nil)
	env.Cancel(in, nil)
}

func (s *firstSink) OnUpstreamFinish(env *Env, in int) {
	s.cell.Resolve(nil, ErrNoElement)
}

// foldSink reduces the stream into an accumulator.
type foldSink struct {
	sinkLogic
	acc any
	fn  func(acc, v any) (any, error)
}

// NewFoldSink creates a sink materializing an aggregate fold result.
func NewFoldSink(cell *Cell, zero any, fn func(acc, v any) (any, error)) Logic {
	return &foldSink{sinkLogic: sinkLogic{cell: cell}, acc: zero, fn: fn}
}

func (s *foldSink) OnPush(env *Env, in int, v any) {
	acc, err := s.fn(s.acc, v)
	if err != nil {
		env.RecordFailure(err)
		s.cell.Resolve(nil, err)
		env.Cancel(in, err)
		return
	}
	s.acc = acc
	env.Pull(in)
}

func (s *foldSink) OnUpstreamFinish(env *Env, in int) {
	s.cell.Resolve(s.acc, nil)
}

// foreachSink invokes fn per element and materializes completion.
type foreachSink struct {
	sinkLogic
	fn func(any) error
}

// NewForeachSink creates a sink running a callback per element.
func NewForeachSink(cell *Cell, fn func(any) error) Logic {
	return &foreachSink{sinkLogic: sinkLogic{cell: cell}, fn: fn}
}

func (s *foreachSink) OnPush(env *Env, in int, v any) {
	if err := s.fn(v); err != nil {
		env.RecordFailure(err)
		s.cell.Resolve(nil, err)
		env.Cancel(in, err)
		return
	}
	env.Pull(in)
}

func (s *foreachSink) OnUpstreamFinish(env *Env, in int) {
	s.cell.Resolve(nil, nil)
}

// NewIgnoreSink creates a sink that drains and discards the stream,
// materializing only its completion.
func NewIgnoreSink(cell *Cell) Logic {
	return NewForeachSink(cell, func(any) error { return nil })
}
