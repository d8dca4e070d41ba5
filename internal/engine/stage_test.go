package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/go-logr/logr"
)

const testMailbox = 64

// wire connects from's outlet out to to's inlet in on both ends.
func wire(from *Stage, out int, to *Stage, in int) {
	from.ConnectOutlet(out, to, in)
	to.ConnectInlet(in, from, out)
}

// runAll starts every stage and returns the per-stage run errors once
// all have terminated.
func runAll(t *testing.T, stages ...*Stage) map[string]error {
	t.Helper()
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs = make(map[string]error, len(stages))
	)
	for _, s := range stages {
		s.InitMailbox(testMailbox)
	}
	for _, s := range stages {
		s := s
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Run()
			mu.Lock()
			errs[s.Name()] = err
			mu.Unlock()
		}()
	}
	wg.Wait()
	return errs
}

func waitCell(t *testing.T, cell *Cell) (any, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return cell.Wait(ctx)
}

func TestLinearPipeline(t *testing.T) {
	t.Run("source to sink", func(t *testing.T) {
		cell := NewCell()
		src := NewStage("src", NewSliceSourceLogic([]any{1, 2, 3}), 0, 1, logr.Discard())
		snk := NewStage("snk", NewCollectSink(cell), 1, 0, logr.Discard())
		wire(src, 0, snk, 0)

		errs := runAll(t, src, snk)
		assert.NoError(t, errs["src"])
		assert.NoError(t, errs["snk"])

		v, err := waitCell(t, cell)
		assert.NoError(t, err)
		assert.Equal(t, []any{1, 2, 3}, v.([]any))
	})

	t.Run("map between source and sink", func(t *testing.T) {
		cell := NewCell()
		src := NewStage("src", NewSliceSourceLogic([]any{1, 2, 3}), 0, 1, logr.Discard())
		dbl := NewStage("dbl", NewMapLogic(func(v any) (any, error) {
			return v.(int) * 2, nil
		}), 1, 1, logr.Discard())
		snk := NewStage("snk", NewCollectSink(cell), 1, 0, logr.Discard())
		wire(src, 0, dbl, 0)
		wire(dbl, 0, snk, 0)

		runAll(t, src, dbl, snk)

		v, err := waitCell(t, cell)
		assert.NoError(t, err)
		assert.Equal(t, []any{2, 4, 6}, v.([]any))
	})

	t.Run("empty source completes immediately", func(t *testing.T) {
		cell := NewCell()
		src := NewStage("src", NewSliceSourceLogic(nil), 0, 1, logr.Discard())
		snk := NewStage("snk", NewCollectSink(cell), 1, 0, logr.Discard())
		wire(src, 0, snk, 0)

		runAll(t, src, snk)

		v, err := waitCell(t, cell)
		assert.NoError(t, err)
		assert.Zero(t, len(v.([]any)))
	})
}

// rogueLogic pushes more elements than demand allows.
type rogueLogic struct {
	BaseLogic
}

func (r *rogueLogic) OnPull(env *Env, out int) {
	n := env.Demand(out) + 1
	for i := 0; i < n; i++ {
		env.Push(out, i)
	}
}

func TestProtocolViolation(t *testing.T) {
	t.Run("push without demand fails the offender", func(t *testing.T) {
		cell := NewCell()
		src := NewStage("rogue", &rogueLogic{}, 0, 1, logr.Discard())
		snk := NewStage("snk", NewCollectSink(cell), 1, 0, logr.Discard())
		wire(src, 0, snk, 0)

		errs := runAll(t, src, snk)
		assert.True(t, errors.Is(errs["rogue"], ErrPushWithoutDemand))
		// The sink observes the failure but does not report it as its own.
		assert.NoError(t, errs["snk"])

		_, err := waitCell(t, cell)
		assert.True(t, errors.Is(err, ErrPushWithoutDemand))
	})

	t.Run("double complete fails the offender", func(t *testing.T) {
		cell := NewCell()
		src := NewStage("dbl-complete", &doubleCompleteLogic{}, 0, 1, logr.Discard())
		snk := NewStage("snk", NewCollectSink(cell), 1, 0, logr.Discard())
		wire(src, 0, snk, 0)

		errs := runAll(t, src, snk)
		assert.True(t, errors.Is(errs["dbl-complete"], ErrPortClosed))
	})
}

type doubleCompleteLogic struct {
	BaseLogic
}

func (d *doubleCompleteLogic) OnStart(env *Env) {
	env.Complete(0)
	env.Complete(0)
}

// probeLogic forwards elements 1:1 and verifies on every arrival that
// the upstream edge never carried more pushes than pulls.
type probeLogic struct {
	BaseLogic
	inFlight int
	pulls    int
	pushes   int
	violated bool
}

func (p *probeLogic) pull(env *Env) {
	if p.inFlight == 0 && env.HasDemand(0) && !env.InletClosed(0) {
		env.Pull(0)
		p.inFlight = 1
		p.pulls++
	}
}

func (p *probeLogic) OnPull(env *Env, out int) {
	p.pull(env)
}

func (p *probeLogic) OnPush(env *Env, in int, v any) {
	p.inFlight--
	p.pushes++
	if p.pushes > p.pulls {
		p.violated = true
	}
	env.Push(0, v)
	p.pull(env)
}

func TestBackpressureInvariant(t *testing.T) {
	// A fast source against a one-at-a-time sink: the probe in between
	// must never receive an element it did not request.
	items := make([]any, 500)
	for i := range items {
		items[i] = i
	}

	cell := NewCell()
	probe := &probeLogic{}
	src := NewStage("src", NewSliceSourceLogic(items), 0, 1, logr.Discard())
	mid := NewStage("probe", probe, 1, 1, logr.Discard())
	snk := NewStage("snk", NewFoldSink(cell, 0, func(acc, v any) (any, error) {
		return acc.(int) + v.(int), nil
	}), 1, 0, logr.Discard())
	wire(src, 0, mid, 0)
	wire(mid, 0, snk, 0)

	runAll(t, src, mid, snk)

	assert.False(t, probe.violated)
	assert.Equal(t, 500, probe.pushes)

	v, err := waitCell(t, cell)
	assert.NoError(t, err)
	assert.Equal(t, 499*500/2, v.(int))
}

func TestFailurePropagation(t *testing.T) {
	boom := errors.New("boom")

	t.Run("failure surfaces at origin only", func(t *testing.T) {
		cell := NewCell()
		src := NewStage("src", NewFailedSourceLogic(boom), 0, 1, logr.Discard())
		fwd := NewStage("fwd", NewMapLogic(func(v any) (any, error) { return v, nil }), 1, 1, logr.Discard())
		snk := NewStage("snk", NewCollectSink(cell), 1, 0, logr.Discard())
		wire(src, 0, fwd, 0)
		wire(fwd, 0, snk, 0)

		errs := runAll(t, src, fwd, snk)
		assert.True(t, errors.Is(errs["src"], boom))
		assert.NoError(t, errs["fwd"])
		assert.NoError(t, errs["snk"])

		_, err := waitCell(t, cell)
		assert.True(t, errors.Is(err, boom))
	})

	t.Run("map error cancels upstream", func(t *testing.T) {
		cell := NewCell()
		src := NewStage("src", NewSliceSourceLogic([]any{1, 2, 3}), 0, 1, logr.Discard())
		bad := NewStage("bad", NewMapLogic(func(v any) (any, error) {
			return nil, boom
		}), 1, 1, logr.Discard())
		snk := NewStage("snk", NewCollectSink(cell), 1, 0, logr.Discard())
		wire(src, 0, bad, 0)
		wire(bad, 0, snk, 0)

		errs := runAll(t, src, bad, snk)
		assert.True(t, errors.Is(errs["bad"], boom))
		assert.NoError(t, errs["src"])

		_, err := waitCell(t, cell)
		assert.True(t, errors.Is(err, boom))
	})
}

func TestShutdown(t *testing.T) {
	// An endless source: only external shutdown can end this run.
	n := 0
	endless := NewIterateSourceLogic(func() (any, bool) {
		n++
		return n, true
	})

	cell := NewCell()
	src := NewStage("src", endless, 0, 1, logr.Discard())
	snk := NewStage("snk", NewIgnoreSink(cell), 1, 0, logr.Discard())
	wire(src, 0, snk, 0)

	src.InitMailbox(testMailbox)
	snk.InitMailbox(testMailbox)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, s := range []*Stage{src, snk} {
		i, s := i, s
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = s.Run()
		}()
	}

	time.Sleep(10 * time.Millisecond)
	snk.Shutdown(ErrRunCancelled)
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])

	_, err := waitCell(t, cell)
	assert.True(t, errors.Is(err, ErrRunCancelled))
}
