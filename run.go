package flowz

import (
	"sync"

	"github.com/birdayz/flowz/internal/engine"
	"github.com/go-logr/logr"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Run is a live, materialized graph execution.
type Run struct {
	log    logr.Logger
	stages []*engine.Stage

	eg   *errgroup.Group
	errs []error
	done chan struct{}

	cancelOnce sync.Once
	waitOnce   sync.Once
	waitErr    error
}

// Wait blocks until every stage has terminated and returns the combined
// error of all stages that failed of their own accord. A failure is
// reported once, at the stage where it originated; stages it merely
// passed through do not contribute duplicates.
func (r *Run) Wait() error {
	r.waitOnce.Do(func() {
		_ = r.eg.Wait()
		r.waitErr = multierr.Combine(r.errs...)
		r.log.V(1).Info("run finished", "err", r.waitErr)
	})
	return r.waitErr
}

// Done is closed once every stage has terminated.
func (r *Run) Done() <-chan struct{} { return r.done }

// Cancel requests cooperative teardown: every sink cancels its upstream
// and the cancellation drains through the graph. Safe to call multiple
// times and concurrently with Wait.
func (r *Run) Cancel() {
	r.cancelOnce.Do(func() {
		r.log.V(1).Info("run cancelled")
		for _, stage := range r.stages {
			if stage.NumOutlets() == 0 {
				stage.Shutdown(engine.ErrRunCancelled)
			}
		}
	})
}
