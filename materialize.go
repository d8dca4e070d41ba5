package flowz

import (
	"fmt"

	"github.com/birdayz/flowz/gdag"
	"github.com/birdayz/flowz/internal/engine"
	"github.com/go-logr/logr"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
)

// Runnable is a finalized, closed graph awaiting materialization.
type Runnable struct {
	gb *GraphBuilder
}

// Option configures a materialization.
type Option func(*options)

type options struct {
	log  logr.Logger
	name string
}

// WithLogr sets the logger used by the run and all its stages. Defaults
// to logr.Discard.
var WithLogr = func(log logr.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithName sets a name for the run, included in all its log output.
var WithName = func(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// mailboxSlack covers control signals that arrive outside the demand
// protocol: shutdown, timer, and a cancellation per side.
const mailboxSlack = 4

// Run materializes the graph and starts one goroutine per stage. The
// graph description is validated first; construction errors surface here
// rather than mid-stream.
func (r *Runnable) Run(opts ...Option) (*Run, error) {
	o := options{log: logr.Discard(), name: "flow"}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.log.WithValues("run", o.name)

	g, err := r.gb.b.Build()
	if err != nil {
		return nil, err
	}

	if path, found := g.Cycle(); found {
		log.V(1).Info("graph contains a cycle", "path", gdag.CyclePath(path))
	}

	// Instantiate live stages in deterministic order.
	stages := make(map[gdag.StageID]*engine.Stage, len(g.Stages))
	live := make([]*engine.Stage, 0, len(g.Stages))
	for _, id := range g.StageOrder {
		desc := g.Stages[id]
		rb, ok := desc.Builder.(*runtimeBuilder)
		if !ok {
			return nil, fmt.Errorf("stage %s has no runtime builder", id)
		}
		stage := engine.NewStage(string(id), rb.build(), len(desc.InTypes), len(desc.OutTypes), log)
		stages[id] = stage
		live = append(live, stage)
	}

	// Wire both ends of every edge.
	for _, e := range g.Edges {
		from := stages[e.From.Stage]
		to := stages[e.To.Stage]
		from.ConnectOutlet(e.From.Port, to, e.To.Port)
		to.ConnectInlet(e.To.Port, from, e.From.Port)
	}

	// Size each mailbox so protocol-conforming peers never block: per
	// inlet the stage's own demand limit bounds in-flight pushes (plus a
	// terminal signal), per outlet the downstream stage's demand limit
	// bounds in-flight pulls (plus a cancellation).
	for _, id := range g.StageOrder {
		desc := g.Stages[id]
		capacity := mailboxSlack
		capacity += len(desc.InTypes) * (desc.MaxDemand + 1)
		for port := range desc.OutTypes {
			edge, ok := g.EdgeFrom(gdag.PortRef{Stage: id, Port: port})
			if !ok {
				continue
			}
			capacity += g.Stages[edge.To.Stage].MaxDemand + 1
		}
		stages[id].InitMailbox(capacity)
	}

	run := &Run{
		log:    log,
		stages: live,
		errs:   make([]error, len(live)),
		done:   make(chan struct{}),
		eg:     &errgroup.Group{},
	}
	for i, stage := range live {
		i, stage := i, stage
		run.eg.Go(func() error {
			run.errs[i] = stage.Run()
			return run.errs[i]
		})
	}
	go func() {
		run.Wait()
		close(run.done)
	}()

	names := maps.Keys(stages)
	slices.Sort(names)
	log.V(1).Info("run started", "stages", names)
	return run, nil
}
