package gdag

import (
	"errors"
	"fmt"
	"strings"
)

// Builder constructs a dataflow graph description.
//
// IMPORTANT: Builder is NOT safe for concurrent use. All registration
// methods must be called from a single goroutine. The resulting Graph
// is immutable and safe to use concurrently.
//
// Typed stage constructors live in the root package because they need
// generics over element types; this package provides the structural
// methods they build on.
type Builder struct {
	graph *Graph
	err   error
}

// NewBuilder creates a new graph builder.
func NewBuilder() *Builder {
	return &Builder{
		graph: NewGraph(),
	}
}

// AddStage adds a stage descriptor. The first error encountered is
// sticky: later calls become no-ops and Build reports it.
func (b *Builder) AddStage(stage *Stage) {
	if b.err != nil {
		return
	}
	b.err = b.graph.AddStage(stage)
}

// Connect records an edge from an outlet to an inlet.
func (b *Builder) Connect(from, to PortRef) {
	if b.err != nil {
		return
	}
	b.err = b.graph.Connect(from, to)
}

// Err returns the first error recorded by the builder, if any.
func (b *Builder) Err() error {
	return b.err
}

// Graph returns the graph under construction for read-only access.
func (b *Builder) Graph() *Graph {
	return b.graph
}

// Stage returns a stage descriptor by ID if it exists.
func (b *Builder) Stage(id StageID) (*Stage, bool) {
	stage, ok := b.graph.Stages[id]
	return stage, ok
}

// Build validates the graph for materialization and returns it. The
// graph must be closed; open graphs are composition intermediates and
// cannot be run.
func (b *Builder) Build() (*Graph, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := b.graph.Validate(); err != nil {
		return nil, err
	}
	return b.graph, nil
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild() *Graph {
	graph, err := b.Build()
	if err != nil {
		panic(err)
	}
	return graph
}

// BuildOpen finalizes the graph without requiring it to be closed. Used
// for composing graph fragments that expose a Shape.
func (b *Builder) BuildOpen() (*Graph, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.graph, nil
}

// Sentinel errors for common failure cases.
var (
	ErrStageAlreadyExists   = errors.New("stage already exists")
	ErrStageNotFound        = errors.New("stage not found")
	ErrInvalidStageID       = errors.New("invalid stage ID")
	ErrPortOutOfRange       = errors.New("port out of range")
	ErrPortAlreadyConnected = errors.New("port already connected")
	ErrTypeMismatch         = errors.New("type mismatch")
	ErrGraphNotClosed       = errors.New("graph not closed")
	ErrInvalidShape         = errors.New("invalid shape")
)

// DescribeOpenPorts renders the open ports of a graph for error messages.
func DescribeOpenPorts(g *Graph) string {
	var parts []string
	for _, ref := range g.OpenInlets() {
		parts = append(parts, fmt.Sprintf("inlet %s", ref))
	}
	for _, ref := range g.OpenOutlets() {
		parts = append(parts, fmt.Sprintf("outlet %s", ref))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}
