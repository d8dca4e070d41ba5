package gdag

import (
	"fmt"
	"reflect"
	"strings"
)

// RuntimeBuilder is implemented by the execution layer. Each stage
// descriptor carries one; the materializer uses it to construct the live
// stage logic. The interface is defined here to avoid import cycles
// (gdag must not import the engine).
type RuntimeBuilder interface {
	// BuilderKind returns what kind of stage this builder creates.
	BuilderKind() StageKind
}

// StageID is a strongly-typed identifier for graph stages.
// StageIDs must be non-empty and cannot contain whitespace.
type StageID string

// Validate checks if the StageID is valid.
// Returns ErrInvalidStageID if the ID is empty or contains whitespace.
func (id StageID) Validate() error {
	if id == "" {
		return fmt.Errorf("%w: StageID cannot be empty", ErrInvalidStageID)
	}
	if strings.ContainsAny(string(id), " \t\n\r") {
		return fmt.Errorf("%w: StageID %q cannot contain whitespace", ErrInvalidStageID, id)
	}
	return nil
}

// StageKind represents the kind of stage in the graph.
type StageKind int

const (
	KindSource StageKind = iota
	KindFlow
	KindSink
	KindMerge
	KindMergePreferred
	KindBroadcast
	KindZip
	KindConcat
	KindInterleave
	KindBuffer
)

func (k StageKind) String() string {
	switch k {
	case KindSource:
		return "Source"
	case KindFlow:
		return "Flow"
	case KindSink:
		return "Sink"
	case KindMerge:
		return "Merge"
	case KindMergePreferred:
		return "MergePreferred"
	case KindBroadcast:
		return "Broadcast"
	case KindZip:
		return "Zip"
	case KindConcat:
		return "Concat"
	case KindInterleave:
		return "Interleave"
	case KindBuffer:
		return "Buffer"
	default:
		return "Unknown"
	}
}

// PortRef identifies a single port of a stage. Whether it refers to an
// inlet or an outlet is determined by how it is used: Connect takes an
// outlet ref first and an inlet ref second.
type PortRef struct {
	Stage StageID
	Port  int
}

func (p PortRef) String() string {
	return fmt.Sprintf("%s[%d]", p.Stage, p.Port)
}

// Edge connects exactly one outlet to exactly one inlet. Edges exist only
// in the graph description; at runtime they are realized as signal
// deliveries between stage mailboxes.
type Edge struct {
	From PortRef // outlet
	To   PortRef // inlet
}

// Stage is the build-time representation of a stage. It contains only
// metadata needed for validation; runtime construction is handled by the
// materializer through the RuntimeBuilder.
type Stage struct {
	ID   StageID
	Kind StageKind

	// Element types per port, for composition-time type checking.
	// A nil entry means the port is untyped and matches anything.
	InTypes  []reflect.Type
	OutTypes []reflect.Type

	// MaxDemand is the number of elements the stage may request ahead on
	// each of its inlets. 1 for everything except buffering stages.
	MaxDemand int

	Builder RuntimeBuilder
}

// ValidateEdge checks whether the outlet of s can be connected to the
// given inlet of to. Returns ErrTypeMismatch if element types are
// incompatible.
func (s *Stage) ValidateEdge(outPort int, to *Stage, inPort int) error {
	if outPort < 0 || outPort >= len(s.OutTypes) {
		return fmt.Errorf("%w: %s has no outlet %d", ErrPortOutOfRange, s.ID, outPort)
	}
	if inPort < 0 || inPort >= len(to.InTypes) {
		return fmt.Errorf("%w: %s has no inlet %d", ErrPortOutOfRange, to.ID, inPort)
	}

	outType := s.OutTypes[outPort]
	inType := to.InTypes[inPort]
	if outType != nil && inType != nil && outType != inType {
		return fmt.Errorf("%w: %s outputs %v but %s expects %v",
			ErrTypeMismatch, s.ID, outType, to.ID, inType)
	}

	return nil
}

// Graph is the build-time description of a dataflow graph: a set of stage
// descriptors plus the directed edges connecting their ports. It contains
// no runtime behavior. Unlike a strict DAG, a Graph may contain cycles;
// liveness of a cyclic graph is a composition concern, not a structural
// one.
type Graph struct {
	Stages map[StageID]*Stage

	// Deterministic stage ordering (insertion order).
	StageOrder []StageID

	Edges []Edge

	// Occupancy indexes, one entry per connected port.
	connectedOut map[PortRef]int // port -> edge index
	connectedIn  map[PortRef]int
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		Stages:       make(map[StageID]*Stage),
		StageOrder:   make([]StageID, 0),
		connectedOut: make(map[PortRef]int),
		connectedIn:  make(map[PortRef]int),
	}
}

// AddStage adds a stage descriptor to the graph.
func (g *Graph) AddStage(stage *Stage) error {
	if err := stage.ID.Validate(); err != nil {
		return err
	}
	if _, exists := g.Stages[stage.ID]; exists {
		return fmt.Errorf("%w: %s", ErrStageAlreadyExists, stage.ID)
	}
	if stage.MaxDemand <= 0 {
		stage.MaxDemand = 1
	}
	g.Stages[stage.ID] = stage
	g.StageOrder = append(g.StageOrder, stage.ID)
	return nil
}

// Connect adds an edge from the given outlet to the given inlet. Each
// outlet and each inlet may carry at most one edge; fan-in and fan-out
// beyond 1:1 must go through an explicit junction stage.
func (g *Graph) Connect(from, to PortRef) error {
	fromStage, ok := g.Stages[from.Stage]
	if !ok {
		return fmt.Errorf("%w: outlet stage %s", ErrStageNotFound, from.Stage)
	}
	toStage, ok := g.Stages[to.Stage]
	if !ok {
		return fmt.Errorf("%w: inlet stage %s", ErrStageNotFound, to.Stage)
	}

	if err := fromStage.ValidateEdge(from.Port, toStage, to.Port); err != nil {
		return fmt.Errorf("cannot connect %s -> %s: %w", from, to, err)
	}

	if _, taken := g.connectedOut[from]; taken {
		return fmt.Errorf("%w: outlet %s", ErrPortAlreadyConnected, from)
	}
	if _, taken := g.connectedIn[to]; taken {
		return fmt.Errorf("%w: inlet %s", ErrPortAlreadyConnected, to)
	}

	idx := len(g.Edges)
	g.Edges = append(g.Edges, Edge{From: from, To: to})
	g.connectedOut[from] = idx
	g.connectedIn[to] = idx
	return nil
}

// EdgeInto returns the edge terminating at the given inlet, if any.
func (g *Graph) EdgeInto(in PortRef) (Edge, bool) {
	idx, ok := g.connectedIn[in]
	if !ok {
		return Edge{}, false
	}
	return g.Edges[idx], true
}

// EdgeFrom returns the edge originating at the given outlet, if any.
func (g *Graph) EdgeFrom(out PortRef) (Edge, bool) {
	idx, ok := g.connectedOut[out]
	if !ok {
		return Edge{}, false
	}
	return g.Edges[idx], true
}

// OpenInlets returns all inlets without an incoming edge, in deterministic
// order.
func (g *Graph) OpenInlets() []PortRef {
	var open []PortRef
	for _, id := range g.StageOrder {
		stage := g.Stages[id]
		for port := range stage.InTypes {
			ref := PortRef{Stage: id, Port: port}
			if _, ok := g.connectedIn[ref]; !ok {
				open = append(open, ref)
			}
		}
	}
	return open
}

// OpenOutlets returns all outlets without an outgoing edge, in
// deterministic order.
func (g *Graph) OpenOutlets() []PortRef {
	var open []PortRef
	for _, id := range g.StageOrder {
		stage := g.Stages[id]
		for port := range stage.OutTypes {
			ref := PortRef{Stage: id, Port: port}
			if _, ok := g.connectedOut[ref]; !ok {
				open = append(open, ref)
			}
		}
	}
	return open
}

// IsClosed reports whether every port of every stage is connected. Only
// closed graphs may be materialized.
func (g *Graph) IsClosed() bool {
	return len(g.OpenInlets()) == 0 && len(g.OpenOutlets()) == 0
}
