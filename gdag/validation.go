package gdag

import (
	"fmt"
	"strings"
)

// Validation limits to prevent pathological cases.
const (
	MaxStagesPerGraph = 10000
	MaxPortsPerStage  = 1000
)

// Validate performs all structural validations required before
// materialization. A valid graph is closed (every inlet and outlet
// connected) and within size limits. Cycles are NOT an error: a cyclic
// topology is legal and its liveness is a composition-time concern.
// Returns early on first error for better UX.
func (g *Graph) Validate() error {
	if len(g.Stages) == 0 {
		return fmt.Errorf("%w: graph has no stages", ErrGraphNotClosed)
	}
	if len(g.Stages) > MaxStagesPerGraph {
		return fmt.Errorf("%w: stage count %d exceeds maximum %d",
			ErrInvalidShape, len(g.Stages), MaxStagesPerGraph)
	}

	for _, id := range g.StageOrder {
		stage := g.Stages[id]
		if len(stage.InTypes) > MaxPortsPerStage || len(stage.OutTypes) > MaxPortsPerStage {
			return fmt.Errorf("%w: stage %s exceeds maximum of %d ports",
				ErrInvalidShape, id, MaxPortsPerStage)
		}
	}

	if !g.IsClosed() {
		return fmt.Errorf("%w: open ports remain: %s", ErrGraphNotClosed, DescribeOpenPorts(g))
	}

	return nil
}

// HasCycle reports whether the graph contains a structural cycle, i.e. a
// path of edges returning to a previously visited stage. Detection is
// informational: cyclic graphs are runnable, but require an explicit
// liveness provision (an injection source, a buffer inside the loop, or
// eager cancellation at a broadcast) chosen by whoever composed the
// graph.
func (g *Graph) HasCycle() bool {
	cycle, _ := g.findCycle()
	return cycle
}

// Cycle returns one structural cycle as a stage path, if any exists.
// Useful for diagnostics and logging at materialization time.
func (g *Graph) Cycle() (path []StageID, found bool) {
	found, path = g.findCycle()
	return path, found
}

// findCycle runs a DFS over the stage-level adjacency derived from the
// edge list. Time complexity O(V + E).
func (g *Graph) findCycle() (bool, []StageID) {
	children := make(map[StageID][]StageID, len(g.Stages))
	for _, e := range g.Edges {
		children[e.From.Stage] = append(children[e.From.Stage], e.To.Stage)
	}

	visited := make(map[StageID]bool, len(g.Stages))
	recStack := make(map[StageID]bool, len(g.Stages))

	var found []StageID
	var dfs func(id StageID, path []StageID) bool
	dfs = func(id StageID, path []StageID) bool {
		visited[id] = true
		recStack[id] = true
		path = append(path, id)

		for _, child := range children[id] {
			if !visited[child] {
				if dfs(child, path) {
					return true
				}
			} else if recStack[child] {
				found = append(append([]StageID{}, path...), child)
				return true
			}
		}

		recStack[id] = false
		return false
	}

	for _, id := range g.StageOrder {
		if !visited[id] {
			if dfs(id, nil) {
				return true, found
			}
		}
	}
	return false, nil
}

// CyclePath renders a cycle path for log output.
func CyclePath(path []StageID) string {
	parts := make([]string, len(path))
	for i, id := range path {
		parts[i] = string(id)
	}
	return strings.Join(parts, " -> ")
}
