package gdag

import "fmt"

// A Shape names a subset of a graph's open ports, used for type-safe
// composition of graph fragments. Shapes have no lifetime of their own
// beyond the graph they describe.

// SourceShape is a fragment with exactly one open outlet.
type SourceShape struct {
	Out PortRef
}

// SinkShape is a fragment with exactly one open inlet.
type SinkShape struct {
	In PortRef
}

// FlowShape is a fragment with one open inlet and one open outlet.
type FlowShape struct {
	In  PortRef
	Out PortRef
}

// BidiShape is a fragment with two open inlets and two open outlets,
// arranged as two independent top/bottom channels. Joining a BidiShape's
// bottom channel back onto its top channel yields a closed cyclic graph.
type BidiShape struct {
	TopIn     PortRef
	TopOut    PortRef
	BottomIn  PortRef
	BottomOut PortRef
}

// CheckSource verifies that the graph's open ports are exactly the
// shape's ports.
func (s SourceShape) Check(g *Graph) error {
	return checkOpen(g, nil, []PortRef{s.Out})
}

func (s SinkShape) Check(g *Graph) error {
	return checkOpen(g, []PortRef{s.In}, nil)
}

func (s FlowShape) Check(g *Graph) error {
	return checkOpen(g, []PortRef{s.In}, []PortRef{s.Out})
}

func (s BidiShape) Check(g *Graph) error {
	return checkOpen(g, []PortRef{s.TopIn, s.BottomIn}, []PortRef{s.TopOut, s.BottomOut})
}

func checkOpen(g *Graph, inlets, outlets []PortRef) error {
	openIn := g.OpenInlets()
	openOut := g.OpenOutlets()

	if !sameRefs(openIn, inlets) {
		return fmt.Errorf("%w: open inlets %v do not match shape inlets %v",
			ErrInvalidShape, openIn, inlets)
	}
	if !sameRefs(openOut, outlets) {
		return fmt.Errorf("%w: open outlets %v do not match shape outlets %v",
			ErrInvalidShape, openOut, outlets)
	}
	return nil
}

func sameRefs(got, want []PortRef) bool {
	if len(got) != len(want) {
		return false
	}
	set := make(map[PortRef]bool, len(want))
	for _, ref := range want {
		set[ref] = true
	}
	for _, ref := range got {
		if !set[ref] {
			return false
		}
	}
	return true
}
