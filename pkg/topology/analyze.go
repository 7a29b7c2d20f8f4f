// Package topology answers structural questions about a process flow:
// processing order, recycle loops and broken references.
package topology

import (
	"slices"

	"github.com/processfirst/flowdash/pkg/model"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/topo"
)

// Analysis summarizes the structure of a process flow
type Analysis struct {
	Order          []string     `json:"order"`          // Processing order, empty when the flow has loops
	Acyclic        bool         `json:"acyclic"`        // True when no recycle loop exists
	Loops          [][]string   `json:"loops"`          // Recycle loops, including self loops
	Sources        []string     `json:"sources"`        // Nodes without upstream stages
	Sinks          []string     `json:"sinks"`          // Nodes without downstream stages
	Dangling       []model.Edge `json:"dangling"`       // Edges referencing missing nodes
	DuplicateEdges []string     `json:"duplicateEdges"` // Edge ids used more than once
	DuplicateNodes []string     `json:"duplicateNodes"` // Node ids used more than once
}

// Consistent reports whether the flow has no broken references or duplicate ids
func (a *Analysis) Consistent() bool {
	return len(a.Dangling) == 0 && len(a.DuplicateEdges) == 0 && len(a.DuplicateNodes) == 0
}

// Analyze computes the structural summary of a process flow
func Analyze(g model.Graph) *Analysis {
	fg := NewFlowGraph(g)

	a := &Analysis{
		Order:          make([]string, 0),
		Loops:          make([][]string, 0),
		Sources:        make([]string, 0),
		Sinks:          make([]string, 0),
		Dangling:       make([]model.Edge, 0),
		DuplicateEdges: duplicates(g.EdgeIDs()),
		DuplicateNodes: duplicates(g.NodeIDs()),
	}
	a.Dangling = append(a.Dangling, fg.Dangling()...)

	sorted, err := topo.SortStabilized(fg.Graph(), byID)
	if err == nil {
		for _, n := range sorted {
			a.Order = append(a.Order, fg.Label(n.ID()))
		}
	}

	// Single-node components are loops only with a self edge, handled below
	for _, scc := range topo.TarjanSCC(fg.Graph()) {
		if len(scc) < 2 {
			continue
		}
		byID(scc)
		loop := make([]string, len(scc))
		for i, n := range scc {
			loop[i] = fg.Label(n.ID())
		}
		a.Loops = append(a.Loops, loop)
	}
	slices.SortFunc(a.Loops, func(x, y []string) int {
		return slices.Index(g.NodeIDs(), x[0]) - slices.Index(g.NodeIDs(), y[0])
	})
	for _, e := range fg.SelfLoops() {
		a.Loops = append(a.Loops, []string{e.Source})
	}
	a.Acyclic = len(a.Loops) == 0

	seen := make(map[string]bool)
	for _, id := range g.NodeIDs() {
		if seen[id] {
			continue
		}
		seen[id] = true
		if len(fg.Upstream(id)) == 0 {
			a.Sources = append(a.Sources, id)
		}
		if len(fg.Downstream(id)) == 0 {
			a.Sinks = append(a.Sinks, id)
		}
	}

	return a
}

// byID orders nodes that are otherwise unordered by insertion position
func byID(nodes []graph.Node) {
	slices.SortFunc(nodes, func(x, y graph.Node) int {
		switch {
		case x.ID() < y.ID():
			return -1
		case x.ID() > y.ID():
			return 1
		}
		return 0
	})
}

func duplicates(ids []string) []string {
	count := make(map[string]int, len(ids))
	dups := make([]string, 0)
	for _, id := range ids {
		count[id]++
		if count[id] == 2 {
			dups = append(dups, id)
		}
	}
	return dups
}
