package topology

import (
	"slices"

	"github.com/processfirst/flowdash/pkg/model"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// FlowGraph indexes a process-flow graph for graph algorithms.
// Graph ids are assigned in node insertion order.
type FlowGraph struct {
	graph     *simple.DirectedGraph
	ids       map[string]int64 // Map from node id to graph ID
	labels    []string         // Graph ID to node id
	selfLoops []model.Edge
	dangling  []model.Edge
}

// NewFlowGraph builds the directed graph of a process flow. Edges whose
// endpoints are missing are kept aside as dangling, self loops are kept aside
// because the underlying simple graph cannot hold them.
func NewFlowGraph(g model.Graph) *FlowGraph {
	fg := &FlowGraph{
		graph: simple.NewDirectedGraph(),
		ids:   make(map[string]int64),
	}

	for _, n := range g.Nodes {
		if _, exists := fg.ids[n.ID]; exists {
			continue
		}
		id := int64(len(fg.labels))
		fg.ids[n.ID] = id
		fg.labels = append(fg.labels, n.ID)
		fg.graph.AddNode(simple.Node(id))
	}

	for _, e := range g.Edges {
		sourceID, okSource := fg.ids[e.Source]
		targetID, okTarget := fg.ids[e.Target]
		switch {
		case !okSource || !okTarget:
			fg.dangling = append(fg.dangling, e)
		case sourceID == targetID:
			fg.selfLoops = append(fg.selfLoops, e)
		case !fg.graph.HasEdgeFromTo(sourceID, targetID):
			fg.graph.SetEdge(fg.graph.NewEdge(fg.graph.Node(sourceID), fg.graph.Node(targetID)))
		}
	}

	return fg
}

// Graph returns the underlying directed graph
func (fg *FlowGraph) Graph() *simple.DirectedGraph {
	return fg.graph
}

// Label returns the node id for a graph ID
func (fg *FlowGraph) Label(id int64) string {
	if id < 0 || int(id) >= len(fg.labels) {
		return ""
	}
	return fg.labels[id]
}

// Dangling returns edges that reference missing nodes
func (fg *FlowGraph) Dangling() []model.Edge {
	return fg.dangling
}

// SelfLoops returns edges whose source and target are the same node
func (fg *FlowGraph) SelfLoops() []model.Edge {
	return fg.selfLoops
}

// Upstream returns the ids of nodes feeding into the given node
func (fg *FlowGraph) Upstream(nodeID string) []string {
	id, exists := fg.ids[nodeID]
	if !exists {
		return nil
	}
	return fg.labelsOf(fg.graph.To(id))
}

// Downstream returns the ids of nodes fed by the given node
func (fg *FlowGraph) Downstream(nodeID string) []string {
	id, exists := fg.ids[nodeID]
	if !exists {
		return nil
	}
	return fg.labelsOf(fg.graph.From(id))
}

// labelsOf drains a node iterator into node ids ordered by insertion
func (fg *FlowGraph) labelsOf(iter graph.Nodes) []string {
	var ids []int64
	for iter.Next() {
		ids = append(ids, iter.Node().ID())
	}
	slices.Sort(ids)

	labels := make([]string, len(ids))
	for i, id := range ids {
		labels[i] = fg.Label(id)
	}
	return labels
}
