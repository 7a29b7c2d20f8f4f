// Package views projects the canonical flow graph into the shapes consumed by
// the UI: flat rows for the two grid editors and wrapped elements for the
// diagram canvas.
package views

import "github.com/processfirst/flowdash/pkg/model"

// NodeRow is a node as shown in the node grid
type NodeRow struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Type model.NodeType `json:"type"`
}

// EdgeRow is an edge as shown in the edge grid
type EdgeRow struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// NodeElement is the wrapped store shape of a node: {"data": {...}}
type NodeElement struct {
	Data NodeRow `json:"data"`
}

// EdgeElement is the wrapped store shape of an edge: {"data": {...}}
type EdgeElement struct {
	Data EdgeRow `json:"data"`
}

// View bundles the three projections of one graph state
type View struct {
	Nodes    []NodeRow `json:"nodes"`
	Edges    []EdgeRow `json:"edges"`
	Elements []Element `json:"elements"`
}

// WrapNode converts a table row into its store element
func WrapNode(row NodeRow) NodeElement {
	return NodeElement{Data: row}
}

// UnwrapNode converts a store element into its table row
func UnwrapNode(el NodeElement) NodeRow {
	return el.Data
}

// WrapEdge converts a table row into its store element
func WrapEdge(row EdgeRow) EdgeElement {
	return EdgeElement{Data: row}
}

// UnwrapEdge converts a store element into its table row
func UnwrapEdge(el EdgeElement) EdgeRow {
	return el.Data
}

// NodeRows projects graph nodes to table rows
func NodeRows(g model.Graph) []NodeRow {
	rows := make([]NodeRow, len(g.Nodes))
	for i, n := range g.Nodes {
		rows[i] = NodeRow{ID: n.ID, Name: n.Name, Type: n.Type}
	}
	return rows
}

// EdgeRows projects graph edges to table rows
func EdgeRows(g model.Graph) []EdgeRow {
	rows := make([]EdgeRow, len(g.Edges))
	for i, e := range g.Edges {
		rows[i] = EdgeRow{ID: e.ID, Source: e.Source, Target: e.Target}
	}
	return rows
}

// NodeElements projects graph nodes to wrapped store elements
func NodeElements(g model.Graph) []NodeElement {
	els := make([]NodeElement, len(g.Nodes))
	for i, row := range NodeRows(g) {
		els[i] = WrapNode(row)
	}
	return els
}

// EdgeElements projects graph edges to wrapped store elements
func EdgeElements(g model.Graph) []EdgeElement {
	els := make([]EdgeElement, len(g.Edges))
	for i, row := range EdgeRows(g) {
		els[i] = WrapEdge(row)
	}
	return els
}

// Project derives all three views from the graph
func Project(g model.Graph) View {
	return View{
		Nodes:    NodeRows(g),
		Edges:    EdgeRows(g),
		Elements: Diagram(NodeElements(g), EdgeElements(g)),
	}
}

// FromTable rebuilds a graph from table rows
func FromTable(nodes []NodeRow, edges []EdgeRow) model.Graph {
	g := model.Graph{
		Nodes: make([]model.Node, len(nodes)),
		Edges: make([]model.Edge, len(edges)),
	}
	for i, r := range nodes {
		g.Nodes[i] = model.Node{ID: r.ID, Name: r.Name, Type: r.Type}
	}
	for i, r := range edges {
		g.Edges[i] = model.Edge{ID: r.ID, Source: r.Source, Target: r.Target}
	}
	return g
}

// FromStore rebuilds a graph from wrapped store elements
func FromStore(nodes []NodeElement, edges []EdgeElement) model.Graph {
	nodeRows := make([]NodeRow, len(nodes))
	for i, el := range nodes {
		nodeRows[i] = UnwrapNode(el)
	}
	edgeRows := make([]EdgeRow, len(edges))
	for i, el := range edges {
		edgeRows[i] = UnwrapEdge(el)
	}
	return FromTable(nodeRows, edgeRows)
}
