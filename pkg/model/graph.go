package model

// Graph is the canonical process-flow graph.
// Nodes and edges keep insertion order, which is the only ordering of the graph.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes: make([]Node, 0),
		Edges: make([]Edge, 0),
	}
}

// Seed returns the graph every process starts with: two nodes joined by one edge.
func Seed() Graph {
	return Graph{
		Nodes: []Node{
			{ID: "A", Name: DefaultNodeName("A"), Type: NodeType1},
			{ID: "B", Name: DefaultNodeName("B"), Type: NodeType2},
		},
		Edges: []Edge{NewEdge("A", "B")},
	}
}

// Clone returns a deep copy of the graph.
func (g Graph) Clone() Graph {
	c := Graph{
		Nodes: make([]Node, len(g.Nodes)),
		Edges: make([]Edge, len(g.Edges)),
	}
	copy(c.Nodes, g.Nodes)
	copy(c.Edges, g.Edges)
	return c
}

// AddNode appends a node to the graph.
func (g *Graph) AddNode(node Node) {
	g.Nodes = append(g.Nodes, node)
}

// AddEdge appends an edge to the graph.
func (g *Graph) AddEdge(edge Edge) {
	g.Edges = append(g.Edges, edge)
}

// NodeIndex returns the position of the first node with the given id, or -1.
func (g Graph) NodeIndex(id string) int {
	for i, n := range g.Nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// EdgeIndex returns the position of the first edge with the given id, or -1.
func (g Graph) EdgeIndex(id string) int {
	for i, e := range g.Edges {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// HasNode reports whether a node with the given id exists.
func (g Graph) HasNode(id string) bool {
	return g.NodeIndex(id) >= 0
}

// NodeIDs returns node ids in graph order.
func (g Graph) NodeIDs() []string {
	ids := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		ids[i] = n.ID
	}
	return ids
}

// EdgeIDs returns edge ids in graph order.
func (g Graph) EdgeIDs() []string {
	ids := make([]string, len(g.Edges))
	for i, e := range g.Edges {
		ids[i] = e.ID
	}
	return ids
}

// IncidentEdges returns the edges that start or end at the given node.
func (g Graph) IncidentEdges(id string) []Edge {
	var edges []Edge
	for _, e := range g.Edges {
		if e.Source == id || e.Target == id {
			edges = append(edges, e)
		}
	}
	return edges
}
