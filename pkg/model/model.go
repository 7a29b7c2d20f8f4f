package model

import "fmt"

// NodeType classifies a process stage
type NodeType string

const (
	NodeType1 NodeType = "type1"
	NodeType2 NodeType = "type2"
	NodeType3 NodeType = "type3"
)

// NodeTypes lists the accepted node types in display order
var NodeTypes = []NodeType{NodeType1, NodeType2, NodeType3}

// ParseNodeType converts a raw cell value into a NodeType
func ParseNodeType(s string) (NodeType, error) {
	for _, t := range NodeTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown node type %q", s)
}

// Node represents a process stage in the flow graph
type Node struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Type NodeType `json:"type"`
}

// Edge represents a directed material/process flow between two nodes.
// The ID is derived from the endpoints, see EdgeID.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// EdgeID derives the edge identifier from its endpoints
func EdgeID(source, target string) string {
	return source + "-" + target
}

// NewEdge creates an edge with its derived identifier
func NewEdge(source, target string) Edge {
	return Edge{
		ID:     EdgeID(source, target),
		Source: source,
		Target: target,
	}
}

// DefaultNodeName is the name given to freshly allocated nodes
func DefaultNodeName(id string) string {
	return "Node " + id
}
