package views

import (
	"crypto/sha256"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/processfirst/flowdash/pkg/model"
)

// GraphDiff represents the difference between two graph states
type GraphDiff struct {
	AddedNodes    []NodeRow `json:"addedNodes"`
	RemovedNodes  []string  `json:"removedNodes"`  // Node IDs
	ModifiedNodes []NodeRow `json:"modifiedNodes"` // Nodes with changed name or type
	AddedEdges    []EdgeRow `json:"addedEdges"`
	RemovedEdges  []string  `json:"removedEdges"` // Edge IDs
	FullGraph     bool      `json:"fullGraph"`    // True if this is a full graph, not a diff
}

// Empty reports whether the diff carries no changes
func (d *GraphDiff) Empty() bool {
	return !d.FullGraph &&
		len(d.AddedNodes) == 0 &&
		len(d.RemovedNodes) == 0 &&
		len(d.ModifiedNodes) == 0 &&
		len(d.AddedEdges) == 0 &&
		len(d.RemovedEdges) == 0
}

// Hash fingerprints a graph state so clients can detect missed updates
func Hash(g model.Graph) string {
	jsonData, err := json.Marshal(g)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(jsonData)
	return fmt.Sprintf("%x", sum)
}

// ComputeDiff computes the difference between two graph states.
// A nil old graph yields a full-graph diff.
func ComputeDiff(old *model.Graph, next model.Graph) *GraphDiff {
	if old == nil {
		return &GraphDiff{
			AddedNodes: NodeRows(next),
			AddedEdges: EdgeRows(next),
			FullGraph:  true,
		}
	}

	diff := &GraphDiff{
		AddedNodes:    make([]NodeRow, 0),
		RemovedNodes:  make([]string, 0),
		ModifiedNodes: make([]NodeRow, 0),
		AddedEdges:    make([]EdgeRow, 0),
		RemovedEdges:  make([]string, 0),
	}

	oldNodes := make(map[string]model.Node, len(old.Nodes))
	for _, n := range old.Nodes {
		oldNodes[n.ID] = n
	}
	newNodes := make(map[string]bool, len(next.Nodes))
	for _, n := range next.Nodes {
		newNodes[n.ID] = true
		prev, exists := oldNodes[n.ID]
		row := NodeRow{ID: n.ID, Name: n.Name, Type: n.Type}
		switch {
		case !exists:
			diff.AddedNodes = append(diff.AddedNodes, row)
		case prev != n:
			diff.ModifiedNodes = append(diff.ModifiedNodes, row)
		}
	}
	for _, n := range old.Nodes {
		if !newNodes[n.ID] {
			diff.RemovedNodes = append(diff.RemovedNodes, n.ID)
		}
	}

	// Edge ids are derived from endpoints, so an endpoint change shows up as
	// a removal plus an addition
	oldEdges := make(map[string]bool, len(old.Edges))
	for _, e := range old.Edges {
		oldEdges[edgeKey(e)] = true
	}
	newEdges := make(map[string]bool, len(next.Edges))
	for _, e := range next.Edges {
		newEdges[edgeKey(e)] = true
		if !oldEdges[edgeKey(e)] {
			diff.AddedEdges = append(diff.AddedEdges, EdgeRow{ID: e.ID, Source: e.Source, Target: e.Target})
		}
	}
	for _, e := range old.Edges {
		if !newEdges[edgeKey(e)] {
			diff.RemovedEdges = append(diff.RemovedEdges, e.ID)
		}
	}

	return diff
}

// edgeKey creates a unique key for an edge
func edgeKey(e model.Edge) string {
	return fmt.Sprintf("%s|%s|%s", e.ID, e.Source, e.Target)
}
