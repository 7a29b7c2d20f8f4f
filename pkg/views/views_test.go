package views

import (
	"reflect"
	"testing"

	"github.com/processfirst/flowdash/pkg/model"
)

func TestNodeRoundTrip(t *testing.T) {
	rows := []NodeRow{
		{ID: "A", Name: "Node A", Type: model.NodeType1},
		{ID: "ZZ", Name: "", Type: model.NodeType3},
		{ID: "Q", Name: "Heat exchanger, stage 2", Type: model.NodeType2},
	}

	for _, row := range rows {
		if got := UnwrapNode(WrapNode(row)); got != row {
			t.Errorf("UnwrapNode(WrapNode(%v)) = %v", row, got)
		}
		el := NodeElement{Data: row}
		if got := WrapNode(UnwrapNode(el)); got != el {
			t.Errorf("WrapNode(UnwrapNode(%v)) = %v", el, got)
		}
	}
}

func TestEdgeRoundTrip(t *testing.T) {
	rows := []EdgeRow{
		{ID: "A-B", Source: "A", Target: "B"},
		{ID: "AB", Source: "A", Target: "B"},
		{ID: "X-Y", Source: "X", Target: "Y"},
	}

	for _, row := range rows {
		if got := UnwrapEdge(WrapEdge(row)); got != row {
			t.Errorf("UnwrapEdge(WrapEdge(%v)) = %v", row, got)
		}
		el := EdgeElement{Data: row}
		if got := WrapEdge(UnwrapEdge(el)); got != el {
			t.Errorf("WrapEdge(UnwrapEdge(%v)) = %v", el, got)
		}
	}
}

func TestProject(t *testing.T) {
	v := Project(model.Seed())

	if len(v.Nodes) != 2 || len(v.Edges) != 1 {
		t.Fatalf("Expected 2 node rows and 1 edge row, got %d and %d", len(v.Nodes), len(v.Edges))
	}
	if len(v.Elements) != 3 {
		t.Fatalf("Expected 3 diagram elements, got %d", len(v.Elements))
	}

	// Nodes first, edges second
	wantGroups := []string{GroupNodes, GroupNodes, GroupEdges}
	for i, el := range v.Elements {
		if el.Group != wantGroups[i] {
			t.Errorf("Element %d: expected group %s, got %s", i, wantGroups[i], el.Group)
		}
	}
	if v.Elements[2].Data.Source != "A" || v.Elements[2].Data.Target != "B" {
		t.Errorf("Unexpected edge element: %+v", v.Elements[2].Data)
	}
}

func TestFromStoreMatchesFromTable(t *testing.T) {
	g := model.Seed()
	fromStore := FromStore(NodeElements(g), EdgeElements(g))
	fromTable := FromTable(NodeRows(g), EdgeRows(g))

	if !reflect.DeepEqual(fromStore, fromTable) {
		t.Errorf("Store and table decoding disagree:\n%+v\n%+v", fromStore, fromTable)
	}
	if !reflect.DeepEqual(fromStore, g) {
		t.Errorf("Decoding does not restore the graph:\n%+v\n%+v", fromStore, g)
	}
}

func TestComputeDiff(t *testing.T) {
	old := model.Seed()
	next := old.Clone()
	next.Nodes[1].Type = model.NodeType3
	next.AddNode(model.Node{ID: "C", Name: "Node C", Type: model.NodeType1})
	next.Edges[0] = model.NewEdge("A", "C")

	diff := ComputeDiff(&old, next)

	if len(diff.AddedNodes) != 1 || diff.AddedNodes[0].ID != "C" {
		t.Errorf("Expected node C added, got %v", diff.AddedNodes)
	}
	if len(diff.ModifiedNodes) != 1 || diff.ModifiedNodes[0].ID != "B" {
		t.Errorf("Expected node B modified, got %v", diff.ModifiedNodes)
	}
	if len(diff.RemovedEdges) != 1 || diff.RemovedEdges[0] != "A-B" {
		t.Errorf("Expected edge A-B removed, got %v", diff.RemovedEdges)
	}
	if len(diff.AddedEdges) != 1 || diff.AddedEdges[0].ID != "A-C" {
		t.Errorf("Expected edge A-C added, got %v", diff.AddedEdges)
	}
	if diff.Empty() {
		t.Error("Diff should not be empty")
	}
}

func TestComputeDiffFull(t *testing.T) {
	diff := ComputeDiff(nil, model.Seed())
	if !diff.FullGraph {
		t.Error("Expected full graph diff when there is no previous state")
	}
	if len(diff.AddedNodes) != 2 || len(diff.AddedEdges) != 1 {
		t.Errorf("Full diff should carry the whole graph, got %+v", diff)
	}
}

func TestHashStable(t *testing.T) {
	if Hash(model.Seed()) != Hash(model.Seed()) {
		t.Error("Hash is not deterministic")
	}
	g := model.Seed()
	g.Nodes[0].Name = "Feed"
	if Hash(g) == Hash(model.Seed()) {
		t.Error("Hash does not change with graph content")
	}
}
