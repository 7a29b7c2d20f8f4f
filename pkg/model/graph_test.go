package model

import "testing"

func TestSeed(t *testing.T) {
	g := Seed()

	if len(g.Nodes) != 2 {
		t.Fatalf("Expected 2 seed nodes, got %d", len(g.Nodes))
	}
	if len(g.Edges) != 1 {
		t.Fatalf("Expected 1 seed edge, got %d", len(g.Edges))
	}
	if g.Nodes[0].ID != "A" || g.Nodes[1].ID != "B" {
		t.Errorf("Expected seed nodes A, B; got %v", g.NodeIDs())
	}
	if g.Edges[0].ID != "A-B" {
		t.Errorf("Expected seed edge A-B, got %s", g.Edges[0].ID)
	}
	if g.Nodes[0].Name != "Node A" {
		t.Errorf("Expected seed name %q, got %q", "Node A", g.Nodes[0].Name)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	g := Seed()
	c := g.Clone()

	c.Nodes[0].Name = "Reactor"
	c.AddEdge(NewEdge("B", "A"))

	if g.Nodes[0].Name != "Node A" {
		t.Errorf("Clone shares node storage with original")
	}
	if len(g.Edges) != 1 {
		t.Errorf("Clone shares edge storage with original")
	}
}

func TestIncidentEdges(t *testing.T) {
	g := Seed()
	g.AddNode(Node{ID: "C", Name: "Node C", Type: NodeType1})
	g.AddEdge(NewEdge("B", "C"))

	if got := len(g.IncidentEdges("B")); got != 2 {
		t.Errorf("Expected 2 edges incident to B, got %d", got)
	}
	if got := len(g.IncidentEdges("A")); got != 1 {
		t.Errorf("Expected 1 edge incident to A, got %d", got)
	}
	if got := len(g.IncidentEdges("Z")); got != 0 {
		t.Errorf("Expected no edges incident to Z, got %d", got)
	}
}

func TestParseNodeType(t *testing.T) {
	tests := []struct {
		in      string
		want    NodeType
		wantErr bool
	}{
		{"type1", NodeType1, false},
		{"type3", NodeType3, false},
		{"type4", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseNodeType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseNodeType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseNodeType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
