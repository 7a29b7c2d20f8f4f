package flow

import (
	"github.com/processfirst/flowdash/pkg/ident"
	"github.com/processfirst/flowdash/pkg/model"
)

// Apply runs one action against a graph and returns the next graph.
// The input graph is never modified; on error it should be kept as is.
func Apply(g model.Graph, a Action) (model.Graph, error) {
	next := g.Clone()

	var err error
	switch a.Kind {
	case ActionNone:
	case ActionAddNode:
		err = addNode(&next, a)
	case ActionAddEdge:
		err = addEdge(&next, a)
	case ActionNodeCellEdited:
		err = editNode(&next, a)
	case ActionEdgeCellEdited:
		err = editEdge(&next, a)
	case ActionDeleteNodes:
		err = deleteNodes(&next, a)
	case ActionDeleteEdges:
		err = deleteEdges(&next, a)
	default:
		err = actionErr(a, "", ErrUnknownAction, string(a.Kind))
	}
	if err != nil {
		return g, err
	}
	return next, nil
}

func addNode(g *model.Graph, a Action) error {
	id, err := ident.Next(g.NodeIDs())
	if err != nil {
		return actionErr(a, "", ErrAllocationExhausted, "")
	}
	g.AddNode(model.Node{
		ID:   id,
		Name: model.DefaultNodeName(id),
		Type: model.NodeType1,
	})
	return nil
}

// addEdge always connects the first node to the second one
func addEdge(g *model.Graph, a Action) error {
	if len(g.Nodes) < 2 {
		return actionErr(a, "", ErrInsufficientNodes, "")
	}
	edge := model.NewEdge(g.Nodes[0].ID, g.Nodes[1].ID)
	if g.EdgeIndex(edge.ID) >= 0 {
		return actionErr(a, edge.ID, ErrDuplicateEdge, "")
	}
	g.AddEdge(edge)
	return nil
}

func editNode(g *model.Graph, a Action) error {
	i := g.NodeIndex(a.ID)
	if i < 0 {
		return actionErr(a, a.ID, ErrNodeNotFound, "")
	}
	node := &g.Nodes[i]

	switch a.Field {
	case FieldName:
		node.Name = a.Value
	case FieldType:
		t, err := model.ParseNodeType(a.Value)
		if err != nil {
			return actionErr(a, a.ID, ErrInvalidValue, err.Error())
		}
		node.Type = t
	case FieldID:
		if a.Value == node.ID {
			return nil
		}
		if a.Value == "" {
			return actionErr(a, a.ID, ErrInvalidValue, "node id must not be empty")
		}
		if g.HasNode(a.Value) {
			return actionErr(a, a.ID, ErrDuplicateNode, a.Value)
		}
		// Edges reference nodes by id, so a referenced id is frozen
		if incident := g.IncidentEdges(node.ID); len(incident) > 0 {
			return actionErr(a, a.ID, ErrDanglingReference, "referenced by edge "+incident[0].ID)
		}
		node.ID = a.Value
	default:
		return actionErr(a, a.ID, ErrUnknownField, a.Field)
	}
	return nil
}

func editEdge(g *model.Graph, a Action) error {
	i := g.EdgeIndex(a.ID)
	if i < 0 {
		return actionErr(a, a.ID, ErrEdgeNotFound, "")
	}

	edited := g.Edges[i]
	switch a.Field {
	case FieldSource:
		edited.Source = a.Value
	case FieldTarget:
		edited.Target = a.Value
	default:
		return actionErr(a, a.ID, ErrUnknownField, a.Field)
	}

	if !g.HasNode(a.Value) {
		return actionErr(a, a.ID, ErrDanglingReference, "no node "+a.Value)
	}

	edited.ID = model.EdgeID(edited.Source, edited.Target)
	if j := g.EdgeIndex(edited.ID); j >= 0 && j != i {
		return actionErr(a, a.ID, ErrDuplicateEdge, edited.ID)
	}
	g.Edges[i] = edited
	return nil
}

func deleteNodes(g *model.Graph, a Action) error {
	if len(a.IDs) == 0 {
		return actionErr(a, "", ErrInvalidValue, "no node ids given")
	}
	doomed := make(map[string]bool, len(a.IDs))
	for _, id := range a.IDs {
		if !g.HasNode(id) {
			return actionErr(a, id, ErrNodeNotFound, "")
		}
		doomed[id] = true
	}

	nodes := g.Nodes[:0]
	for _, n := range g.Nodes {
		if !doomed[n.ID] {
			nodes = append(nodes, n)
		}
	}
	g.Nodes = nodes

	// Cascade to incident edges
	edges := g.Edges[:0]
	for _, e := range g.Edges {
		if !doomed[e.Source] && !doomed[e.Target] {
			edges = append(edges, e)
		}
	}
	g.Edges = edges
	return nil
}

func deleteEdges(g *model.Graph, a Action) error {
	if len(a.IDs) == 0 {
		return actionErr(a, "", ErrInvalidValue, "no edge ids given")
	}
	doomed := make(map[string]bool, len(a.IDs))
	for _, id := range a.IDs {
		if g.EdgeIndex(id) < 0 {
			return actionErr(a, id, ErrEdgeNotFound, "")
		}
		doomed[id] = true
	}

	edges := g.Edges[:0]
	for _, e := range g.Edges {
		if !doomed[e.ID] {
			edges = append(edges, e)
		}
	}
	g.Edges = edges
	return nil
}
