package flow

import "fmt"

// ActionKind identifies which user intent an Action carries
type ActionKind string

const (
	ActionNone           ActionKind = "none"
	ActionAddNode        ActionKind = "add_node"
	ActionAddEdge        ActionKind = "add_edge"
	ActionNodeCellEdited ActionKind = "node_cell_edited"
	ActionEdgeCellEdited ActionKind = "edge_cell_edited"
	ActionDeleteNodes    ActionKind = "delete_nodes"
	ActionDeleteEdges    ActionKind = "delete_edges"
)

// Editable cell fields
const (
	FieldID     = "id"
	FieldName   = "name"
	FieldType   = "type"
	FieldSource = "source"
	FieldTarget = "target"
)

// Action is one discrete user intent resolved per engine invocation.
// ID, Field and Value are used by the cell-edit kinds, IDs by the delete kinds.
type Action struct {
	Kind  ActionKind `json:"type" validate:"required,oneof=none add_node add_edge node_cell_edited edge_cell_edited delete_nodes delete_edges"`
	ID    string     `json:"id,omitempty"`
	Field string     `json:"field,omitempty"`
	Value string     `json:"value,omitempty"`
	IDs   []string   `json:"ids,omitempty"`
}

// NoAction is the initial-render action: state passes through unchanged
func NoAction() Action { return Action{Kind: ActionNone} }

// AddNode requests a freshly allocated node
func AddNode() Action { return Action{Kind: ActionAddNode} }

// AddEdge requests an edge between the first two nodes
func AddEdge() Action { return Action{Kind: ActionAddEdge} }

// NodeCellEdited sets one field of one node
func NodeCellEdited(id, field, value string) Action {
	return Action{Kind: ActionNodeCellEdited, ID: id, Field: field, Value: value}
}

// EdgeCellEdited sets one endpoint of one edge
func EdgeCellEdited(id, field, value string) Action {
	return Action{Kind: ActionEdgeCellEdited, ID: id, Field: field, Value: value}
}

// DeleteNodes removes the given nodes together with their incident edges
func DeleteNodes(ids ...string) Action {
	return Action{Kind: ActionDeleteNodes, IDs: ids}
}

// DeleteEdges removes the given edges
func DeleteEdges(ids ...string) Action {
	return Action{Kind: ActionDeleteEdges, IDs: ids}
}

func (a Action) String() string {
	switch a.Kind {
	case ActionNodeCellEdited, ActionEdgeCellEdited:
		return fmt.Sprintf("%s(%s.%s=%q)", a.Kind, a.ID, a.Field, a.Value)
	case ActionDeleteNodes, ActionDeleteEdges:
		return fmt.Sprintf("%s(%v)", a.Kind, a.IDs)
	default:
		return string(a.Kind)
	}
}
