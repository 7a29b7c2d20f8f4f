package flow

import (
	"fmt"
	"slices"

	"github.com/processfirst/flowdash/pkg/model"
	"github.com/processfirst/flowdash/pkg/views"
)

// Resolve computes the next state of all three views from one action and the
// current table and store snapshots supplied by the UI.
//
// With ActionNone the tables pass through untouched and the diagram is
// re-derived from the store. Every other action is applied to the graph decoded
// from the store, after checking that the table agrees with it on node and edge
// identity; all three views are then projected from the one resulting graph.
//
// On error the returned View reproduces the inputs unchanged so the caller can
// keep rendering the previous valid state.
func Resolve(a Action, tableNodes []views.NodeRow, tableEdges []views.EdgeRow, storeNodes []views.NodeElement, storeEdges []views.EdgeElement) (views.View, error) {
	passThrough := views.View{
		Nodes:    tableNodes,
		Edges:    tableEdges,
		Elements: views.Diagram(storeNodes, storeEdges),
	}
	if a.Kind == ActionNone {
		return passThrough, nil
	}

	current := views.FromStore(storeNodes, storeEdges)
	if err := checkDrift(a, views.FromTable(tableNodes, tableEdges), current); err != nil {
		return passThrough, err
	}

	next, err := Apply(current, a)
	if err != nil {
		return passThrough, err
	}
	return views.Project(next), nil
}

// checkDrift verifies that the table and store snapshots describe the same
// nodes and edges in the same order
func checkDrift(a Action, table, store model.Graph) error {
	if !slices.Equal(table.NodeIDs(), store.NodeIDs()) {
		return actionErr(a, "", ErrRepresentationDrift,
			fmt.Sprintf("table nodes %v, store nodes %v", table.NodeIDs(), store.NodeIDs()))
	}
	if !slices.Equal(table.EdgeIDs(), store.EdgeIDs()) {
		return actionErr(a, "", ErrRepresentationDrift,
			fmt.Sprintf("table edges %v, store edges %v", table.EdgeIDs(), store.EdgeIDs()))
	}
	return nil
}
