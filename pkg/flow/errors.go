package flow

import (
	"errors"
	"fmt"

	"github.com/processfirst/flowdash/pkg/ident"
)

var (
	// ErrAllocationExhausted means no node id is left to hand out
	ErrAllocationExhausted = ident.ErrAllocationExhausted
	// ErrInsufficientNodes means AddEdge ran with fewer than two nodes
	ErrInsufficientNodes = errors.New("at least two nodes are required to add an edge")
	// ErrDanglingReference means an edge would reference a node that does not exist
	ErrDanglingReference = errors.New("edge endpoint does not reference an existing node")
	// ErrRepresentationDrift means the table and store snapshots disagree
	ErrRepresentationDrift = errors.New("table and store representations disagree")
	ErrDuplicateEdge       = errors.New("edge id already exists")
	ErrDuplicateNode       = errors.New("node id already exists")
	ErrNodeNotFound        = errors.New("node not found")
	ErrEdgeNotFound        = errors.New("edge not found")
	ErrUnknownField        = errors.New("field is not editable")
	ErrInvalidValue        = errors.New("invalid cell value")
	ErrUnknownAction       = errors.New("unknown action")
)

// ActionError describes why an action could not be applied.
// It unwraps to one of the sentinel errors above.
type ActionError struct {
	Action ActionKind
	ID     string
	Err    error
	Detail string
}

func (e *ActionError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Action, e.Err)
	if e.ID != "" {
		msg = fmt.Sprintf("%s %q: %v", e.Action, e.ID, e.Err)
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

func actionErr(a Action, id string, err error, detail string) error {
	return &ActionError{Action: a.Kind, ID: id, Err: err, Detail: detail}
}
