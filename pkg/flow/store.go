package flow

import (
	"sync"

	"github.com/processfirst/flowdash/pkg/logging"
	"github.com/processfirst/flowdash/pkg/model"
	"github.com/processfirst/flowdash/pkg/views"
)

// ChangeFunc is notified after every successful write with the previous and
// the new graph and the version the write produced
type ChangeFunc func(prev, next model.Graph, a Action, version int)

// Store holds the authoritative process-flow graph for the lifetime of the
// process. It is created once by the application shell and shared by handle.
type Store struct {
	mu       sync.RWMutex
	notifyMu sync.Mutex // keeps callbacks in version order
	graph    model.Graph
	version  int
	onChange []ChangeFunc
}

// NewStore creates a store holding a copy of the initial graph
func NewStore(initial model.Graph) *Store {
	return &Store{graph: initial.Clone()}
}

// OnChange registers a callback invoked after each successful Apply.
// Callbacks run in version order outside the state lock; they may read the
// store but must not call Apply.
func (s *Store) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Snapshot returns a copy of the current graph
func (s *Store) Snapshot() model.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.Clone()
}

// View projects the current graph to table rows and diagram elements
func (s *Store) View() views.View {
	return views.Project(s.Snapshot())
}

// Version counts successful writes
func (s *Store) Version() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Apply resolves one action against the stored graph. Writers are serialized;
// the stored graph is only replaced when the action succeeds.
func (s *Store) Apply(a Action) (views.View, error) {
	s.mu.Lock()
	prev := s.graph
	next, err := Apply(prev, a)
	if err != nil {
		s.mu.Unlock()
		logging.Warn("flow action rejected", "action", a.String(), "error", err)
		return views.Project(prev), err
	}
	changed := a.Kind != ActionNone
	if changed {
		s.graph = next
		s.version++
	}
	version := s.version
	callbacks := append([]ChangeFunc(nil), s.onChange...)
	if changed {
		// Taken before the state lock is released so the next writer
		// cannot notify ahead of this one
		s.notifyMu.Lock()
	}
	s.mu.Unlock()

	logging.Debug("flow action applied", "action", a.String(), "nodes", len(next.Nodes), "edges", len(next.Edges))
	if changed {
		for _, fn := range callbacks {
			fn(prev.Clone(), next.Clone(), a, version)
		}
		s.notifyMu.Unlock()
	}
	return views.Project(next), nil
}
