package pubsub

import (
	"context"

	"github.com/goccy/go-json"
)

// Topics published by the dashboard
const (
	TopicFlowGraph  = "flow_graph"  // Graph snapshots and diffs after each edit
	TopicDataStatus = "data_status" // Reloads of the results file and component catalog
)

// DashboardTopics holds the buffering of each dashboard topic. New
// subscribers get the latest event of each.
var DashboardTopics = map[string]TopicConfig{
	TopicFlowGraph:  {BufferSize: 5},
	TopicDataStatus: {BufferSize: 10},
}

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic (e.g., "flow_graph", "data_status")
	Type    string          `json:"type"`    // Event type (e.g., "snapshot", "diff", "reloaded")
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Version number for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events
	Events() <-chan Event

	// Close closes the subscription
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic
	// Context cancellation will close the subscription
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data interface{}) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// DataStatus reports the state of the reloadable data files
type DataStatus struct {
	Source  string `json:"source"`  // "results" or "components"
	Path    string `json:"path"`    // File that was (re)loaded
	State   string `json:"state"`   // reloaded, error
	Message string `json:"message"` // Human-readable status message
}

// FlowGraphChange announces a new graph state. Diff is relative to the
// previous version; clients that missed a version refetch the full graph.
type FlowGraphChange struct {
	Version int         `json:"version"`
	Action  string      `json:"action"`
	Hash    string      `json:"hash"`
	Diff    interface{} `json:"diff"`
}
