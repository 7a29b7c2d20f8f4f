package watcher

import (
	"context"
	"time"

	"github.com/processfirst/flowdash/pkg/logging"
)

// Debouncer batches rapid file system events to avoid reloading a file mid-write
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a new event debouncer
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 10),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start begins processing events with debouncing
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

// run processes events and applies debouncing logic
func (d *Debouncer) run(ctx context.Context) {
	var (
		quiet       = stoppedTimer()
		deadline    = stoppedTimer()
		waiting     bool
		accumulated = make(map[ChangeType][]string)
		eventCount  int
	)

	flush := func() {
		quiet.Stop()
		deadline.Stop()
		waiting = false

		if eventCount == 0 {
			return
		}

		logging.Debug("flushing accumulated events", "count", eventCount)

		// Results before components
		for _, typ := range []ChangeType{ChangeTypeResults, ChangeTypeComponents} {
			if paths := accumulated[typ]; len(paths) > 0 {
				d.output <- ChangeEvent{
					Type:      typ,
					Paths:     dedupe(paths),
					Timestamp: time.Now(),
				}
			}
		}

		accumulated = make(map[ChangeType][]string)
		eventCount = 0
	}

	defer close(d.output)

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				return
			}

			accumulated[event.Type] = append(accumulated[event.Type], event.Paths...)
			eventCount++

			// Reset quiet period timer
			quiet.Stop()
			quiet.Reset(d.quietPeriod)

			// Start max wait timer on first event
			if !waiting {
				deadline.Reset(d.maxWait)
				waiting = true
			}

		case <-quiet.C:
			flush()

		case <-deadline.C:
			flush()
		}
	}
}

// Output returns the channel of debounced events
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}

func stoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	t.Stop()
	return t
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := paths[:0:0]
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
