package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/processfirst/flowdash/pkg/logging"
)

// ChangeType represents the type of file change detected
type ChangeType int

const (
	ChangeTypeResults ChangeType = iota
	ChangeTypeComponents
)

func (t ChangeType) String() string {
	switch t {
	case ChangeTypeResults:
		return "results"
	case ChangeTypeComponents:
		return "components"
	}
	return fmt.Sprintf("ChangeType(%d)", int(t))
}

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// batchDelay groups the burst of events editors emit for a single save
const batchDelay = 100 * time.Millisecond

// FileWatcher watches the data files the dashboard reads
type FileWatcher struct {
	watcher *fsnotify.Watcher
	files   map[string]ChangeType // cleaned absolute path -> type
	events  chan ChangeEvent
	done    chan struct{}
}

// NewFileWatcher creates a watcher for the given files. Empty paths are skipped.
func NewFileWatcher(results, components string) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	fw := &FileWatcher{
		watcher: watcher,
		files:   make(map[string]ChangeType),
		events:  make(chan ChangeEvent, 100),
		done:    make(chan struct{}),
	}

	for path, typ := range map[string]ChangeType{results: ChangeTypeResults, components: ChangeTypeComponents} {
		if path == "" {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
		}
		fw.files[abs] = typ
	}

	return fw, nil
}

// Start begins watching for file changes
func (fw *FileWatcher) Start(ctx context.Context) error {
	// Editors replace files by rename, so watch the parent directories
	dirs := make(map[string]bool)
	for path := range fw.files {
		dirs[filepath.Dir(path)] = true
	}
	for dir := range dirs {
		if err := fw.watcher.Add(dir); err != nil {
			fw.watcher.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		logging.Info("monitoring directory for data changes", "path", dir)
	}

	go fw.processEvents(ctx)

	return nil
}

// classify maps a file system event onto a change type
func (fw *FileWatcher) classify(event fsnotify.Event) (ChangeType, bool) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return 0, false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return 0, false
	}
	typ, ok := fw.files[abs]
	return typ, ok
}

// processEvents processes file system events and batches them by type
func (fw *FileWatcher) processEvents(ctx context.Context) {
	pending := make(map[ChangeType][]string)

	flushTimer := time.NewTimer(batchDelay)
	flushTimer.Stop()

	flush := func() {
		for _, typ := range []ChangeType{ChangeTypeResults, ChangeTypeComponents} {
			if paths := pending[typ]; len(paths) > 0 {
				fw.events <- ChangeEvent{
					Type:      typ,
					Paths:     paths,
					Timestamp: time.Now(),
				}
			}
		}
		pending = make(map[ChangeType][]string)
	}

	defer func() {
		fw.watcher.Close()
		close(fw.events)
		close(fw.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			typ, relevant := fw.classify(event)
			if !relevant {
				continue
			}
			logging.Trace("data file event", "path", event.Name, "op", event.Op.String(), "type", typ.String())
			pending[typ] = append(pending[typ], event.Name)
			flushTimer.Reset(batchDelay)

		case <-flushTimer.C:
			flush()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Done is closed once the watcher has shut down
func (fw *FileWatcher) Done() <-chan struct{} {
	return fw.done
}
