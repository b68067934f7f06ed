package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Saves of the same file within this window are compiled once
const watchDebounce = 100 * time.Millisecond

// Watcher recompiles markdown sources under a directory as they change.
type Watcher struct {
	watcher   *fsnotify.Watcher
	processor *Processor
	root      string

	// Called after every compile attempt, mostly for tests
	OnResult func(ProcessResult)

	mu      sync.Mutex
	pending map[string]*time.Timer
}

func NewWatcher(p *Processor, root string) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	return &Watcher{
		watcher:   fsWatcher,
		processor: p,
		root:      absRoot,
		pending:   make(map[string]*time.Timer),
	}, nil
}

// Start registers the directory tree with the watcher. Run must be called to
// process events.
func (w *Watcher) Start() error {
	if err := w.watchDirRecursive(w.root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.root, err)
	}
	slog.Info("watching for changes", "path", w.root, "extension", w.processor.extension)
	return nil
}

// Run blocks until the context is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) watchDirRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if strings.HasPrefix(info.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		slog.Debug("watching directory", "path", path)
		return w.watcher.Add(path)
	})
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watchDirRecursive(event.Name); err != nil {
				slog.Error("failed to watch new directory", "path", event.Name, "error", err)
			}
			return
		}
	}

	if !strings.HasSuffix(event.Name, w.processor.extension) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[event.Name]; ok {
		t.Reset(watchDebounce)
		return
	}
	path := event.Name
	w.pending[path] = time.AfterFunc(watchDebounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.compile(path)
	})
}

func (w *Watcher) compile(path string) {
	result := w.processor.processFile(path)
	rel, err := filepath.Rel(w.root, result.Path)
	if err != nil {
		rel = result.Path
	}

	if result.Error != nil {
		slog.Error("failed to compile", "path", rel, "error", result.Error)
	} else {
		slog.Info("compiled", "path", rel, "output", result.OutPath, "duration", result.Duration)
	}

	if w.OnResult != nil {
		w.OnResult(result)
	}
}

func (w *Watcher) stop() {
	w.mu.Lock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
	w.watcher.Close()
}
