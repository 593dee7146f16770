package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Config contains configuration for the watcher.
type Config struct {
	// Paths are the input files and directories.
	Paths []string

	// Debounce is the quiet period after the last change before the
	// callback runs.
	Debounce time.Duration

	// Extensions are the file extensions that count as changes. Empty
	// accepts any extension.
	Extensions []string
}

// ChangeFunc is called with the changed files, sorted, after each quiet
// period.
type ChangeFunc func(ctx context.Context, changed []string) error

// Watcher reports changes to the input tables.
type Watcher struct {
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	config   Config
	debounce *Debouncer

	// files holds the explicitly named input files. Their parent
	// directories are watched so atomic replacement is seen.
	files map[string]bool

	mu      sync.Mutex
	pending map[string]struct{}

	// runMu is held while the callback runs.
	runMu sync.Mutex
}

// New creates a watcher over the configured paths.
func New(cfg Config, logger *slog.Logger) (*Watcher, error) {
	if len(cfg.Paths) == 0 {
		return nil, fmt.Errorf("no paths to watch")
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fsw,
		logger:   logger.With("component", "watch"),
		config:   cfg,
		debounce: NewDebouncer(cfg.Debounce),
		files:    make(map[string]bool),
		pending:  make(map[string]struct{}),
	}
	for _, p := range cfg.Paths {
		if err := w.addPath(p); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to watch %q: %w", p, err)
		}
	}
	return w, nil
}

// Watch processes file events until ctx is cancelled, calling onChange
// after each debounced burst of changes. Callback errors are logged and
// watching continues. Watch closes the watcher before returning.
func (w *Watcher) Watch(ctx context.Context, onChange ChangeFunc) error {
	defer w.close()

	w.logger.Info("watching inputs",
		"paths", w.config.Paths,
		"debounce_ms", w.config.Debounce.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !w.shouldProcessEvent(event) {
				continue
			}
			w.logger.Debug("file event", "path", event.Name, "op", event.Op.String())

			w.mu.Lock()
			w.pending[event.Name] = struct{}{}
			w.mu.Unlock()

			w.debounce.Trigger(func() {
				w.runMu.Lock()
				defer w.runMu.Unlock()

				changed := w.drain()
				if ctx.Err() != nil || len(changed) == 0 {
					return
				}
				if err := onChange(ctx, changed); err != nil {
					w.logger.Error("change handler failed", "error", err)
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) close() {
	w.debounce.Stop()
	w.runMu.Lock()
	defer w.runMu.Unlock()
	if err := w.watcher.Close(); err != nil {
		w.logger.Warn("failed to close watcher", "error", err)
	}
}

func (w *Watcher) drain() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	changed := make([]string, 0, len(w.pending))
	for p := range w.pending {
		changed = append(changed, p)
	}
	clear(w.pending)
	sort.Strings(changed)
	return changed
}

func (w *Watcher) addPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		w.files[filepath.Clean(path)] = true
		return w.watcher.Add(filepath.Dir(path))
	}
	return w.watcher.Add(path)
}

// shouldProcessEvent determines if an event should trigger a run.
func (w *Watcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if !w.hasValidExtension(strings.ToLower(filepath.Ext(base))) {
		return false
	}

	// Sibling files in the parent directory of a named input are ignored
	// unless that directory is itself an input.
	dir := filepath.Dir(filepath.Clean(event.Name))
	if w.files[filepath.Clean(event.Name)] {
		return true
	}
	return slices.ContainsFunc(w.config.Paths, func(p string) bool {
		return filepath.Clean(p) == dir && !w.files[filepath.Clean(p)]
	})
}

func (w *Watcher) hasValidExtension(ext string) bool {
	if len(w.config.Extensions) == 0 {
		return true
	}
	for _, valid := range w.config.Extensions {
		if ext == strings.ToLower(valid) {
			return true
		}
	}
	return false
}
