// Package watch turns saves of skin XML files into reloads.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/skinlens/internal/checksum"
	"github.com/starford/skinlens/internal/models"
)

// DefaultDebounce is the quiet period applied to bursts of events on one path.
const DefaultDebounce = 150 * time.Millisecond

// Reloader rebuilds whatever depends on the file at path.
type Reloader interface {
	Reload(path string) models.ReloadResult
}

// Callback is called after each reload with its outcome.
type Callback func(models.ReloadResult)

// Watcher watches a skin root and reloads changed .xml files.
type Watcher struct {
	root     string
	reloader Reloader
	logger   *slog.Logger
	debounce time.Duration
	cb       Callback

	mu     sync.Mutex
	timers map[string]*time.Timer
	sums   map[string]string
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the watcher logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides DefaultDebounce. Non-positive values are ignored.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithCallback registers cb to receive every reload outcome.
func WithCallback(cb Callback) Option {
	return func(w *Watcher) { w.cb = cb }
}

// New creates a Watcher for root.
func New(root string, reloader Reloader, opts ...Option) *Watcher {
	w := &Watcher{
		root:     root,
		reloader: reloader,
		logger:   slog.Default(),
		debounce: DefaultDebounce,
		timers:   make(map[string]*time.Timer),
		sums:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run processes file change events until ctx is cancelled.
//
// New directories created at runtime are added to the watch list.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := addDirsRecursive(fw, w.root); err != nil {
		return err
	}
	w.logger.Info("watcher: started", slog.String("root", w.root))

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			w.logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, fw, ev)

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, fw *fsnotify.Watcher, ev fsnotify.Event) {
	path := ev.Name

	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := addDirsRecursive(fw, path); err != nil {
				w.logger.Warn("watcher: add new dir failed", slog.String("path", path), slog.String("error", err.Error()))
			} else {
				w.logger.Debug("watcher: watching new dir", slog.String("path", path))
			}
			return
		}
	}

	if !isXML(path) {
		return
	}

	// Removals reload too, so registries drop the deleted file. Editors that
	// save by rename-and-recreate collapse into one reload via the debounce.
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
		w.schedule(ctx, path)
	}
}

// schedule (re)arms the debounce timer for path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		w.reload(path)
	})
}

func (w *Watcher) reload(path string) {
	sum, err := checksum.File(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		w.mu.Lock()
		delete(w.sums, path)
		w.mu.Unlock()
		w.logger.Debug("watcher: file removed", slog.String("path", path))
	case err != nil:
		w.logger.Warn("watcher: read failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	default:
		w.mu.Lock()
		unchanged := w.sums[path] == sum
		w.sums[path] = sum
		w.mu.Unlock()
		if unchanged {
			w.logger.Debug("watcher: content unchanged", slog.String("path", path))
			return
		}
	}

	res := w.reloader.Reload(path)
	w.logger.Debug("watcher: reloaded",
		slog.String("path", path),
		slog.Bool("changed", res.Changed()))
	if w.cb != nil {
		w.cb(res)
	}
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for p, t := range w.timers {
		t.Stop()
		delete(w.timers, p)
	}
}

func isXML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xml")
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
