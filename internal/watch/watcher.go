// Package watch re-runs label validation when source files change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"fiddle/internal/project"
)

// Handler receives the source files, relative to the root, that changed or
// disappeared during one debounce window.
type Handler func(ctx context.Context, changed, removed []string)

// Options configures a Watcher.
type Options struct {
	Root     string
	Config   project.Config
	Debounce time.Duration
	MaxBatch int
	Logger   *zap.Logger
}

// Watcher follows every non-excluded directory under Root.
type Watcher struct {
	root    string
	config  project.Config
	window  time.Duration
	batch   int
	logger  *zap.Logger
	handler Handler
	notify  *fsnotify.Watcher
}

// New creates a watcher. Nothing is watched until Run.
func New(opts Options, h Handler) (*Watcher, error) {
	if h == nil {
		return nil, errors.New("watch: nil handler")
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	window := opts.Debounce
	if window <= 0 {
		window = 300 * time.Millisecond
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	return &Watcher{
		root:    root,
		config:  opts.Config,
		window:  window,
		batch:   opts.MaxBatch,
		logger:  logger.With(zap.String("component", "watch")),
		handler: h,
		notify:  fsw,
	}, nil
}

func (w *Watcher) rel(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// addTree watches dir and every non-excluded directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			w.logger.Debug("skip unreadable path", zap.String("path", p), zap.Error(err))
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if rel, ok := w.rel(p); ok && rel != "." && w.config.Excluded(rel) {
			return filepath.SkipDir
		}
		if err := w.notify.Add(p); err != nil {
			w.logger.Debug("failed to watch directory", zap.String("path", p), zap.Error(err))
		}
		return nil
	})
}

// Run watches until ctx is done. Pending changes are flushed before it
// returns.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.notify.Close()
	if err := w.addTree(w.root); err != nil {
		return fmt.Errorf("watch %s: %w", w.root, err)
	}
	w.logger.Info("watching", zap.String("root", w.root), zap.Duration("debounce", w.window))

	deb := newDebouncer(w.window, w.batch, func(changed, removed []string) {
		w.handler(ctx, changed, removed)
	})
	defer deb.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.notify.Events:
			if !ok {
				return nil
			}
			w.handle(ev, deb)
		case err, ok := <-w.notify.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event, deb *debouncer) {
	rel, ok := w.rel(ev.Name)
	if !ok {
		return
	}
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if !w.config.Excluded(rel) {
				if err := w.addTree(ev.Name); err != nil {
					w.logger.Debug("failed to watch new directory", zap.String("path", ev.Name), zap.Error(err))
				}
			}
			return
		}
	}
	if !w.config.Match(rel) {
		return
	}
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		deb.add(rel, true)
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		deb.add(rel, false)
	}
}
