// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package watch reloads the graph when its stored state is changed by
// another writer, either by watching the data directory or by polling the
// backend.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sigil-dev/lyph/internal/codec"
	lypherr "github.com/sigil-dev/lyph/pkg/errors"
)

const (
	DefaultDebounce     = 250 * time.Millisecond
	DefaultPollInterval = 30 * time.Second

	trigger = "watch"
)

// Reloader is the part of the engine the watcher drives.
type Reloader interface {
	Changed(ctx context.Context) (bool, error)
	Reload(ctx context.Context, trigger string) error
}

type Option func(*Watcher)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithPollInterval sets how often a backend without a directory is asked
// whether it changed. Zero disables polling.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) {
		w.poll = d
	}
}

// Watcher collapses bursts of change notifications into one reload.
// Notifications caused by the engine's own saves are discarded because the
// backend reports no change for them.
type Watcher struct {
	target   Reloader
	dir      string
	debounce time.Duration
	poll     time.Duration
	logger   *slog.Logger
}

// New returns a watcher for target. A non-empty dir is watched with
// fsnotify; otherwise the backend is polled.
func New(target Reloader, dir string, opts ...Option) *Watcher {
	w := &Watcher{
		target:   target,
		dir:      dir,
		debounce: DefaultDebounce,
		poll:     DefaultPollInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run blocks until ctx is done. It returns nil on cancellation and an error
// only if the directory cannot be watched.
func (w *Watcher) Run(ctx context.Context) error {
	if w.dir != "" {
		return w.runNotify(ctx)
	}
	if w.poll <= 0 {
		<-ctx.Done()
		return nil
	}
	return w.runPoll(ctx)
}

func (w *Watcher) runNotify(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return lypherr.Wrap(err, lypherr.CodeWatchStartFailure, "creating file watcher")
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(w.dir); err != nil {
		return lypherr.Wrap(err, lypherr.CodeWatchStartFailure, "watching data directory",
			lypherr.Field("dir", w.dir))
	}
	w.logger.Info("watching data directory", "dir", w.dir)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			w.logger.Debug("graph file event", "file", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)
		case <-fire:
			fire = nil
			w.check(ctx)
		}
	}
}

func (w *Watcher) runPoll(ctx context.Context) error {
	w.logger.Info("polling backend for changes", "interval", w.poll)
	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

func (w *Watcher) check(ctx context.Context) {
	changed, err := w.target.Changed(ctx)
	if err != nil {
		w.logger.Warn("change check failed", "error", err)
		return
	}
	if !changed {
		return
	}
	if err := w.target.Reload(ctx, trigger); err != nil {
		w.logger.Warn("reload after external change failed", "error", err)
	}
}

func relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return false
	}
	return slices.Contains(codec.FileNames, filepath.Base(ev.Name))
}
