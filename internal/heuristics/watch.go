package heuristics

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Holder publishes the current Set to concurrent readers.
type Holder struct {
	current atomic.Pointer[Set]
}

// NewHolder creates a Holder seeded with s.
func NewHolder(s *Set) *Holder {
	h := &Holder{}
	h.current.Store(s)
	return h
}

// Get returns the active Set.
func (h *Holder) Get() *Set {
	return h.current.Load()
}

// Store replaces the active Set.
func (h *Holder) Store(s *Set) {
	h.current.Store(s)
}

// LoadHolder loads and compiles the tables at path into a new Holder.
func LoadHolder(path string) (*Holder, error) {
	t, err := Load(path)
	if err != nil {
		return nil, err
	}
	s, err := t.Compile()
	if err != nil {
		return nil, err
	}
	return NewHolder(s), nil
}

// Watch reloads the tables at path into h whenever the file changes, until ctx
// is cancelled. The parent directory is watched so editors that replace the
// file atomically are still picked up. A file that fails to parse leaves the
// previous tables active.
func Watch(ctx context.Context, path string, h *Holder, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return fmt.Errorf("resolve heuristics path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				t, err := Load(abs)
				if err == nil {
					var s *Set
					if s, err = t.Compile(); err == nil {
						h.Store(s)
						logger.Info("Reloaded heuristics", "path", abs)
						continue
					}
				}
				logger.Warn("Heuristics reload failed, keeping previous tables", "path", abs, "error", err)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Heuristics watcher error", "error", err)
			}
		}
	}()

	return nil
}
