package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Store publishes the current catalog snapshot. Reload swaps the snapshot
// atomically and keeps the previous one when the new file does not parse.
type Store struct {
	mu  sync.RWMutex
	cat *Catalog
	log *slog.Logger
}

func NewStore(c *Catalog, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{cat: c, log: log}
}

func (s *Store) Current() *Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cat
}

func (s *Store) Reload(path string) error {
	c, err := LoadFile(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cat = c
	s.mu.Unlock()
	return nil
}

// Watch reloads the catalog whenever path is written or recreated. The parent
// directory is watched so editors that replace the file are seen too. Watch
// returns once the watcher is running; it stops when ctx is done.
func (s *Store) Watch(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve catalog path: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return fmt.Errorf("watch catalog dir: %w", err)
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				if err := s.Reload(abs); err != nil {
					s.log.Warn("catalog: reload failed, keeping previous", "path", abs, "err", err)
					continue
				}
				s.log.Info("catalog: reloaded", "path", abs)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.log.Warn("catalog: watcher error", "err", err)
			}
		}
	}()
	return nil
}
