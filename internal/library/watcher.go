package library

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher keeps the library in sync with the filesystem. Writes are
// debounced per path so a file being copied in is imported once, after
// it settles.
type Watcher struct {
	scanner  *Scanner
	store    *Store
	debounce time.Duration
	log      *zap.Logger

	fsw *fsnotify.Watcher

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewWatcher(scanner *Scanner, store *Store, debounce time.Duration, log *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		scanner:  scanner,
		store:    store,
		debounce: debounce,
		log:      log,
		fsw:      fsw,
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Watch registers the given roots and all their subdirectories, then
// blocks processing events until ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context, roots []string) error {
	for _, root := range roots {
		if err := w.addRecursive(root); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) Close() error {
	w.mu.Lock()
	for _, t := range w.timers {
		t.Stop()
	}
	w.timers = nil
	w.mu.Unlock()
	return w.fsw.Close()
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}

func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	switch {
	case ev.Has(fsnotify.Create):
		// New directories need watching; new files go through the
		// same debounce as writes since their content may still be
		// arriving.
		if isDir(ev.Name) {
			if err := w.addRecursive(ev.Name); err != nil {
				w.log.Warn("watch add failed", zap.String("path", ev.Name), zap.Error(err))
			}
			return
		}
		w.scheduleImport(ctx, ev.Name)
	case ev.Has(fsnotify.Write):
		if isAudioFile(ev.Name) {
			w.scheduleImport(ctx, ev.Name)
		}
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		if isAudioFile(ev.Name) {
			if err := w.store.RemoveByPath(ev.Name); err != nil {
				w.log.Warn("remove failed", zap.String("path", ev.Name), zap.Error(err))
			}
		}
	}
}

func (w *Watcher) scheduleImport(ctx context.Context, path string) {
	if !isAudioFile(path) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timers == nil {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		added, _, err := w.scanner.ImportFile(ctx, path)
		if err != nil {
			return
		}
		if added {
			w.log.Info("imported", zap.String("path", path))
		}
	})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
