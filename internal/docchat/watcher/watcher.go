// Package watcher triggers index rebuilds when the corpus directory
// changes on disk.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kart-io/logger"

	"github.com/kart-io/docchat/internal/docchat/biz"
	"github.com/kart-io/docchat/internal/docchat/loader"
)

// defaultDebounce coalesces bursts of filesystem events, such as an
// editor writing a temp file and renaming it over the original, into a
// single rebuild.
const defaultDebounce = 2 * time.Second

// Watcher watches the corpus directory and rebuilds the index after
// changes settle.
type Watcher struct {
	dir      string
	debounce time.Duration
	reload   func(ctx context.Context) error
	fw       *fsnotify.Watcher
	done     chan struct{}
}

// New creates a Watcher over dir. reload is invoked after events settle;
// a debounce of zero or less uses the default.
func New(dir string, debounce time.Duration, reload func(ctx context.Context) error) (*Watcher, error) {
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		dir:      dir,
		debounce: debounce,
		reload:   reload,
		fw:       fw,
		done:     make(chan struct{}),
	}

	if err := w.addRecursive(dir); err != nil {
		_ = fw.Close()
		return nil, err
	}

	return w, nil
}

// addRecursive watches dir and its non-hidden subdirectories. fsnotify
// does not recurse on its own.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(fi.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fw.Add(path)
	})
}

// Start runs the event loop until ctx is cancelled or Close is called.
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
	logger.Infow("Watching corpus directory", "dir", w.dir, "debounce", w.debounce.String())
}

func (w *Watcher) loop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}

			// New subdirectories need their own watch.
			if event.Op.Has(fsnotify.Create) {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					_ = w.addRecursive(event.Name)
				}
			}

			logger.Debugw("Corpus change detected", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
		case <-timerC:
			timer = nil
			timerC = nil

			logger.Infow("Corpus changed, rebuilding index")
			if err := w.reload(ctx); err != nil {
				if errors.Is(err, biz.ErrRebuildInProgress) {
					logger.Debugw("Rebuild already in progress, skipping")
					continue
				}
				logger.Errorw("Failed to rebuild index after corpus change", "error", err.Error())
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			logger.Warnw("Corpus watcher error", "error", err.Error())
		}
	}
}

// relevant filters events down to changes that affect the index: loadable
// files and directory creation (which may bring new files).
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}

	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}

	if loader.IsSupported(name) {
		return true
	}

	// A removed path has no stat to check; rebuild to be safe.
	if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
		if fi, err := os.Stat(event.Name); err == nil {
			return fi.IsDir()
		}
		return filepath.Ext(name) == ""
	}

	return false
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fw.Close()
}
