// Package watcher triggers a rescan when a document file changes.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"haca/internal/document"
	"haca/internal/utils"

	"github.com/fsnotify/fsnotify"
)

// DocumentFiles are the files whose changes trigger a rescan
var DocumentFiles = []string{document.AutomationsFile, document.ScriptsFile, document.ScenesFile}

// Watcher observes the configuration root. The directory is watched rather
// than the files because editors and atomic writes replace them.
type Watcher struct {
	dir      string
	files    map[string]bool
	window   time.Duration
	onChange func()
}

// New creates a watcher calling onChange once a burst of changes to any of
// files has been quiet for window
func New(dir string, files []string, window time.Duration, onChange func()) *Watcher {
	set := make(map[string]bool, len(files))
	for _, f := range files {
		set[f] = true
	}
	if window <= 0 {
		window = utils.DebounceWindow
	}
	return &Watcher{dir: dir, files: set, window: window, onChange: onChange}
}

// Relevant reports whether an event path names one of the watched files
func (w *Watcher) Relevant(path string) bool {
	return filepath.Dir(filepath.Clean(path)) == filepath.Clean(w.dir) && w.files[filepath.Base(path)]
}

// Run watches until ctx is cancelled
func (w *Watcher) Run(ctx context.Context) error {
	log := utils.Logger("WATCHER")
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch init: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	debouncer := utils.NewDebouncer(w.window, w.onChange)
	defer debouncer.Stop()
	log.Infof("Watching %s for document changes", w.dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod || !w.Relevant(ev.Name) {
				continue
			}
			log.Debugf("%s: %s", ev.Op, ev.Name)
			debouncer.Trigger()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warnf("Watch error: %v", err)
		}
	}
}
