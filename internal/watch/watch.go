// Package watch rebuilds a pipeline whenever one of its inputs changes.
package watch

import (
	"context"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/specialistvlad/gridmake/internal/ctxlog"
)

// DefaultDebounce is how long a file must stay quiet before its change is
// reported.
const DefaultDebounce = 200 * time.Millisecond

// Change is a batch of files that changed since the last report.
type Change struct {
	Files []string
}

// Watcher reports changes to a fixed set of files. It watches their parent
// directories so that editors which replace files on save are noticed.
type Watcher struct {
	Changes <-chan Change

	changes  chan Change
	done     chan struct{}
	watcher  *fsnotify.Watcher
	files    map[string]struct{}
	dirs     []string
	debounce time.Duration
}

// New creates a watcher for files. A debounce of zero uses DefaultDebounce.
func New(files []string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	interesting := make(map[string]struct{}, len(files))
	dirSet := make(map[string]struct{})
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			fw.Close()
			return nil, err
		}
		interesting[abs] = struct{}{}
		dirSet[filepath.Dir(abs)] = struct{}{}
	}
	dirs := make([]string, 0, len(dirSet))
	for d := range dirSet {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	ch := make(chan Change, 16)
	return &Watcher{
		Changes:  ch,
		changes:  ch,
		done:     make(chan struct{}),
		watcher:  fw,
		files:    interesting,
		dirs:     dirs,
		debounce: debounce,
	}, nil
}

// Dirs returns the directories being watched.
func (w *Watcher) Dirs() []string {
	return append([]string(nil), w.dirs...)
}

// Start begins watching. Directories that do not exist yet are skipped.
func (w *Watcher) Start(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	added := 0
	for _, d := range w.dirs {
		if err := w.watcher.Add(d); err != nil {
			logger.Warn("Cannot watch directory.", "dir", d, "error", err)
			continue
		}
		added++
	}
	logger.Debug("Watcher started.", "dirs", added, "files", len(w.files))

	go w.loop()
	return nil
}

// Stop closes the watcher and its Changes channel.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.done
	close(w.changes)
}

func (w *Watcher) loop() {
	defer close(w.done)

	pending := make(map[string]time.Time)
	tick := w.debounce / 2
	if tick < time.Millisecond {
		tick = time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				w.flush(pending, time.Time{})
				return
			}
			if !w.isWatched(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				pending[event.Name] = time.Now()
			}

		case <-ticker.C:
			w.flush(pending, time.Now())

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are not fatal.
		}
	}
}

// flush reports every pending file that has been quiet for the debounce
// interval. A zero now reports everything.
func (w *Watcher) flush(pending map[string]time.Time, now time.Time) {
	var files []string
	for file, t := range pending {
		if now.IsZero() || now.Sub(t) >= w.debounce {
			files = append(files, file)
			delete(pending, file)
		}
	}
	if len(files) == 0 {
		return
	}
	sort.Strings(files)
	w.changes <- Change{Files: files}
}

func (w *Watcher) isWatched(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	_, ok := w.files[abs]
	return ok
}

// Run calls rebuild for every change until ctx is done or the watcher stops.
// A failed rebuild is logged and watching continues.
func Run(ctx context.Context, changes <-chan Change, rebuild func(context.Context, Change) error) error {
	logger := ctxlog.FromContext(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			logger.Info("Inputs changed, rebuilding.", "files", change.Files)
			if err := rebuild(ctx, change); err != nil {
				logger.Error("Rebuild failed.", "error", err)
			}
		}
	}
}
