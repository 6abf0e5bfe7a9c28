// Package watch reports changes below a local folder so they can be
// uploaded as they happen.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/sonnes/cmsync/ignore"
	"github.com/sonnes/cmsync/plan"
)

// DefaultDebounce coalesces bursts of writes to the same file.
const DefaultDebounce = 200 * time.Millisecond

// Op is the kind of change.
type Op int

const (
	// OpUpload means the file was created or written.
	OpUpload Op = iota
	// OpRemove means the file was deleted or renamed away.
	OpRemove
)

func (op Op) String() string {
	switch op {
	case OpUpload:
		return "upload"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Event is a change to a file that passes the ignore and extension rules.
type Event struct {
	Path string
	Op   Op
}

// Handler processes one debounced event.
type Handler func(ctx context.Context, e Event)

// Watcher watches a directory tree.
type Watcher struct {
	FS       billy.Filesystem
	Filter   *ignore.Filter
	Debounce time.Duration
	Logger   *log.Logger

	events <-chan fsnotify.Event
	errors <-chan error
	add    func(dir string) error
	close  func() error
}

// New creates a Watcher backed by fsnotify. fs must address the same files
// as the operating system, e.g. osfs rooted at "/".
func New(fs billy.Filesystem, filter *ignore.Filter, logger *log.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Watcher{
		FS:       fs,
		Filter:   filter,
		Debounce: DefaultDebounce,
		Logger:   logger,
		events:   w.Events,
		errors:   w.Errors,
		add:      w.Add,
		close:    w.Close,
	}, nil
}

// Add watches root and every directory below it that is not ignored.
func (w *Watcher) Add(root string) error {
	return util.Walk(w.FS, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if p != root && w.Filter.Ignored(p, true) {
			return filepath.SkipDir
		}
		if err := w.add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		w.Logger.Debug("Watching", "dir", p)
		return nil
	})
}

// Run delivers events to fn until ctx is done, then closes the watcher.
// Events for the same path within the debounce window are merged, the last
// one winning. Newly created directories are watched automatically.
func (w *Watcher) Run(ctx context.Context, fn Handler) error {
	defer func() {
		if w.close != nil {
			w.close()
		}
	}()

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]*time.Timer)
		wg      sync.WaitGroup
	)
	defer func() {
		mu.Lock()
		for _, t := range pending {
			if t.Stop() {
				wg.Done()
			}
		}
		mu.Unlock()
		wg.Wait()
	}()

	schedule := func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		if t, ok := pending[e.Path]; ok && t.Stop() {
			wg.Done()
		}
		wg.Add(1)
		var t *time.Timer
		t = time.AfterFunc(debounce, func() {
			defer wg.Done()
			mu.Lock()
			if pending[e.Path] == t {
				delete(pending, e.Path)
			}
			mu.Unlock()
			fn(ctx, e)
		})
		pending[e.Path] = t
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) && w.isDir(ev.Name) {
				if !w.Filter.Ignored(ev.Name, true) {
					if err := w.Add(ev.Name); err != nil {
						w.Logger.Warn("Unable to watch new folder", "dir", ev.Name, "err", err)
					}
				}
				continue
			}
			if e, ok := w.convert(ev); ok {
				schedule(e)
			}

		case err, ok := <-w.errors:
			if !ok {
				return nil
			}
			w.Logger.Error("Watcher error", "err", err)
		}
	}
}

func (w *Watcher) isDir(p string) bool {
	fi, err := w.FS.Stat(p)
	return err == nil && fi.IsDir()
}

// convert maps an fsnotify event to an Event. Chmod-only events, ignored
// paths and disallowed extensions are dropped.
func (w *Watcher) convert(ev fsnotify.Event) (Event, bool) {
	if w.Filter.Ignored(ev.Name, false) || !plan.AllowedExtension(ev.Name) {
		return Event{}, false
	}
	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		return Event{Path: ev.Name, Op: OpUpload}, true
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return Event{Path: ev.Name, Op: OpRemove}, true
	default:
		return Event{}, false
	}
}
