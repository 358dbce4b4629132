// Package watcher reports add, change and remove events for function source
// files under a workspace root. It watches directories recursively, filters
// out anything the loader would not load and debounces bursts of events for
// the same file.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/vk/burstfn/internal/ctxlog"
	"github.com/vk/burstfn/internal/fsutil"
	"github.com/vk/burstfn/internal/workspace"
)

// DefaultDebounce is used when Options.Debounce is zero.
const DefaultDebounce = 100 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet period before an event is delivered. Negative
	// disables debouncing.
	Debounce time.Duration
}

// Watcher is a recursive, filtered, debounced filesystem watcher.
type Watcher struct {
	root   string
	fs     *fsnotify.Watcher
	queue  queue
	dirs   map[string]struct{}
	files  map[string]struct{}
	events chan Event
	errors chan error

	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// New starts watching root.
func New(ctx context.Context, root string, opts Options) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving watch root %q: %w", root, err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	debounce := opts.Debounce
	if debounce == 0 {
		debounce = DefaultDebounce
	} else if debounce < 0 {
		debounce = 0
	}

	w := &Watcher{
		root:    abs,
		fs:      fsw,
		queue:   queue{debounce: debounce},
		dirs:    make(map[string]struct{}),
		files:   make(map[string]struct{}),
		events:  make(chan Event, 64),
		errors:  make(chan error, 8),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	if err := w.addTree(abs, false, time.Now()); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	ctxlog.FromContext(ctx).Debug("Watcher started.", "root", abs, "dirs", len(w.dirs), "debounce", debounce)
	go w.loop(ctx)
	return w, nil
}

// Events delivers filtered, debounced events. It is closed by Close.
func (w *Watcher) Events() <-chan Event { return w.events }

// Errors delivers watcher errors. It is closed by Close.
func (w *Watcher) Errors() <-chan error { return w.errors }

// Close stops the watcher. Events still waiting out their debounce window are
// dropped.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fs.Close()
		<-w.stopped
	})
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.stopped)
	defer close(w.events)
	defer close(w.errors)
	logger := ctxlog.FromContext(ctx)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(ev, time.Now())
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logger.Warn("fsnotify error.", "error", err)
			select {
			case w.errors <- err:
			default:
			}
		case <-timer.C:
		}

		for _, ev := range w.queue.ready(time.Now()) {
			select {
			case w.events <- ev:
			case <-w.done:
				return
			}
		}
		if d, ok := w.queue.wait(time.Now()); ok {
			timer.Reset(d)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event, now time.Time) {
	path := filepath.Clean(ev.Name)
	switch {
	case ev.Has(fsnotify.Create):
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !fsutil.IsHidden(filepath.Base(path)) {
				// Files may already exist in a directory that was moved in.
				_ = w.addTree(path, true, now)
			}
			return
		}
		w.push(Add, path, now)
	case ev.Has(fsnotify.Write):
		w.push(Change, path, now)
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		if _, isDir := w.dirs[path]; isDir {
			w.dropTree(path, now)
			return
		}
		w.push(Remove, path, now)
	}
}

func (w *Watcher) push(op Op, path string, now time.Time) {
	if !workspace.Accepts(w.root, path) {
		return
	}
	if op == Remove {
		delete(w.files, path)
	} else {
		w.files[path] = struct{}{}
	}
	w.queue.push(Event{Op: op, Path: path}, now)
}

// addTree watches dir and every non-hidden directory below it. With emit
// set, the files found are reported as added.
func (w *Watcher) addTree(dir string, emit bool, now time.Time) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != w.root && fsutil.IsHidden(d.Name()) {
				return filepath.SkipDir
			}
			if err := w.fs.Add(path); err != nil {
				return fmt.Errorf("watching %q: %w", path, err)
			}
			w.dirs[path] = struct{}{}
			return nil
		}
		if !workspace.Accepts(w.root, path) {
			return nil
		}
		if emit {
			w.push(Add, path, now)
		} else {
			w.files[path] = struct{}{}
		}
		return nil
	})
}

// dropTree forgets a removed directory and reports its files as removed.
func (w *Watcher) dropTree(dir string, now time.Time) {
	prefix := dir + string(filepath.Separator)
	for d := range w.dirs {
		if d == dir || strings.HasPrefix(d, prefix) {
			delete(w.dirs, d)
		}
	}
	var gone []string
	for f := range w.files {
		if strings.HasPrefix(f, prefix) {
			gone = append(gone, f)
		}
	}
	sort.Strings(gone)
	for _, f := range gone {
		w.push(Remove, f, now)
	}
}
