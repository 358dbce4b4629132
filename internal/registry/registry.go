package registry

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/vk/burstfn/internal/compiler"
	"github.com/vk/burstfn/internal/ctxlog"
	"github.com/vk/burstfn/internal/model"
	"github.com/vk/burstfn/internal/watcher"
)

// ErrAlreadyInitialized is returned by a second call to Initialize.
var ErrAlreadyInitialized = errors.New("registry already initialized")

// Invalidator is notified whenever a record is replaced or removed.
type Invalidator interface {
	Invalidate(name string)
	InvalidateAll()
}

// EventSource delivers filesystem events. *watcher.Watcher implements it.
type EventSource interface {
	Events() <-chan watcher.Event
	Errors() <-chan error
	Close() error
}

// Options configures a Registry.
type Options struct {
	// Root is the workspace directory.
	Root string
	// Compiler defaults to the HCL compiler.
	Compiler compiler.Compiler
	// Watch enables hot reload. Production deployments leave it off.
	Watch bool
	// NewWatcher defaults to watcher.New.
	NewWatcher func(ctx context.Context, root string) (EventSource, error)
	// OnReady runs once, after the initial scan and watcher start.
	OnReady func(ctx context.Context)
}

// Registry is the function cache.
type Registry struct {
	root       string
	compiler   compiler.Compiler
	watch      bool
	newWatcher func(ctx context.Context, root string) (EventSource, error)
	onReady    func(ctx context.Context)

	records     sync.Map // name -> *model.FunctionRecord
	generation  atomic.Uint64
	invalidator atomic.Pointer[Invalidator]

	initialized atomic.Bool
	readyOnce   sync.Once
	applyMu     sync.Mutex

	source EventSource
	done   chan struct{}
}

// New creates an empty registry. Call Initialize to populate it.
func New(opts Options) (*Registry, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace root %q: %w", opts.Root, err)
	}
	r := &Registry{
		root:       root,
		compiler:   opts.Compiler,
		watch:      opts.Watch,
		newWatcher: opts.NewWatcher,
		onReady:    opts.OnReady,
	}
	if r.compiler == nil {
		r.compiler = compiler.New()
	}
	if r.newWatcher == nil {
		r.newWatcher = func(ctx context.Context, root string) (EventSource, error) {
			return watcher.New(ctx, root, watcher.Options{})
		}
	}
	return r, nil
}

// Root returns the absolute workspace root.
func (r *Registry) Root() string {
	return r.root
}

// SetInvalidator wires the instance cache that must be told about changes.
func (r *Registry) SetInvalidator(inv Invalidator) {
	r.invalidator.Store(&inv)
}

// Get returns the current record for name.
func (r *Registry) Get(name string) (*model.FunctionRecord, bool) {
	v, ok := r.records.Load(name)
	if !ok {
		return nil, false
	}
	return v.(*model.FunctionRecord), true
}

// GetAll returns a snapshot of every record, sorted by name.
func (r *Registry) GetAll() []*model.FunctionRecord {
	var out []*model.FunctionRecord
	r.records.Range(func(_, v any) bool {
		out = append(out, v.(*model.FunctionRecord))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.records.Load(name)
	return ok
}

// Size returns the number of registered functions.
func (r *Registry) Size() int {
	n := 0
	r.records.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Set publishes rec under name, replacing any previous record. The stored
// record is a copy stamped with name and a fresh generation, which it
// returns.
func (r *Registry) Set(name string, rec *model.FunctionRecord) *model.FunctionRecord {
	next := *rec
	next.Name = name
	next.Generation = r.generation.Add(1)
	r.records.Store(name, &next)
	r.invalidate(name)
	return &next
}

// Delete removes name.
func (r *Registry) Delete(name string) {
	r.records.Delete(name)
	r.invalidate(name)
}

// Clear removes every record.
func (r *Registry) Clear() {
	r.records.Clear()
	if inv := r.invalidator.Load(); inv != nil {
		(*inv).InvalidateAll()
	}
}

// Close stops the watcher, if any, and waits for pending events to finish.
func (r *Registry) Close() error {
	if r.source == nil {
		return nil
	}
	err := r.source.Close()
	<-r.done
	return err
}

// Initialize scans the workspace, compiles every source, starts the watcher
// when enabled and fires the ready hook. Sources that fail to compile on the
// initial scan are logged and skipped.
func (r *Registry) Initialize(ctx context.Context) error {
	if !r.initialized.CompareAndSwap(false, true) {
		return ErrAlreadyInitialized
	}
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Initializing function registry.", "root", r.root, "watch", r.watch)

	if err := r.load(ctx); err != nil {
		return err
	}

	if r.watch {
		src, err := r.newWatcher(ctx, r.root)
		if err != nil {
			return fmt.Errorf("starting watcher: %w", err)
		}
		r.source = src
		r.done = make(chan struct{})
		go r.run(ctx)
		logger.Info("👀 Watching workspace for changes.", "root", r.root)
	}

	r.readyOnce.Do(func() {
		if r.onReady != nil {
			r.onReady(ctx)
		}
	})
	return nil
}

func (r *Registry) invalidate(name string) {
	if inv := r.invalidator.Load(); inv != nil {
		(*inv).Invalidate(name)
	}
}
