package modulecache

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vk/burstfn/internal/ctxlog"
	"github.com/vk/burstfn/internal/model"
	"golang.org/x/sync/singleflight"
)

// Source is where the cache reads the current function records from.
type Source interface {
	Get(name string) (*model.FunctionRecord, bool)
}

// InstantiateFunc builds an executable from a record.
type InstantiateFunc = func(ctx context.Context, rec *model.FunctionRecord) (model.Executable, error)

// Options configures a Cache.
type Options struct {
	// DisableCache instantiates on every call. Useful when debugging module
	// locals.
	DisableCache bool
}

// Instance is one instantiated function.
type Instance struct {
	Name           string
	Entry          model.Executable
	Digest         string
	Generation     uint64
	InstantiatedAt time.Time
}

// Cache is the module instantiation cache.
type Cache struct {
	source      Source
	instantiate InstantiateFunc
	disabled    bool

	instances sync.Map // name -> *Instance
	group     singleflight.Group
	count     atomic.Int64
}

// New creates a cache reading records from source.
func New(source Source, instantiate InstantiateFunc, opts Options) *Cache {
	return &Cache{
		source:      source,
		instantiate: instantiate,
		disabled:    opts.DisableCache,
	}
}

// GetOrCreate returns a valid instance for name, instantiating it if needed.
// Concurrent callers for the same name and generation share one
// instantiation and receive the same instance.
func (c *Cache) GetOrCreate(ctx context.Context, name string) (*Instance, error) {
	rec, ok := c.source.Get(name)
	if !ok {
		return nil, &model.MissingFunctionError{Name: name}
	}
	if c.disabled {
		return c.build(ctx, rec)
	}
	if inst := c.lookup(name, rec.Generation); inst != nil {
		return inst, nil
	}

	key := name + "@" + strconv.FormatUint(rec.Generation, 10)
	v, err, _ := c.group.Do(key, func() (any, error) {
		// Another flight for this key may have finished just before ours began.
		if inst := c.lookup(name, rec.Generation); inst != nil {
			return inst, nil
		}
		inst, err := c.build(ctx, rec)
		if err != nil {
			return nil, err
		}
		c.publish(inst)
		return inst, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Instance), nil
}

// Invalidate drops the instance for name. The next call re-instantiates from
// the existing artifact without recompiling.
func (c *Cache) Invalidate(name string) {
	c.instances.Delete(name)
}

// InvalidateAll drops every instance.
func (c *Cache) InvalidateAll() {
	c.instances.Clear()
}

// Instantiations reports how many instances have been built.
func (c *Cache) Instantiations() int64 {
	return c.count.Load()
}

// Len returns the number of cached instances.
func (c *Cache) Len() int {
	n := 0
	c.instances.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (c *Cache) lookup(name string, generation uint64) *Instance {
	v, ok := c.instances.Load(name)
	if !ok {
		return nil
	}
	inst := v.(*Instance)
	if inst.Generation != generation {
		return nil
	}
	return inst
}

// publish stores inst unless a newer generation is already cached.
func (c *Cache) publish(inst *Instance) {
	for {
		old, loaded := c.instances.LoadOrStore(inst.Name, inst)
		if !loaded || old.(*Instance).Generation >= inst.Generation {
			return
		}
		if c.instances.CompareAndSwap(inst.Name, old, inst) {
			return
		}
	}
}

func (c *Cache) build(ctx context.Context, rec *model.FunctionRecord) (*Instance, error) {
	exe, err := c.instantiate(ctx, rec)
	if err != nil {
		ctxlog.FromContext(ctx).Debug("Instantiation failed.", "name", rec.Name, "generation", rec.Generation, "error", err)
		return nil, err
	}
	c.count.Add(1)
	inst := &Instance{
		Name:           rec.Name,
		Entry:          exe,
		Generation:     rec.Generation,
		InstantiatedAt: time.Now(),
	}
	if rec.Artifact != nil {
		inst.Digest = rec.Artifact.Digest
	}
	return inst, nil
}
