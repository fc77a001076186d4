package loader

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Default is the process-wide cache.
var Default = NewCache()

// Cache maps binary names to resolved types. Once a name is present it
// always resolves to the same *Type.
type Cache struct {
	types sync.Map // string -> *Type
	group singleflight.Group

	hits     atomic.Uint64
	misses   atomic.Uint64
	computes atomic.Uint64
}

// Stats counts cache activity.
type Stats struct {
	Hits     uint64
	Misses   uint64
	Computes uint64
}

func NewCache() *Cache {
	return &Cache{}
}

// Resolve returns the type cached under name, calling compute to produce it
// on first access. Concurrent first accesses share a single compute call.
// Errors are returned to every waiting caller and nothing is cached.
func (c *Cache) Resolve(name string, compute func() (*Type, error)) (*Type, error) {
	if t, ok := c.types.Load(name); ok {
		c.hits.Add(1)
		return t.(*Type), nil
	}
	c.misses.Add(1)

	v, err, shared := c.group.Do(name, func() (any, error) {
		// A call that finished between Load and Do already stored it.
		if t, ok := c.types.Load(name); ok {
			return t, nil
		}
		c.computes.Add(1)
		t, err := compute()
		if err != nil {
			return nil, err
		}
		actual, _ := c.types.LoadOrStore(name, t)
		return actual, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Debugf("shared resolution of %s", name)
	}
	return v.(*Type), nil
}

// Lookup returns the type cached under name without computing it.
func (c *Cache) Lookup(name string) (*Type, bool) {
	t, ok := c.types.Load(name)
	if !ok {
		return nil, false
	}
	return t.(*Type), true
}

// Len returns the number of cached names.
func (c *Cache) Len() int {
	n := 0
	c.types.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (c *Cache) Stats() Stats {
	return Stats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Computes: c.computes.Load(),
	}
}
