package loader

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

var registry = struct {
	sync.RWMutex
	types map[string]*Type
}{types: make(map[string]*Type)}

// Register makes a proxy compiled into the program available under its
// binary name. Generated files call it from init; it panics if the
// registration is malformed or the name is taken.
func Register(name string, instance any, ctors ...any) {
	t, err := NewType(name, true, reflect.TypeOf(instance), ctors...)
	if err != nil {
		panic(fmt.Sprintf("proxy: Register %s: %s", name, err))
	}

	registry.Lock()
	defer registry.Unlock()
	if _, dup := registry.types[name]; dup {
		panic("proxy: Register called twice for " + name)
	}
	registry.types[name] = t
}

// Registered returns the proxy registered under name.
func Registered(name string) (*Type, bool) {
	registry.RLock()
	defer registry.RUnlock()
	t, ok := registry.types[name]
	return t, ok
}

// RegisteredNames returns the sorted names of all registered proxies.
func RegisteredNames() []string {
	registry.RLock()
	defer registry.RUnlock()
	names := make([]string, 0, len(registry.types))
	for name := range registry.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
