package loader

import (
	"fmt"
	"plugin"
	"reflect"
)

// Symbols every proxy plugin exports.
const (
	SymbolBinaryName   = "BinaryName"
	SymbolInstance     = "Instance"
	SymbolInitializers = "Initializers"
)

// Loader loads a compiled proxy into the running process.
type Loader interface {
	Open(path, binaryName string) (*Type, error)
}

// PluginLoader loads proxies built with -buildmode=plugin.
type PluginLoader struct{}

// Open opens the plugin at path and checks that it carries binaryName.
// Opening the same path twice returns the already loaded plugin.
func (PluginLoader) Open(path, binaryName string) (*Type, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening plugin %s: %w", path, err)
	}

	nameSym, err := p.Lookup(SymbolBinaryName)
	if err != nil {
		return nil, fmt.Errorf("plugin %s: %w", path, err)
	}
	name, ok := nameSym.(*string)
	if !ok {
		return nil, fmt.Errorf("plugin %s: %s is %T, not string", path, SymbolBinaryName, nameSym)
	}
	if *name != binaryName {
		return nil, fmt.Errorf("plugin %s holds %s, not %s", path, *name, binaryName)
	}

	instSym, err := p.Lookup(SymbolInstance)
	if err != nil {
		return nil, fmt.Errorf("plugin %s: %w", path, err)
	}
	inst, ok := instSym.(*any)
	if !ok {
		return nil, fmt.Errorf("plugin %s: %s is %T, not any", path, SymbolInstance, instSym)
	}

	ctorSym, err := p.Lookup(SymbolInitializers)
	if err != nil {
		return nil, fmt.Errorf("plugin %s: %w", path, err)
	}
	ctors, ok := ctorSym.(*[]any)
	if !ok {
		return nil, fmt.Errorf("plugin %s: %s is %T, not []any", path, SymbolInitializers, ctorSym)
	}

	log.Infof("loaded %s from %s", binaryName, path)
	return NewType(binaryName, true, reflect.TypeOf(*inst), *ctors...)
}
