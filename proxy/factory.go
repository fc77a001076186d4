// Package proxy creates instances of proxy types: generated types that embed
// a target type and route its methods through a body strategy.
//
// A Factory resolves the proxy type for its target once per process. Proxies
// generated ahead of time and compiled into the program are used directly;
// otherwise the proxy is generated, built as a plugin and loaded. When that
// is impossible (the target is sealed) or fails, the target's own type is
// used instead, so construction always proceeds.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"go/token"
	"reflect"
	"strings"
	"sync"

	"github.com/chazu/proxyfactory/build"
	"github.com/chazu/proxyfactory/loader"
	"github.com/chazu/proxyfactory/schema"
	"github.com/chazu/proxyfactory/source"
)

// Target describes the type to proxy.
type Target struct {
	// Type is the named target type, e.g. reflect.TypeFor[shapes.Widget]().
	Type reflect.Type

	// Initializers are the target's own constructors, used when no proxy is
	// available.
	Initializers []any

	// TypeArgs instantiates a generic target, in reflect notation. When empty
	// they are taken from the name of Type.
	TypeArgs []string

	// Sealed forbids proxying.
	Sealed bool
}

// Factory creates instances of the proxy of a target. T is what instances
// are returned as: an interface the target implements, or a pointer to the
// target itself when it is sealed.
type Factory[T any] struct {
	config
	target   Target
	strategy source.BodyStrategy

	typeName string   // target type name without type arguments
	typeArgs []string // instantiation of a generic target
	name     string   // binary name of the proxy

	fallback *loader.Type
	buildMu  sync.Mutex
}

// New returns a factory for target whose proxy methods are produced by
// strategy.
func New[T any](target Target, strategy source.BodyStrategy, opts ...Option) (*Factory[T], error) {
	if target.Type == nil {
		return nil, fmt.Errorf("%w: no type", ErrInvalidTarget)
	}
	if target.Type.Kind() == reflect.Pointer {
		target.Type = target.Type.Elem()
	}
	if strategy == nil {
		return nil, source.ErrNoStrategy
	}

	f := &Factory[T]{
		config:   defaultConfig(),
		target:   target,
		strategy: strategy,
	}
	for _, opt := range opts {
		opt(&f.config)
	}
	if f.compiler == nil {
		f.compiler = build.NewPluginCompiler(nil)
	}

	f.typeName, f.typeArgs = splitTypeName(target.Type.Name())
	if len(target.TypeArgs) > 0 {
		f.typeArgs = target.TypeArgs
	}
	f.name = schema.BinaryName(target.Type.PkgPath(), f.prefix, f.typeName)
	if len(f.typeArgs) > 0 {
		f.name += "[" + strings.Join(f.typeArgs, ",") + "]"
	}

	own := reflect.PointerTo(target.Type)
	fallback, err := loader.NewType(target.Type.String(), false, own, target.Initializers...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}
	f.fallback = fallback

	if result := reflect.TypeFor[T](); result.Kind() != reflect.Interface && result != own {
		return nil, fmt.Errorf("%w: %s cannot hold instances of %s", ErrInvalidTarget, result, own)
	}
	return f, nil
}

// Name returns the binary name of the proxy type.
func (f *Factory[T]) Name() string {
	return f.name
}

// Type resolves the runtime type instances are created from: the proxy, or
// the target itself when it is sealed or no proxy could be produced. The
// result for a binary name never changes once resolved.
func (f *Factory[T]) Type() *loader.Type {
	if reason := f.sealedReason(); reason != "" {
		f.log.Debugf("%s is sealed (%s); not proxying", f.target.Type, reason)
		return f.fallback
	}
	t, err := f.cache.Resolve(f.name, f.resolve)
	if err != nil || !t.Proxy {
		// No proxy exists for the name; every factory uses its own
		// initializers.
		return f.fallback
	}
	if result := reflect.TypeFor[T](); !t.Instance.AssignableTo(result) {
		f.log.Warningf("proxy %s cannot be held as %s; using %s", f.name, result, f.target.Type)
		return f.fallback
	}
	return t
}

// Initializer returns the initializer NewInstance would call for arguments
// of argTypes.
func (f *Factory[T]) Initializer(argTypes ...reflect.Type) (*loader.Initializer, error) {
	return resolve(f.Type(), argTypes, f.log)
}

// NewInstance constructs an instance with the first initializer matching the
// argument types. Untyped nil arguments are passed as zero values.
func (f *Factory[T]) NewInstance(args ...any) (T, error) {
	var zero T

	argTypes := make([]reflect.Type, len(args))
	for i, a := range args {
		argTypes[i] = reflect.TypeOf(a)
	}
	t := f.Type()
	in, err := resolve(t, argTypes, f.log)
	if err != nil {
		return zero, err
	}

	v, err := in.Call(callArgs(in, args))
	if err != nil {
		f.log.Errorf("instantiating %s with %s: %s", t, in, err.Error())
		return zero, fmt.Errorf("%w: %s: %w", ErrInstantiation, in, err)
	}
	out, ok := v.Interface().(T)
	if !ok {
		err := fmt.Errorf("%w: %s is not a %s", ErrInstantiation, v.Type(), reflect.TypeFor[T]())
		f.log.Error(err.Error())
		return zero, err
	}
	return out, nil
}

// resolve produces the type cached under the factory's binary name. When no
// proxy can be produced it caches a marker with Proxy unset rather than the
// fallback, whose initializers belong to this factory alone.
func (f *Factory[T]) resolve() (*loader.Type, error) {
	if t, ok := loader.Registered(f.name); ok {
		f.log.Debugf("using compiled-in proxy %s", f.name)
		return t, nil
	}
	t, err := f.build()
	if errors.Is(err, source.ErrSealed) {
		f.log.Debugf("%s: %s", f.name, err.Error())
		return &loader.Type{Name: f.name}, nil
	}
	if err != nil {
		f.log.Warningf("proxy %s unavailable, using %s: %s", f.name, f.target.Type, err.Error())
		return &loader.Type{Name: f.name}, nil
	}
	return t, nil
}

func (f *Factory[T]) build() (*loader.Type, error) {
	f.buildMu.Lock()
	defer f.buildMu.Unlock()

	pkg, err := f.loadSchema(f.target.Type.PkgPath())
	if err != nil {
		return nil, err
	}
	tm, err := pkg.Type(f.typeName)
	if err != nil {
		return nil, err
	}
	u, err := source.Generate(tm, f.strategy, source.Options{
		Prefix:   f.prefix,
		Package:  "main",
		TypeArgs: f.typeArgs,
	})
	if err != nil {
		return nil, err
	}
	if u.BinaryName != f.name {
		return nil, fmt.Errorf("generated %s, expected %s", u.BinaryName, f.name)
	}

	ctx := context.Background()
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	a, err := f.compiler.Compile(ctx, u, tm)
	if err != nil {
		return nil, err
	}
	return f.loader.Open(a.Path, a.BinaryName)
}

func (f *Factory[T]) sealedReason() string {
	t := f.target.Type
	switch {
	case f.target.Sealed:
		return "marked sealed"
	case t.Kind() == reflect.Interface:
		return "interface type"
	case t.Name() == "" || t.PkgPath() == "":
		return "unnamed or predeclared type"
	case !token.IsExported(f.typeName):
		return "unexported type"
	}
	return ""
}

// splitTypeName splits a reflect type name such as "Pair[int,map[string]int]"
// into "Pair" and its type arguments.
func splitTypeName(name string) (string, []string) {
	open := strings.IndexByte(name, '[')
	if open < 0 || !strings.HasSuffix(name, "]") {
		return name, nil
	}
	var args []string
	depth, start := 0, open+1
	inner := name[:len(name)-1]
	for i := start; i < len(inner); i++ {
		switch inner[i] {
		case '[', '(', '{':
			depth++
		case ']', ')', '}':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, inner[start:i])
				start = i + 1
			}
		}
	}
	args = append(args, inner[start:])
	return name[:open], args
}
