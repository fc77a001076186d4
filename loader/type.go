// Package loader turns compiled proxies into runtime types and caches them
// by binary name for the lifetime of the process.
package loader

import (
	"errors"
	"fmt"
	"go/token"
	"reflect"
	"regexp"
	"runtime"
	"strings"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("proxy.loader")

var errorType = reflect.TypeFor[error]()

var ErrInvalidInitializer = errors.New("invalid initializer")

// Type is a resolved runtime type: a loaded proxy, or the target itself when
// no proxy could be produced.
type Type struct {
	Name         string       // binary name
	Proxy        bool         // false for the target's own type
	Instance     reflect.Type // pointer type of constructed values
	Initializers []*Initializer
}

// NewType builds a Type from constructor functions. Every constructor must
// return the instance type (or its element type) optionally followed by an
// error.
func NewType(name string, proxy bool, instance reflect.Type, ctors ...any) (*Type, error) {
	if instance == nil {
		return nil, fmt.Errorf("%s: no instance type", name)
	}
	t := &Type{
		Name:     name,
		Proxy:    proxy,
		Instance: instance,
	}
	for i, ctor := range ctors {
		in, err := newInitializer(ctor, instance)
		if err != nil {
			return nil, fmt.Errorf("%s: initializer %d: %w", name, i, err)
		}
		t.Initializers = append(t.Initializers, in)
	}
	return t, nil
}

func (t *Type) String() string {
	return t.Name
}

// Initializer is a constructor of a Type.
type Initializer struct {
	Name       string
	Fn         reflect.Value
	Params     []reflect.Type // a variadic last param is a slice type
	Variadic   bool
	ReturnsErr bool
	Exported   bool
}

func newInitializer(ctor any, instance reflect.Type) (*Initializer, error) {
	fn := reflect.ValueOf(ctor)
	if fn.Kind() != reflect.Func || fn.IsNil() {
		return nil, fmt.Errorf("%w: %T is not a function", ErrInvalidInitializer, ctor)
	}
	ft := fn.Type()

	switch ft.NumOut() {
	case 1:
	case 2:
		if ft.Out(1) != errorType {
			return nil, fmt.Errorf("%w: second result of %s must be error", ErrInvalidInitializer, ft)
		}
	default:
		return nil, fmt.Errorf("%w: %s must return one value and an optional error", ErrInvalidInitializer, ft)
	}
	if out := ft.Out(0); out != instance && (instance.Kind() != reflect.Pointer || out != instance.Elem()) {
		return nil, fmt.Errorf("%w: %s does not construct %s", ErrInvalidInitializer, ft, instance)
	}

	full := runtimeName(fn)
	in := &Initializer{
		Name:       funcName(full),
		Fn:         fn,
		Variadic:   ft.IsVariadic(),
		ReturnsErr: ft.NumOut() == 2,
	}
	// Function literals handed over by the caller are as good as exported;
	// only named unexported functions are private.
	in.Exported = token.IsExported(in.Name) || closureName.MatchString(full)
	for i := 0; i < ft.NumIn(); i++ {
		in.Params = append(in.Params, ft.In(i))
	}
	return in, nil
}

// Call invokes the constructor. A returned error or a panic is reported as
// an error; a value result is returned as a pointer to a copy. A slice in
// the variadic position is spread.
func (i *Initializer) Call(args []reflect.Value) (v reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", i.Name, r)
		}
	}()

	var out []reflect.Value
	if n := len(i.Params); i.Variadic && len(args) == n && args[n-1].Type().AssignableTo(i.Params[n-1]) {
		out = i.Fn.CallSlice(args)
	} else {
		out = i.Fn.Call(args)
	}
	if i.ReturnsErr && !out[1].IsNil() {
		return reflect.Value{}, out[1].Interface().(error)
	}
	v = out[0]
	if v.Kind() != reflect.Pointer {
		ptr := reflect.New(v.Type())
		ptr.Elem().Set(v)
		v = ptr
	}
	return v, nil
}

func (i *Initializer) String() string {
	params := make([]string, len(i.Params))
	for n, p := range i.Params {
		params[n] = p.String()
		if i.Variadic && n == len(i.Params)-1 {
			params[n] = "..." + p.Elem().String()
		}
	}
	return i.Name + "(" + strings.Join(params, ", ") + ")"
}

// closureName matches the runtime names of function literals, e.g.
// "pkg.TestX.func1" or "pkg.init.func2.1".
var closureName = regexp.MustCompile(`\.[^./]+\.func\d+(\.\d+)*$`)

func runtimeName(fn reflect.Value) string {
	f := runtime.FuncForPC(fn.Pointer())
	if f == nil {
		return ""
	}
	return f.Name()
}

// funcName returns the unqualified name of a runtime function name, e.g.
// "NewWidget" for widget.NewWidget and "NewBox" for widget.NewBox[int].
func funcName(name string) string {
	if i := strings.Index(name, "["); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}
