package proxy

import (
	"reflect"

	"github.com/tliron/commonlog"

	"github.com/chazu/proxyfactory/loader"
)

var log = commonlog.GetLogger("proxy.factory")

// Resolve picks the initializer of t to call with arguments of argTypes
// (nil for an untyped nil argument).
//
// Exported initializers are scanned once in declaration order. The first
// exact match (identical types, same arity) is returned immediately;
// otherwise the first assignable match found during the scan is returned.
func Resolve(t *loader.Type, argTypes []reflect.Type) (*loader.Initializer, error) {
	return resolve(t, argTypes, log)
}

func resolve(t *loader.Type, argTypes []reflect.Type, log commonlog.Logger) (*loader.Initializer, error) {
	var assignable *loader.Initializer
	for _, in := range t.Initializers {
		if !in.Exported {
			continue
		}
		if exactMatch(in, argTypes) {
			log.Debugf("%s(%s): exact match %s", t, typeList(argTypes), in)
			return in, nil
		}
		if assignable == nil && assignableMatch(in, argTypes) {
			assignable = in
		}
	}
	if assignable != nil {
		log.Debugf("%s(%s): picked %s", t, typeList(argTypes), assignable)
		return assignable, nil
	}
	return nil, &NoMatchError{Type: t.Name, ArgTypes: argTypes}
}

func exactMatch(in *loader.Initializer, args []reflect.Type) bool {
	if len(args) != len(in.Params) {
		return false
	}
	for i, a := range args {
		if a == nil || a != in.Params[i] {
			return false
		}
	}
	return true
}

func assignableMatch(in *loader.Initializer, args []reflect.Type) bool {
	n := len(in.Params)
	if !in.Variadic {
		if len(args) != n {
			return false
		}
		for i, a := range args {
			if !accepts(in.Params[i], a) {
				return false
			}
		}
		return true
	}

	if len(args) < n-1 {
		return false
	}
	for i := 0; i < n-1; i++ {
		if !accepts(in.Params[i], args[i]) {
			return false
		}
	}
	slice := in.Params[n-1]
	rest := args[n-1:]
	if len(rest) == 1 && accepts(slice, rest[0]) {
		return true
	}
	for _, a := range rest {
		if !accepts(slice.Elem(), a) {
			return false
		}
	}
	return true
}

// accepts reports whether an argument of type arg can be passed for param.
// A nil argument fits any parameter that can hold nil.
func accepts(param, arg reflect.Type) bool {
	if arg == nil {
		return nilable(param)
	}
	return arg.AssignableTo(param)
}

func nilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice,
		reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return true
	}
	return false
}

// callArgs converts arguments for in, replacing nils with zero values of
// the parameter they are passed for.
func callArgs(in *loader.Initializer, args []any) []reflect.Value {
	n := len(in.Params)
	vals := make([]reflect.Value, len(args))
	for i, a := range args {
		if a != nil {
			vals[i] = reflect.ValueOf(a)
			continue
		}
		param := in.Params[min(i, n-1)]
		// A lone nil in the variadic position is an empty slice unless the
		// element type itself holds nil.
		if in.Variadic && i >= n-1 && (len(args) > n || nilable(param.Elem())) {
			param = param.Elem()
		}
		vals[i] = reflect.Zero(param)
	}
	return vals
}
