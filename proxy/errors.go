package proxy

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	ErrNoMatchingInitializer = errors.New("no matching initializer")
	ErrInstantiation         = errors.New("instantiation failed")
	ErrInvalidTarget         = errors.New("invalid target")
)

// NoMatchError reports that no exported initializer of a type accepts the
// given argument types.
type NoMatchError struct {
	Type     string
	ArgTypes []reflect.Type // nil entries are untyped nil arguments
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("%s: %s(%s)", ErrNoMatchingInitializer, e.Type, typeList(e.ArgTypes))
}

func (e *NoMatchError) Is(target error) bool {
	return target == ErrNoMatchingInitializer
}

func typeList(types []reflect.Type) string {
	names := make([]string, len(types))
	for i, t := range types {
		if t == nil {
			names[i] = "nil"
		} else {
			names[i] = t.String()
		}
	}
	return strings.Join(names, ", ")
}
