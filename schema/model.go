// Package schema introspects Go packages and models the types a proxy can be
// generated for.
package schema

import (
	"go/token"
	"go/types"
)

// Module describes the Go module a target package belongs to.
type Module struct {
	Path      string
	Dir       string
	GoVersion string
	GoMod     string // path to go.mod
}

// TypeModel is the in-memory representation of a proxy target type.
type TypeModel struct {
	Name       string
	ImportPath string
	PkgName    string
	Module     *Module

	// Named is the declared (origin) type. Instance is Named instantiated
	// with its own type parameters, or Named itself when it is not generic.
	Named    *types.Named
	Instance types.Type

	TypeParams []TypeParamModel

	Sealed       bool
	SealedReason string

	Initializers []FunctionModel // exported constructors, declaration order
	Methods      []FunctionModel // overridable methods of *T, method-set order
}

// Generic reports whether the type declares type parameters.
func (t *TypeModel) Generic() bool {
	return len(t.TypeParams) > 0
}

// TypeParamModel is a declared type parameter and its constraint.
type TypeParamModel struct {
	Name       string
	Param      *types.TypeParam
	Constraint types.Type
}

// FunctionModel represents a constructor or a method.
type FunctionModel struct {
	Name     string
	IsMethod bool
	Params   []ParamModel
	Results  []ParamModel
	Variadic bool

	ReturnsErr     bool // true if last result is error
	ReturnsPointer bool // constructors: first result is *T rather than T
	Promoted       bool // methods: reached through an embedded field

	Pos token.Pos
}

// ParamModel represents a function parameter or result.
type ParamModel struct {
	Name    string
	GoType  types.Type
	TypeStr string // type relative to the target package (e.g., "int", "io.Reader")
}
