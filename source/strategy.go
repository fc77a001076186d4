package source

import (
	"strings"

	"github.com/chazu/proxyfactory/schema"
)

// BodyStrategy supplies the body of every overriding method. delegateCall
// invokes the target's own implementation with the method's arguments,
// e.g. "p.Widget.Resize(arg0)". The returned text becomes the entire body.
type BodyStrategy interface {
	Body(m *Method, delegateCall string) string
}

// ImportingStrategy is implemented by strategies whose bodies reference
// other packages.
type ImportingStrategy interface {
	BodyStrategy
	Imports() []Import
}

// StrategyFunc adapts a function to BodyStrategy.
type StrategyFunc func(m *Method, delegateCall string) string

func (f StrategyFunc) Body(m *Method, delegateCall string) string {
	return f(m, delegateCall)
}

// Import is a package a strategy needs. Name is the identifier the body
// uses for it; empty means the package's own name.
type Import struct {
	Path string
	Name string
}

// Method is an overridable operation as seen from the generated file.
type Method struct {
	Receiver string // receiver variable, e.g. "p"
	Proxy    string // proxy type name, e.g. "WidgetProxy"
	Type     string // target type name, e.g. "Widget"
	Name     string
	Params   []Param // Type of a variadic last param is "...T"
	Results  []Param // rendered types, names dropped
	Variadic bool

	ReturnsErr bool

	Model *schema.FunctionModel
}

// Param is a rendered parameter or result.
type Param struct {
	Name string
	Type string
}

// HasResults reports whether the method returns anything.
func (m *Method) HasResults() bool {
	return len(m.Results) > 0
}

// FullName returns "Type.Method".
func (m *Method) FullName() string {
	return m.Type + "." + m.Name
}

// ArgNames returns the parameter names as a call would spell them,
// spreading a variadic last argument.
func (m *Method) ArgNames() string {
	names := make([]string, len(m.Params))
	for i, p := range m.Params {
		names[i] = p.Name
		if m.Variadic && i == len(m.Params)-1 {
			names[i] += "..."
		}
	}
	return strings.Join(names, ", ")
}
