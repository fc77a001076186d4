// Package strategy provides ready-made method body strategies.
package strategy

import (
	"fmt"
	"strings"

	"github.com/chazu/proxyfactory/source"
)

// Names accepted by Lookup.
const (
	NameDelegate = "delegate"
	NameBefore   = "before"
	NameTrace    = "trace"
	NameStub     = "stub"
)

// Delegate forwards every call to the target unchanged.
var Delegate source.BodyStrategy = source.StrategyFunc(delegateBody)

func delegateBody(m *source.Method, call string) string {
	if m.HasResults() {
		return "return " + call
	}
	return call
}

// Before calls a hook with the receiver and "Type.Method" ahead of every
// delegated call.
type Before struct {
	// Hook is the function expression called, e.g. "observe" or
	// "audit.Record". Its signature must be func(any, string).
	Hook string

	// Import is the package Hook lives in, if not the output package.
	Import source.Import
}

// ParseHook reads a hook written as "name" or "import/path.Func".
func ParseHook(s string) Before {
	i := strings.LastIndex(s, ".")
	if i < 0 {
		return Before{Hook: s}
	}
	path, fn := s[:i], s[i+1:]
	name := path
	if j := strings.LastIndex(path, "/"); j >= 0 {
		name = path[j+1:]
	}
	return Before{
		Hook:   name + "." + fn,
		Import: source.Import{Path: path, Name: name},
	}
}

func (b Before) Body(m *source.Method, call string) string {
	return fmt.Sprintf("%s(%s, %q)\n%s", b.Hook, m.Receiver, m.FullName(), delegateBody(m, call))
}

func (b Before) Imports() []source.Import {
	if b.Import.Path == "" {
		return nil
	}
	return []source.Import{b.Import}
}

const commonlogPath = "github.com/tliron/commonlog"

// Trace logs every call at debug level to a commonlog logger before
// delegating.
type Trace struct {
	// Logger is the logger name; defaults to "proxy.trace".
	Logger string
}

func (t Trace) Body(m *source.Method, call string) string {
	name := t.Logger
	if name == "" {
		name = "proxy.trace"
	}
	return fmt.Sprintf("commonlog.GetLogger(%q).Debug(%q)\n%s", name, m.FullName(), delegateBody(m, call))
}

func (Trace) Imports() []source.Import {
	return []source.Import{{Path: commonlogPath, Name: "commonlog"}}
}

// Stub returns zero values without calling the target.
type Stub struct{}

func (Stub) Body(m *source.Method, _ string) string {
	if !m.HasResults() {
		return "return"
	}
	var b strings.Builder
	names := make([]string, len(m.Results))
	for i, r := range m.Results {
		names[i] = fmt.Sprintf("r%d", i)
		fmt.Fprintf(&b, "var %s %s\n", names[i], r.Type)
	}
	b.WriteString("return " + strings.Join(names, ", "))
	return b.String()
}

// Lookup returns the strategy registered under name. hook is required by
// "before".
func Lookup(name, hook string) (source.BodyStrategy, error) {
	switch name {
	case "", NameDelegate:
		return Delegate, nil
	case NameBefore:
		if hook == "" {
			return nil, fmt.Errorf("strategy %q needs a hook", name)
		}
		return ParseHook(hook), nil
	case NameTrace:
		return Trace{}, nil
	case NameStub:
		return Stub{}, nil
	}
	return nil, fmt.Errorf("unknown strategy %q", name)
}
