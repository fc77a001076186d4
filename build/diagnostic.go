package build

import (
	"errors"
	"fmt"
	"go/parser"
	"go/scanner"
	"go/token"
	"regexp"
	"strconv"
	"strings"

	"github.com/chazu/proxyfactory/source"
)

// Diagnostic is one compiler message.
type Diagnostic struct {
	File    string
	Line    int
	Column  int
	Message string
}

func (d Diagnostic) String() string {
	switch {
	case d.File == "":
		return d.Message
	case d.Column > 0:
		return fmt.Sprintf("%s:%d:%d: %s", d.File, d.Line, d.Column, d.Message)
	default:
		return fmt.Sprintf("%s:%d: %s", d.File, d.Line, d.Message)
	}
}

// CompileError reports a failed build of a proxy.
type CompileError struct {
	BinaryName  string
	Diagnostics []Diagnostic
	Output      string // raw toolchain output, if any
	Err         error
}

func (e *CompileError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "compiling %s", e.BinaryName)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %s", e.Err)
	}
	for _, d := range e.Diagnostics {
		b.WriteString("\n\t" + d.String())
	}
	return b.String()
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

var diagnosticLine = regexp.MustCompile(`^(\S+\.go):(\d+)(?::(\d+))?: (.+)$`)

// ParseDiagnostics extracts "file:line[:col]: message" lines from toolchain
// output. Other lines are dropped unless nothing matches, in which case the
// whole output becomes a single diagnostic.
func ParseDiagnostics(output string) []Diagnostic {
	var diags []Diagnostic
	for _, line := range strings.Split(output, "\n") {
		m := diagnosticLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		d := Diagnostic{File: strings.TrimPrefix(m[1], "./"), Message: m[4]}
		d.Line, _ = strconv.Atoi(m[2])
		if m[3] != "" {
			d.Column, _ = strconv.Atoi(m[3])
		}
		diags = append(diags, d)
	}
	if len(diags) == 0 {
		if out := strings.TrimSpace(output); out != "" {
			diags = append(diags, Diagnostic{Message: out})
		}
	}
	return diags
}

// Validate parses every file of the unit and reports syntax errors without
// invoking the toolchain.
func Validate(u *source.Unit) []Diagnostic {
	var diags []Diagnostic
	fset := token.NewFileSet()
	for _, f := range u.Files {
		_, err := parser.ParseFile(fset, f.Name, f.Content, parser.AllErrors)
		if err == nil {
			continue
		}
		var list scanner.ErrorList
		if errors.As(err, &list) {
			for _, e := range list {
				diags = append(diags, Diagnostic{
					File:    e.Pos.Filename,
					Line:    e.Pos.Line,
					Column:  e.Pos.Column,
					Message: e.Msg,
				})
			}
			continue
		}
		diags = append(diags, Diagnostic{File: f.Name, Message: err.Error()})
	}
	return diags
}
