// Package source generates the Go source of proxy types.
//
// A proxy for a target type T is a struct embedding *T. It declares the same
// type parameters as T, one constructor per exported constructor of T that
// forwards its arguments, and one method per overridable method of *T whose
// body is supplied by a BodyStrategy.
package source

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"go/types"
	"strings"

	"github.com/tliron/commonlog"
	"golang.org/x/tools/imports"

	"github.com/chazu/proxyfactory/schema"
)

const header = "// Code generated by proxygen. DO NOT EDIT.\n\n"

// receiver is the receiver variable of generated methods.
const receiver = "p"

var (
	ErrSealed     = errors.New("target is sealed")
	ErrNoStrategy = errors.New("no body strategy")
)

var log = commonlog.GetLogger("proxy.source")

// Options controls code generation.
type Options struct {
	// Prefix is prepended to the proxy type name.
	Prefix string

	// Package is the name of the output package. Empty means the target's
	// own package (build-time generation); plugins use "main".
	Package string

	// TypeArgs instantiates a generic target for the registration unit,
	// in reflect notation (e.g., "int", "github.com/acme/shapes.Color").
	TypeArgs []string
}

func (o Options) buildTime() bool {
	return o.Package == ""
}

// File is one generated source file.
type File struct {
	Name    string
	Content []byte
}

// Unit is the generated source of one proxy type.
type Unit struct {
	BinaryName string
	ProxyName  string
	Package    string
	Files      []File
	Hash       string // sha256 over file names and contents
}

// Generate emits the source of the proxy for t.
func Generate(t *schema.TypeModel, strategy BodyStrategy, opts Options) (*Unit, error) {
	if strategy == nil {
		return nil, ErrNoStrategy
	}
	if t.Sealed {
		return nil, fmt.Errorf("%w: %s.%s: %s", ErrSealed, t.ImportPath, t.Name, t.SealedReason)
	}

	g := newGenerator(t, strategy, opts)
	log.Debugf("generating source for %s", g.binaryName)

	proxyName, registerName := "proxy.go", "register.go"
	if opts.buildTime() {
		proxyName = schema.FileName(opts.Prefix, t.Name)
		registerName = strings.TrimSuffix(proxyName, ".go") + "_register.go"
	}

	u := &Unit{
		BinaryName: g.binaryName,
		ProxyName:  g.proxyName,
		Package:    g.pkgName,
	}
	u.Files = append(u.Files, File{Name: proxyName, Content: g.proxyFile(proxyName)})

	reg, ok, err := Registration(t, opts)
	if err != nil {
		return nil, fmt.Errorf("generating registration: %w", err)
	}
	if ok {
		u.Files = append(u.Files, File{Name: registerName, Content: reg})
	}

	u.Hash = hashFiles(u.Files)
	return u, nil
}

// BinaryName returns the name the proxy generated with opts is registered
// under. Generic targets carry their type arguments.
func BinaryName(t *schema.TypeModel, opts Options) string {
	name := schema.BinaryName(t.ImportPath, opts.Prefix, t.Name)
	if len(opts.TypeArgs) > 0 {
		name += "[" + strings.Join(opts.TypeArgs, ",") + "]"
	}
	return name
}

type generator struct {
	t        *schema.TypeModel
	strategy BodyStrategy
	opts     Options

	pkgName    string
	proxyName  string
	binaryName string
	imports    *importSet
}

func newGenerator(t *schema.TypeModel, strategy BodyStrategy, opts Options) *generator {
	g := &generator{
		t:          t,
		strategy:   strategy,
		opts:       opts,
		pkgName:    t.PkgName,
		proxyName:  schema.ProxyName(opts.Prefix, t.Name),
		binaryName: BinaryName(t, opts),
	}

	self := t.ImportPath
	if !opts.buildTime() {
		g.pkgName, self = opts.Package, ""
	}

	reserved := []string{receiver, "target", "err", g.proxyName}
	for i := 0; i < maxArity(t); i++ {
		reserved = append(reserved, argName(i))
	}
	g.imports = newImportSet(self, reserved...)

	if is, ok := strategy.(ImportingStrategy); ok {
		for _, imp := range is.Imports() {
			name := imp.Name
			if name == "" {
				name = lastElem(imp.Path)
			}
			g.imports.add(imp.Path, name)
		}
	}
	return g
}

func (g *generator) proxyFile(filename string) []byte {
	var body strings.Builder
	g.writeType(&body)
	for i := range g.t.Initializers {
		g.writeInitializer(&body, &g.t.Initializers[i])
	}
	for i := range g.t.Methods {
		g.writeMethod(&body, &g.t.Methods[i])
	}

	var b strings.Builder
	b.WriteString(header)
	fmt.Fprintf(&b, "package %s\n\n", g.pkgName)
	g.imports.render(&b)
	b.WriteString(body.String())

	src := []byte(b.String())
	out, err := imports.Process(filename, src, &imports.Options{Comments: true, TabIndent: true, TabWidth: 8})
	if err != nil {
		// Malformed strategy output is left for the compiler to report.
		log.Warningf("formatting %s: %s", g.binaryName, err.Error())
		return src
	}
	return out
}

func (g *generator) writeType(b *strings.Builder) {
	fmt.Fprintf(b, "// %s overrides the methods of %s.\n", g.proxyName, g.targetRef())
	fmt.Fprintf(b, "type %s%s struct {\n", g.proxyName, g.typeParamsDecl())
	fmt.Fprintf(b, "\t*%s\n", g.imports.typeString(g.t.Instance))
	b.WriteString("}\n\n")
}

func (g *generator) writeInitializer(b *strings.Builder, fn *schema.FunctionModel) {
	name := schema.InitializerName(g.proxyName, g.t.Name, fn.Name)
	proxyType := g.proxyName + g.typeParamsUse()

	results := "*" + proxyType
	if fn.ReturnsErr {
		results = "(*" + proxyType + ", error)"
	}

	fmt.Fprintf(b, "// %s delegates to %s.\n", name, fn.Name)
	fmt.Fprintf(b, "func %s%s(%s) %s {\n", name, g.typeParamsDecl(), g.params(fn), results)

	call := fmt.Sprintf("%s%s(%s)",
		g.imports.qualify(g.t.ImportPath, g.t.PkgName, fn.Name), g.typeParamsUse(), callArgs(fn))
	field := g.t.Name
	ref := "target"
	if !fn.ReturnsPointer {
		ref = "&target"
	}

	switch {
	case fn.ReturnsErr:
		fmt.Fprintf(b, "\ttarget, err := %s\n", call)
		b.WriteString("\tif err != nil {\n\t\treturn nil, err\n\t}\n")
		fmt.Fprintf(b, "\treturn &%s{%s: %s}, nil\n", proxyType, field, ref)
	case fn.ReturnsPointer:
		fmt.Fprintf(b, "\treturn &%s{%s: %s}\n", proxyType, field, call)
	default:
		fmt.Fprintf(b, "\ttarget := %s\n", call)
		fmt.Fprintf(b, "\treturn &%s{%s: %s}\n", proxyType, field, ref)
	}
	b.WriteString("}\n\n")
}

func (g *generator) writeMethod(b *strings.Builder, fn *schema.FunctionModel) {
	m := g.method(fn)
	delegate := fmt.Sprintf("%s.%s.%s(%s)", receiver, g.t.Name, fn.Name, m.ArgNames())

	fmt.Fprintf(b, "func (%s *%s%s) %s(%s)%s {\n",
		receiver, g.proxyName, g.typeParamsUse(), fn.Name, g.params(fn), resultList(m.Results))
	for _, line := range strings.Split(strings.TrimSpace(g.strategy.Body(m, delegate)), "\n") {
		b.WriteString("\t" + line + "\n")
	}
	b.WriteString("}\n\n")
}

// method renders fn as seen from the generated file.
func (g *generator) method(fn *schema.FunctionModel) *Method {
	m := &Method{
		Receiver:   receiver,
		Proxy:      g.proxyName,
		Type:       g.t.Name,
		Name:       fn.Name,
		Variadic:   fn.Variadic,
		ReturnsErr: fn.ReturnsErr,
		Model:      fn,
	}
	for i, p := range fn.Params {
		m.Params = append(m.Params, Param{Name: argName(i), Type: g.paramType(fn, i, p.GoType)})
	}
	for _, r := range fn.Results {
		m.Results = append(m.Results, Param{Type: g.imports.typeString(r.GoType)})
	}
	return m
}

func (g *generator) params(fn *schema.FunctionModel) string {
	parts := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		parts[i] = argName(i) + " " + g.paramType(fn, i, p.GoType)
	}
	return strings.Join(parts, ", ")
}

func (g *generator) paramType(fn *schema.FunctionModel, i int, t types.Type) string {
	if fn.Variadic && i == len(fn.Params)-1 {
		if s, ok := t.(*types.Slice); ok {
			return "..." + g.imports.typeString(s.Elem())
		}
	}
	return g.imports.typeString(t)
}

func (g *generator) typeParamsDecl() string {
	if !g.t.Generic() {
		return ""
	}
	parts := make([]string, len(g.t.TypeParams))
	for i, tp := range g.t.TypeParams {
		parts[i] = tp.Name + " " + g.imports.typeString(tp.Constraint)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (g *generator) typeParamsUse() string {
	if !g.t.Generic() {
		return ""
	}
	parts := make([]string, len(g.t.TypeParams))
	for i, tp := range g.t.TypeParams {
		parts[i] = tp.Name
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (g *generator) targetRef() string {
	return g.imports.qualify(g.t.ImportPath, g.t.PkgName, g.t.Name)
}

func callArgs(fn *schema.FunctionModel) string {
	parts := make([]string, len(fn.Params))
	for i := range fn.Params {
		parts[i] = argName(i)
		if fn.Variadic && i == len(fn.Params)-1 {
			parts[i] += "..."
		}
	}
	return strings.Join(parts, ", ")
}

func resultList(results []Param) string {
	switch len(results) {
	case 0:
		return ""
	case 1:
		return " " + results[0].Type
	}
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.Type
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func argName(i int) string {
	return fmt.Sprintf("arg%d", i)
}

func maxArity(t *schema.TypeModel) int {
	n := 0
	for _, fn := range t.Initializers {
		n = max(n, len(fn.Params))
	}
	for _, fn := range t.Methods {
		n = max(n, len(fn.Params))
	}
	return n
}

func hashFiles(files []File) string {
	h := sha256.New()
	for _, f := range files {
		h.Write([]byte(f.Name))
		h.Write([]byte{0})
		h.Write(f.Content)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
