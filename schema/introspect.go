package schema

import (
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/tools/go/packages"
)

// Directives recognised in doc comments.
const (
	DirectiveSealed = "proxy:sealed" // on a type: never generate a proxy for it
	DirectiveFinal  = "proxy:final"  // on a method: never override it
)

var (
	ErrUnknownType = errors.New("unknown type")
	ErrNotNamed    = errors.New("not a named type")
)

// Package is a loaded Go package that proxy targets are looked up in.
type Package struct {
	ImportPath string
	Name       string
	Dir        string // directory holding the package's Go files
	Module     *Module

	types     *types.Package
	docs      map[token.Pos]*ast.CommentGroup
	generated []*ast.File // files carrying a "Code generated" header
}

var std struct {
	once  sync.Once
	paths map[string]bool
}

// IsStandardImportPath reports whether path names a standard library
// package. The standard packages are listed once through the go command;
// if that fails, a first path element without a dot decides.
func IsStandardImportPath(path string) bool {
	std.once.Do(loadStd)
	if std.paths != nil {
		return std.paths[path]
	}
	first, _, _ := strings.Cut(path, "/")
	return !strings.Contains(first, ".")
}

func loadStd() {
	pkgs, err := packages.Load(&packages.Config{Mode: packages.NeedName}, "std")
	if err != nil || len(pkgs) == 0 {
		return
	}
	std.paths = make(map[string]bool, len(pkgs))
	for _, pkg := range pkgs {
		std.paths[pkg.PkgPath] = true
	}
}

// Load loads a Go package by import path.
func Load(importPath string) (*Package, error) {
	return LoadFrom("", importPath)
}

// LoadFrom loads the package matching pattern, resolved relative to dir
// (e.g., "." inside a package directory for go:generate).
func LoadFrom(dir, pattern string) (*Package, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedTypes | packages.NeedSyntax |
			packages.NeedTypesInfo | packages.NeedModule | packages.NeedFiles,
		Dir: dir,
	}

	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", pattern, err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages found for %s", pattern)
	}
	if len(pkgs[0].Errors) > 0 {
		return nil, fmt.Errorf("package errors: %v", pkgs[0].Errors)
	}

	pkg := pkgs[0]
	if pkg.Types == nil {
		return nil, fmt.Errorf("type information not available for %s", pattern)
	}

	p := &Package{
		ImportPath: pkg.PkgPath,
		Name:       pkg.Name,
		types:      pkg.Types,
		docs:       indexDocs(pkg.Syntax),
	}
	for _, f := range pkg.Syntax {
		if ast.IsGenerated(f) {
			p.generated = append(p.generated, f)
		}
	}
	if len(pkg.GoFiles) > 0 {
		p.Dir = filepath.Dir(pkg.GoFiles[0])
	}
	if m := pkg.Module; m != nil {
		p.Module = &Module{
			Path:      m.Path,
			Dir:       m.Dir,
			GoVersion: m.GoVersion,
			GoMod:     m.GoMod,
		}
	}
	return p, nil
}

// Types returns the names of the package's exported named types, leaving
// out those declared in generated files (such as existing proxies).
func (p *Package) Types() []string {
	var names []string
	scope := p.types.Scope()
	for _, name := range scope.Names() {
		tn, ok := scope.Lookup(name).(*types.TypeName)
		if ok && tn.Exported() && !tn.IsAlias() && !p.isGenerated(tn.Pos()) {
			names = append(names, name)
		}
	}
	return names
}

func (p *Package) isGenerated(pos token.Pos) bool {
	for _, f := range p.generated {
		if f.FileStart <= pos && pos < f.FileEnd {
			return true
		}
	}
	return false
}

// Type models the named type declared in the package under name.
func (p *Package) Type(name string) (*TypeModel, error) {
	obj := p.types.Scope().Lookup(name)
	if obj == nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownType, p.ImportPath, name)
	}
	tn, ok := obj.(*types.TypeName)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s is a %T", ErrNotNamed, p.ImportPath, name, obj)
	}
	named, ok := types.Unalias(tn.Type()).(*types.Named)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrNotNamed, p.ImportPath, name)
	}
	named = named.Origin()

	tm := &TypeModel{
		Name:       name,
		ImportPath: p.ImportPath,
		PkgName:    p.Name,
		Module:     p.Module,
		Named:      named,
		Instance:   named,
	}

	tparams := named.TypeParams()
	if tparams.Len() > 0 {
		targs := make([]types.Type, tparams.Len())
		for i := 0; i < tparams.Len(); i++ {
			tp := tparams.At(i)
			targs[i] = tp
			tm.TypeParams = append(tm.TypeParams, TypeParamModel{
				Name:       tp.Obj().Name(),
				Param:      tp,
				Constraint: tp.Constraint(),
			})
		}
		inst, err := types.Instantiate(nil, named, targs, false)
		if err != nil {
			return nil, fmt.Errorf("instantiating %s: %w", name, err)
		}
		tm.Instance = inst
	}

	switch {
	case hasDirective(p.docs[tn.Pos()], DirectiveSealed):
		tm.Sealed, tm.SealedReason = true, "marked //"+DirectiveSealed
	case types.IsInterface(named):
		tm.Sealed, tm.SealedReason = true, "interface types have no implementation to embed"
	case !tn.Exported():
		tm.Sealed, tm.SealedReason = true, "unexported types cannot be embedded outside their package"
	}

	tm.Initializers = p.initializers(tm)
	tm.Methods = p.methods(tm)
	return tm, nil
}

// initializers collects the exported package-level functions that construct
// the type: the first result is T or *T, optionally followed by an error.
func (p *Package) initializers(tm *TypeModel) []FunctionModel {
	var out []FunctionModel
	scope := p.types.Scope()
	for _, name := range scope.Names() {
		fn, ok := scope.Lookup(name).(*types.Func)
		if !ok || !fn.Exported() {
			continue
		}
		sig := fn.Type().(*types.Signature)
		res := sig.Results()
		if res.Len() == 0 || res.Len() > 2 {
			continue
		}
		if res.Len() == 2 && !isErrorType(res.At(1).Type()) {
			continue
		}

		first, isPtr := res.At(0).Type(), false
		if ptr, ok := first.(*types.Pointer); ok {
			first, isPtr = ptr.Elem(), true
		}
		rn, ok := types.Unalias(first).(*types.Named)
		if !ok || rn.Origin() != tm.Named {
			continue
		}

		sig, ok = instantiateConstructor(sig, rn, tm)
		if !ok {
			continue
		}

		fm := functionModelFromSig(name, sig, false, p.types)
		fm.ReturnsPointer = isPtr
		fm.Pos = fn.Pos()
		out = append(out, fm)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Pos < out[j].Pos })
	return out
}

// instantiateConstructor rewrites a generic constructor's signature in terms
// of the type's own parameters. Only constructors whose result is the type
// instantiated with the constructor's parameters, in order, qualify.
func instantiateConstructor(sig *types.Signature, result *types.Named, tm *TypeModel) (*types.Signature, bool) {
	ftparams := sig.TypeParams()
	if !tm.Generic() {
		return sig, ftparams.Len() == 0
	}
	if ftparams.Len() != len(tm.TypeParams) || result.TypeArgs().Len() != ftparams.Len() {
		return nil, false
	}
	targs := make([]types.Type, ftparams.Len())
	for i := 0; i < ftparams.Len(); i++ {
		if result.TypeArgs().At(i) != types.Type(ftparams.At(i)) {
			return nil, false
		}
		targs[i] = tm.TypeParams[i].Param
	}
	inst, err := types.Instantiate(nil, sig, targs, false)
	if err != nil {
		return nil, false
	}
	return inst.(*types.Signature), true
}

// methods collects the overridable methods of *T.
func (p *Package) methods(tm *TypeModel) []FunctionModel {
	var out []FunctionModel
	mset := types.NewMethodSet(types.NewPointer(tm.Instance))
	for i := 0; i < mset.Len(); i++ {
		sel := mset.At(i)
		fn, ok := sel.Obj().(*types.Func)
		if !ok || !fn.Exported() {
			continue
		}
		promoted := len(sel.Index()) > 1
		// Methods a standard library type brings along (sync.Mutex.Lock and
		// friends) are not part of the target's own behaviour.
		if promoted && fn.Pkg() != nil && IsStandardImportPath(fn.Pkg().Path()) {
			continue
		}
		if hasDirective(p.docs[fn.Origin().Pos()], DirectiveFinal) {
			continue
		}
		sig := fn.Type().(*types.Signature)
		fm := functionModelFromSig(fn.Name(), sig, true, p.types)
		fm.Promoted = promoted
		fm.Pos = fn.Origin().Pos()
		out = append(out, fm)
	}
	return out
}

func functionModelFromSig(name string, sig *types.Signature, isMethod bool, pkg *types.Package) FunctionModel {
	fm := FunctionModel{
		Name:     name,
		IsMethod: isMethod,
		Variadic: sig.Variadic(),
	}

	params := sig.Params()
	for i := 0; i < params.Len(); i++ {
		p := params.At(i)
		fm.Params = append(fm.Params, ParamModel{
			Name:    p.Name(),
			GoType:  p.Type(),
			TypeStr: types.TypeString(p.Type(), qualifier(pkg)),
		})
	}

	results := sig.Results()
	for i := 0; i < results.Len(); i++ {
		r := results.At(i)
		fm.Results = append(fm.Results, ParamModel{
			Name:    r.Name(),
			GoType:  r.Type(),
			TypeStr: types.TypeString(r.Type(), qualifier(pkg)),
		})
	}

	if results.Len() > 0 && isErrorType(results.At(results.Len()-1).Type()) {
		fm.ReturnsErr = true
	}

	return fm
}

func isErrorType(t types.Type) bool {
	return types.Identical(t, types.Universe.Lookup("error").Type())
}

func qualifier(pkg *types.Package) types.Qualifier {
	return func(other *types.Package) string {
		if other == pkg {
			return ""
		}
		return other.Name()
	}
}

func indexDocs(files []*ast.File) map[token.Pos]*ast.CommentGroup {
	docs := make(map[token.Pos]*ast.CommentGroup)
	for _, f := range files {
		for _, decl := range f.Decls {
			switch d := decl.(type) {
			case *ast.FuncDecl:
				if d.Doc != nil {
					docs[d.Name.Pos()] = d.Doc
				}
			case *ast.GenDecl:
				for _, spec := range d.Specs {
					ts, ok := spec.(*ast.TypeSpec)
					if !ok {
						continue
					}
					doc := ts.Doc
					if doc == nil && len(d.Specs) == 1 {
						doc = d.Doc
					}
					if doc != nil {
						docs[ts.Name.Pos()] = doc
					}
				}
			}
		}
	}
	return docs
}

// hasDirective reports whether the comment group carries "//<directive>",
// optionally followed by arguments.
func hasDirective(cg *ast.CommentGroup, directive string) bool {
	if cg == nil {
		return false
	}
	for _, c := range cg.List {
		rest, ok := strings.CutPrefix(c.Text, "//"+directive)
		if ok && (rest == "" || rest[0] == ' ' || rest[0] == '\t') {
			return true
		}
	}
	return false
}
