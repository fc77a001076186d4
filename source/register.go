package source

import (
	"bytes"
	"strings"

	"github.com/dave/jennifer/jen"

	"github.com/chazu/proxyfactory/loader"
	"github.com/chazu/proxyfactory/schema"
)

// LoaderPath is the import path of the package build-time registrations call
// into.
const LoaderPath = "github.com/chazu/proxyfactory/loader"

// Registration emits the file that makes a proxy discoverable at runtime.
//
// Plugins (opts.Package set) export the BinaryName, Instance and
// Initializers symbols. Build-time files register the proxy with the loader
// from an init function. A generic target without TypeArgs cannot be
// instantiated, so no registration is produced and ok is false.
func Registration(t *schema.TypeModel, opts Options) (src []byte, ok bool, err error) {
	if t.Generic() && len(opts.TypeArgs) == 0 {
		return nil, false, nil
	}

	proxy := schema.ProxyName(opts.Prefix, t.Name)
	targs := make([]jen.Code, len(opts.TypeArgs))
	for i, a := range opts.TypeArgs {
		targs[i] = typeArgCode(a)
	}
	instantiate := func(name string) *jen.Statement {
		s := jen.Id(name)
		if len(targs) > 0 {
			s = s.Types(targs...)
		}
		return s
	}

	instance := jen.Parens(jen.Op("*").Add(instantiate(proxy))).Call(jen.Nil())
	ctors := make([]jen.Code, len(t.Initializers))
	for i, fn := range t.Initializers {
		ctors[i] = instantiate(schema.InitializerName(proxy, t.Name, fn.Name))
	}
	name := BinaryName(t, opts)

	var f *jen.File
	if opts.buildTime() {
		f = jen.NewFilePathName(t.ImportPath, t.PkgName)
		f.HeaderComment("Code generated by proxygen. DO NOT EDIT.")
		f.Func().Id("init").Params().Block(
			jen.Qual(LoaderPath, "Register").Call(
				append([]jen.Code{jen.Lit(name), instance}, ctors...)...,
			),
		)
	} else {
		f = jen.NewFile(opts.Package)
		f.HeaderComment("Code generated by proxygen. DO NOT EDIT.")
		f.Var().Id(loader.SymbolBinaryName).Op("=").Lit(name)
		f.Var().Id(loader.SymbolInstance).Id("any").Op("=").Add(instance)
		f.Var().Id(loader.SymbolInitializers).Op("=").Index().Id("any").Values(ctors...)
		if opts.Package == "main" {
			f.Line()
			f.Func().Id("main").Params().Block()
		}
	}

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, false, err
	}
	return buf.Bytes(), true, nil
}

// typeArgCode renders a type argument written the way reflect prints it
// ("int", "*github.com/acme/shapes.Color", "[]string").
func typeArgCode(s string) jen.Code {
	switch {
	case strings.HasPrefix(s, "*"):
		return jen.Op("*").Add(typeArgCode(s[1:]))
	case strings.HasPrefix(s, "[]"):
		return jen.Index().Add(typeArgCode(s[2:]))
	case strings.ContainsAny(s, "[]() "):
		return jen.Op(s)
	}
	if i := strings.LastIndex(s, "."); i > 0 {
		return jen.Qual(s[:i], s[i+1:])
	}
	return jen.Id(s)
}
