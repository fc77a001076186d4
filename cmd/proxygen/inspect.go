package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chazu/proxyfactory/schema"
)

// runInspect prints what a proxy of each exported type of a package would
// override.
func runInspect(args []string) error {
	pattern := "."
	if len(args) > 0 {
		pattern = args[0]
	}
	pkg, err := schema.LoadFrom(".", pattern)
	if err != nil {
		return err
	}
	for _, name := range pkg.Types() {
		tm, err := pkg.Type(name)
		if err != nil {
			return err
		}
		describe(os.Stdout, tm)
	}
	return nil
}

func describe(w io.Writer, tm *schema.TypeModel) {
	fmt.Fprintf(w, "%s.%s", tm.ImportPath, tm.Name)
	if tm.Generic() {
		params := make([]string, len(tm.TypeParams))
		for i, tp := range tm.TypeParams {
			params[i] = tp.Name + " " + tp.Constraint.String()
		}
		fmt.Fprintf(w, "[%s]", strings.Join(params, ", "))
	}
	fmt.Fprintln(w)
	if tm.Sealed {
		fmt.Fprintf(w, "  sealed: %s\n", tm.SealedReason)
		return
	}
	for _, fn := range tm.Initializers {
		fmt.Fprintf(w, "  init   %s\n", signature(fn))
	}
	for _, fn := range tm.Methods {
		fmt.Fprintf(w, "  method %s\n", signature(fn))
	}
}

func signature(fn schema.FunctionModel) string {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.TypeStr
		if fn.Variadic && i == len(fn.Params)-1 {
			params[i] = "..." + strings.TrimPrefix(p.TypeStr, "[]")
		}
	}
	sig := fn.Name + "(" + strings.Join(params, ", ") + ")"
	switch len(fn.Results) {
	case 0:
	case 1:
		sig += " " + fn.Results[0].TypeStr
	default:
		results := make([]string, len(fn.Results))
		for i, r := range fn.Results {
			results[i] = r.TypeStr
		}
		sig += " (" + strings.Join(results, ", ") + ")"
	}
	return sig
}
