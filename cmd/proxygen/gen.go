package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/proxyfactory/manifest"
	"github.com/chazu/proxyfactory/schema"
	"github.com/chazu/proxyfactory/source"
	"github.com/chazu/proxyfactory/strategy"
)

var log = commonlog.GetLogger("proxygen")

// target is one package's worth of types to generate proxies for.
type target struct {
	Dir      string // directory Package is resolved from
	Package  string
	Types    []string
	TypeArgs map[string][]string
	Prefix   string
	Strategy string
	Hook     string
}

// manifestTargets expands the [[targets]] of m.
func manifestTargets(m *manifest.Manifest) []target {
	var out []target
	for _, t := range m.Targets {
		prefix, strat, hook := m.Settings(t)
		names, typeArgs := splitTypeSpecs(t.Types)
		for name, args := range t.TypeArgs {
			typeArgs[name] = args
		}
		out = append(out, target{
			Dir:      m.Dir,
			Package:  t.Package,
			Types:    names,
			TypeArgs: typeArgs,
			Prefix:   prefix,
			Strategy: strat,
			Hook:     hook,
		})
	}
	return out
}

// runGen processes the `proxygen gen` subcommand.
// Usage:
//
//	proxygen gen                         # all targets from proxygen.toml
//	proxygen gen -type Widget .          # one type of the current package
//	proxygen gen -type 'Box[int]' ./box  # an instantiated generic type
func runGen(args []string, m *manifest.Manifest) error {
	fs := flag.NewFlagSet("gen", flag.ExitOnError)
	prefix := fs.String("prefix", "", "Prefix for proxy type names")
	strat := fs.String("strategy", manifest.DefaultStrategy, "Method body strategy: delegate, before, trace, stub")
	hook := fs.String("hook", "", "Hook function for the before strategy (name or import/path.Func)")
	var typeNames stringList
	fs.Var(&typeNames, "type", "Type to proxy, repeatable; Name[args] for generic types (default all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var targets []target
	switch {
	case fs.NArg() > 0:
		for _, pkg := range fs.Args() {
			t := target{Dir: ".", Package: pkg, Prefix: *prefix, Strategy: *strat, Hook: *hook}
			t.Types, t.TypeArgs = splitTypeSpecs(typeNames)
			targets = append(targets, t)
		}
	case m != nil && len(m.Targets) > 0:
		targets = manifestTargets(m)
	default:
		t := target{Dir: ".", Package: ".", Prefix: *prefix, Strategy: *strat, Hook: *hook}
		t.Types, t.TypeArgs = splitTypeSpecs(typeNames)
		targets = append(targets, t)
	}

	for _, t := range targets {
		if err := generate(t); err != nil {
			return fmt.Errorf("%s: %w", t.Package, err)
		}
	}
	return nil
}

func generate(t target) error {
	s, err := strategy.Lookup(t.Strategy, t.Hook)
	if err != nil {
		return err
	}
	pkg, err := schema.LoadFrom(t.Dir, t.Package)
	if err != nil {
		return err
	}
	if pkg.Dir == "" {
		return fmt.Errorf("no source directory for %s", pkg.ImportPath)
	}

	names := t.Types
	explicit := len(names) > 0
	if !explicit {
		names = pkg.Types()
	}

	for _, name := range names {
		tm, err := pkg.Type(name)
		if err != nil {
			return err
		}
		u, err := source.Generate(tm, s, source.Options{
			Prefix:   t.Prefix,
			TypeArgs: t.TypeArgs[name],
		})
		if errors.Is(err, source.ErrSealed) && !explicit {
			log.Infof("skipping %s: %s", name, err.Error())
			continue
		}
		if err != nil {
			return err
		}
		if err := writeUnit(pkg.Dir, u); err != nil {
			return err
		}
	}
	return nil
}

func writeUnit(dir string, u *source.Unit) error {
	for _, f := range u.Files {
		path := filepath.Join(dir, f.Name)
		if err := os.WriteFile(path, f.Content, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Printf("wrote %s\n", path)
	}
	return nil
}

// splitTypeSpecs separates "Box[int,string]" style specs into type names and
// their type arguments.
func splitTypeSpecs(specs []string) ([]string, map[string][]string) {
	var names []string
	typeArgs := make(map[string][]string)
	for _, spec := range specs {
		name, args, ok := strings.Cut(spec, "[")
		names = append(names, name)
		if ok {
			typeArgs[name] = splitTopLevel(strings.TrimSuffix(args, "]"))
		}
	}
	return names, typeArgs
}

func splitTopLevel(s string) []string {
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[', '(', '{':
			depth++
		case ']', ')', '}':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(out, strings.TrimSpace(s[start:]))
}
