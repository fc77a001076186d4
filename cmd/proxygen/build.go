package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/proxyfactory/build"
	"github.com/chazu/proxyfactory/manifest"
	"github.com/chazu/proxyfactory/schema"
	"github.com/chazu/proxyfactory/source"
	"github.com/chazu/proxyfactory/strategy"
)

// buildJob is one proxy plugin to build.
type buildJob struct {
	model    *schema.TypeModel
	strategy source.BodyStrategy
	opts     source.Options
}

// runBuild processes the `proxygen build` subcommand.
// Usage:
//
//	proxygen build             # artifacts under [proxy] artifacts
//	proxygen build -o ./plug   # custom artifact store
func runBuild(args []string, m *manifest.Manifest) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	outDir := fs.String("o", "", "Artifact store directory (default from proxygen.toml)")
	jobs := fs.Int("j", runtime.NumCPU(), "Number of parallel plugin builds")
	keepWork := fs.Bool("keep-work", false, "Keep build workspaces for inspection")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if m == nil {
		return errors.New("no proxygen.toml found; proxygen build needs [[targets]]")
	}
	if len(m.Targets) == 0 {
		return errors.New("no [[targets]] configured in proxygen.toml")
	}
	timeout, err := m.Timeout()
	if err != nil {
		return err
	}

	dir := *outDir
	if dir == "" {
		dir = m.ArtifactsDir()
	}
	store, err := build.OpenStore(dir)
	if err != nil {
		return err
	}
	compiler := build.NewPluginCompiler(store)
	compiler.KeepWork = *keepWork

	todo, err := planBuild(manifestTargets(m))
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(*jobs)
	for _, job := range todo {
		g.Go(func() error {
			return buildOne(ctx, compiler, job, timeout)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	log.Infof("built %d proxies into %s", len(todo), store.Dir())
	return nil
}

// planBuild loads every target package and lists the proxies to build.
// Sealed types and generic types without type arguments are skipped.
func planBuild(targets []target) ([]buildJob, error) {
	var todo []buildJob
	for _, t := range targets {
		s, err := strategy.Lookup(t.Strategy, t.Hook)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.Package, err)
		}
		pkg, err := schema.LoadFrom(t.Dir, t.Package)
		if err != nil {
			return nil, err
		}
		names := t.Types
		if len(names) == 0 {
			names = pkg.Types()
		}
		for _, name := range names {
			tm, err := pkg.Type(name)
			if err != nil {
				return nil, err
			}
			if tm.Sealed {
				log.Infof("skipping %s.%s: %s", tm.ImportPath, name, tm.SealedReason)
				continue
			}
			typeArgs := t.TypeArgs[name]
			if tm.Generic() && len(typeArgs) == 0 {
				log.Infof("skipping %s.%s: generic type without type-args", tm.ImportPath, name)
				continue
			}
			todo = append(todo, buildJob{
				model:    tm,
				strategy: s,
				opts:     source.Options{Prefix: t.Prefix, Package: "main", TypeArgs: typeArgs},
			})
		}
	}
	return todo, nil
}

func buildOne(ctx context.Context, c build.Compiler, job buildJob, timeout time.Duration) error {
	u, err := source.Generate(job.model, job.strategy, job.opts)
	if err != nil {
		return err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	a, err := c.Compile(ctx, u, job.model)
	if err != nil {
		return err
	}
	status := "built"
	if a.Cached {
		status = "cached"
	}
	fmt.Printf("%s %s -> %s\n", status, a.BinaryName, a.Path)
	return nil
}
