package build

import (
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"

	"github.com/chazu/proxyfactory/schema"
	"github.com/chazu/proxyfactory/source"
)

// zeroVersion is required for modules that are always replaced by a directory.
const zeroVersion = "v0.0.0-00010101000000-000000000000"

// GoMod synthesises the go.mod of a plugin workspace. A plugin must be built
// against exactly the package versions of the host, so every dependency in
// the host's build info is required (and replaced where the host replaced
// it). The target's module is replaced by its source directory.
func GoMod(u *source.Unit, t *schema.TypeModel, info *debug.BuildInfo) ([]byte, error) {
	f := new(modfile.File)
	if err := f.AddModuleStmt(workspaceModule(u)); err != nil {
		return nil, err
	}
	if err := f.AddGoStmt(goVersion(t)); err != nil {
		return nil, err
	}

	if info != nil {
		// A main module built from source is only reachable by directory.
		if m := info.Main; m.Path != "" && m.Version != "" && m.Version != "(devel)" {
			if err := f.AddRequire(m.Path, m.Version); err != nil {
				return nil, err
			}
		}
		for _, dep := range info.Deps {
			if err := addDep(f, dep); err != nil {
				return nil, err
			}
		}
	}

	if m := t.Module; m != nil && m.Dir != "" {
		version := zeroVersion
		for _, r := range f.Require {
			if r.Mod.Path == m.Path {
				version = r.Mod.Version
			}
		}
		if err := f.AddRequire(m.Path, version); err != nil {
			return nil, err
		}
		if err := f.AddReplace(m.Path, "", m.Dir, ""); err != nil {
			return nil, err
		}
	}

	f.Cleanup()
	return f.Format()
}

func addDep(f *modfile.File, dep *debug.Module) error {
	if dep.Version == "" || dep.Version == "(devel)" {
		return nil
	}
	if err := f.AddRequire(dep.Path, dep.Version); err != nil {
		return err
	}
	r := dep.Replace
	if r == nil {
		return nil
	}
	if r.Version == "" && !filepath.IsAbs(r.Path) {
		// Relative to a go.mod we do not have.
		log.Debugf("dropping relative replacement %s => %s", dep.Path, r.Path)
		return nil
	}
	return f.AddReplace(dep.Path, dep.Version, r.Path, r.Version)
}

// workspaceModule returns a module path unique to the unit, so that plugins
// of different proxies never share a package path.
func workspaceModule(u *source.Unit) string {
	hash := u.Hash
	if len(hash) > 16 {
		hash = hash[:16]
	}
	path := "proxygen.local/p" + hash
	if module.CheckPath(path) != nil {
		return "proxygen.local/proxy"
	}
	return path
}

func goVersion(t *schema.TypeModel) string {
	v := strings.TrimPrefix(runtime.Version(), "go")
	if modfile.GoVersionRE.MatchString(v) {
		return v
	}
	if t.Module != nil && t.Module.GoVersion != "" {
		return t.Module.GoVersion
	}
	return "1.24"
}
