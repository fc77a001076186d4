// Package build compiles generated proxies into Go plugins.
package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/proxyfactory/schema"
	"github.com/chazu/proxyfactory/source"
)

var log = commonlog.GetLogger("proxy.build")

var ErrUnsupported = errors.New("plugins are not supported on " + runtime.GOOS)

// Compiler turns a generated unit into a loadable artifact.
type Compiler interface {
	Compile(ctx context.Context, u *source.Unit, t *schema.TypeModel) (*Artifact, error)
}

// Artifact is a compiled proxy.
type Artifact struct {
	BinaryName string
	Path       string
	Hash       string // hash of the unit it was built from
	BuiltAt    time.Time
	Cached     bool // reused from a Store rather than built
}

// PluginCompiler builds units with "go build -buildmode=plugin".
type PluginCompiler struct {
	// GoBin is the go command; defaults to "go".
	GoBin string

	// Store, if set, keeps artifacts across processes. Otherwise they are
	// written under OutDir.
	Store *Store

	// OutDir receives artifacts when there is no Store; defaults to
	// $TMPDIR/proxygen.
	OutDir string

	// Env is appended to the toolchain environment.
	Env []string

	// KeepWork leaves the build workspace on disk for inspection.
	KeepWork bool

	// BuildInfo describes the host; defaults to debug.ReadBuildInfo.
	BuildInfo *debug.BuildInfo
}

func NewPluginCompiler(store *Store) *PluginCompiler {
	return &PluginCompiler{Store: store}
}

func (c *PluginCompiler) Compile(ctx context.Context, u *source.Unit, t *schema.TypeModel) (*Artifact, error) {
	if runtime.GOOS == "windows" {
		return nil, ErrUnsupported
	}
	if diags := Validate(u); len(diags) > 0 {
		return nil, &CompileError{BinaryName: u.BinaryName, Diagnostics: diags}
	}

	if c.Store != nil {
		if a, ok := c.Store.Lookup(u.Hash); ok {
			log.Debugf("reusing %s for %s", a.Path, u.BinaryName)
			return a, nil
		}
	}

	out, err := c.outputPath(u)
	if err != nil {
		return nil, err
	}

	work, err := os.MkdirTemp("", "proxygen-build-")
	if err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}
	if c.KeepWork {
		log.Infof("workspace for %s: %s", u.BinaryName, work)
	} else {
		defer os.RemoveAll(work)
	}

	if err := c.prepare(work, u, t); err != nil {
		return nil, err
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, c.goBin(), "build", "-buildmode=plugin", "-o", out, ".")
	cmd.Dir = work
	cmd.Env = append(os.Environ(), "CGO_ENABLED=1", "GOWORK=off", "GOFLAGS=-mod=mod")
	cmd.Env = append(cmd.Env, c.Env...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		cerr := &CompileError{
			BinaryName:  u.BinaryName,
			Diagnostics: ParseDiagnostics(string(output)),
			Output:      string(output),
			Err:         err,
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			cerr.Err = ctxErr
		}
		for _, d := range cerr.Diagnostics {
			log.Warningf("%s: %s", u.BinaryName, d)
		}
		return nil, cerr
	}
	log.Infof("built %s in %s", u.BinaryName, time.Since(start).Round(time.Millisecond))

	a := &Artifact{
		BinaryName: u.BinaryName,
		Path:       out,
		Hash:       u.Hash,
		BuiltAt:    time.Now(),
	}
	if c.Store != nil {
		if err := c.Store.Put(a); err != nil {
			log.Warningf("recording %s: %s", a.Path, err.Error())
		}
	}
	return a, nil
}

// prepare writes the unit, its go.mod and the target module's go.sum into
// the workspace.
func (c *PluginCompiler) prepare(work string, u *source.Unit, t *schema.TypeModel) error {
	for _, f := range u.Files {
		if err := os.WriteFile(filepath.Join(work, f.Name), f.Content, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", f.Name, err)
		}
	}

	info := c.BuildInfo
	if info == nil {
		info, _ = debug.ReadBuildInfo()
	}
	gomod, err := GoMod(u, t, info)
	if err != nil {
		return fmt.Errorf("generating go.mod: %w", err)
	}
	if err := os.WriteFile(filepath.Join(work, "go.mod"), gomod, 0o644); err != nil {
		return fmt.Errorf("writing go.mod: %w", err)
	}

	if t.Module != nil && t.Module.GoMod != "" {
		sum, err := os.ReadFile(filepath.Join(filepath.Dir(t.Module.GoMod), "go.sum"))
		if err == nil {
			err = os.WriteFile(filepath.Join(work, "go.sum"), sum, 0o644)
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("copying go.sum: %w", err)
		}
	}
	return nil
}

func (c *PluginCompiler) outputPath(u *source.Unit) (string, error) {
	if c.Store != nil {
		return c.Store.Path(u.Hash), nil
	}
	dir := c.OutDir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "proxygen")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	return filepath.Join(dir, artifactFile(u.Hash)), nil
}

func (c *PluginCompiler) goBin() string {
	if c.GoBin != "" {
		return c.GoBin
	}
	return "go"
}

func artifactFile(hash string) string {
	if len(hash) > 24 {
		hash = hash[:24]
	}
	return hash + ".so"
}
