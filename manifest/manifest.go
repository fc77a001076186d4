// Package manifest handles proxygen.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the manifest file.
const FileName = "proxygen.toml"

// Defaults applied by Load.
const (
	DefaultStrategy  = "delegate"
	DefaultArtifacts = ".proxygen/artifacts"
)

// Manifest represents a proxygen.toml project configuration.
type Manifest struct {
	Proxy   Proxy    `toml:"proxy"`
	Targets []Target `toml:"targets"`

	// Dir is the directory containing the proxygen.toml file (set at load time).
	Dir string `toml:"-"`
}

// Proxy holds project-wide generation settings.
type Proxy struct {
	Prefix       string `toml:"prefix"`
	Strategy     string `toml:"strategy"`
	Hook         string `toml:"hook"`
	Artifacts    string `toml:"artifacts"`
	Verbosity    int    `toml:"verbosity"`
	BuildTimeout string `toml:"build-timeout"`
}

// Target lists the types of one package to generate proxies for. Prefix,
// Strategy and Hook override the [proxy] settings when set.
type Target struct {
	Package  string              `toml:"package"`
	Types    []string            `toml:"types"`
	TypeArgs map[string][]string `toml:"type-args"`
	Prefix   string              `toml:"prefix"`
	Strategy string              `toml:"strategy"`
	Hook     string              `toml:"hook"`
}

// Load parses a proxygen.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if m.Proxy.Strategy == "" {
		m.Proxy.Strategy = DefaultStrategy
	}
	if m.Proxy.Artifacts == "" {
		m.Proxy.Artifacts = DefaultArtifacts
	}

	for i, t := range m.Targets {
		if t.Package == "" {
			return nil, fmt.Errorf("%s: target %d has no package", path, i)
		}
	}
	if _, err := m.Timeout(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a proxygen.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// ArtifactsDir returns the absolute path of the plugin artifact store.
func (m *Manifest) ArtifactsDir() string {
	if filepath.IsAbs(m.Proxy.Artifacts) {
		return m.Proxy.Artifacts
	}
	return filepath.Join(m.Dir, m.Proxy.Artifacts)
}

// Timeout returns the plugin build timeout; zero means none.
func (m *Manifest) Timeout() (time.Duration, error) {
	if m.Proxy.BuildTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(m.Proxy.BuildTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid build-timeout %q: %w", m.Proxy.BuildTimeout, err)
	}
	return d, nil
}

// Settings returns the prefix, strategy and hook in effect for t.
func (m *Manifest) Settings(t Target) (prefix, strategy, hook string) {
	prefix, strategy, hook = m.Proxy.Prefix, m.Proxy.Strategy, m.Proxy.Hook
	if t.Prefix != "" {
		prefix = t.Prefix
	}
	if t.Strategy != "" {
		strategy = t.Strategy
	}
	if t.Hook != "" {
		hook = t.Hook
	}
	return prefix, strategy, hook
}
