// Package manifest handles relift.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/relift/action"
)

// Manifest represents a relift.toml configuration.
type Manifest struct {
	Project   Project             `toml:"project"`
	Scheduler Scheduler           `toml:"scheduler"`
	Pipelines map[string]Pipeline `toml:"pipelines"`
	Debug     Debug               `toml:"debug"`
	Stats     Stats               `toml:"stats"`

	// Dir is the directory containing the relift.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name string `toml:"name"`
}

// Scheduler configures the transformation scheduler.
type Scheduler struct {
	Pipeline    string `toml:"pipeline"`
	MaxRestarts int    `toml:"max-restarts"`
}

// Pipeline defines a named pipeline's group selector.
type Pipeline struct {
	Groups []string `toml:"groups"`
}

// Debug configures breakpoints and per-component toggles, all addressed by
// dotted name path within the active pipeline's tree.
type Debug struct {
	Breakpoints   []string `toml:"breakpoints"`
	Warnings      []string `toml:"warnings"`
	DisabledRules []string `toml:"disabled-rules"`
}

// Stats configures the statistics database.
type Stats struct {
	Database string `toml:"database"`
}

// Load parses a relift.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "relift.toml")
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

	return &m, nil
}

// FindAndLoad walks up from startDir to find a relift.toml file, then loads
// and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "relift.toml")
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

// DatabasePath returns the absolute path of the configured statistics
// database, or "" when none is configured.
func (m *Manifest) DatabasePath() string {
	if m.Stats.Database == "" {
		return ""
	}
	if filepath.IsAbs(m.Stats.Database) {
		return m.Stats.Database
	}
	return filepath.Join(m.Dir, m.Stats.Database)
}

// ActivePipeline returns the configured pipeline name, defaulting to
// "decompile".
func (m *Manifest) ActivePipeline() string {
	if m.Scheduler.Pipeline == "" {
		return "decompile"
	}
	return m.Scheduler.Pipeline
}

// Apply installs the manifest's pipelines, breakpoints and rule toggles
// into a registry and activates the configured pipeline.
func (m *Manifest) Apply(reg *action.Registry) error {
	for name, p := range m.Pipelines {
		reg.SetGroup(name, action.NewGroupSelector(p.Groups...))
	}
	active := m.ActivePipeline()
	if err := reg.SetCurrent(active); err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	for _, path := range m.Debug.Breakpoints {
		if err := reg.SetBreakpoint(active, path, action.BreakAction); err != nil {
			return fmt.Errorf("manifest: breakpoint %q: %w", path, err)
		}
	}
	for _, path := range m.Debug.Warnings {
		if err := reg.EnableWarnings(active, path, true); err != nil {
			return fmt.Errorf("manifest: warnings %q: %w", path, err)
		}
	}
	for _, path := range m.Debug.DisabledRules {
		if err := reg.EnableRule(active, path, false); err != nil {
			return fmt.Errorf("manifest: disable %q: %w", path, err)
		}
	}
	return nil
}
