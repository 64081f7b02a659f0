// Package projectcfg discovers the per-project .bmb.yaml configuration.
//
// Discovery walks upward from the working directory to the filesystem root,
// like git does for .git. Upward search was chosen over repository-root
// lookup so the file works in any directory tree, not just git checkouts.
package projectcfg

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file bmb looks for.
const FileName = ".bmb.yaml"

// DefaultTrunk is the remote trunk ref used when the config doesn't set one.
const DefaultTrunk = "origin/main"

// ErrNotFound is returned when no .bmb.yaml exists anywhere above the
// starting directory.
var ErrNotFound = errors.New(FileName + " not found (searched upward from the current directory)")

// Config is the parsed .bmb.yaml.
type Config struct {
	// Plan is the trunk build plan key, e.g. "CORE-BUILD".
	Plan string `yaml:"plan"`
	// Project optionally widens deployment lookups to a whole project key.
	Project string `yaml:"project"`
	// Trunk is the remote trunk ref; defaults to origin/main.
	Trunk string `yaml:"trunk"`
}

// TrunkRef returns the configured trunk ref or the default.
func (c Config) TrunkRef() string {
	if c.Trunk != "" {
		return c.Trunk
	}
	return DefaultTrunk
}

// DeployKey returns the identifier used for deployment lookups: the project
// key when set, else the plan key.
func (c Config) DeployKey() string {
	if c.Project != "" {
		return c.Project
	}
	return c.Plan
}

// Load finds and parses the nearest .bmb.yaml at or above startDir.
func Load(startDir string) (Config, error) {
	path, err := find(startDir)
	if err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

func find(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotFound
		}
		dir = parent
	}
}
