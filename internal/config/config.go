// Package config loads project-level defaults for an impact run from a
// YAML file, the way decompose.yml configured the teacher tool.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Options holds every recognized configuration knob, defaulting to the
// zero value (no config file) meaning "caller decides".
type Options struct {
	Direction  string   `yaml:"direction,omitempty"`
	MaxDepth   int      `yaml:"maxDepth,omitempty"`
	WithEdges  bool     `yaml:"withEdges,omitempty"`
	PerSeed    bool     `yaml:"perSeed,omitempty"`
	IgnoreDirs []string `yaml:"ignoreDirs,omitempty"`
	CacheScope string   `yaml:"cacheScope,omitempty"`
	CacheDir   string   `yaml:"cacheDir,omitempty"`
}

// Load reads impact.yml or impact.yaml from dir. A missing file returns
// a zero-value Options, not an error.
func Load(dir string) (*Options, error) {
	for _, name := range []string{"impact.yml", "impact.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var opts Options
		if err := yaml.Unmarshal(data, &opts); err != nil {
			return nil, err
		}
		return &opts, nil
	}
	return &Options{}, nil
}
