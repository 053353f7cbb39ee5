package broadcaster

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/rlch/broadcaster/destination"
	"github.com/rlch/broadcaster/model"
)

// Config represents the .broadcaster.yaml configuration file.
type Config struct {
	// Report is the path of the whole-session JSON document.
	Report string `yaml:"report,omitempty"`

	// Log is the path of the JSON Lines event stream.
	Log string `yaml:"log,omitempty"`

	// Destinations lists additional destinations.
	Destinations []destination.Config `yaml:"destinations,omitempty"`

	// Project is reported in the session start event.
	Project *ProjectConfig `yaml:"project,omitempty"`
}

// ProjectConfig describes the project under test.
type ProjectConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version,omitempty"`
	URL     string `yaml:"url,omitempty"`
}

// Environment variables read by ApplyEnv.
const (
	EnvReport  = "BROADCASTER_REPORT"
	EnvLog     = "BROADCASTER_LOG"
	EnvWebhook = "BROADCASTER_WEBHOOK"
)

// ApplyEnv overrides the config with the BROADCASTER_* environment variables.
// BROADCASTER_WEBHOOK adds a webhook destination posting the session result.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvReport); ok && v != "" {
		c.Report = v
	}

	if v, ok := lookup(EnvLog); ok && v != "" {
		c.Log = v
	}

	if v, ok := lookup(EnvWebhook); ok && v != "" {
		c.Destinations = append(c.Destinations, destination.Config{Kind: destination.KindWebhook, URL: v})
	}
}

// AllDestinations returns the report and log outputs followed by the
// configured destinations.
func (c *Config) AllDestinations() []destination.Config {
	cfgs := make([]destination.Config, 0, len(c.Destinations)+2)

	if c.Report != "" {
		cfgs = append(cfgs, destination.Config{Kind: destination.KindJSON, Path: c.Report})
	}

	if c.Log != "" {
		cfgs = append(cfgs, destination.Config{Kind: destination.KindJSONL, Path: c.Log})
	}

	return append(cfgs, c.Destinations...)
}

// ProjectInfo returns the configured project metadata, or nil.
func (c *Config) ProjectInfo() *model.Project {
	if c.Project == nil || c.Project.Name == "" {
		return nil
	}

	return &model.Project{Name: c.Project.Name, Version: c.Project.Version, URL: c.Project.URL}
}

// DefaultConfigNames are the filenames we search for.
var DefaultConfigNames = []string{".broadcaster.yaml", ".broadcaster.yml", "broadcaster.yaml", "broadcaster.yml"}

// LoadConfig finds and loads the nearest .broadcaster.yaml walking up from dir.
func LoadConfig(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}

	return LoadConfigFile(path)
}

// FindConfig searches for a config file starting from dir and walking up.
func FindConfig(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for dir := absDir; ; {
		for _, name := range DefaultConfigNames {
			path := filepath.Join(dir, name)

			info, err := os.Stat(path)
			if err == nil && !info.IsDir() {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrConfigNotFound
		}

		dir = parent
	}
}

// LoadConfigFile loads a config from a specific path.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var cfg Config

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	for i, d := range cfg.Destinations {
		if d.Kind == "" {
			return nil, fmt.Errorf("parsing %s: destination %d has no kind", path, i)
		}
	}

	return &cfg, nil
}
