// Package config provides configuration file parsing for driftwatch.
//
// Surfaces are declared in a YAML file at {config dir}/surfaces.yaml.
// Each surface names a collection target (an HTML list page, a JSON
// endpoint, or a local export file) together with its extraction rules
// and optional per-surface collector overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/saltmarsh-systems/driftwatch/internal/collector"
)

// Dir returns the driftwatch config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/driftwatch if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "driftwatch"), nil
}

// Duration wraps time.Duration so YAML values can be written as "2s" or
// "15m" rather than nanosecond integers.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// CollectorSettings holds the termination policy knobs as they appear in
// the config file. Zero values defer to the global defaults.
type CollectorSettings struct {
	MaxPasses      int      `yaml:"max_passes,omitempty"`
	StallThreshold int      `yaml:"stall_threshold,omitempty"`
	PassDelay      Duration `yaml:"pass_delay,omitempty"`
	MaxItems       int      `yaml:"max_items,omitempty"`
}

// overlay fills zero fields from base.
func (cs CollectorSettings) overlay(base CollectorSettings) CollectorSettings {
	if cs.MaxPasses == 0 {
		cs.MaxPasses = base.MaxPasses
	}
	if cs.StallThreshold == 0 {
		cs.StallThreshold = base.StallThreshold
	}
	if cs.PassDelay == 0 {
		cs.PassDelay = base.PassDelay
	}
	if cs.MaxItems == 0 {
		cs.MaxItems = base.MaxItems
	}
	return cs
}

// Surface describes one collection target.
type Surface struct {
	// Kind selects the adapter: "html", "json" or "file".
	Kind string `yaml:"kind"`

	// URL is the endpoint for html and json surfaces.
	URL string `yaml:"url,omitempty"`

	// Path is the local file for file surfaces.
	Path string `yaml:"path,omitempty"`

	// HTML extraction rules.
	ItemSelector   string            `yaml:"item_selector,omitempty"`
	IDSelector     string            `yaml:"id_selector,omitempty"`
	IDAttr         string            `yaml:"id_attr,omitempty"`
	FieldSelectors map[string]string `yaml:"field_selectors,omitempty"`

	// JSON and file extraction rules.
	ItemsKey string   `yaml:"items_key,omitempty"`
	IDField  string   `yaml:"id_field,omitempty"`
	Fields   []string `yaml:"fields,omitempty"`

	// Paging for html and json surfaces.
	PageParam string `yaml:"page_param,omitempty"`
	StartPage int    `yaml:"start_page,omitempty"`

	// Window is how many additional file entries each pass reveals for
	// file surfaces.
	Window int `yaml:"window,omitempty"`

	// Interval is how often the watch daemon re-collects this surface.
	// Zero disables scheduled collection.
	Interval Duration `yaml:"interval,omitempty"`

	// Collector overrides the global defaults for this surface.
	Collector *CollectorSettings `yaml:"collector,omitempty"`
}

// Config is the parsed surfaces file.
type Config struct {
	Defaults CollectorSettings  `yaml:"defaults"`
	Surfaces map[string]Surface `yaml:"surfaces"`
}

// DefaultConfig returns the built-in configuration: no surfaces and the
// collector package defaults.
func DefaultConfig() *Config {
	return &Config{
		Defaults: CollectorSettings{
			MaxPasses:      collector.DefaultMaxPasses,
			StallThreshold: collector.DefaultStallThreshold,
			PassDelay:      Duration(collector.DefaultPassDelay),
		},
		Surfaces: make(map[string]Surface),
	}
}

// Load reads the surfaces file at path. If the file does not exist, the
// default config is returned without an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.Surfaces == nil {
		cfg.Surfaces = make(map[string]Surface)
	}

	for name, surface := range cfg.Surfaces {
		if err := surface.validate(); err != nil {
			return nil, fmt.Errorf("surface %s: %w", name, err)
		}
	}

	return cfg, nil
}

// Surface returns the named surface or an error listing what exists.
func (c *Config) Surface(name string) (Surface, error) {
	surface, ok := c.Surfaces[name]
	if !ok {
		return Surface{}, fmt.Errorf("surface %s not configured (have %d surfaces)", name, len(c.Surfaces))
	}
	return surface, nil
}

// CollectorConfig resolves the effective termination policy for a
// surface: its overrides overlaid on the file defaults.
func (c *Config) CollectorConfig(surface Surface) collector.Config {
	settings := c.Defaults
	if surface.Collector != nil {
		settings = surface.Collector.overlay(c.Defaults)
	}
	return collector.Config{
		MaxPasses:      settings.MaxPasses,
		StallThreshold: settings.StallThreshold,
		PassDelay:      time.Duration(settings.PassDelay),
		MaxItems:       settings.MaxItems,
	}
}

func (s Surface) validate() error {
	switch s.Kind {
	case "html":
		if s.URL == "" {
			return fmt.Errorf("html surface requires url")
		}
		if s.ItemSelector == "" {
			return fmt.Errorf("html surface requires item_selector")
		}
	case "json":
		if s.URL == "" {
			return fmt.Errorf("json surface requires url")
		}
		if s.IDField == "" {
			return fmt.Errorf("json surface requires id_field")
		}
	case "file":
		if s.Path == "" {
			return fmt.Errorf("file surface requires path")
		}
		if s.IDField == "" {
			return fmt.Errorf("file surface requires id_field")
		}
	case "":
		return fmt.Errorf("missing kind")
	default:
		return fmt.Errorf("unknown kind %q (expected html, json or file)", s.Kind)
	}
	return nil
}
