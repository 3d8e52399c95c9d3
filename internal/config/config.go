// Package config holds the satwatch configuration: which diagnostics are
// computed and printed, cycle thresholds, pattern groups, output, logging
// and metrics.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"satwatch/internal/checker"
	"satwatch/internal/cycles"
)

// Config holds all satwatch configuration.
type Config struct {
	Print    PrintConfig       `yaml:"print"`
	Detect   DetectConfig      `yaml:"detect"`
	Cycles   cycles.Thresholds `yaml:"cycles"`
	Patterns PatternsConfig    `yaml:"patterns"`
	Output   OutputConfig      `yaml:"output"`
	Logging  LoggingConfig     `yaml:"logging"`
	Metrics  MetricsConfig     `yaml:"metrics"`
}

// PrintConfig selects the optional output sections.
type PrintConfig struct {
	All           bool `yaml:"all"`
	SelectedFacts bool `yaml:"selected_facts"`
	Cycles        bool `yaml:"cycles"`
	QueueState    bool `yaml:"queue_state"`
	TopFacts      int  `yaml:"top_facts"` // facts listed in the end-of-run report
}

// DetectConfig selects the active pattern groups.
type DetectConfig struct {
	All    bool     `yaml:"all"`
	Groups []string `yaml:"groups"`
}

// PatternsConfig defines the pattern groups available to the fact checker.
type PatternsConfig struct {
	File   string          `yaml:"file"`  // optional YAML file with more groups
	Watch  bool            `yaml:"watch"` // reload File when it changes
	Groups []checker.Group `yaml:"groups"`
}

// OutputConfig configures the printer.
type OutputConfig struct {
	Format  string `yaml:"format"` // text, json
	NoColor bool   `yaml:"no_color"`
}

// MetricsConfig configures the Prometheus endpoint. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
	Path string `yaml:"path"`
}

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Print:  PrintConfig{TopFacts: 10},
		Cycles: cycles.DefaultThresholds(),
		Patterns: PatternsConfig{
			Groups: checker.DefaultGroups(),
		},
		Output: OutputConfig{Format: FormatText},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Metrics: MetricsConfig{Path: "/metrics"},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. The file is checked against the embedded schema before decoding.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		data = nil
	}

	if len(data) > 0 {
		if err := validateSchema(data); err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func (c *Config) applyEnvOverrides() {
	if level := os.Getenv("SATWATCH_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
		c.Logging.DebugMode = true
	}
	if file := os.Getenv("SATWATCH_LOG_FILE"); file != "" {
		c.Logging.File = file
	}
	if addr := os.Getenv("SATWATCH_METRICS_ADDR"); addr != "" {
		c.Metrics.Addr = addr
	}
	if v := os.Getenv("SATWATCH_NO_COLOR"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Output.NoColor = b
		}
	}
	// https://no-color.org
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		c.Output.NoColor = true
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Output.Format != FormatText && c.Output.Format != FormatJSON {
		return fmt.Errorf("invalid output format: %s (valid: %s, %s)", c.Output.Format, FormatText, FormatJSON)
	}

	t := c.Cycles
	if t.Info < 0 || t.Warning < t.Info || t.Critical < t.Warning {
		return fmt.Errorf("cycle thresholds must satisfy 0 <= info <= warning <= critical (got %d/%d/%d)", t.Info, t.Warning, t.Critical)
	}

	if c.Print.TopFacts < 0 {
		return fmt.Errorf("print.top_facts must not be negative")
	}

	known := make(map[string]bool, len(c.Patterns.Groups))
	for _, g := range checker.DefaultGroups() {
		known[g.Name] = true
	}
	for _, g := range c.Patterns.Groups {
		if g.Name == "" {
			return fmt.Errorf("pattern group without a name")
		}
		known[g.Name] = true
	}
	if _, err := checker.New(c.Patterns.Groups); err != nil {
		return err
	}
	if c.Patterns.File == "" {
		for _, name := range c.Detect.Groups {
			if !known[name] {
				return fmt.Errorf("%w: %s", checker.ErrUnknownGroup, name)
			}
		}
	}
	if c.Patterns.Watch && c.Patterns.File == "" {
		return fmt.Errorf("patterns.watch requires patterns.file")
	}

	return c.Logging.validate()
}

// CyclesEnabled reports whether cycle detection runs.
func (c *Config) CyclesEnabled() bool {
	return c.Print.All || c.Print.Cycles
}

// SelectedFactsEnabled reports whether selected facts are printed.
func (c *Config) SelectedFactsEnabled() bool {
	return c.Print.All || c.Print.SelectedFacts
}

// QueueStateEnabled reports whether queue progress is printed.
func (c *Config) QueueStateEnabled() bool {
	return c.Print.All || c.Print.QueueState
}

// ActiveGroups returns the groups the fact checker should match, given the
// full set of available groups. Detect.All enables every group.
func (c *Config) ActiveGroups(available []checker.Group) []checker.Group {
	wanted := make(map[string]bool, len(c.Detect.Groups))
	for _, name := range c.Detect.Groups {
		wanted[name] = true
	}

	var active []checker.Group
	for _, g := range available {
		if c.Detect.All || wanted[g.Name] {
			active = append(active, g)
		}
	}
	return active
}
