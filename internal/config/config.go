// Package config holds converter settings loaded from YAML, layered
// under environment variables and CLI flags.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"

	"pinpoint-converter/internal/assemble"
)

// Config holds all configurable conversion settings.
type Config struct {
	// Geometry
	PaddingUM        float64 `yaml:"padding_um"`         // outline margin around electrodes
	TipDropUM        float64 `yaml:"tip_drop_um"`        // tip vertex drop below lowest electrode
	ScaleDenominator float64 `yaml:"scale_denominator"`  // mesh vertex divisor
	DefaultSiteWidth float64 `yaml:"default_site_width"` // site w/h fallback, micrometers

	// Reference data
	ProbeTable string `yaml:"probe_table"` // optional CSV overriding the embedded table

	// Batch
	Workers int `yaml:"workers"`

	// Logging
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	ProbeTable string
	Workers    int
	LogLevel   string
	LogFile    string
}

// Load reads a YAML config file. Fields not set keep their zero values
// until Resolve fills in defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve layers environment variables and CLI flags over the file
// values, then fills remaining gaps with defaults. Flags win.
func (c *Config) Resolve(flags Flags) {
	if v := os.Getenv("PINPOINT_PROBE_TABLE"); v != "" {
		c.ProbeTable = v
	}
	if v := os.Getenv("PINPOINT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("PINPOINT_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Workers = n
		}
	}

	if flags.ProbeTable != "" {
		c.ProbeTable = flags.ProbeTable
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.LogLevel != "" {
		c.LogLevel = flags.LogLevel
	}
	if flags.LogFile != "" {
		c.LogFile = flags.LogFile
	}

	def := assemble.DefaultOptions()
	if c.PaddingUM <= 0 {
		c.PaddingUM = def.Padding
	}
	if c.TipDropUM <= 0 {
		c.TipDropUM = def.TipDrop
	}
	if c.ScaleDenominator <= 0 {
		c.ScaleDenominator = def.Scale
	}
	if c.DefaultSiteWidth <= 0 {
		c.DefaultSiteWidth = def.DefaultSiteWidth
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// AssembleOptions projects the geometry settings for the assembler.
func (c Config) AssembleOptions() assemble.Options {
	return assemble.Options{
		Padding:          c.PaddingUM,
		TipDrop:          c.TipDropUM,
		Scale:            c.ScaleDenominator,
		DefaultSiteWidth: c.DefaultSiteWidth,
	}
}
