// Package config provides profiletk configuration loading.
//
// Configuration is layered: built-in defaults, then an optional YAML file,
// then PROFILETK_* environment variables.
package config

import (
	"fmt"
	"time"
)

// Config is the full profiletk configuration.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Sampler   SamplerConfig   `yaml:"sampler"`
	Hotspots  HotspotsConfig  `yaml:"hotspots"`
	Memory    MemoryConfig    `yaml:"memory"`
	Session   SessionConfig   `yaml:"session"`
	CallGraph CallGraphConfig `yaml:"callgraph"`
}

// LoggingConfig configures the zerolog logger.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"PROFILETK_LOG_LEVEL"`
	Pretty bool   `yaml:"pretty" env:"PROFILETK_LOG_PRETTY"`
}

// SamplerConfig configures the CPU sampling engine.
type SamplerConfig struct {
	// Program is printed on the report marker line. Empty uses the
	// executable name.
	Program string `yaml:"program,omitempty" env:"PROFILETK_SAMPLER_PROGRAM"`
	// FilterRunLabel drops samples from goroutines other than the target's.
	FilterRunLabel bool `yaml:"filter_run_label" env:"PROFILETK_FILTER_RUN_LABEL"`
}

// HotspotsConfig configures hotspot ranking.
type HotspotsConfig struct {
	Count            int    `yaml:"count" env:"PROFILETK_HOTSPOTS_COUNT"`
	Order            string `yaml:"order" env:"PROFILETK_HOTSPOTS_ORDER"` // "time" or "label"
	ExcludeAggregate bool   `yaml:"exclude_aggregate" env:"PROFILETK_EXCLUDE_AGGREGATE"`
}

// MemoryConfig configures the memory engines.
type MemoryConfig struct {
	Interval    time.Duration `yaml:"interval" env:"PROFILETK_MEMORY_INTERVAL"`
	Hotspots    int           `yaml:"hotspots" env:"PROFILETK_MEMORY_HOTSPOTS"`
	ProfileRate int           `yaml:"profile_rate" env:"PROFILETK_MEMORY_PROFILE_RATE"`
}

// SessionConfig configures run bookkeeping.
type SessionConfig struct {
	Collisions string `yaml:"collisions" env:"PROFILETK_COLLISIONS"` // "overwrite", "reject" or "version"
}

// CallGraphConfig configures call graph rendering.
type CallGraphConfig struct {
	DotBinary    string  `yaml:"dot_binary" env:"PROFILETK_DOT_BINARY"`
	NodeFraction float64 `yaml:"node_fraction" env:"PROFILETK_NODE_FRACTION"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
		Sampler: SamplerConfig{
			FilterRunLabel: true,
		},
		Hotspots: HotspotsConfig{
			Count: 25,
			Order: "time",
		},
		Memory: MemoryConfig{
			Interval:    100 * time.Millisecond,
			Hotspots:    10,
			ProfileRate: 1,
		},
		Session: SessionConfig{
			Collisions: "overwrite",
		},
		CallGraph: CallGraphConfig{
			DotBinary:    "dot",
			NodeFraction: 0.005,
		},
	}
}

// Validate checks enum values and numeric ranges.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}

	if c.Hotspots.Count <= 0 {
		return fmt.Errorf("hotspots.count must be positive, got %d", c.Hotspots.Count)
	}
	switch c.Hotspots.Order {
	case "time", "label":
	default:
		return fmt.Errorf("hotspots.order: unknown order %q", c.Hotspots.Order)
	}

	if c.Memory.Interval <= 0 {
		return fmt.Errorf("memory.interval must be positive, got %s", c.Memory.Interval)
	}
	if c.Memory.Hotspots <= 0 {
		return fmt.Errorf("memory.hotspots must be positive, got %d", c.Memory.Hotspots)
	}
	if c.Memory.ProfileRate < 0 {
		return fmt.Errorf("memory.profile_rate must not be negative, got %d", c.Memory.ProfileRate)
	}

	switch c.Session.Collisions {
	case "overwrite", "reject", "version":
	default:
		return fmt.Errorf("session.collisions: unknown policy %q", c.Session.Collisions)
	}

	if c.CallGraph.DotBinary == "" {
		return fmt.Errorf("callgraph.dot_binary must not be empty")
	}
	if c.CallGraph.NodeFraction < 0 || c.CallGraph.NodeFraction >= 1 {
		return fmt.Errorf("callgraph.node_fraction must be in [0, 1), got %g", c.CallGraph.NodeFraction)
	}

	return nil
}
