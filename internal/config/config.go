// Package config loads settings for the taskq command.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/tomasbasham/taskq"
)

// Config is the top-level configuration.
type Config struct {
	LogLevel string         `yaml:"log_level"`
	Workload WorkloadConfig `yaml:"workload"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// WorkloadConfig controls the stress workload.
type WorkloadConfig struct {
	Producers        int `yaml:"producers"`
	TasksPerProducer int `yaml:"tasks_per_producer"`
	Consumers        int `yaml:"consumers"`

	// Mix weights the random priority chosen for each task, keyed by level
	// name. Missing levels have zero weight. A config file that sets mix
	// replaces the default mix entirely.
	Mix map[string]float64 `yaml:"mix"`

	// Seed makes the workload reproducible. Zero picks a random seed.
	Seed uint64 `yaml:"seed"`
}

// MetricsConfig controls Prometheus export.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Addr      string `yaml:"addr"`
}

// DefaultConfig returns the configuration used when no file is present. The
// workload matches five producers of 200 tasks drained by one consumer.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Workload: WorkloadConfig{
			Producers:        5,
			TasksPerProducer: 200,
			Consumers:        1,
			Mix: map[string]float64{
				"high":   1,
				"medium": 1,
				"low":    1,
			},
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "taskq",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			// yaml.v3 merges into existing maps, so start from an empty mix
			// and restore the default only when the file leaves it unset.
			defaultMix := cfg.Workload.Mix
			cfg.Workload.Mix = nil
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
			if cfg.Workload.Mix == nil {
				cfg.Workload.Mix = defaultMix
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("TASKQ_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("TASKQ_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	for name, dst := range map[string]*int{
		"TASKQ_PRODUCERS": &c.Workload.Producers,
		"TASKQ_CONSUMERS": &c.Workload.Consumers,
	} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		*dst = n
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}

	w := c.Workload
	if w.Producers < 1 {
		return errors.New("workload.producers must be at least 1")
	}
	if w.TasksPerProducer < 0 {
		return errors.New("workload.tasks_per_producer must not be negative")
	}
	if w.Consumers < 1 {
		return errors.New("workload.consumers must be at least 1")
	}

	var total float64
	for name, weight := range w.Mix {
		if !taskq.ParsePriority(name).IsValid() {
			return fmt.Errorf("workload.mix: %w: %q", taskq.ErrInvalidPriority, name)
		}
		if weight < 0 {
			return fmt.Errorf("workload.mix: negative weight for %q", name)
		}
		total += weight
	}
	if total == 0 {
		return errors.New("workload.mix must give at least one priority a positive weight")
	}
	return nil
}

// Level returns the parsed log level.
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// Weights returns the priority mix keyed by [taskq.Priority].
func (w WorkloadConfig) Weights() map[taskq.Priority]float64 {
	weights := make(map[taskq.Priority]float64, len(w.Mix))
	for name, weight := range w.Mix {
		if p := taskq.ParsePriority(name); p.IsValid() && weight > 0 {
			weights[p] = weight
		}
	}
	return weights
}
