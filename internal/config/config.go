// Package config loads the coordinator's YAML configuration file, in the
// teacher's Config-struct-plus-yaml.Unmarshal style (internal/cli/cli.go).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete on-disk configuration for the coordinator binary.
// Worker and Queue size the bundled demo handler fleets (internal/demo);
// PollInterval is the one coordinator setting spec.md §6 names directly.
type Config struct {
	PollInterval time.Duration `yaml:"poll_interval"`

	Worker struct {
		FetchCount     int `yaml:"fetch_count"`
		TransformCount int `yaml:"transform_count"`
		FlakyCount     int `yaml:"flaky_count"`
	} `yaml:"worker"`

	Queue struct {
		BufferSize int `yaml:"buffer_size"`
	} `yaml:"queue"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"metrics"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{PollInterval: time.Second}
	cfg.Worker.FetchCount = 2
	cfg.Worker.TransformCount = 2
	cfg.Worker.FlakyCount = 1
	cfg.Queue.BufferSize = 256
	cfg.Metrics.Enabled = true
	cfg.Metrics.Port = 9090
	return cfg
}

// Load reads and parses the YAML config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
