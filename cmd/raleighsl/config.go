package main

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk YAML shape --config loads; every field is
// optional. A field left out keeps its flag's default, and the reaper
// fields, which have no flag, fall back to the reaper's own defaults.
type fileConfig struct {
	DataDir        string        `yaml:"data_dir"`
	Label          string        `yaml:"label"`
	Workers        int           `yaml:"workers"`
	MetricsAddr    string        `yaml:"metrics_addr"`
	LogLevel       string        `yaml:"log_level"`
	LogJSON        bool          `yaml:"log_json"`
	ReaperInterval time.Duration `yaml:"reaper_interval"`
	ReaperMaxAge   time.Duration `yaml:"reaper_max_age"`
}

func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
