// Package config loads the service configuration from a YAML or JSON file,
// with optional environment overrides (R_SECTION__KEY).
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/coparent/rota/core/metrics"
	"github.com/coparent/rota/core/rebalance"
)

type Config struct {
	Schedule  ScheduleConfig   `json:"schedule"`
	Rebalance rebalance.Config `json:"rebalance"`
	Optimizer OptimizerConfig  `json:"optimizer"`
	Proposals ProposalsConfig  `json:"proposals"`
	Storage   StorageConfig    `json:"storage"`
	Metrics   metrics.Config   `json:"metrics"`
	API       APIConfig        `json:"api"`
}

// ScheduleConfig drives baseline pattern generation.
type ScheduleConfig struct {
	BlockLength int `json:"block_length"`
	HorizonDays int `json:"horizon_days"`
}

func (c *ScheduleConfig) SetDefaults() {
	if c.BlockLength <= 0 {
		c.BlockLength = 3
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = 28
	}
}

func (c ScheduleConfig) Validate() error {
	if c.BlockLength < 1 {
		return fmt.Errorf("block_length must be positive")
	}
	return nil
}

// OptimizerConfig enables the external optimization service.
type OptimizerConfig struct {
	Enabled        bool   `json:"enabled"`
	URL            string `json:"url"`
	APIKey         string `json:"api_key"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// ProposalsConfig tunes the review workflow.
type ProposalsConfig struct {
	TTLDays int `json:"ttl_days"`
}

func (c *ProposalsConfig) SetDefaults() {
	if c.TTLDays <= 0 {
		c.TTLDays = 7
	}
}

// StorageConfig points at the SQLite database file.
type StorageConfig struct {
	Path string `json:"path"`
}

func (c *StorageConfig) SetDefaults() {
	if c.Path == "" {
		c.Path = "rota.db"
	}
}

// APIConfig holds the HTTP listener settings.
type APIConfig struct {
	Addr string `json:"addr"`
}

func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("R_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "r_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Schedule.SetDefaults()
	cfg.Rebalance.SetDefaults()
	cfg.Proposals.SetDefaults()
	cfg.Storage.SetDefaults()
	cfg.API.SetDefaults()
	if err := cfg.Schedule.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Rebalance.Validate(); err != nil {
		return nil, err
	}
	if cfg.Optimizer.Enabled && cfg.Optimizer.URL == "" {
		return nil, fmt.Errorf("optimizer.url is required when the optimizer is enabled")
	}
	return &cfg, nil
}
