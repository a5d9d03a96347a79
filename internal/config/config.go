// Package config holds the settings of the churn benchmark.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Workload WorkloadConfig `toml:"workload"`
	Manager  ManagerConfig  `toml:"manager"`
	Logging  LoggingConfig  `toml:"logging"`
}

type WorkloadConfig struct {
	Worlds   int           `toml:"worlds"`   // independent managers, one goroutine each
	Entities int           `toml:"entities"` // entities created per world before the first tick
	Ticks    int           `toml:"ticks"`
	Churn    float64       `toml:"churn"` // fraction of entities mutated per tick (0.0-1.0)
	Seed     uint64        `toml:"seed"`
	Report   time.Duration `toml:"report"` // interval between progress logs, 0 disables
	Schema   string        `toml:"schema"` // component schema file, empty uses the builtin tile components
}

type ManagerConfig struct {
	MaxEntities     int `toml:"max_entities"`
	InitialCapacity int `toml:"initial_capacity"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// Load reads a config file. Values missing in the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

func Default() *Config {
	return &Config{
		Workload: WorkloadConfig{
			Worlds:   4,
			Entities: 10_000,
			Ticks:    1_000,
			Churn:    0.1,
			Seed:     1,
			Report:   time.Second,
		},
		Manager: ManagerConfig{
			MaxEntities:     1 << 20,
			InitialCapacity: 10_000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func (c *Config) Validate() error {
	switch {
	case c.Workload.Worlds <= 0:
		return fmt.Errorf("workload.worlds must be positive, got %d", c.Workload.Worlds)
	case c.Workload.Entities < 0:
		return fmt.Errorf("workload.entities must not be negative, got %d", c.Workload.Entities)
	case c.Workload.Ticks < 0:
		return fmt.Errorf("workload.ticks must not be negative, got %d", c.Workload.Ticks)
	case c.Workload.Churn < 0 || c.Workload.Churn > 1:
		return fmt.Errorf("workload.churn must be between 0 and 1, got %g", c.Workload.Churn)
	case c.Manager.MaxEntities > 0 && c.Manager.MaxEntities < c.Workload.Entities:
		return fmt.Errorf("manager.max_entities (%d) below workload.entities (%d)", c.Manager.MaxEntities, c.Workload.Entities)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}

	return nil
}
