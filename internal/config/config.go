// Package config loads the tiering engine's runtime configuration.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config is the full set of options recognized by the tiering engine.
type Config struct {
	PoolRoot               string `mapstructure:"pool_root"`
	MetadataPath           string `mapstructure:"metadata_path"`
	AuditLogPath           string `mapstructure:"audit_log_path"`
	TierCapacityThreshold  int    `mapstructure:"tier_capacity_threshold"`
	AccessTimeThresholdSec int64  `mapstructure:"access_time_threshold"`
	AccessCountThreshold   int64  `mapstructure:"access_count_threshold"`
	TieringIntervalSec     int64  `mapstructure:"tiering_interval"`
	MaintenanceIntervalSec int64  `mapstructure:"maintenance_interval"`
	IOThreads              int    `mapstructure:"io_threads"`
	DryRun                 bool   `mapstructure:"dry_run"`
	LogLevel               string `mapstructure:"log_level"`
	MetricsAddr            string `mapstructure:"metrics_addr"`
}

// Load reads configuration from path (if non-empty), then overlays
// environment variables prefixed TIERD_.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("tier_capacity_threshold", 85)
	v.SetDefault("access_time_threshold", 28800)
	v.SetDefault("access_count_threshold", 3)
	v.SetDefault("tiering_interval", 7200)
	v.SetDefault("maintenance_interval", 86400)
	v.SetDefault("io_threads", 4)
	v.SetDefault("dry_run", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("metadata_path", "/var/lib/tieringd/metadata")
	v.SetDefault("audit_log_path", "/var/lib/tieringd/audit.db")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("tieringd")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/tieringd")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix("TIERD")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.PoolRoot == "" {
		cfg.PoolRoot = os.Getenv("TIERD_POOL_ROOT")
	}

	return &cfg, nil
}
