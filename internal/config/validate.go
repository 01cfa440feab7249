package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Validate checks the fatal-at-startup preconditions from the error policy
// table: a missing pool root, missing tier subdirectories, or an out-of-range
// threshold must stop the process before any loop starts.
func (c *Config) Validate() error {
	if c.PoolRoot == "" {
		return fmt.Errorf("pool_root is required")
	}
	if c.MetadataPath == "" {
		return fmt.Errorf("metadata_path is required")
	}

	for _, tier := range []string{"hot", "warm", "cold"} {
		tierPath := filepath.Join(c.PoolRoot, tier)
		info, err := os.Stat(tierPath)
		if err != nil {
			return fmt.Errorf("tier root %q: %w", tierPath, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("tier root %q is not a directory", tierPath)
		}
	}

	if c.TierCapacityThreshold <= 0 || c.TierCapacityThreshold > 100 {
		return fmt.Errorf("tier_capacity_threshold must be in (0, 100], got %d", c.TierCapacityThreshold)
	}
	if c.AccessTimeThresholdSec <= 0 {
		return fmt.Errorf("access_time_threshold must be positive, got %d", c.AccessTimeThresholdSec)
	}
	if c.AccessCountThreshold <= 0 {
		return fmt.Errorf("access_count_threshold must be positive, got %d", c.AccessCountThreshold)
	}
	if c.TieringIntervalSec <= 0 {
		return fmt.Errorf("tiering_interval must be positive, got %d", c.TieringIntervalSec)
	}
	if c.MaintenanceIntervalSec <= 0 {
		return fmt.Errorf("maintenance_interval must be positive, got %d", c.MaintenanceIntervalSec)
	}
	if c.IOThreads <= 0 {
		return fmt.Errorf("io_threads must be positive, got %d", c.IOThreads)
	}

	return nil
}
