package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TIERD_POOL_ROOT", "/pool")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.TierCapacityThreshold != 85 {
		t.Errorf("TierCapacityThreshold = %d, want 85", cfg.TierCapacityThreshold)
	}
	if cfg.AccessTimeThresholdSec != 28800 {
		t.Errorf("AccessTimeThresholdSec = %d, want 28800", cfg.AccessTimeThresholdSec)
	}
	if cfg.AccessCountThreshold != 3 {
		t.Errorf("AccessCountThreshold = %d, want 3", cfg.AccessCountThreshold)
	}
	if cfg.TieringIntervalSec != 7200 {
		t.Errorf("TieringIntervalSec = %d, want 7200", cfg.TieringIntervalSec)
	}
	if cfg.MaintenanceIntervalSec != 86400 {
		t.Errorf("MaintenanceIntervalSec = %d, want 86400", cfg.MaintenanceIntervalSec)
	}
	if cfg.IOThreads != 4 {
		t.Errorf("IOThreads = %d, want 4", cfg.IOThreads)
	}
	if cfg.PoolRoot != "/pool" {
		t.Errorf("PoolRoot = %q, want /pool", cfg.PoolRoot)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tieringd.yaml")
	contents := "pool_root: /data/pool\nio_threads: 8\ntier_capacity_threshold: 90\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PoolRoot != "/data/pool" {
		t.Errorf("PoolRoot = %q, want /data/pool", cfg.PoolRoot)
	}
	if cfg.IOThreads != 8 {
		t.Errorf("IOThreads = %d, want 8", cfg.IOThreads)
	}
	if cfg.TierCapacityThreshold != 90 {
		t.Errorf("TierCapacityThreshold = %d, want 90", cfg.TierCapacityThreshold)
	}
}

func TestValidateRejectsMissingPoolRoot(t *testing.T) {
	cfg := &Config{MetadataPath: "/var/lib/tieringd/metadata"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing pool_root")
	}
}

func TestValidateRejectsMissingTierRoots(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		PoolRoot:               dir,
		MetadataPath:           filepath.Join(dir, "metadata"),
		TierCapacityThreshold:  85,
		AccessTimeThresholdSec: 28800,
		AccessCountThreshold:   3,
		TieringIntervalSec:     7200,
		MaintenanceIntervalSec: 86400,
		IOThreads:              4,
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when tier subdirectories don't exist")
	}
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	dir := t.TempDir()
	for _, tier := range []string{"hot", "warm", "cold"} {
		if err := os.MkdirAll(filepath.Join(dir, tier), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}

	cfg := &Config{
		PoolRoot:               dir,
		MetadataPath:           filepath.Join(dir, "metadata"),
		TierCapacityThreshold:  85,
		AccessTimeThresholdSec: 28800,
		AccessCountThreshold:   3,
		TieringIntervalSec:     7200,
		MaintenanceIntervalSec: 86400,
		IOThreads:              4,
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateRejectsBadThreshold(t *testing.T) {
	dir := t.TempDir()
	for _, tier := range []string{"hot", "warm", "cold"} {
		if err := os.MkdirAll(filepath.Join(dir, tier), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}

	cfg := &Config{
		PoolRoot:               dir,
		MetadataPath:           filepath.Join(dir, "metadata"),
		TierCapacityThreshold:  0,
		AccessTimeThresholdSec: 28800,
		AccessCountThreshold:   3,
		TieringIntervalSec:     7200,
		MaintenanceIntervalSec: 86400,
		IOThreads:              4,
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for out-of-range tier_capacity_threshold")
	}
}
