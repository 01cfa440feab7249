// Package tiering implements the Decision Engine, Migration Worker Pool,
// Move/Retry Queues, Maintenance Reconciler, and the Supervisor that owns
// the three loops (Decision Engine, Retry Queue drainer, Maintenance
// Reconciler) plus the worker pool, whose workers pull from the move queue
// directly.
package tiering

import (
	"path/filepath"

	"github.com/openendpoint/tieringd/internal/store"
)

// TierRoots maps each tier to its filesystem directory under the pool root.
type TierRoots struct {
	Hot  string
	Warm string
	Cold string
}

// NewTierRoots builds the three tier directories from a pool root, per the
// <pool_root>/{hot,warm,cold} layout.
func NewTierRoots(poolRoot string) TierRoots {
	return TierRoots{
		Hot:  filepath.Join(poolRoot, "hot"),
		Warm: filepath.Join(poolRoot, "warm"),
		Cold: filepath.Join(poolRoot, "cold"),
	}
}

// Path returns the absolute path of relPath within tier.
func (r TierRoots) Path(tier store.Tier, relPath string) string {
	return filepath.Join(r.root(tier), relPath)
}

func (r TierRoots) root(tier store.Tier) string {
	switch tier {
	case store.TierHot:
		return r.Hot
	case store.TierWarm:
		return r.Warm
	case store.TierCold:
		return r.Cold
	default:
		return ""
	}
}

// MoveRequest is one pending or in-flight migration of a single file between
// two tiers.
type MoveRequest struct {
	ID           string
	RelativePath string
	SourceTier   store.Tier
	TargetTier   store.Tier
	Retries      int
}

// TierPair is a Prometheus label value identifying a migration direction.
func (m MoveRequest) TierPair() string {
	return string(m.SourceTier) + "->" + string(m.TargetTier)
}

// maxRetries is the Retry Queue's cap: a request that has already failed
// this many times is dropped permanently on its next failure (4 total
// attempts).
const maxRetries = 3

// EngineConfig carries the Decision Engine tunables
// sourced from config.Config, decoupling the tiering package from the
// config package's import.
type EngineConfig struct {
	TierCapacityThresholdPct int
	AccessTimeThresholdSec   int64
	AccessCountThreshold     int64
	DryRun                   bool
}
