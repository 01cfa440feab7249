package tiering

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/openendpoint/tieringd/internal/metrics"
	"github.com/openendpoint/tieringd/internal/store"
)

// MaintenanceReconciler runs the periodic two-phase reconciliation pass:
// correcting stale tier labels and pruning ghost entries whose backing file
// no longer exists in any tier.
type MaintenanceReconciler struct {
	interval      time.Duration
	retryInterval time.Duration
	roots         TierRoots
	store         store.Store
	logger        *zap.Logger
}

// NewMaintenanceReconciler builds a reconciler with the given normal and
// retry-after-error intervals.
func NewMaintenanceReconciler(interval, retryInterval time.Duration, roots TierRoots, st store.Store, logger *zap.Logger) *MaintenanceReconciler {
	return &MaintenanceReconciler{
		interval:      interval,
		retryInterval: retryInterval,
		roots:         roots,
		store:         st,
		logger:        logger,
	}
}

// Run loops the reconciliation pass on interval, running once immediately
// on start, until ctx is cancelled. On pass error it retries after
// retryInterval instead of waiting the full interval.
func (m *MaintenanceReconciler) Run(ctx context.Context) {
	wait := m.interval
	if err := m.runPassErr(ctx); err != nil {
		m.logger.Error("maintenance pass failed, retrying sooner", zap.Error(err))
		wait = m.retryInterval
	}

	for {
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}

		if err := m.runPassErr(ctx); err != nil {
			m.logger.Error("maintenance pass failed, retrying sooner", zap.Error(err))
			wait = m.retryInterval
			continue
		}
		wait = m.interval
	}
}

func (m *MaintenanceReconciler) runPassErr(ctx context.Context) error {
	start := time.Now()
	defer func() { metrics.MaintenancePassDuration.Observe(time.Since(start).Seconds()) }()

	corrected, adopted, err := m.correctTierLabels(ctx)
	if err != nil {
		return err
	}

	pruned, err := m.pruneGhosts(ctx)
	if err != nil {
		return err
	}

	if err := m.store.Flush(); err != nil {
		return err
	}

	m.logger.Info("maintenance pass complete",
		zap.Int("tier_corrections", corrected),
		zap.Int("records_adopted", adopted),
		zap.Int("ghosts_pruned", pruned))
	return nil
}

// correctTierLabels walks every tier directory, fixing any record whose
// recorded tier disagrees with where the file physically lives and adopting
// files the store has never seen.
func (m *MaintenanceReconciler) correctTierLabels(ctx context.Context) (corrected, adopted int, err error) {
	for tier, root := range map[store.Tier]string{
		store.TierHot:  m.roots.Hot,
		store.TierWarm: m.roots.Warm,
		store.TierCold: m.roots.Cold,
	} {
		if _, err := os.Stat(root); err != nil {
			continue
		}

		walkErr := walkTier(root, m.logger, func(relPath string, fi os.FileInfo) error {
			rec, ok, err := m.store.Get(ctx, relPath)
			if err != nil {
				return err
			}
			if !ok {
				adopted++
				return m.store.Put(ctx, store.FileRecord{
					RelativePath:   relPath,
					Tier:           tier,
					LastAccessTime: atimeOf(fi),
					AccessCount:    1,
					FileSize:       fi.Size(),
				})
			}
			if rec.Tier == tier {
				return nil
			}
			rec.Tier = tier
			corrected++
			return m.store.Put(ctx, rec)
		})
		if walkErr != nil {
			return corrected, adopted, walkErr
		}
	}

	return corrected, adopted, ctx.Err()
}

// pruneGhosts removes records whose file no longer exists in any tier. The
// union view is authoritative here, not the recorded tier: a mislabeled but
// present file was already corrected by the label pass.
func (m *MaintenanceReconciler) pruneGhosts(ctx context.Context) (int, error) {
	var ghosts []string

	if err := m.store.Scan(ctx, func(rec store.FileRecord) error {
		for _, tier := range []store.Tier{store.TierHot, store.TierWarm, store.TierCold} {
			if _, err := os.Stat(m.roots.Path(tier, rec.RelativePath)); err == nil {
				return nil
			}
		}
		ghosts = append(ghosts, rec.RelativePath)
		return nil
	}); err != nil {
		return 0, err
	}

	for _, relPath := range ghosts {
		if err := m.store.Delete(ctx, relPath); err != nil {
			return 0, err
		}
	}

	metrics.GhostEntriesPruned.Add(float64(len(ghosts)))
	return len(ghosts), ctx.Err()
}
