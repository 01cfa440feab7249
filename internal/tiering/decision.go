package tiering

import (
	"context"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openendpoint/tieringd/internal/metrics"
	"github.com/openendpoint/tieringd/internal/store"
)

// demotionBatchSize caps how many of the coldest files move out of an
// over-threshold tier per pass; remaining pressure drains over later
// passes.
const demotionBatchSize = 10

// DecisionEngine runs the periodic refresh / pressure-demotion /
// rule-promotion pass.
type DecisionEngine struct {
	cfg       EngineConfig
	roots     TierRoots
	store     store.Store
	queue     *Queue
	logger    *zap.Logger
	now       func() time.Time
	diskUsage func(path string) (used, total uint64, err error)
}

// NewDecisionEngine builds a DecisionEngine.
func NewDecisionEngine(cfg EngineConfig, roots TierRoots, st store.Store, queue *Queue, logger *zap.Logger) *DecisionEngine {
	return &DecisionEngine{
		cfg:       cfg,
		roots:     roots,
		store:     st,
		queue:     queue,
		logger:    logger,
		now:       time.Now,
		diskUsage: DiskUsage,
	}
}

// Run executes one full pass: refresh, pressure demotion, rule-based
// promotion. It returns the number of files observed during refresh and the
// number of MoveRequests enqueued (or, in dry-run mode, that would have
// been enqueued).
func (d *DecisionEngine) Run(ctx context.Context) (observed, enqueued int, err error) {
	start := time.Now()
	defer func() { metrics.DecisionPassDuration.Observe(time.Since(start).Seconds()) }()

	observed, err = d.refresh(ctx)
	if err != nil {
		return observed, 0, err
	}
	metrics.MetadataRecordCount.Set(float64(observed))

	demotions, err := d.pressureDemotions(ctx)
	if err != nil {
		return observed, enqueued, err
	}
	promotions, err := d.rulePromotions(ctx)
	if err != nil {
		return observed, enqueued, err
	}

	// A file can appear in both lists when it is LRU in an over-pressure
	// tier and promotion-eligible at once; both requests are enqueued and
	// the reconciler owns any transient mislabel the pair leaves behind.
	for _, req := range append(demotions, promotions...) {
		if d.cfg.DryRun {
			d.logger.Info("dry-run: would enqueue move",
				zap.String("path", req.RelativePath),
				zap.String("tier_pair", req.TierPair()))
			enqueued++
			continue
		}
		d.queue.Enqueue(req)
		enqueued++
	}

	d.logger.Info("decision pass complete",
		zap.Int("observed", observed),
		zap.Int("demotions", len(demotions)),
		zap.Int("promotions", len(promotions)),
		zap.Bool("dry_run", d.cfg.DryRun))

	return observed, enqueued, nil
}

// refresh walks every tier, updating each file's size and access count.
// The access count increments only when the observed atime has advanced
// past the recorded last_access_time, not unconditionally on every pass,
// so the counter tracks distinct accesses rather than walk occurrences.
func (d *DecisionEngine) refresh(ctx context.Context) (int, error) {
	observed := 0

	for tier, root := range map[store.Tier]string{
		store.TierHot:  d.roots.Hot,
		store.TierWarm: d.roots.Warm,
		store.TierCold: d.roots.Cold,
	} {
		if _, err := os.Stat(root); err != nil {
			continue
		}

		walkErr := walkTier(root, d.logger, func(relPath string, fi os.FileInfo) error {
			observed++

			rec, ok, err := d.store.Get(ctx, relPath)
			if err != nil {
				return err
			}

			atime := atimeOf(fi)
			if !ok {
				rec = store.FileRecord{
					RelativePath:   relPath,
					Tier:           tier,
					LastAccessTime: atime,
					AccessCount:    1,
					FileSize:       fi.Size(),
				}
				return d.store.Put(ctx, rec)
			}

			rec.Tier = tier
			rec.FileSize = fi.Size()
			if atime > rec.LastAccessTime {
				rec.AccessCount++
				rec.LastAccessTime = atime
			}
			return d.store.Put(ctx, rec)
		})
		if walkErr != nil {
			return observed, walkErr
		}
	}

	return observed, ctx.Err()
}

// pressureDemotions finds tiers over the capacity threshold and enqueues
// the demotionBatchSize coldest files for demotion to the next tier down
// (hot->warm, warm->cold). Cold has no further tier to demote to.
func (d *DecisionEngine) pressureDemotions(ctx context.Context) ([]MoveRequest, error) {
	var requests []MoveRequest

	for tier, target := range map[store.Tier]store.Tier{
		store.TierHot:  store.TierWarm,
		store.TierWarm: store.TierCold,
	} {
		root := d.roots.root(tier)
		used, total, err := d.diskUsage(root)
		if err != nil {
			d.logger.Warn("disk usage check failed", zap.String("tier", string(tier)), zap.Error(err))
			continue
		}
		if total == 0 {
			continue
		}

		metrics.TierBytesUsed.WithLabelValues(string(tier)).Set(float64(used))
		metrics.TierBytesTotal.WithLabelValues(string(tier)).Set(float64(total))

		// Demote only when usage is strictly above the threshold.
		if used*100 <= total*uint64(d.cfg.TierCapacityThresholdPct) {
			continue
		}

		candidates, err := d.coldestInTier(ctx, tier)
		if err != nil {
			return nil, err
		}
		for i := 0; i < len(candidates) && i < demotionBatchSize; i++ {
			requests = append(requests, MoveRequest{
				ID:           uuid.New().String(),
				RelativePath: candidates[i].RelativePath,
				SourceTier:   tier,
				TargetTier:   target,
			})
		}
	}

	return requests, nil
}

// coldestInTier returns every record in tier, sorted ascending by
// last_access_time, with relative path as the lexicographic tie-break.
func (d *DecisionEngine) coldestInTier(ctx context.Context, tier store.Tier) ([]store.FileRecord, error) {
	var records []store.FileRecord
	if err := d.store.ScanTier(ctx, tier, func(rec store.FileRecord) error {
		records = append(records, rec)
		return nil
	}); err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].LastAccessTime != records[j].LastAccessTime {
			return records[i].LastAccessTime < records[j].LastAccessTime
		}
		return records[i].RelativePath < records[j].RelativePath
	})

	return records, nil
}

// rulePromotions finds any non-hot file whose access_count has crossed the
// configured threshold within the freshness window and enqueues it for
// promotion straight to hot. This is the single exception to stepwise
// tier adjacency: genuinely hot data skips warm on the way up.
func (d *DecisionEngine) rulePromotions(ctx context.Context) ([]MoveRequest, error) {
	var requests []MoveRequest
	cutoff := d.now().Unix() - d.cfg.AccessTimeThresholdSec

	if err := d.store.Scan(ctx, func(rec store.FileRecord) error {
		if rec.Tier == store.TierHot {
			return nil
		}
		if rec.AccessCount < d.cfg.AccessCountThreshold {
			return nil
		}
		if rec.LastAccessTime < cutoff {
			return nil
		}
		requests = append(requests, MoveRequest{
			ID:           uuid.New().String(),
			RelativePath: rec.RelativePath,
			SourceTier:   rec.Tier,
			TargetTier:   store.TierHot,
		})
		return nil
	}); err != nil {
		return nil, err
	}

	return requests, nil
}
