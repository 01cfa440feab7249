package tiering

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/openendpoint/tieringd/internal/metrics"
	"github.com/openendpoint/tieringd/internal/store"
)

// mqDequeueTimeout bounds how long a worker blocks waiting for the move
// queue before checking for shutdown.
const mqDequeueTimeout = time.Second

// MigrationWorkerPool runs a fixed number of workers, each pulling
// MoveRequests off the move queue and invoking the Copier. Failures are
// handed to onFailure (the retry queue enqueue) rather than retried inline.
type MigrationWorkerPool struct {
	workers   int
	queue     *Queue
	roots     TierRoots
	copier    *Copier
	store     store.Store
	logger    *zap.Logger
	onSuccess func(MoveRequest)
	onFailure func(MoveRequest, error)

	wg sync.WaitGroup
}

// NewMigrationWorkerPool builds a pool of n workers.
func NewMigrationWorkerPool(n int, queue *Queue, roots TierRoots, copier *Copier, st store.Store, logger *zap.Logger, onSuccess func(MoveRequest), onFailure func(MoveRequest, error)) *MigrationWorkerPool {
	return &MigrationWorkerPool{
		workers:   n,
		queue:     queue,
		roots:     roots,
		copier:    copier,
		store:     st,
		logger:    logger,
		onSuccess: onSuccess,
		onFailure: onFailure,
	}
}

// Start launches the worker goroutines. They run until ctx is cancelled.
func (p *MigrationWorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.runWorker(ctx)
	}
}

// Wait blocks until all workers have exited, bounded by the Supervisor's
// own shutdown timeout via ctx cancellation.
func (p *MigrationWorkerPool) Wait() {
	p.wg.Wait()
}

func (p *MigrationWorkerPool) runWorker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		req, ok := p.queue.Dequeue(ctx, mqDequeueTimeout)
		if !ok {
			if ctx.Err() != nil {
				return
			}
			continue
		}

		p.process(ctx, req)
	}
}

func (p *MigrationWorkerPool) process(ctx context.Context, req MoveRequest) {
	metrics.MigrationsStarted.WithLabelValues(req.TierPair()).Inc()

	src := p.roots.Path(req.SourceTier, req.RelativePath)
	dest := p.roots.Path(req.TargetTier, req.RelativePath)

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		p.logger.Warn("destination directory creation failed",
			zap.String("path", req.RelativePath),
			zap.Error(err))
		p.onFailure(req, err)
		return
	}

	if err := p.copier.Copy(ctx, src, dest); err != nil {
		p.logger.Warn("migration failed",
			zap.String("path", req.RelativePath),
			zap.String("tier_pair", req.TierPair()),
			zap.Int("retries", req.Retries),
			zap.Error(err))
		p.onFailure(req, err)
		return
	}

	rec, ok, err := p.store.Get(ctx, req.RelativePath)
	if err != nil {
		p.logger.Error("metadata lookup failed after successful copy", zap.String("path", req.RelativePath), zap.Error(err))
		p.onFailure(req, err)
		return
	}
	if ok {
		// A request whose record has vanished (the file was deleted, the
		// reconciler pruned it) is still a completed move; only a live
		// record gets its tier rewritten.
		rec.Tier = req.TargetTier
		rec.LastTierMove = time.Now().Unix()

		if err := p.store.Put(ctx, rec); err != nil {
			p.logger.Error("metadata update failed after successful copy", zap.String("path", req.RelativePath), zap.Error(err))
			p.onFailure(req, err)
			return
		}
	}

	metrics.MigrationsSucceeded.WithLabelValues(req.TierPair()).Inc()
	p.logger.Info("migration succeeded",
		zap.String("path", req.RelativePath),
		zap.String("tier_pair", req.TierPair()))
	p.onSuccess(req)
}
