package tiering

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/openendpoint/tieringd/internal/store"
)

// shutdownGrace bounds how long the Supervisor waits for in-flight workers
// to finish their current migration before forcing shutdown.
const shutdownGrace = 30 * time.Second

// Supervisor owns the Decision Engine loop, the Migration Worker Pool, the
// Retry Queue drainer, and the Maintenance Reconciler loop, and coordinates
// their graceful shutdown.
type Supervisor struct {
	decision   *DecisionEngine
	pool       *MigrationWorkerPool
	retryDrain *RetryQueueDrainer
	maint      *MaintenanceReconciler
	store      store.Store
	logger     *zap.Logger

	tieringInterval time.Duration

	wg sync.WaitGroup
}

// NewSupervisor wires the three loops and the worker pool around a shared
// Store and Queues.
func NewSupervisor(
	decision *DecisionEngine,
	pool *MigrationWorkerPool,
	retryDrain *RetryQueueDrainer,
	maint *MaintenanceReconciler,
	st store.Store,
	tieringInterval time.Duration,
	logger *zap.Logger,
) *Supervisor {
	return &Supervisor{
		decision:        decision,
		pool:            pool,
		retryDrain:      retryDrain,
		maint:           maint,
		store:           st,
		tieringInterval: tieringInterval,
		logger:          logger,
	}
}

// Run starts every loop and blocks until ctx is cancelled (normally by a
// SIGINT/SIGTERM handler installed by the caller), then shuts down within
// shutdownGrace and flushes the Metadata Store. Run always returns nil:
// shutdown completing, with or without a full worker drain, is itself
// success.
func (s *Supervisor) Run(ctx context.Context) error {
	s.pool.Start(ctx)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.retryDrain.Run(ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.maint.Run(ctx)
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runDecisionLoop(ctx)
	}()

	<-ctx.Done()
	s.logger.Info("shutdown signal received, draining in-flight migrations")

	drained := make(chan struct{})
	go func() {
		s.pool.Wait()
		s.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		s.logger.Info("all loops stopped cleanly")
	case <-time.After(shutdownGrace):
		s.logger.Warn("shutdown grace period elapsed, exiting with workers still in flight")
	}

	if err := s.store.Flush(); err != nil {
		s.logger.Error("final metadata flush failed", zap.Error(err))
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error("metadata store close failed", zap.Error(err))
	}

	return nil
}

func (s *Supervisor) runDecisionLoop(ctx context.Context) {
	runOnce := func() {
		if _, _, err := s.decision.Run(ctx); err != nil {
			s.logger.Error("decision engine pass failed", zap.Error(err))
		}
	}

	runOnce()

	ticker := time.NewTicker(s.tieringInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runOnce()
		case <-ctx.Done():
			return
		}
	}
}
