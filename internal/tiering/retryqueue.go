package tiering

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/openendpoint/tieringd/internal/metrics"
)

// rqDequeueTimeout bounds how long the retry drainer blocks waiting for a
// request before checking for shutdown.
const rqDequeueTimeout = 60 * time.Second

// RetryQueueDrainer pulls failed MoveRequests, waits a backoff delay, then
// re-enqueues them to the move queue, up to maxRetries times. Past the cap
// the request is logged as a permanent failure and dropped.
type RetryQueueDrainer struct {
	retryQueue *Queue
	moveQueue  *Queue
	logger     *zap.Logger
	newBackoff func() backoff.BackOff
}

// NewRetryQueueDrainer builds a drainer moving failures from retryQueue back
// onto moveQueue after an exponential backoff delay.
func NewRetryQueueDrainer(retryQueue, moveQueue *Queue, logger *zap.Logger) *RetryQueueDrainer {
	return &RetryQueueDrainer{
		retryQueue: retryQueue,
		moveQueue:  moveQueue,
		logger:     logger,
		newBackoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.RandomizationFactor = 0 // jitter would let the delay dip below the 1s floor
			b.MaxInterval = 30 * time.Second
			b.MaxElapsedTime = 0 // bounded by maxRetries, not elapsed time
			b.Reset()            // start from the 1s InitialInterval set above
			return b
		},
	}
}

// Run drains the retry queue until ctx is cancelled.
func (d *RetryQueueDrainer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		req, ok := d.retryQueue.Dequeue(ctx, rqDequeueTimeout)
		if !ok {
			if ctx.Err() != nil {
				return
			}
			continue
		}

		d.retryOne(ctx, req)
	}
}

func (d *RetryQueueDrainer) retryOne(ctx context.Context, req MoveRequest) {
	// The delay grows with the number of failures so far: the first retry
	// waits the initial interval, each later one the next backoff step.
	b := d.newBackoff()
	delay := b.NextBackOff()
	for i := 1; i < req.Retries; i++ {
		delay = b.NextBackOff()
	}
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return
	}

	d.logger.Warn("re-enqueuing failed migration",
		zap.String("path", req.RelativePath),
		zap.String("tier_pair", req.TierPair()),
		zap.Int("retries", req.Retries),
		zap.Duration("delay", delay))

	metrics.MigrationsRetried.WithLabelValues(req.TierPair()).Inc()
	d.moveQueue.Enqueue(req)
}

// HandleFailure is the MigrationWorkerPool's onFailure callback: it bumps
// the retry count and either re-queues for retry or logs a permanent
// failure once maxRetries is exhausted.
func (d *RetryQueueDrainer) HandleFailure(req MoveRequest, err error) {
	if req.Retries >= maxRetries {
		metrics.MigrationsFailed.WithLabelValues(req.TierPair()).Inc()
		d.logger.Error("migration permanently failed, dropping",
			zap.String("path", req.RelativePath),
			zap.String("tier_pair", req.TierPair()),
			zap.Int("retries", req.Retries),
			zap.Error(err))
		return
	}

	req.Retries++
	d.retryQueue.Enqueue(req)
}
