package tiering

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/openendpoint/tieringd/internal/metrics"
)

// Queue is a bounded FIFO of MoveRequests. Enqueue never blocks: when full,
// the newest request is dropped and logged, which keeps memory bounded when
// the copy primitive stalls. Dequeue blocks up to a timeout waiting for an
// item.
type Queue struct {
	name    string
	ch      chan MoveRequest
	logger  *zap.Logger
	depthMx func(float64)
}

// NewQueue creates a Queue of the given capacity. name identifies the queue
// in logs and in the "queue" metric label on drops.
func NewQueue(name string, capacity int, logger *zap.Logger) *Queue {
	q := &Queue{
		name:   name,
		ch:     make(chan MoveRequest, capacity),
		logger: logger,
	}
	q.depthMx = func(v float64) {
		if name == "move" {
			metrics.MoveQueueDepth.Set(v)
		} else {
			metrics.RetryQueueDepth.Set(v)
		}
	}
	return q
}

// Enqueue attempts a non-blocking send. If the queue is full, the request
// is dropped and logged; Enqueue never blocks the caller.
func (q *Queue) Enqueue(req MoveRequest) {
	select {
	case q.ch <- req:
		q.depthMx(float64(len(q.ch)))
	default:
		metrics.QueueDropsTotal.WithLabelValues(q.name).Inc()
		q.logger.Warn("queue full, dropping request",
			zap.String("queue", q.name),
			zap.String("path", req.RelativePath),
			zap.String("tier_pair", req.TierPair()))
	}
}

// Dequeue blocks until a request is available, timeout elapses, or ctx is
// cancelled. ok is false on timeout or cancellation.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (req MoveRequest, ok bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case req = <-q.ch:
		q.depthMx(float64(len(q.ch)))
		return req, true
	case <-timer.C:
		return MoveRequest{}, false
	case <-ctx.Done():
		return MoveRequest{}, false
	}
}

// Len reports the current number of queued requests.
func (q *Queue) Len() int {
	return len(q.ch)
}
