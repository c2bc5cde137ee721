// Package worker provides an asynchronous worker pool that publishes
// session-completed telemetry through the configured eventstream.Publisher.
//
// The pool decouples telemetry from the relay's streaming hot path: a slow
// or unreachable event sink never stalls an in-flight session.
package worker

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/adaptiveopslab/coachrelay/pkg/eventstream"
)

var (
	defaultNumWorkers   uint = 2
	defaultJobQueueSize uint = 256
)

// publishTimeout bounds a single publish attempt.
const publishTimeout = 10 * time.Second

// Job is one finished session's summary. It carries metadata only, never
// stream content; the relay does not persist stream history.
type Job struct {
	SessionID string
	Model     string
	Reason    string
	Chunks    int
	Bytes     int64
	Duration  time.Duration
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher receives session-completed events.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Pool publishes session summaries asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *zap.Logger
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := uint(0); i < c.NumWorkers; i++ {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("session summary queued",
			zap.String("session_id", job.SessionID),
			zap.String("reason", job.Reason),
		)
		return true
	default:
		p.logger.Error("session summary dropped, queue full",
			zap.String("session_id", job.SessionID),
			zap.String("reason", job.Reason),
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the relay server has stopped.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// worker continuously pulls jobs off the queue.
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", zap.Uint("worker_id", id))

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("telemetry worker stopped", zap.Uint("worker_id", id))
}

// processJob publishes one session summary. Errors are logged, never
// propagated: telemetry must not fail sessions retroactively.
func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	event := eventstream.NewSessionCompletedEvent(eventstream.SessionSummary{
		SessionID:  job.SessionID,
		Model:      job.Model,
		Reason:     job.Reason,
		ChunkCount: job.Chunks,
		ByteCount:  job.Bytes,
		DurationMs: job.Duration.Milliseconds(),
	})

	if err := p.config.Publisher.PublishSession(ctx, event); err != nil {
		p.logger.Error("async session publish failed",
			zap.String("session_id", job.SessionID),
			zap.Error(err),
		)
		return
	}

	p.logger.Debug("session summary published",
		zap.String("session_id", job.SessionID),
		zap.String("reason", job.Reason),
	)
}
