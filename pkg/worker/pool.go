// Package worker provides an asynchronous worker pool for persisting
// completed chat exchanges: the turn pair lands in the document store, gets
// indexed into semantic memory, and is announced on the event stream.
//
// The pool decouples persistence from the chat HTTP hot path so the learner
// sees the tutor's reply as soon as it exists.
package worker

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/paideialabs/paideia/pkg/docstore"
	"github.com/paideialabs/paideia/pkg/eventstream"
	"github.com/paideialabs/paideia/pkg/memory"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// InteractionRecorder indexes a finished exchange into semantic memory.
type InteractionRecorder interface {
	RecordInteraction(ctx context.Context, key memory.StepKey, userTurn, agentTurn memory.ConversationTurn) error
}

// Job is one completed exchange for the pool to persist.
type Job struct {
	Key       memory.StepKey
	PersonaID string
	UserTurn  memory.ConversationTurn
	AgentTurn memory.ConversationTurn

	StartedAt   time.Time
	CompletedAt time.Time
	Degraded    bool
	Model       string
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Store is the document store the exchange is appended to.
	Store docstore.Store

	// Recorder is the optional semantic index updated with the exchange.
	Recorder InteractionRecorder

	// Publisher is the optional event stream the exchange is announced on.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Pool processes persistence jobs asynchronously via a worker pool.
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
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			zap.String("user_id", job.Key.UserID),
			zap.String("step_id", job.Key.StepID),
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			zap.String("user_id", job.Key.UserID),
			zap.String("step_id", job.Key.StepID),
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the HTTP server has stopped.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", zap.Uint("worker_id", id))

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("persistence worker stopped", zap.Uint("worker_id", id))
}

// processJob persists one exchange. Indexing and event publication are
// best-effort once the turns are durable; their failures are logged, not
// propagated.
func (p *Pool) processJob(job Job) {
	ctx := context.Background()

	if err := p.storeExchange(ctx, job); err != nil {
		p.logger.Error("async exchange storage failed",
			zap.String("user_id", job.Key.UserID),
			zap.String("step_id", job.Key.StepID),
			zap.Error(err),
		)
		return
	}

	p.logger.Info("exchange stored",
		zap.String("user_id", job.Key.UserID),
		zap.String("step_id", job.Key.StepID),
		zap.String("persona_id", job.PersonaID),
	)

	if p.config.Recorder != nil {
		if err := p.config.Recorder.RecordInteraction(ctx, job.Key, job.UserTurn, job.AgentTurn); err != nil {
			p.logger.Warn("failed to index exchange into semantic memory",
				zap.String("user_id", job.Key.UserID),
				zap.Error(err),
			)
		}
	}

	if p.config.Publisher != nil {
		p.publishEvent(ctx, job)
	}
}

// storeExchange appends the turn pair to the document store in order.
func (p *Pool) storeExchange(ctx context.Context, job Job) error {
	if err := p.config.Store.AppendTurn(ctx, job.Key, job.UserTurn); err != nil {
		return fmt.Errorf("storing user turn: %w", err)
	}

	if err := p.config.Store.AppendTurn(ctx, job.Key, job.AgentTurn); err != nil {
		return fmt.Errorf("storing agent turn: %w", err)
	}

	return nil
}

func (p *Pool) publishEvent(ctx context.Context, job Job) {
	event := &eventstream.InteractionRecordedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeInteractionRecorded,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Key:           job.Key,
		PersonaID:     job.PersonaID,
		UserTurnID:    job.UserTurn.ID,
		AgentTurnID:   job.AgentTurn.ID,
		Meta: eventstream.InteractionMeta{
			StartedAt:   job.StartedAt,
			CompletedAt: job.CompletedAt,
			DurationMs:  job.CompletedAt.Sub(job.StartedAt).Milliseconds(),
			Degraded:    job.Degraded,
			Model:       job.Model,
		},
	}

	if err := p.config.Publisher.PublishInteraction(ctx, event); err != nil {
		p.logger.Warn("failed to publish interaction event",
			zap.String("user_id", job.Key.UserID),
			zap.Error(err),
		)
	}
}
