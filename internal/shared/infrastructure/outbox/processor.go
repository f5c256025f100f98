package outbox

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/classbook/internal/shared/infrastructure/eventbus"
)

// ProcessorConfig controls polling and the retry schedule of failed deliveries.
type ProcessorConfig struct {
	PollInterval     time.Duration
	BatchSize        int
	MaxRetries       int
	RetryBackoffBase time.Duration
	RetryBackoffMax  time.Duration
}

// DefaultProcessorConfig returns the worker defaults.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		PollInterval:     100 * time.Millisecond,
		BatchSize:        100,
		MaxRetries:       5,
		RetryBackoffBase: time.Second,
		RetryBackoffMax:  time.Minute,
	}
}

// backoff returns the delay before delivery attempt number attempt+1.
// The delay doubles per attempt and is capped at RetryBackoffMax.
func (c ProcessorConfig) backoff(attempt int) time.Duration {
	delay := c.RetryBackoffBase
	if delay <= 0 {
		delay = time.Second
	}
	ceiling := c.RetryBackoffMax
	if ceiling <= 0 {
		ceiling = time.Minute
	}
	for i := 1; i < attempt && delay < ceiling; i++ {
		delay *= 2
	}
	return min(delay, ceiling)
}

// outcome is what happened to one message in a batch.
type outcome int

const (
	outcomePublished outcome = iota
	outcomeRetry
	outcomeDead
)

// Processor relays committed outbox rows to a Publisher. Booking events
// reach the broker at least once and in commit order per poll.
type Processor struct {
	repo      Repository
	publisher eventbus.Publisher
	config    ProcessorConfig
	logger    *slog.Logger

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	running   atomic.Bool

	published atomic.Uint64
	failed    atomic.Uint64
	dead      atomic.Uint64

	mu              sync.Mutex
	lastError       string
	lastErrorAt     *time.Time
	lastProcessedAt *time.Time
	oldestMessageAt *time.Time
	lag             time.Duration
}

// NewProcessor creates a processor. A nil logger uses slog.Default.
func NewProcessor(repo Repository, publisher eventbus.Publisher, config ProcessorConfig, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		repo:      repo,
		publisher: publisher,
		config:    config,
		logger:    logger.With("component", "outbox"),
	}
}

// Start launches the polling loop. Calling Start on a running processor is a no-op.
func (p *Processor) Start(ctx context.Context) error {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()
	if p.running.Load() {
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running.Store(true)
	go p.loop(loopCtx, p.done)

	p.logger.Info("outbox processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize,
		"max_retries", p.config.MaxRetries,
	)
	return nil
}

// Stop cancels the loop and waits for the in-flight batch to finish.
func (p *Processor) Stop() {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()
	if !p.running.Load() {
		return
	}
	p.cancel()
	<-p.done
	p.running.Store(false)
	p.logger.Info("outbox processor stopped")
}

// IsRunning reports whether the polling loop is active.
func (p *Processor) IsRunning() bool {
	return p.running.Load()
}

func (p *Processor) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.ProcessOnce(ctx); err != nil && ctx.Err() == nil {
				p.logger.Error("outbox poll failed", "error", err)
			}
		}
	}
}

// ProcessOnce publishes one batch of due messages. Delivery failures are
// recorded on the rows; only a failure to read the outbox is returned.
func (p *Processor) ProcessOnce(ctx context.Context) error {
	messages, err := p.repo.GetUnpublished(ctx, p.config.BatchSize)
	if err != nil {
		p.noteError(err)
		return err
	}
	p.notePoll(messages)

	for _, msg := range messages {
		switch p.deliver(ctx, msg) {
		case outcomePublished:
			p.published.Add(1)
		case outcomeRetry:
			p.failed.Add(1)
		case outcomeDead:
			p.dead.Add(1)
		}
	}
	return nil
}

func (p *Processor) deliver(ctx context.Context, msg *Message) outcome {
	meta := msg.EventMetadata()
	log := p.logger.With(
		"outbox_id", msg.ID,
		"event_id", msg.EventID,
		"routing_key", msg.RoutingKey,
		"correlation_id", meta.CorrelationID,
	)

	err := p.publish(ctx, msg)
	if err == nil {
		if markErr := p.repo.MarkPublished(ctx, msg.ID); markErr != nil {
			// The row will be sent again on the next poll; consumers dedupe on event_id.
			log.Error("mark published failed", "error", markErr)
			p.noteError(markErr)
			return outcomeRetry
		}
		return outcomePublished
	}

	p.noteError(err)
	attempt := msg.RetryCount + 1
	if eventbus.IsPermanent(err) || attempt >= p.config.MaxRetries {
		log.Warn("dead-lettering outbox message", "attempt", attempt, "error", err)
		if markErr := p.repo.MarkDead(ctx, msg.ID, err.Error()); markErr != nil {
			log.Error("mark dead failed", "error", markErr)
		}
		return outcomeDead
	}

	next := time.Now().Add(p.config.backoff(attempt))
	log.Warn("publish failed, will retry", "attempt", attempt, "next_retry_at", next, "error", err)
	if markErr := p.repo.MarkFailed(ctx, msg.ID, err.Error(), next); markErr != nil {
		log.Error("mark failed failed", "error", markErr)
	}
	return outcomeRetry
}

func (p *Processor) publish(ctx context.Context, msg *Message) error {
	body, err := msg.Envelope()
	if err != nil {
		return eventbus.Permanent(err)
	}
	return p.publisher.Publish(ctx, msg.RoutingKey, body)
}

func (p *Processor) noteError(err error) {
	now := time.Now()
	p.mu.Lock()
	p.lastError = err.Error()
	p.lastErrorAt = &now
	p.mu.Unlock()
}

func (p *Processor) notePoll(messages []*Message) {
	now := time.Now()
	var oldest *time.Time
	for _, msg := range messages {
		if oldest == nil || msg.CreatedAt.Before(*oldest) {
			created := msg.CreatedAt
			oldest = &created
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastProcessedAt = &now
	p.oldestMessageAt = oldest
	p.lag = 0
	if oldest != nil {
		p.lag = now.Sub(*oldest)
	}
}

// Stats is a point-in-time view of the processor, served by the worker's
// /healthz endpoint.
type Stats struct {
	IsRunning       bool
	PublishedCount  uint64
	FailedCount     uint64
	DeadCount       uint64
	LagSeconds      float64
	LastError       string
	LastErrorAt     *time.Time
	LastProcessedAt *time.Time
	OldestMessageAt *time.Time
}

// GetStats returns the current counters and lag.
func (p *Processor) GetStats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		IsRunning:       p.running.Load(),
		PublishedCount:  p.published.Load(),
		FailedCount:     p.failed.Load(),
		DeadCount:       p.dead.Load(),
		LagSeconds:      p.lag.Seconds(),
		LastError:       p.lastError,
		LastErrorAt:     p.lastErrorAt,
		LastProcessedAt: p.lastProcessedAt,
		OldestMessageAt: p.oldestMessageAt,
	}
}
