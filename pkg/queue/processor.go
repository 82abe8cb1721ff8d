// Package queue runs the recompute workers. Profiles are scored off the hot
// path: mutations enqueue a job keyed by a per-profile sequence, and workers
// fold the latest state into a fresh score. A worker holding a job whose
// sequence is older than the profile's current sequence abandons it; the newer
// job recomputes from latest state anyway.
package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/metrics"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/redis"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/tracing"
)

const (
	// DefaultBatchSize is the default number of messages to consume at once
	DefaultBatchSize = 10

	// DefaultBlockTimeout is how long to block waiting for messages
	DefaultBlockTimeout = 5 * time.Second

	// DefaultClaimInterval is how often to claim stale pending messages
	DefaultClaimInterval = 30 * time.Second

	// DefaultClaimMinIdle is the minimum idle time before claiming a message
	DefaultClaimMinIdle = 60 * time.Second
)

// Recomputer recomputes a profile's revival priority score from latest state
type Recomputer interface {
	RecomputeScore(ctx context.Context, tenantID string, profileID string, now time.Time) (*models.CaseProfile, error)
}

// ProcessorConfig holds configuration for the recompute processor
type ProcessorConfig struct {
	// Stream name for the recompute queue
	Stream string

	// Consumer group name
	ConsumerGroup string

	// Consumer name (unique per instance)
	ConsumerName string

	// Number of messages to fetch per batch
	BatchSize int64

	// How long to block waiting for new messages
	BlockTimeout time.Duration

	// How often to check for and claim stale pending messages
	ClaimInterval time.Duration

	// Minimum idle time before claiming a pending message
	ClaimMinIdle time.Duration

	// Number of worker goroutines
	WorkerCount int
}

// DefaultProcessorConfig returns the default processor configuration
func DefaultProcessorConfig() ProcessorConfig {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = uuid.New().String()[:8]
	}

	return ProcessorConfig{
		Stream:        "coldcase:recompute",
		ConsumerGroup: "coldcase-workers",
		ConsumerName:  hostname,
		BatchSize:     DefaultBatchSize,
		BlockTimeout:  DefaultBlockTimeout,
		ClaimInterval: DefaultClaimInterval,
		ClaimMinIdle:  DefaultClaimMinIdle,
		WorkerCount:   1,
	}
}

// Processor consumes recompute jobs from the Redis stream and runs them
// through a worker pool
type Processor struct {
	client     *redis.Client
	streams    *redis.Streams
	recomputer Recomputer
	config     ProcessorConfig
	logger     ectologger.Logger

	stopCh   chan struct{}
	stoppedC chan struct{}
	jobsCh   chan redis.StreamMessage

	running bool
	mu      sync.RWMutex
}

// NewProcessor creates a new recompute processor
func NewProcessor(
	client *redis.Client,
	streams *redis.Streams,
	recomputer Recomputer,
	config ProcessorConfig,
	logger ectologger.Logger,
) *Processor {
	if config.ConsumerName == "" {
		config.ConsumerName = DefaultProcessorConfig().ConsumerName
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.BlockTimeout <= 0 {
		config.BlockTimeout = DefaultBlockTimeout
	}
	if config.ClaimInterval <= 0 {
		config.ClaimInterval = DefaultClaimInterval
	}
	if config.ClaimMinIdle <= 0 {
		config.ClaimMinIdle = DefaultClaimMinIdle
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}

	return &Processor{
		client:     client,
		streams:    streams,
		recomputer: recomputer,
		config:     config,
		logger:     logger,
		stopCh:     make(chan struct{}),
		stoppedC:   make(chan struct{}),
		jobsCh:     make(chan redis.StreamMessage, config.BatchSize*2),
	}
}

// Start starts the processor
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return errors.New("processor already running")
	}
	p.running = true
	p.mu.Unlock()

	ctx, span := tracing.StartSpan(ctx, "queue.Processor.Start")
	defer span.End()

	p.logger.WithContext(ctx).Infof("Starting recompute processor: stream=%s group=%s consumer=%s workers=%d",
		p.config.Stream, p.config.ConsumerGroup, p.config.ConsumerName, p.config.WorkerCount)

	if err := p.streams.CreateConsumerGroup(ctx, p.config.Stream, p.config.ConsumerGroup); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to create consumer group")
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < p.config.WorkerCount; i++ {
		wg.Add(1)
		go p.worker(ctx, &wg, i)
	}

	wg.Add(1)
	go p.consumeLoop(ctx, &wg)

	wg.Add(1)
	go p.claimLoop(ctx, &wg)

	go func() {
		<-p.stopCh
		close(p.jobsCh)
		wg.Wait()
		close(p.stoppedC)
	}()

	p.logger.WithContext(ctx).Info("Recompute processor started")
	return nil
}

// Stop stops the processor gracefully
func (p *Processor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.mu.Unlock()

	p.logger.WithContext(ctx).Info("Stopping recompute processor...")

	close(p.stopCh)

	select {
	case <-p.stoppedC:
		p.logger.WithContext(ctx).Info("Recompute processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WithContext(ctx).Warn("Recompute processor shutdown timed out")
		return ctx.Err()
	}

	return nil
}

// IsRunning returns whether the processor is running
func (p *Processor) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// consumeLoop continuously consumes messages from the stream
func (p *Processor) consumeLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	p.logger.WithContext(ctx).Debug("Consumer loop started")

	for {
		select {
		case <-p.stopCh:
			p.logger.WithContext(ctx).Debug("Consumer loop stopping")
			return
		default:
		}

		messages, err := p.streams.Consume(
			ctx,
			p.config.Stream,
			p.config.ConsumerGroup,
			p.config.ConsumerName,
			p.config.BatchSize,
			p.config.BlockTimeout,
		)

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.WithContext(ctx).WithError(err).Warn("Failed to consume recompute jobs")
			time.Sleep(time.Second) // Back off on error
			continue
		}

		if depth, err := p.streams.Len(ctx, p.config.Stream); err == nil {
			metrics.RecomputeQueueDepth.Set(float64(depth))
		}

		for _, msg := range messages {
			select {
			case p.jobsCh <- msg:
			case <-p.stopCh:
				return
			}
		}
	}
}

// claimLoop periodically claims stale pending messages
func (p *Processor) claimLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(p.config.ClaimInterval)
	defer ticker.Stop()

	p.logger.WithContext(ctx).Debug("Claim loop started")

	for {
		select {
		case <-p.stopCh:
			p.logger.WithContext(ctx).Debug("Claim loop stopping")
			return
		case <-ticker.C:
			p.claimPendingMessages(ctx)
		}
	}
}

// claimPendingMessages claims stale pending messages from other consumers
func (p *Processor) claimPendingMessages(ctx context.Context) {
	ctx, span := tracing.StartSpan(ctx, "queue.Processor.claimPendingMessages")
	defer span.End()

	pending, err := p.streams.Pending(ctx, p.config.Stream, p.config.ConsumerGroup, p.config.BatchSize)
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).Warn("Failed to get pending messages")
		return
	}

	var staleIDs []string
	for _, msg := range pending {
		if msg.Idle >= p.config.ClaimMinIdle {
			staleIDs = append(staleIDs, msg.ID)
		}
	}

	if len(staleIDs) == 0 {
		return
	}

	p.logger.WithContext(ctx).Infof("Claiming %d stale pending messages", len(staleIDs))

	claimed, err := p.streams.Claim(ctx, p.config.Stream, p.config.ConsumerGroup, p.config.ConsumerName, p.config.ClaimMinIdle, staleIDs...)
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).Warn("Failed to claim pending messages")
		return
	}

	for _, msg := range claimed {
		select {
		case p.jobsCh <- msg:
		case <-p.stopCh:
			return
		default:
			// Channel full, the next claim pass will pick these up
		}
	}
}

// worker processes jobs from the channel
func (p *Processor) worker(ctx context.Context, wg *sync.WaitGroup, id int) {
	defer wg.Done()

	p.logger.WithContext(ctx).Debugf("Worker %d started", id)

	for msg := range p.jobsCh {
		if err := p.processJob(ctx, msg); err != nil {
			// Leave unacked so the claim loop retries it
			p.logger.WithContext(ctx).WithError(err).Warnf("Recompute job %s failed, will be retried", msg.Job.ID)
			continue
		}

		if err := p.streams.Ack(ctx, p.config.Stream, p.config.ConsumerGroup, msg.ID); err != nil {
			p.logger.WithContext(ctx).WithError(err).Warnf("Failed to ack message %s", msg.ID)
		}
	}

	p.logger.WithContext(ctx).Debugf("Worker %d stopped", id)
}

// processJob runs a single recompute job. Superseded jobs are treated as
// successes so they get acked and drop out of the stream.
func (p *Processor) processJob(ctx context.Context, msg redis.StreamMessage) error {
	ctx, span := tracing.StartSpan(ctx, "queue.Processor.processJob")
	defer span.End()

	metrics.RecomputeJobsInFlight.Inc()
	defer metrics.RecomputeJobsInFlight.Dec()

	job := msg.Job

	current, err := p.client.CurrentSequence(ctx, job.TenantID, job.ProfileID)
	if err != nil {
		metrics.RecomputeJobsProcessed.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to read recompute sequence: %w", err)
	}
	if job.Seq < current {
		metrics.RecomputeJobsProcessed.WithLabelValues("superseded").Inc()
		p.logger.WithContext(ctx).Debugf("Abandoning superseded job %s for profile %s (seq=%d current=%d)",
			job.ID, job.ProfileID, job.Seq, current)
		return nil
	}

	profile, err := p.recomputer.RecomputeScore(ctx, job.TenantID, job.ProfileID, time.Now().UTC())
	if err != nil {
		metrics.RecomputeJobsProcessed.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to recompute score for profile %s: %w", job.ProfileID, err)
	}

	metrics.RecomputeJobsProcessed.WithLabelValues("success").Inc()
	p.logger.WithContext(ctx).Debugf("Recomputed score for profile %s: %.2f", profile.ID, profile.RevivalPriorityScore)
	return nil
}
