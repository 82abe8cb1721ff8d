package queue

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/metrics"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/redis"
)

// Enqueuer publishes recompute jobs to the Redis stream. Every enqueue bumps
// the profile's sequence first, so jobs already in flight for the same profile
// become superseded and workers can abandon them.
type Enqueuer struct {
	client  *redis.Client
	streams *redis.Streams
	stream  string
	logger  ectologger.Logger
}

// NewEnqueuer creates a new Enqueuer publishing to the given stream
func NewEnqueuer(client *redis.Client, streams *redis.Streams, stream string, logger ectologger.Logger) *Enqueuer {
	return &Enqueuer{
		client:  client,
		streams: streams,
		stream:  stream,
		logger:  logger,
	}
}

// Enqueue queues a score recompute for one profile
func (e *Enqueuer) Enqueue(ctx context.Context, tenantID, profileID string) error {
	seq, err := e.client.BumpSequence(ctx, tenantID, profileID)
	if err != nil {
		return fmt.Errorf("failed to bump recompute sequence: %w", err)
	}

	job := &redis.RecomputeJob{
		TenantID:  tenantID,
		ProfileID: profileID,
		Seq:       seq,
	}

	id, err := e.streams.Publish(ctx, e.stream, job)
	if err != nil {
		return fmt.Errorf("failed to publish recompute job: %w", err)
	}

	metrics.RecomputeJobsProcessed.WithLabelValues("enqueued").Inc()
	e.logger.WithContext(ctx).Debugf("Enqueued recompute job %s for profile %s (seq=%d)", id, profileID, seq)
	return nil
}
