package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RecomputeJob asks a worker to recompute one profile's score from latest
// state. Seq is the per-profile sequence at enqueue time; a worker holding a
// job older than the current sequence abandons it.
type RecomputeJob struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	ProfileID  string    `json:"profile_id"`
	Seq        int64     `json:"seq"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// StreamMessage is one raw entry read from the stream
type StreamMessage struct {
	ID     string
	Stream string
	Job    RecomputeJob
}

// Streams provides the Redis Streams job queue operations
type Streams struct {
	client *Client
}

// NewStreams creates a new Streams instance
func NewStreams(client *Client) *Streams {
	return &Streams{client: client}
}

// Publish adds a recompute job to the stream
func (s *Streams) Publish(ctx context.Context, stream string, job *RecomputeJob) (string, error) {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job: %w", err)
	}

	result, err := s.client.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"data": string(payload),
		},
	}).Result()
	if err != nil {
		s.client.logger.WithContext(ctx).WithError(err).Errorf("Failed to publish to stream %s", stream)
		return "", err
	}

	return result, nil
}

// CreateConsumerGroup creates a consumer group for a stream
func (s *Streams) CreateConsumerGroup(ctx context.Context, stream, group string) error {
	err := s.client.rdb.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return err
	}
	return nil
}

// Consume reads jobs from a stream using a consumer group
func (s *Streams) Consume(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]StreamMessage, error) {
	results, err := s.client.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()

	if err == redis.Nil {
		return nil, nil // No messages
	}
	if err != nil {
		return nil, err
	}

	var messages []StreamMessage
	for _, result := range results {
		for _, msg := range result.Messages {
			parsed, ok := s.parse(ctx, msg)
			if !ok {
				continue
			}
			parsed.Stream = result.Stream
			messages = append(messages, parsed)
		}
	}

	return messages, nil
}

// Ack acknowledges processed jobs
func (s *Streams) Ack(ctx context.Context, stream, group string, ids ...string) error {
	return s.client.rdb.XAck(ctx, stream, group, ids...).Err()
}

// Pending returns jobs delivered but not yet acknowledged
func (s *Streams) Pending(ctx context.Context, stream, group string, count int64) ([]redis.XPendingExt, error) {
	return s.client.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: stream,
		Group:  group,
		Start:  "-",
		End:    "+",
		Count:  count,
	}).Result()
}

// Claim takes over pending jobs whose consumer has gone quiet
func (s *Streams) Claim(ctx context.Context, stream, group, consumer string, minIdle time.Duration, ids ...string) ([]StreamMessage, error) {
	results, err := s.client.rdb.XClaim(ctx, &redis.XClaimArgs{
		Stream:   stream,
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		return nil, err
	}

	var messages []StreamMessage
	for _, msg := range results {
		parsed, ok := s.parse(ctx, msg)
		if !ok {
			continue
		}
		parsed.Stream = stream
		messages = append(messages, parsed)
	}

	return messages, nil
}

// Len returns the length of a stream
func (s *Streams) Len(ctx context.Context, stream string) (int64, error) {
	return s.client.rdb.XLen(ctx, stream).Result()
}

// Trim trims a stream to approximately maxLen entries
func (s *Streams) Trim(ctx context.Context, stream string, maxLen int64) error {
	return s.client.rdb.XTrimMaxLenApprox(ctx, stream, maxLen, 0).Err()
}

func (s *Streams) parse(ctx context.Context, msg redis.XMessage) (StreamMessage, bool) {
	data, ok := msg.Values["data"].(string)
	if !ok {
		return StreamMessage{}, false
	}

	var job RecomputeJob
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		s.client.logger.WithContext(ctx).WithError(err).Warnf("Failed to unmarshal job %s", msg.ID)
		return StreamMessage{}, false
	}

	return StreamMessage{ID: msg.ID, Job: job}, true
}
