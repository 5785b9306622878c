package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ProgressEvent is one message published to a job's progress channel.
type ProgressEvent struct {
	Stage string `json:"stage"`
	Index int    `json:"index"`
	Total int    `json:"total"`
}

// ProgressChannel returns the Redis pub/sub channel name for jobID.
func ProgressChannel(jobID string) string {
	return fmt.Sprintf("snest:progress:%s", jobID)
}

// RedisProgressPublisher publishes ProgressEvents for a job so any
// number of API replicas can stream them to subscribers without
// holding the originating request open.
type RedisProgressPublisher struct {
	client *redis.Client
}

// NewRedisProgressPublisher wraps an already-connected redis.Client.
func NewRedisProgressPublisher(client *redis.Client) *RedisProgressPublisher {
	return &RedisProgressPublisher{client: client}
}

// Publish sends one progress event for jobID. Publish errors are
// logged by the caller, never fatal: a dropped progress update must
// never abort an in-flight nesting run.
func (p *RedisProgressPublisher) Publish(ctx context.Context, jobID string, event ProgressEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("api: marshaling progress event: %w", err)
	}
	if err := p.client.Publish(ctx, ProgressChannel(jobID), payload).Err(); err != nil {
		return fmt.Errorf("api: publishing progress for job %s: %w", jobID, err)
	}
	return nil
}
