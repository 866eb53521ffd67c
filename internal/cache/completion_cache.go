package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CompletionCache tracks rater submission progress per assessment subject so
// callers can decide when an assessment crosses the aggregation threshold.
type CompletionCache interface {
	SetAssigned(ctx context.Context, assessmentID, subjectID string, count int) error
	IncrSubmitted(ctx context.Context, assessmentID, subjectID string) (int64, error)
	Completion(ctx context.Context, assessmentID, subjectID string) (float64, error)
}

type completionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCompletionCache creates a new completion cache
func NewCompletionCache(client *redis.Client) CompletionCache {
	return &completionCache{
		client: client,
		ttl:    30 * 24 * time.Hour,
	}
}

func (c *completionCache) assignedKey(assessmentID, subjectID string) string {
	return fmt.Sprintf("assessment:%s:s:%s:assigned", assessmentID, subjectID)
}

func (c *completionCache) submittedKey(assessmentID, subjectID string) string {
	return fmt.Sprintf("assessment:%s:s:%s:submitted", assessmentID, subjectID)
}

func (c *completionCache) SetAssigned(ctx context.Context, assessmentID, subjectID string, count int) error {
	return c.client.Set(ctx, c.assignedKey(assessmentID, subjectID), count, c.ttl).Err()
}

func (c *completionCache) IncrSubmitted(ctx context.Context, assessmentID, subjectID string) (int64, error) {
	key := c.submittedKey(assessmentID, subjectID)
	n, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	// Keep the counter's lifetime aligned with the assigned count
	c.client.Expire(ctx, key, c.ttl)
	return n, nil
}

// Completion returns submitted/assigned, 0 when nothing is assigned yet
func (c *completionCache) Completion(ctx context.Context, assessmentID, subjectID string) (float64, error) {
	assigned, err := c.client.Get(ctx, c.assignedKey(assessmentID, subjectID)).Int64()
	if err == redis.Nil || assigned == 0 {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	submitted, err := c.client.Get(ctx, c.submittedKey(assessmentID, subjectID)).Int64()
	if err == redis.Nil {
		submitted = 0
	} else if err != nil {
		return 0, err
	}
	return float64(submitted) / float64(assigned), nil
}
