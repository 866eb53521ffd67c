package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ioccore/internal/model"
)

// ContentCache handles Redis operations for generator/validator results,
// keyed by a hash of the input content. Read-mostly with bounded TTL; never
// a source of truth for convergence state.
type ContentCache interface {
	GetGeneration(ctx context.Context, key string) (*model.Generation, error)
	SetGeneration(ctx context.Context, key string, gen *model.Generation) error
	GetValidation(ctx context.Context, key string) (*model.Validation, error)
	SetValidation(ctx context.Context, key string, val *model.Validation) error
}

// HashKey derives a stable cache key from input parts
func HashKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

type contentCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewContentCache creates a new content cache
func NewContentCache(client *redis.Client) ContentCache {
	return &contentCache{
		client: client,
		ttl:    6 * time.Hour,
	}
}

func (c *contentCache) genKey(key string) string {
	return fmt.Sprintf("loop:gen:%s", key)
}

func (c *contentCache) valKey(key string) string {
	return fmt.Sprintf("loop:val:%s", key)
}

func (c *contentCache) GetGeneration(ctx context.Context, key string) (*model.Generation, error) {
	data, err := c.client.Get(ctx, c.genKey(key)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var gen model.Generation
	if err := json.Unmarshal([]byte(data), &gen); err != nil {
		return nil, err
	}
	return &gen, nil
}

func (c *contentCache) SetGeneration(ctx context.Context, key string, gen *model.Generation) error {
	data, err := json.Marshal(gen)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.genKey(key), data, c.ttl).Err()
}

func (c *contentCache) GetValidation(ctx context.Context, key string) (*model.Validation, error) {
	data, err := c.client.Get(ctx, c.valKey(key)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var val model.Validation
	if err := json.Unmarshal([]byte(data), &val); err != nil {
		return nil, err
	}
	return &val, nil
}

func (c *contentCache) SetValidation(ctx context.Context, key string, val *model.Validation) error {
	data, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.valKey(key), data, c.ttl).Err()
}
