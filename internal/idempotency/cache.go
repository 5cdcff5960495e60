// Package idempotency stores the responses of mutating requests so that a request
// repeated with the same Idempotency-Key is answered without being executed twice.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "idempotency:"

	// DefaultTTL is used when a cache is created without a positive ttl.
	DefaultTTL = 24 * time.Hour
	// pendingTTL bounds how long an unfinished request holds its key.
	pendingTTL = 30 * time.Second
)

// Cache errors.
var (
	ErrEmptyKey = errors.New("idempotency key is empty")
)

// Response is a stored HTTP response. A zero Status marks a request that is still running.
type Response struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// Pending reports whether the response belongs to a request that has not finished yet.
func (r Response) Pending() bool {
	return r.Status == 0
}

// RedisCache keeps responses in redis under a common key prefix.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisCache returns a RedisCache expiring completed responses after ttl.
func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &RedisCache{client: client, ttl: ttl}
}

// Get returns the stored response for key. The bool is false when nothing is stored.
func (c *RedisCache) Get(ctx context.Context, key string) (Response, bool, error) {
	if key == "" {
		return Response{}, false, ErrEmptyKey
	}

	raw, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Response{}, false, nil
	}

	if err != nil {
		return Response{}, false, fmt.Errorf("redis get: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, false, fmt.Errorf("decode cached response: %w", err)
	}

	return resp, true, nil
}

// Reserve marks key as in progress. It returns false when the key is already taken.
func (c *RedisCache) Reserve(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}

	raw, err := json.Marshal(Response{})
	if err != nil {
		return false, err
	}

	ok, err := c.client.SetNX(ctx, keyPrefix+key, raw, pendingTTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}

	return ok, nil
}

// Complete stores the final response for key.
func (c *RedisCache) Complete(ctx context.Context, key string, resp Response) error {
	if key == "" {
		return ErrEmptyKey
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, keyPrefix+key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Release drops key so the request can be retried.
func (c *RedisCache) Release(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	if err := c.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}
