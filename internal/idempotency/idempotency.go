// Package idempotency deduplicates retried create requests by a
// client-supplied key stored in Redis.  A nil client disables it.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const pending = "pending"

// Backend is the subset of *redis.Client the store needs.
type Backend interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Result is the response replayed for a repeated key.
type Result struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

type Store struct {
	rdb    Backend
	ttl    time.Duration
	prefix string
}

// New returns a Store.  Pass a nil backend to disable deduplication.
func New(rdb Backend, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{rdb: rdb, ttl: ttl, prefix: "idem"}
}

// Enabled reports whether a backend is configured.
func (s *Store) Enabled() bool { return s != nil && s.rdb != nil }

// ErrInFlight is returned when another request with the same key has not
// finished yet.
var ErrInFlight = errors.New("request with this idempotency key is in progress")

// Begin claims key.  It returns a previous Result when the key already
// completed, ErrInFlight when it is still running, and (nil, nil) when the
// caller now owns the key and must call Complete or Abort.
func (s *Store) Begin(ctx context.Context, key string) (*Result, error) {
	k := s.prefix + ":" + key
	ok, err := s.rdb.SetNX(ctx, k, pending, s.ttl).Result()
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, nil
	}
	val, err := s.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between the two calls; treat as fresh.
		return s.Begin(ctx, key)
	}
	if err != nil {
		return nil, err
	}
	if val == pending {
		return nil, ErrInFlight
	}
	var res Result
	if err := json.Unmarshal([]byte(val), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Complete stores the response for key, keeping its TTL.
func (s *Store) Complete(ctx context.Context, key string, res Result) error {
	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.prefix+":"+key, b, redis.KeepTTL).Err()
}

// Abort releases key so the request can be retried.
func (s *Store) Abort(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.prefix+":"+key).Err()
}
