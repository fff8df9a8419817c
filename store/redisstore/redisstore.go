// Package redisstore implements store.ContextStore on Redis, one key per
// trace id, following the key/TTL conventions of the teacher's
// orchestration/redis_execution_store.go (redis.ParseURL + redis.NewClient,
// JSON-encoded values, Set/Get keyed by id).
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/meridianai/taskforge/store"
)

const defaultKeyPrefix = "taskforge:context:"

// Store persists Records as JSON under "<prefix><trace_id>".
type Store struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithKeyPrefix overrides the default "taskforge:context:" prefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.keyPrefix = prefix }
}

// WithTTL sets an expiration on saved records. Zero (the default) means no
// expiration.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// New connects to redisURL (a "redis://" connection string, as
// redis.ParseURL accepts) and returns a Store.
func New(redisURL string, opts ...Option) (*Store, error) {
	redisOpt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redisstore: parse redis url: %w", err)
	}
	s := &Store{client: redis.NewClient(redisOpt), keyPrefix: defaultKeyPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) key(traceID string) string {
	return s.keyPrefix + traceID
}

// Save JSON-encodes rec and writes it under the trace id's key.
func (s *Store) Save(ctx context.Context, rec *store.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redisstore: marshal record: %w", err)
	}
	if err := s.client.Set(ctx, s.key(rec.TraceID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redisstore: set: %w", err)
	}
	return nil
}

// Load reads and decodes the record for traceID; a missing key is
// (nil, false, nil).
func (s *Store) Load(ctx context.Context, traceID string) (*store.Record, bool, error) {
	data, err := s.client.Get(ctx, s.key(traceID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redisstore: get: %w", err)
	}
	var rec store.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("redisstore: unmarshal record: %w", err)
	}
	return &rec, true, nil
}
