// Package redis provides Redis-based adapters for the docgate system.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/teei/docgate/internal/core"
	"github.com/teei/docgate/internal/domain/gate"
)

const defaultOutcomePrefix = "gate:outcome:"

// OutcomeStore is a Redis-backed durable outcome store. It lets request-key
// deduplication survive a process restart; entries expire with the
// idempotency window TTL.
type OutcomeStore struct {
	client redis.UniversalClient
	prefix string
}

var _ core.OutcomeStore = (*OutcomeStore)(nil)

// NewOutcomeStore creates a Redis-backed outcome store.
func NewOutcomeStore(client redis.UniversalClient) *OutcomeStore {
	return &OutcomeStore{
		client: client,
		prefix: defaultOutcomePrefix,
	}
}

// NewOutcomeStoreWithPrefix creates an outcome store with a custom key prefix.
func NewOutcomeStoreWithPrefix(client redis.UniversalClient, prefix string) *OutcomeStore {
	return &OutcomeStore{
		client: client,
		prefix: prefix,
	}
}

// Save stores the outcome under its request key for the given TTL.
func (s *OutcomeStore) Save(ctx context.Context, params core.SaveOutcomeParams) error {
	if params.Key == "" {
		return errors.New("request key cannot be empty")
	}
	if params.Outcome == nil {
		return errors.New("outcome cannot be nil")
	}
	if params.TTL <= 0 {
		params.TTL = 5 * time.Minute
	}

	data, err := json.Marshal(params.Outcome)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}

	return s.client.Set(ctx, s.prefix+params.Key, data, params.TTL).Err()
}

// Get returns the stored outcome for a request key, or
// core.ErrOutcomeNotFound when the key has no live entry.
func (s *OutcomeStore) Get(ctx context.Context, key string) (*gate.Outcome, error) {
	if key == "" {
		return nil, core.ErrOutcomeNotFound
	}

	data, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrOutcomeNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var outcome gate.Outcome
	if unmarshalErr := json.Unmarshal([]byte(data), &outcome); unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal outcome: %w", unmarshalErr)
	}
	return &outcome, nil
}

// Delete removes the stored outcome for a request key.
func (s *OutcomeStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return s.client.Del(ctx, s.prefix+key).Err()
}
