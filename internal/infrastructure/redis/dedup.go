package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupKeyPrefix = "webhook:seen"

// DedupStore remembers webhook event ids so that gateway retries of an
// already-delivered event are discarded instead of re-applied.
type DedupStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDedupStore(client *redis.Client, ttl time.Duration) *DedupStore {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &DedupStore{client: client, ttl: ttl}
}

// MarkSeen records the event id and reports whether it was seen before.
// The check-and-set is a single SETNX so concurrent deliveries of the
// same event cannot both pass.
func (s *DedupStore) MarkSeen(ctx context.Context, provider, eventID string) (bool, error) {
	key := fmt.Sprintf("%s:%s:%s", dedupKeyPrefix, provider, eventID)
	set, err := s.client.SetNX(ctx, key, 1, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup setnx: %w", err)
	}
	return !set, nil
}

// Forget removes an event id, letting a later delivery be processed again.
// Used when applying the event failed and the gateway should retry.
func (s *DedupStore) Forget(ctx context.Context, provider, eventID string) error {
	key := fmt.Sprintf("%s:%s:%s", dedupKeyPrefix, provider, eventID)
	return s.client.Del(ctx, key).Err()
}
