package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DedupRepository tracks processed channel message ids so webhook replays
// terminate silently. Backed by Redis SETNX with a TTL.
type DedupRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDedupRepository constructs the repository.
func NewDedupRepository(client *redis.Client, ttl time.Duration) *DedupRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DedupRepository{client: client, ttl: ttl}
}

// MarkSeen records the message id and reports whether this is its first
// appearance. Without a Redis client every message counts as first-seen.
func (r *DedupRepository) MarkSeen(ctx context.Context, channelMessageID string) (bool, error) {
	if r.client == nil {
		return true, nil
	}
	key := fmt.Sprintf("wa:msg:%s", channelMessageID)
	first, err := r.client.SetNX(ctx, key, 1, r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check %s: %w", channelMessageID, err)
	}
	return first, nil
}
