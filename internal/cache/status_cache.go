package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Entry is the cached projection served to polling clients.
type Entry struct {
	Status string `json:"status"`
	Amount int64  `json:"amount"`
}

// StatusCache keeps terminal redemption statuses in Redis so the
// polling endpoint can answer without a store read. Pending records are
// never cached; they are the ones still changing.
type StatusCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewStatusCache(c *redis.Client, ttl time.Duration) *StatusCache {
	return &StatusCache{Client: c, TTL: ttl}
}

func key(requestID string) string { return "redemption:status:" + requestID }

func (c *StatusCache) Get(ctx context.Context, requestID string) (Entry, bool) {
	val, err := c.Client.Get(ctx, key(requestID)).Bytes()
	if err != nil {
		return Entry{}, false
	}
	var e Entry
	if err := json.Unmarshal(val, &e); err != nil {
		return Entry{}, false
	}
	return e, true
}

func (c *StatusCache) Set(ctx context.Context, requestID string, e Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, key(requestID), b, c.TTL).Err()
}
