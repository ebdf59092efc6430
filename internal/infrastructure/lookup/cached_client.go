package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const cacheKeyPrefix = "lookup:"

// CachedClient is a pass-through cache over a Fetcher.
// Only positive results are cached; a broken cache degrades to live fetches.
type CachedClient struct {
	fetcher     Fetcher
	redisClient *redis.Client
	ttl         time.Duration
	log         *logrus.Logger
	group       singleflight.Group
}

func NewCachedClient(fetcher Fetcher, redisClient *redis.Client, ttl time.Duration, log *logrus.Logger) *CachedClient {
	return &CachedClient{
		fetcher:     fetcher,
		redisClient: redisClient,
		ttl:         ttl,
		log:         log,
	}
}

func (c *CachedClient) Fetch(ctx context.Context, kind Kind, id uuid.UUID, authToken string) (*Summary, error) {
	key := cacheKey(kind, id)

	if summary, ok := c.readCache(ctx, key); ok {
		return summary, nil
	}

	// Concurrent misses on one key share a single live fetch. The shared call
	// must not die with whichever caller happened to start it, but each caller
	// stops waiting as soon as its own context is done.
	ch := c.group.DoChan(key, func() (interface{}, error) {
		summary, err := c.fetcher.Fetch(context.WithoutCancel(ctx), kind, id, authToken)
		if err != nil {
			return nil, err
		}
		c.writeCache(context.WithoutCancel(ctx), key, summary)
		return summary, nil
	})

	select {
	case <-ctx.Done():
		c.log.Warnf("Gave up waiting for %s %s: %+v", kind, id, ctx.Err())
		return nil, ErrEntityUnavailable
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		summary := *res.Val.(*Summary)
		return &summary, nil
	}
}

// Invalidate drops the cached summary, for callers that just changed the entity.
func (c *CachedClient) Invalidate(ctx context.Context, kind Kind, id uuid.UUID) error {
	key := cacheKey(kind, id)
	c.group.Forget(key)
	if err := c.redisClient.Del(ctx, key).Err(); err != nil {
		c.log.Warnf("Failed to invalidate lookup cache %s: %+v", key, err)
		return fmt.Errorf("invalidate %s: %w", key, err)
	}
	return nil
}

func (c *CachedClient) readCache(ctx context.Context, key string) (*Summary, bool) {
	raw, err := c.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warnf("Lookup cache read %s failed, fetching live: %+v", key, err)
		}
		return nil, false
	}

	var summary Summary
	if err := json.Unmarshal(raw, &summary); err != nil {
		c.log.Warnf("Discarding corrupt lookup cache entry %s: %+v", key, err)
		return nil, false
	}
	return &summary, true
}

func (c *CachedClient) writeCache(ctx context.Context, key string, summary *Summary) {
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := c.redisClient.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warnf("Lookup cache write %s failed: %+v", key, err)
	}
}

func cacheKey(kind Kind, id uuid.UUID) string {
	return fmt.Sprintf("%s%s:%s", cacheKeyPrefix, kind, id)
}
