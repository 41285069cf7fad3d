package meetings

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/postmeeting/backend/internal/models"
	"github.com/postmeeting/backend/pkg/redis"
)

const (
	indexCacheKey = "meetings:index"
	refreshSeqKey = "meetings:refresh_seq"
	indexCacheTTL = 5 * time.Minute
)

// Cache is a Redis read-through mirror of the meeting index plus the refresh
// counter bumped when a reconcile cycle changes meeting state. A nil Cache is
// valid and falls through to the database.
type Cache struct {
	rdb    *redis.Client
	repo   *Repository
	logger *zap.Logger
}

// NewCache creates the meeting index cache.
func NewCache(rdb *redis.Client, repo *Repository, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{rdb: rdb, repo: repo, logger: logger}
}

// Index returns the meeting index, served from Redis when warm. Cache
// failures degrade to the database, never to an error.
func (c *Cache) Index(ctx context.Context) ([]models.MeetingIndexEntry, error) {
	if c != nil && c.rdb != nil {
		raw, err := c.rdb.Get(ctx, indexCacheKey).Result()
		if err == nil {
			var entries []models.MeetingIndexEntry
			if json.Unmarshal([]byte(raw), &entries) == nil {
				return entries, nil
			}
		} else if err != goredis.Nil {
			c.logger.Warn("index cache read failed", zap.Error(err))
		}
	}

	entries, err := c.repo.Index(ctx)
	if err != nil {
		return nil, err
	}
	if c != nil && c.rdb != nil {
		if raw, err := json.Marshal(entries); err == nil {
			if err := c.rdb.Set(ctx, indexCacheKey, raw, indexCacheTTL).Err(); err != nil {
				c.logger.Warn("index cache write failed", zap.Error(err))
			}
		}
	}
	return entries, nil
}

// Invalidate drops the cached index after a write.
func (c *Cache) Invalidate(ctx context.Context) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, indexCacheKey).Err(); err != nil {
		c.logger.Warn("index cache invalidate failed", zap.Error(err))
	}
}

// BumpRefresh increments and returns the refresh counter. Returns 0 when no
// Redis is configured; callers treat any value as opaque.
func (c *Cache) BumpRefresh(ctx context.Context) int64 {
	if c == nil || c.rdb == nil {
		return 0
	}
	seq, err := c.rdb.Incr(ctx, refreshSeqKey).Result()
	if err != nil {
		c.logger.Warn("refresh counter bump failed", zap.Error(err))
		return 0
	}
	return seq
}

// RefreshSeq reads the current refresh counter.
func (c *Cache) RefreshSeq(ctx context.Context) int64 {
	if c == nil || c.rdb == nil {
		return 0
	}
	seq, err := c.rdb.Get(ctx, refreshSeqKey).Int64()
	if err != nil {
		return 0
	}
	return seq
}
