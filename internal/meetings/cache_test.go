package meetings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/postmeeting/backend/pkg/redis"
)

func TestCacheWithoutRedis(t *testing.T) {
	var rdb *redis.Client
	c := NewCache(rdb, nil, nil)

	ctx := context.Background()
	c.Invalidate(ctx)
	assert.Zero(t, c.BumpRefresh(ctx))
	assert.Zero(t, c.RefreshSeq(ctx))
}

func TestNilCacheSafe(t *testing.T) {
	var c *Cache
	ctx := context.Background()
	c.Invalidate(ctx)
	assert.Zero(t, c.BumpRefresh(ctx))
	assert.Zero(t, c.RefreshSeq(ctx))
}
