// Package cache is a read-through Redis cache for single records fetched by
// id. Every mutation path drops the affected keys; a nil client disables
// caching entirely so the service layer works without Redis.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"taskboard/internal/models"
	"taskboard/pkg/logger"
)

const recordTTL = time.Hour

type Cache struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

func (c *Cache) enabled() bool {
	return c != nil && c.rdb != nil
}

func (c *Cache) get(ctx context.Context, key string, out interface{}) bool {
	if !c.enabled() {
		return false
	}
	raw, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(raw), out) == nil
}

func (c *Cache) set(ctx context.Context, key string, v interface{}) {
	if !c.enabled() {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, recordTTL).Err(); err != nil {
		logger.ErrorLogger.Error("Error caching record", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) drop(ctx context.Context, keys ...string) {
	if !c.enabled() || len(keys) == 0 {
		return
	}
	c.rdb.Del(ctx, keys...)
}

func (c *Cache) GetTask(ctx context.Context, id string) (*models.Task, bool) {
	var t models.Task
	if c.get(ctx, "task:"+id, &t) {
		return &t, true
	}
	return nil, false
}

func (c *Cache) SetTask(ctx context.Context, t *models.Task) {
	c.set(ctx, "task:"+t.ID, t)
}

func (c *Cache) DropTasks(ctx context.Context, ids ...string) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = "task:" + id
	}
	c.drop(ctx, keys...)
}

func (c *Cache) GetUser(ctx context.Context, id string) (*models.User, bool) {
	var u models.User
	if c.get(ctx, "user:"+id, &u) {
		return &u, true
	}
	return nil, false
}

func (c *Cache) SetUser(ctx context.Context, u *models.User) {
	c.set(ctx, "user:"+u.ID, u)
}

func (c *Cache) DropUsers(ctx context.Context, ids ...string) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = "user:" + id
	}
	c.drop(ctx, keys...)
}
