package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"fieldcore/store"
)

const keyPrefix = "fieldcore:eq:"

// RedisCache mirrors ledger rows keyed by display serial. It is strictly a
// read accelerator; SQL stays authoritative.
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func itemKey(displayID string) string { return keyPrefix + "item:" + displayID }

func (c *RedisCache) GetItem(ctx context.Context, displayID string) (*store.Equipment, error) {
	data, err := c.rdb.Get(ctx, itemKey(displayID)).Bytes()
	if err != nil {
		return nil, err
	}
	var e store.Equipment
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *RedisCache) SetItem(ctx context.Context, e *store.Equipment) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	pipe := c.rdb.Pipeline()
	pipe.Set(ctx, itemKey(e.DisplayID), data, 0)
	pipe.SAdd(ctx, keyPrefix+"serials", e.DisplayID)
	_, err = pipe.Exec(ctx)
	return err
}

func (c *RedisCache) DelItem(ctx context.Context, displayID string) error {
	pipe := c.rdb.Pipeline()
	pipe.Del(ctx, itemKey(displayID))
	pipe.SRem(ctx, keyPrefix+"serials", displayID)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *RedisCache) AllSerials(ctx context.Context) ([]string, error) {
	return c.rdb.SMembers(ctx, keyPrefix+"serials").Result()
}

// FlushAll removes every cached ledger key. Used before a startup resync.
func (c *RedisCache) FlushAll(ctx context.Context) error {
	serials, err := c.AllSerials(ctx)
	if err != nil {
		return fmt.Errorf("list cached serials: %w", err)
	}
	pipe := c.rdb.Pipeline()
	for _, s := range serials {
		pipe.Del(ctx, itemKey(s))
	}
	pipe.Del(ctx, keyPrefix+"serials")
	_, err = pipe.Exec(ctx)
	return err
}
