package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/twitterlite/internal/model"
)

// UserCache caches user snapshots in redis so follower / timeline pages can
// hydrate id lists without hitting the primary store for every row.
type UserCache struct {
	cache *redis.Client
	ttl   time.Duration
}

func NewUserCache(cache *redis.Client, ttl time.Duration) *UserCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &UserCache{cache: cache, ttl: ttl}
}

func userKey(id string) string { return fmt.Sprintf("user:%s", id) }

// GetByIDs returns users in the order of ids, loading cache misses through
// load and back-filling the cache. Ids that no longer resolve are skipped.
func (c *UserCache) GetByIDs(ctx context.Context, ids []string, load func(context.Context, []string) ([]*model.User, error)) ([]*model.User, error) {
	if len(ids) == 0 {
		return []*model.User{}, nil
	}
	if c == nil || c.cache == nil {
		return orderByIDs(ctx, ids, nil, load)
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = userKey(id)
	}
	cached := make(map[string]*model.User, len(ids))
	if vals, err := c.cache.MGet(ctx, keys...).Result(); err == nil {
		for i, v := range vals {
			str, ok := v.(string)
			if !ok {
				continue
			}
			var u model.User
			if uErr := json.Unmarshal([]byte(str), &u); uErr == nil {
				cached[ids[i]] = &u
			}
		}
	}
	return orderByIDs(ctx, ids, cached, func(ctx context.Context, missing []string) ([]*model.User, error) {
		users, err := load(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			if payload, mErr := json.Marshal(u); mErr == nil {
				_ = c.cache.Set(ctx, userKey(u.ID), payload, c.ttl).Err()
			}
		}
		return users, nil
	})
}

// Invalidate drops cached snapshots, called on user update / delete.
func (c *UserCache) Invalidate(ctx context.Context, ids ...string) {
	if c == nil || c.cache == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = userKey(id)
	}
	_ = c.cache.Del(ctx, keys...).Err()
}

func orderByIDs(ctx context.Context, ids []string, cached map[string]*model.User, load func(context.Context, []string) ([]*model.User, error)) ([]*model.User, error) {
	missing := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := cached[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		loaded, err := load(ctx, missing)
		if err != nil {
			return nil, err
		}
		if cached == nil {
			cached = make(map[string]*model.User, len(loaded))
		}
		for _, u := range loaded {
			cached[u.ID] = u
		}
	}
	result := make([]*model.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := cached[id]; ok {
			result = append(result, u)
		}
	}
	return result, nil
}
