package authz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	cacheVersionKey = "authz:version"
	bumpChannel     = "authz.bump"
)

// Cache wraps Redis based caching of effective permission sets with
// versioning controls. A nil cache degrades to loading straight from
// storage, so callers never branch on availability.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := c.client.Set(ctx, cacheVersionKey, ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

// effectiveKey composes the per-user cache key with the current version.
// Bumping the version orphans every old key at once, so grants become
// visible without enumerating users.
func (c *Cache) effectiveKey(ctx context.Context, userID int64) (string, error) {
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("authz:effective:%d:%d", userID, ver), nil
}

// FetchEffective loads a cached effective permission set or populates it
// using the loader. Concurrent misses for the same user collapse into a
// single storage read.
func (c *Cache) FetchEffective(ctx context.Context, userID int64, loader func(context.Context) ([]string, error)) ([]string, error) {
	if loader == nil {
		return nil, errors.New("authz: cache loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	key, err := c.effectiveKey(ctx, userID)
	if err != nil {
		return nil, err
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var set []string
		if err := json.Unmarshal(payload, &set); err != nil {
			return nil, err
		}
		return set, nil
	}
	if err != redis.Nil {
		return nil, err
	}
	resultChan := c.group.DoChan(key, func() (interface{}, error) {
		set, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(set)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			return nil, err
		}
		return set, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]string), nil
	}
}

// Bump invalidates cached sets by incrementing the global version and
// publishing an event.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	ver, err := c.client.Incr(ctx, cacheVersionKey).Result()
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, bumpChannel, strconv.FormatInt(ver, 10)).Err()
}

// ListenForInvalidation subscribes to version bump notifications so
// instances sharing the Redis converge on the latest version.
func (c *Cache) ListenForInvalidation(ctx context.Context, channel string) error {
	if c == nil || c.client == nil {
		return nil
	}
	if channel == "" {
		channel = bumpChannel
	}
	pubsub := c.client.Subscribe(ctx, channel)
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if msg.Payload != "" {
					if ver, err := strconv.ParseInt(msg.Payload, 10, 64); err == nil {
						_ = c.client.Set(ctx, cacheVersionKey, ver, 0).Err()
						continue
					}
				}
				_ = c.client.Incr(ctx, cacheVersionKey).Err()
			}
		}
	}()
	return nil
}
