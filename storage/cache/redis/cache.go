// Package rediscache shares resolved roles between CodeTrail instances.
package rediscache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/codetrail/codetrail/core"
	"github.com/codetrail/codetrail/core/resolver"
	"github.com/codetrail/codetrail/core/role"
)

type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ resolver.Cache = (*Cache)(nil)

// Open connects to the configured redis and pings it.
func Open(ctx context.Context, conf core.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Address,
		Password: conf.Password,
		DB:       conf.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

func New(client *redis.Client, prefix string, ttl time.Duration) *Cache {
	return &Cache{client: client, prefix: prefix, ttl: ttl}
}

func (c *Cache) key(email string) string {
	return c.prefix + email
}

func (c *Cache) Get(ctx context.Context, email string) (role.Role, bool, error) {
	val, err := c.client.Get(ctx, c.key(email)).Result()
	if err == redis.Nil {
		return role.None, false, nil
	}
	if err != nil {
		return role.None, false, errors.Wrap(err, "getting role")
	}

	r, err := role.Parse(val)
	if err != nil {
		// written by someone else; treat as a miss so it gets refetched
		return role.None, false, nil
	}
	return r, true, nil
}

func (c *Cache) Set(ctx context.Context, email string, r role.Role) error {
	return errors.Wrap(c.client.Set(ctx, c.key(email), r.String(), c.ttl).Err(), "setting role")
}

func (c *Cache) Delete(ctx context.Context, email string) error {
	return errors.Wrap(c.client.Del(ctx, c.key(email)).Err(), "deleting role")
}

// Purge removes every key under the cache prefix.
func (c *Cache) Purge(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	keys := make([]string, 0, 100)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == cap(keys) {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return errors.Wrap(err, "purging roles")
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return errors.Wrap(err, "scanning roles")
	}
	if len(keys) > 0 {
		return errors.Wrap(c.client.Del(ctx, keys...).Err(), "purging roles")
	}
	return nil
}
