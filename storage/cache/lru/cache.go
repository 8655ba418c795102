// Package lrucache bounds the role cache to the most recently used emails.
package lrucache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/codetrail/codetrail/core/resolver"
	"github.com/codetrail/codetrail/core/role"
)

var NowFunc = time.Now // mockable

type entry struct {
	role    role.Role
	expires time.Time // zero: never
}

type Cache struct {
	ttl   time.Duration
	roles *lru.Cache[string, entry]
}

var _ resolver.Cache = (*Cache)(nil)

// New returns a cache holding at most size roles, each for ttl (0: no expiry).
func New(size int, ttl time.Duration) (*Cache, error) {
	roles, err := lru.New[string, entry](size)
	if err != nil {
		return nil, errors.Wrap(err, "creating lru cache")
	}
	return &Cache{ttl: ttl, roles: roles}, nil
}

func (c *Cache) Get(_ context.Context, email string) (role.Role, bool, error) {
	e, ok := c.roles.Get(email)
	if !ok {
		return role.None, false, nil
	}
	if !e.expires.IsZero() && NowFunc().After(e.expires) {
		c.roles.Remove(email)
		return role.None, false, nil
	}
	return e.role, true, nil
}

func (c *Cache) Set(_ context.Context, email string, r role.Role) error {
	e := entry{role: r}
	if c.ttl > 0 {
		e.expires = NowFunc().Add(c.ttl)
	}
	c.roles.Add(email, e)
	return nil
}

func (c *Cache) Delete(_ context.Context, email string) error {
	c.roles.Remove(email)
	return nil
}

func (c *Cache) Purge(_ context.Context) error {
	c.roles.Purge()
	return nil
}

func (c *Cache) Len() int { return c.roles.Len() }
