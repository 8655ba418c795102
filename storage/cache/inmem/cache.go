// Package inmemcache keeps resolved roles in a process map.
package inmemcache

import (
	"context"
	"sync"

	"github.com/codetrail/codetrail/core/resolver"
	"github.com/codetrail/codetrail/core/role"
)

type Cache struct {
	mutex sync.RWMutex
	t     map[string]role.Role
}

var _ resolver.Cache = (*Cache)(nil)

func New() *Cache {
	return &Cache{t: make(map[string]role.Role)}
}

func (c *Cache) Get(_ context.Context, email string) (role.Role, bool, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	r, ok := c.t[email]
	return r, ok, nil
}

func (c *Cache) Set(_ context.Context, email string, r role.Role) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.t[email] = r
	return nil
}

func (c *Cache) Delete(_ context.Context, email string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.t, email)
	return nil
}

func (c *Cache) Purge(_ context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.t = make(map[string]role.Role)
	return nil
}

// Len is the number of cached roles.
func (c *Cache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.t)
}
