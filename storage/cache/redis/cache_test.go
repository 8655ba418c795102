package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codetrail/codetrail/core"
	"github.com/codetrail/codetrail/core/role"
)

func setup(t *testing.T) (*miniredis.Miniredis, *Cache) {
	srv := miniredis.RunT(t)
	client, err := Open(context.Background(), core.RedisConfig{Address: srv.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return srv, New(client, "codetrail:role:", time.Hour)
}

func TestCache(t *testing.T) {
	ctx := context.Background()
	srv, c := setup(t)

	_, found, err := c.Get(ctx, "awe@test.cd")
	assert.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, c.Set(ctx, "awe@test.cd", role.Admin))
	val, err := srv.Get("codetrail:role:awe@test.cd")
	assert.NoError(t, err)
	assert.Equal(t, "admin", val)
	assert.Equal(t, time.Hour, srv.TTL("codetrail:role:awe@test.cd"))

	r, found, err := c.Get(ctx, "awe@test.cd")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, role.Admin, r)

	assert.NoError(t, c.Delete(ctx, "awe@test.cd"))
	assert.False(t, srv.Exists("codetrail:role:awe@test.cd"))
}

func TestCache_Expiry(t *testing.T) {
	ctx := context.Background()
	srv, c := setup(t)

	assert.NoError(t, c.Set(ctx, "awe@test.cd", role.Teacher))
	srv.FastForward(2 * time.Hour)
	_, found, err := c.Get(ctx, "awe@test.cd")
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestCache_ForeignValueIsMiss(t *testing.T) {
	ctx := context.Background()
	srv, c := setup(t)

	require.NoError(t, srv.Set("codetrail:role:awe@test.cd", "janitor"))
	_, found, err := c.Get(ctx, "awe@test.cd")
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestCache_Purge(t *testing.T) {
	ctx := context.Background()
	srv, c := setup(t)

	for i, email := range []string{"a@test.cd", "b@test.cd", "c@test.cd"} {
		assert.NoError(t, c.Set(ctx, email, role.All()[i]))
	}
	require.NoError(t, srv.Set("session:xyz", "keep me"))

	assert.NoError(t, c.Purge(ctx))
	assert.Equal(t, []string{"session:xyz"}, srv.Keys())
}

func TestOpen_Unreachable(t *testing.T) {
	_, err := Open(context.Background(), core.RedisConfig{Address: "127.0.0.1:1"})
	assert.Error(t, err)
}

