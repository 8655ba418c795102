package lrucache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codetrail/codetrail/core/role"
)

func TestCache_Evicts(t *testing.T) {
	ctx := context.Background()
	c, err := New(2, 0)
	require.NoError(t, err)

	assert.NoError(t, c.Set(ctx, "a@test.cd", role.Student))
	assert.NoError(t, c.Set(ctx, "b@test.cd", role.Teacher))
	_, _, _ = c.Get(ctx, "a@test.cd") // a is now the most recent
	assert.NoError(t, c.Set(ctx, "c@test.cd", role.Admin))

	_, found, _ := c.Get(ctx, "b@test.cd")
	assert.False(t, found)
	r, found, _ := c.Get(ctx, "a@test.cd")
	assert.True(t, found)
	assert.Equal(t, role.Student, r)
	assert.Equal(t, 2, c.Len())

	assert.NoError(t, c.Delete(ctx, "a@test.cd"))
	assert.Equal(t, 1, c.Len())
	assert.NoError(t, c.Purge(ctx))
	assert.Equal(t, 0, c.Len())
}

func TestCache_Expires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	NowFunc = func() time.Time { return now }
	defer func() { NowFunc = time.Now }()

	c, err := New(10, time.Minute)
	require.NoError(t, err)
	assert.NoError(t, c.Set(ctx, "a@test.cd", role.Admin))

	now = now.Add(59 * time.Second)
	_, found, _ := c.Get(ctx, "a@test.cd")
	assert.True(t, found)

	now = now.Add(2 * time.Second)
	_, found, _ = c.Get(ctx, "a@test.cd")
	assert.False(t, found)
	assert.Equal(t, 0, c.Len())
}

func TestNew_InvalidSize(t *testing.T) {
	_, err := New(0, 0)
	assert.Error(t, err)
}
