package inmemcache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codetrail/codetrail/core/role"
)

func TestCache(t *testing.T) {
	ctx := context.Background()
	c := New()

	_, found, err := c.Get(ctx, "awe@test.cd")
	assert.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, c.Set(ctx, "awe@test.cd", role.Teacher))
	assert.NoError(t, c.Set(ctx, "king@test.cd", role.Student))
	r, found, err := c.Get(ctx, "awe@test.cd")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, role.Teacher, r)
	assert.Equal(t, 2, c.Len())

	assert.NoError(t, c.Delete(ctx, "awe@test.cd"))
	_, found, _ = c.Get(ctx, "awe@test.cd")
	assert.False(t, found)

	assert.NoError(t, c.Purge(ctx))
	assert.Equal(t, 0, c.Len())
}
