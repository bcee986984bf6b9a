package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_ContainsAfterAdd(t *testing.T) {
	c := NewLRU(10, time.Hour)
	ctx := context.Background()

	hit, err := c.Contains(ctx, "text:a")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Add(ctx, "text:a", "file:b"))

	for _, k := range []string{"text:a", "file:b"} {
		hit, err := c.Contains(ctx, k)
		require.NoError(t, err)
		assert.True(t, hit, k)
	}
}

func TestLRU_EvictsBeyondSize(t *testing.T) {
	c := NewLRU(3, time.Hour)
	ctx := context.Background()

	for i := range 5 {
		require.NoError(t, c.Add(ctx, fmt.Sprintf("text:%d", i)))
	}

	assert.Equal(t, 3, c.Len())
	hit, _ := c.Contains(ctx, "text:0")
	assert.False(t, hit)
	hit, _ = c.Contains(ctx, "text:4")
	assert.True(t, hit)
}

func TestLRU_Expires(t *testing.T) {
	c := NewLRU(10, 20*time.Millisecond)
	ctx := context.Background()
	require.NoError(t, c.Add(ctx, "text:a"))

	assert.Eventually(t, func() bool {
		hit, _ := c.Contains(ctx, "text:a")
		return !hit
	}, time.Second, 10*time.Millisecond)
}
