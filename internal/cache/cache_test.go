package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), zerolog.Nop())
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestClient_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t)

	assert.Nil(t, c.Get(ctx, "missing"))

	c.Set(ctx, "k", []byte("v"), time.Minute)
	assert.Equal(t, []byte("v"), c.Get(ctx, "k"))

	mr.FastForward(2 * time.Minute)
	assert.Nil(t, c.Get(ctx, "k"), "entry expires after its ttl")

	c.Set(ctx, "a", []byte("1"), time.Minute)
	c.Set(ctx, "b", []byte("2"), time.Minute)
	c.Delete(ctx, "a", "b")
	assert.Nil(t, c.Get(ctx, "a"))
	assert.Nil(t, c.Get(ctx, "b"))
}

func TestClient_JSON(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t)

	type entry struct {
		Email string `json:"email"`
	}
	require.True(t, c.SetJSONIfVersion(ctx, "user", c.Version(ctx, "user"), entry{Email: "alice@example.com"}, time.Minute))

	var got entry
	require.True(t, c.GetJSON(ctx, "user", &got))
	assert.Equal(t, "alice@example.com", got.Email)

	require.NoError(t, mr.Set("broken", "{not json"))
	assert.False(t, c.GetJSON(ctx, "broken", &got))
	assert.False(t, mr.Exists("broken"), "undecodable entries are evicted")
}

func TestClient_InvalidateDropsStaleWrites(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t)

	tests := []struct {
		name       string
		invalidate bool
		wantStored bool
	}{
		{name: "no invalidation in between", wantStored: true},
		{name: "invalidated while loading", invalidate: true, wantStored: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "user:" + tt.name
			version := c.Version(ctx, key)
			if tt.invalidate {
				c.Invalidate(ctx, key)
			}
			stored := c.SetJSONIfVersion(ctx, key, version, map[string]string{"email": "alice@example.com"}, time.Minute)
			assert.Equal(t, tt.wantStored, stored)
			assert.Equal(t, tt.wantStored, mr.Exists(key))
		})
	}

	key := "user:fresh"
	require.True(t, c.SetJSONIfVersion(ctx, key, c.Version(ctx, key), "v1", time.Minute))
	c.Invalidate(ctx, key)
	assert.False(t, mr.Exists(key), "invalidate removes the entry")
	assert.EqualValues(t, 1, c.Version(ctx, key))
	assert.True(t, c.SetJSONIfVersion(ctx, key, c.Version(ctx, key), "v2", time.Minute), "a load after the bump is cached")
}

func TestClient_FailsSafe(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t)
	mr.Close()

	assert.Nil(t, c.Get(ctx, "k"))
	c.Set(ctx, "k", []byte("v"), time.Minute)
	c.Delete(ctx, "k")
	c.Invalidate(ctx, "k")
	assert.Negative(t, c.Version(ctx, "k"))
	assert.False(t, c.SetJSONIfVersion(ctx, "k", 0, "v", time.Minute))
	assert.Error(t, c.Ping(ctx))

	var nilClient *Client
	assert.Nil(t, nilClient.Get(ctx, "k"))
	assert.False(t, nilClient.GetJSON(ctx, "k", &struct{}{}))
	assert.False(t, nilClient.SetJSONIfVersion(ctx, "k", 0, "v", time.Minute))
	assert.NoError(t, nilClient.Ping(ctx))
}
