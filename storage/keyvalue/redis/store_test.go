package rediskv

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tripsync/core"
)

// TestStore needs a Redis server at TEST_REDIS_ADDR.
func TestStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, core.SessionConfig{RedisAddr: addr})
	require.NoError(t, err)
	defer s.Close()

	assert.NoError(t, s.Set(ctx, "token", "abc"))
	assert.NoError(t, s.Set(ctx, "role", "driver"))
	v, err := s.Get(ctx, "token")
	assert.NoError(t, err)
	assert.Equal(t, "abc", v)

	assert.NoError(t, s.Delete(ctx, "token", "role", "missing"))
	_, err = s.Get(ctx, "role")
	assert.Equal(t, core.ErrKeyNotFound, err)
}

func TestOpen_Unreachable(t *testing.T) {
	_, err := Open(context.Background(), core.SessionConfig{RedisAddr: "127.0.0.1:1"})
	assert.Error(t, err)
}
