package redisstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/account"
	"github.com/trezcool/academia/core/session"
)

// requires a redis server: TEST_REDIS_ADDRESS=localhost:6379
func TestStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDRESS")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDRESS not set")
	}

	ctx := context.Background()
	client := NewClient(&core.Config{Redis: core.RedisConfig{Address: addr}})
	defer func() { _ = client.Close() }()
	s := NewStore(client)

	sess := session.New(account.Account{ID: 1, Role: account.RoleStudent}, time.Minute)
	require.NoError(t, s.Save(ctx, sess))

	got, err := s.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.AccountID, got.AccountID)
	assert.Equal(t, sess.Role, got.Role)
	assert.True(t, sess.ExpiresAt.Equal(got.ExpiresAt))

	ttl, err := client.TTL(ctx, key(sess.ID)).Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0 && ttl <= time.Minute, "ttl = %v", ttl)

	require.NoError(t, s.Delete(ctx, sess.ID))
	_, err = s.Get(ctx, sess.ID)
	assert.Equal(t, session.ErrNotFound, err)
}
