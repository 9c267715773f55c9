package auth_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/erp/mason/internal/infrastructure/auth"
	"github.com/erp/mason/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryTokenBlacklist_AddToBlacklist(t *testing.T) {
	blacklist := auth.NewInMemoryTokenBlacklist()
	ctx := context.Background()

	require.NoError(t, blacklist.AddToBlacklist(ctx, "jti-1", time.Hour))

	revoked, err := blacklist.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = blacklist.IsBlacklisted(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestInMemoryTokenBlacklist_NonPositiveTTLIsIgnored(t *testing.T) {
	blacklist := auth.NewInMemoryTokenBlacklist()
	ctx := context.Background()

	require.NoError(t, blacklist.AddToBlacklist(ctx, "expired", 0))

	revoked, err := blacklist.IsBlacklisted(ctx, "expired")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestInMemoryTokenBlacklist_ExpirationCleanup(t *testing.T) {
	blacklist := auth.NewInMemoryTokenBlacklist()
	ctx := context.Background()

	require.NoError(t, blacklist.AddToBlacklist(ctx, "short", time.Millisecond))
	time.Sleep(10 * time.Millisecond)

	revoked, err := blacklist.IsBlacklisted(ctx, "short")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestInMemoryTokenBlacklist_UserTokenInvalidation(t *testing.T) {
	blacklist := auth.NewInMemoryTokenBlacklist()
	ctx := context.Background()
	issued := time.Now().Add(-time.Hour)

	invalidated, err := blacklist.IsUserTokenInvalidated(ctx, "user-1", issued)
	require.NoError(t, err)
	assert.False(t, invalidated)

	require.NoError(t, blacklist.AddUserTokensToBlacklist(ctx, "user-1", time.Hour))

	invalidated, err = blacklist.IsUserTokenInvalidated(ctx, "user-1", issued)
	require.NoError(t, err)
	assert.True(t, invalidated)

	invalidated, err = blacklist.IsUserTokenInvalidated(ctx, "user-1", time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.False(t, invalidated)

	invalidated, err = blacklist.IsUserTokenInvalidated(ctx, "user-2", issued)
	require.NoError(t, err)
	assert.False(t, invalidated)
}

func TestInMemoryTokenBlacklist_Concurrent(t *testing.T) {
	blacklist := auth.NewInMemoryTokenBlacklist()
	ctx := context.Background()

	done := make(chan struct{})
	for i := 0; i < 20; i++ {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			jti := fmt.Sprintf("jti-%d", i)
			_ = blacklist.AddToBlacklist(ctx, jti, time.Hour)
			_, _ = blacklist.IsBlacklisted(ctx, jti)
		}(i)
	}
	for i := 0; i < 20; i++ {
		<-done
	}

	for i := 0; i < 20; i++ {
		revoked, err := blacklist.IsBlacklisted(ctx, fmt.Sprintf("jti-%d", i))
		require.NoError(t, err)
		assert.True(t, revoked)
	}
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := auth.NewRedisClient(ctx, config.RedisConfig{Host: "127.0.0.1", Port: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}
