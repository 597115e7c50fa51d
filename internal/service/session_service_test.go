package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionEnv(t *testing.T) (*testEnv, SessionService, *miniredis.Miniredis) {
	t.Helper()
	env := newTestEnv(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return env, NewSessionService(env.users, rdb, "test-secret", time.Hour), mr
}

func TestLoginVerifyLogout(t *testing.T) {
	env, sessions, _ := newSessionEnv(t)
	ctx := context.Background()
	alice := env.mustCreateUser(t, "alice")

	token, u, err := sessions.Login(ctx, "alice", "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, u.ID)
	assert.NotEmpty(t, token)

	got, err := sessions.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got)

	require.NoError(t, sessions.Logout(ctx, token))

	// 登出即吊销，token 本身还没过期也不行
	_, err = sessions.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestLoginRequiresMatchingPair(t *testing.T) {
	env, sessions, _ := newSessionEnv(t)
	ctx := context.Background()
	env.mustCreateUser(t, "alice")

	_, _, err := sessions.Login(ctx, "alice", "wrong@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = sessions.Login(ctx, "nobody", "alice@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVerifyRejectsGarbageAndExpired(t *testing.T) {
	env, sessions, mr := newSessionEnv(t)
	ctx := context.Background()
	env.mustCreateUser(t, "alice")

	_, err := sessions.Verify(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidSession)

	token, _, err := sessions.Login(ctx, "alice", "alice@example.com")
	require.NoError(t, err)

	// redis 里的会话键过期后 token 作废
	mr.FastForward(2 * time.Hour)
	_, err = sessions.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestVerifyRejectsTokenFromOtherSecret(t *testing.T) {
	env, _, mr := newSessionEnv(t)
	ctx := context.Background()
	env.mustCreateUser(t, "alice")

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	other := NewSessionService(env.users, rdb, "another-secret", time.Hour)
	token, _, err := other.Login(ctx, "alice", "alice@example.com")
	require.NoError(t, err)

	victim := NewSessionService(env.users, rdb, "test-secret", time.Hour)
	_, err = victim.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}
