package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	store := NewRedisStore(client)
	return store, mr
}

func TestRedisStore_EnsureAccount(t *testing.T) {
	store, mr := newTestRedisStore(t)
	defer mr.Close()
	ctx := context.Background()

	// First sight of a username creates the account
	created, ok, err := store.EnsureAccount(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, ok)

	// New accounts start with zero stats
	stats, err := store.GetStats(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, 0, stats.Wins)
	assert.Equal(t, 0, stats.Losses)

	// Correct password passes
	created, ok, err = store.EnsureAccount(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, ok)

	// Wrong password fails, without touching the account
	created, ok, err = store.EnsureAccount(ctx, "alice", "wrong")
	require.NoError(t, err)
	assert.False(t, created)
	assert.False(t, ok)
}

func TestRedisStore_AccountExists(t *testing.T) {
	store, mr := newTestRedisStore(t)
	defer mr.Close()
	ctx := context.Background()

	exists, err := store.AccountExists(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, exists)

	_, _, err = store.EnsureAccount(ctx, "alice", "secret")
	require.NoError(t, err)

	exists, err = store.AccountExists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRedisStore_RecordResultAndStats(t *testing.T) {
	store, mr := newTestRedisStore(t)
	defer mr.Close()
	ctx := context.Background()

	_, _, err := store.EnsureAccount(ctx, "alice", "secret")
	require.NoError(t, err)

	require.NoError(t, store.RecordResult(ctx, "alice", true))
	require.NoError(t, store.RecordResult(ctx, "alice", true))
	require.NoError(t, store.RecordResult(ctx, "alice", false))

	stats, err := store.GetStats(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, "alice", stats.Username)
	assert.Equal(t, 2, stats.Wins)
	assert.Equal(t, 1, stats.Losses)

	// Unknown players have no stats
	stats, err = store.GetStats(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, stats)
}

func TestRedisStore_TopPlayers(t *testing.T) {
	store, mr := newTestRedisStore(t)
	defer mr.Close()
	ctx := context.Background()

	for _, name := range []string{"alice", "bob", "carol"} {
		_, _, err := store.EnsureAccount(ctx, name, "secret")
		require.NoError(t, err)
	}

	// alice: 1 win, bob: 3 wins, carol: 0 wins
	require.NoError(t, store.RecordResult(ctx, "alice", true))
	for i := 0; i < 3; i++ {
		require.NoError(t, store.RecordResult(ctx, "bob", true))
	}
	require.NoError(t, store.RecordResult(ctx, "carol", false))

	tops, err := store.TopPlayers(ctx, 2)
	require.NoError(t, err)
	require.Len(t, tops, 2)
	assert.Equal(t, "bob", tops[0].Username)
	assert.Equal(t, 3, tops[0].Wins)
	assert.Equal(t, "alice", tops[1].Username)
	assert.Equal(t, 1, tops[1].Wins)

	// Asking for more than exist returns everyone
	tops, err = store.TopPlayers(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, tops, 3)
}

func TestRedisStore_GameRecordRoundTrip(t *testing.T) {
	store, mr := newTestRedisStore(t)
	defer mr.Close()
	ctx := context.Background()

	rec := &GameRecord{
		ID:        "game-1",
		Name:      "arena",
		Players:   []string{"alice", "bob"},
		Winner:    "alice",
		StartedAt: time.Now().Add(-time.Minute).UnixMilli(),
		EndedAt:   time.Now().UnixMilli(),
	}

	require.NoError(t, store.SaveGameRecord(ctx, rec))

	loaded, err := store.LoadGameRecord(ctx, "game-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, rec.ID, loaded.ID)
	assert.Equal(t, rec.Players, loaded.Players)
	assert.Equal(t, rec.Winner, loaded.Winner)
	assert.False(t, loaded.Tie)

	// Missing records come back nil without an error
	loaded, err = store.LoadGameRecord(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
