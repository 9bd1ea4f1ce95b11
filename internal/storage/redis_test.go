package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVoteStore(t *testing.T) *RedisVoteStore {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisVoteStore(client)
}

func TestAddVote_IncrementsCounterAndLeaderboard(t *testing.T) {
	store := newTestVoteStore(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		count, err := store.AddVote(ctx, "bluebird", 101)
		require.NoError(t, err)
		assert.Equal(t, want, count)
	}
	_, err := store.AddVote(ctx, "bluebird", 102)
	require.NoError(t, err)

	// Counter and leaderboard move together.
	count, err := store.Votes(ctx, "bluebird", 101)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	top, err := store.TopVoted(ctx, "bluebird", 10)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"101": 3, "102": 1}, top)
}

func TestVotes_UnknownItemIsZero(t *testing.T) {
	store := newTestVoteStore(t)

	count, err := store.Votes(context.Background(), "bluebird", 9999)
	assert.NoError(t, err)
	assert.Zero(t, count)
}

func TestVotes_ScopedPerVenue(t *testing.T) {
	store := newTestVoteStore(t)
	ctx := context.Background()

	_, err := store.AddVote(ctx, "bluebird", 101)
	require.NoError(t, err)

	count, err := store.Votes(ctx, "other-venue", 101)
	require.NoError(t, err)
	assert.Zero(t, count)

	top, err := store.TopVoted(ctx, "other-venue", 10)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestTopVoted_HonoursLimit(t *testing.T) {
	store := newTestVoteStore(t)
	ctx := context.Background()

	votes := map[int64]int{101: 5, 102: 3, 103: 1}
	for itemID, n := range votes {
		for i := 0; i < n; i++ {
			_, err := store.AddVote(ctx, "bluebird", itemID)
			require.NoError(t, err)
		}
	}

	top, err := store.TopVoted(ctx, "bluebird", 2)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"101": 5, "102": 3}, top)
}
