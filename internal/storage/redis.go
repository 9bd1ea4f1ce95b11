package storage

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisVoteStore keeps per-item vote counters plus a per-venue leaderboard
// of the most voted items.
type RedisVoteStore struct {
	Client *redis.Client
}

func NewRedisVoteStore(client *redis.Client) *RedisVoteStore {
	return &RedisVoteStore{Client: client}
}

func (s *RedisVoteStore) voteKey(venueSlug string, itemID int64) string {
	return "votes:" + venueSlug + ":" + strconv.FormatInt(itemID, 10)
}

func (s *RedisVoteStore) boardKey(venueSlug string) string {
	return "votes:board:" + venueSlug
}

func (s *RedisVoteStore) AddVote(ctx context.Context, venueSlug string, itemID int64) (int64, error) {
	count, err := s.Client.Incr(ctx, s.voteKey(venueSlug, itemID)).Result()
	if err != nil {
		return 0, err
	}
	s.Client.ZIncrBy(ctx, s.boardKey(venueSlug), 1, strconv.FormatInt(itemID, 10))
	return count, nil
}

func (s *RedisVoteStore) Votes(ctx context.Context, venueSlug string, itemID int64) (int64, error) {
	count, err := s.Client.Get(ctx, s.voteKey(venueSlug, itemID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return count, err
}

func (s *RedisVoteStore) TopVoted(ctx context.Context, venueSlug string, limit int64) (map[string]int64, error) {
	entries, err := s.Client.ZRevRangeWithScores(ctx, s.boardKey(venueSlug), 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	top := make(map[string]int64, len(entries))
	for _, entry := range entries {
		member, ok := entry.Member.(string)
		if !ok {
			continue
		}
		top[member] = int64(entry.Score)
	}
	return top, nil
}
