package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lysyi3m/tube-relay/app/feed"
)

var _ CursorStore = (*RedisStore)(nil)

const cursorsKey = "cursors"

// RedisStore keeps the cursors in one hash, field per channel.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(ctx context.Context, addr, prefix string) (*RedisStore, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Debug("Connected to Redis", "addr", addr)

	return &RedisStore{
		client: client,
		key:    prefix + cursorsKey,
	}, nil
}

func (s *RedisStore) Load(ctx context.Context) Cursors {
	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		slog.Warn("Failed to read cursors from Redis, starting with empty cursors", "key", s.key, "error", err)
		return Cursors{}
	}

	cursors := make(Cursors, len(values))
	for channelID, videoID := range values {
		if videoID == "" {
			continue
		}
		cursors[feed.ChannelID(channelID)] = feed.VideoID(videoID)
	}

	return cursors
}

func (s *RedisStore) Save(ctx context.Context, cursors Cursors) error {
	fields := make(map[string]any, len(cursors))
	for channelID, videoID := range cursors {
		if videoID == "" {
			continue
		}
		fields[string(channelID)] = string(videoID)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(fields) > 0 {
			pipe.HSet(ctx, s.key, fields)
		}
		return nil
	})
	if err != nil {
		return &PersistenceError{Backend: BackendRedis, Err: err}
	}

	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
