package storage

import (
	"context"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the known-ID set in a Redis set, one key per chain.
type RedisStore struct {
	rdb *redis.Client
	key string
}

// NewRedisStore connects to the server at redisURL and pings it.
func NewRedisStore(ctx context.Context, redisURL, key string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	return &RedisStore{rdb: rdb, key: key}, nil
}

// Load returns the members of the set.
func (s *RedisStore) Load(ctx context.Context) (mapset.Set[string], error) {
	members, err := s.rdb.SMembers(ctx, s.key).Result()
	if err != nil {
		return NewSet(), &CorruptStateError{Location: "redis key " + s.key, Err: err}
	}
	return NewSet(members...), nil
}

// Save adds every identifier to the set. SADD ignores existing members.
func (s *RedisStore) Save(ctx context.Context, known mapset.Set[string]) error {
	if known.Cardinality() == 0 {
		return nil
	}

	ids := Sorted(known)
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = id
	}

	if err := s.rdb.SAdd(ctx, s.key, members...).Err(); err != nil {
		return fmt.Errorf("redis: sadd %s: %w", s.key, err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
