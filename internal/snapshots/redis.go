package snapshots

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/topaplus/commandcenter/internal/dataset"
)

// OpenRedis connects and pings, failing fast when the server is unreachable.
func OpenRedis(addr string, db int) (*redis.Client, error) {
	r := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Ping(ctx).Err(); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}
	return r, nil
}

// RedisStore keeps raw tables in Redis so several server processes share one
// fetch per TTL window.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore uses keys of the form "<prefix><source>".
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "commandcenter:raw:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(source string) string { return s.prefix + source }

// Load returns the stored table, ok=false on a miss.
func (s *RedisStore) Load(ctx context.Context, source string) (dataset.Table, bool, error) {
	b, err := s.client.Get(ctx, s.key(source)).Bytes()
	if errors.Is(err, redis.Nil) {
		return dataset.Table{}, false, nil
	}
	if err != nil {
		return dataset.Table{}, false, err
	}
	var t dataset.Table
	if err := json.Unmarshal(b, &t); err != nil {
		// A corrupt entry is a miss; the next save overwrites it.
		return dataset.Table{}, false, nil
	}
	return t, true, nil
}

// Save stores the table with the snapshot TTL.
func (s *RedisStore) Save(ctx context.Context, source string, t dataset.Table, ttl time.Duration) error {
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(source), b, ttl).Err()
}

// Delete removes the stored table.
func (s *RedisStore) Delete(ctx context.Context, source string) error {
	return s.client.Del(ctx, s.key(source)).Err()
}
