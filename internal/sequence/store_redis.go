package sequence

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"rollcall/pkg/platform/sentinel"
)

const redisKeyPrefix = "seq:"

// casScript implements compare-and-swap server-side so the check and the
// write are one atomic step.
var casScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("SET", KEYS[1], ARGV[2])
	return 1
end
return 0
`)

// RedisStore backs counters with Redis for deployments that prefer it over
// the SQL row. Same Store contract: conditional writes only.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(category Category, dateKey string) string {
	return redisKeyPrefix + string(category) + ":" + dateKey
}

func (s *RedisStore) Find(ctx context.Context, category Category, dateKey string) (int, error) {
	raw, err := s.client.Get(ctx, redisKey(category, dateKey)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, sentinel.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("find counter: %w", err)
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse counter %q: %w", raw, err)
	}
	return value, nil
}

func (s *RedisStore) Create(ctx context.Context, category Category, dateKey string) error {
	created, err := s.client.SetNX(ctx, redisKey(category, dateKey), 0, 0).Result()
	if err != nil {
		return fmt.Errorf("create counter: %w", err)
	}
	if !created {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *RedisStore) CompareAndSwap(ctx context.Context, category Category, dateKey string, expected, next int) error {
	res, err := casScript.Run(ctx, s.client,
		[]string{redisKey(category, dateKey)},
		strconv.Itoa(expected), strconv.Itoa(next),
	).Int()
	if err != nil {
		return fmt.Errorf("cas counter: %w", err)
	}
	if res == 0 {
		return sentinel.ErrStale
	}
	return nil
}

func (s *RedisStore) DeleteBefore(ctx context.Context, cutoff string) (int, error) {
	deleted := 0
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		// seq:<category>:<dateKey>
		dateKey := key[len(key)-len(dateKeyLayout):]
		if len(key) > len(dateKeyLayout) && dateKey < cutoff {
			if err := s.client.Del(ctx, key).Err(); err != nil {
				return deleted, fmt.Errorf("delete counter %s: %w", key, err)
			}
			deleted++
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("scan counters: %w", err)
	}
	return deleted, nil
}
