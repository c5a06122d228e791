package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/gamercodedev-jpg/smartpos-inventory/models"
)

// RedisStore keeps each envelope under its key and the revision counter
// under key+":rev". Writes are serialized per key with a redis lock so the
// revision check and the payload write cannot interleave across replicas.
type RedisStore struct {
	client *redis.Client
	locker *redislock.Client
}

func NewRedisStore(client *redis.Client, locker *redislock.Client) *RedisStore {
	return &RedisStore{client: client, locker: locker}
}

func revKey(key string) string {
	return key + ":rev"
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, int64, bool, error) {
	payload, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", 0, false, nil
		}
		return "", 0, false, err
	}
	revStr, err := s.client.Get(ctx, revKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// payload without a rev counter: treat as first revision
			return payload, 1, true, nil
		}
		return "", 0, false, err
	}
	rev, err := strconv.ParseInt(revStr, 10, 64)
	if err != nil {
		return "", 0, false, err
	}
	return payload, rev, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, payload string, expectRev int64) (int64, error) {
	if s.locker != nil {
		lock, err := s.locker.Obtain(ctx, "lock:"+key, 3*time.Second, &redislock.Options{
			RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 40),
		})
		if err != nil {
			return 0, err
		}
		defer lock.Release(ctx)
	}

	current := int64(0)
	revStr, err := s.client.Get(ctx, revKey(key)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}
	if err == nil {
		current, err = strconv.ParseInt(revStr, 10, 64)
		if err != nil {
			return 0, err
		}
	}
	if current != expectRev {
		return 0, &models.ConflictError{Key: key}
	}

	next := current + 1
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, key, payload, 0)
	pipe.Set(ctx, revKey(key), strconv.FormatInt(next, 10), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return next, nil
}

func (s *RedisStore) Del(ctx context.Context, key string) error {
	return s.client.Del(ctx, key, revKey(key)).Err()
}
