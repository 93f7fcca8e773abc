package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore keeps snapshots in Redis under "room:<id>". A non-zero ttl
// expires rooms that saw no save for that long.
type RedisStore[T Aggregate] struct {
	client *redis.Client
	ttl    time.Duration
	codec  Codec[T]
}

func NewRedisStore[T Aggregate](client *redis.Client, ttl time.Duration, aggregateType string) *RedisStore[T] {
	return &RedisStore[T]{client: client, ttl: ttl, codec: NewCodec[T](aggregateType)}
}

func redisKey(id string) string {
	return "room:" + id
}

func (s *RedisStore[T]) GetByID(ctx context.Context, id string) (T, bool, error) {
	var zero T
	data, err := s.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("failed to load %s: %w", id, err)
	}

	agg, _, err := s.codec.Unmarshal(data)
	if err != nil {
		return zero, false, err
	}
	return agg, true, nil
}

func (s *RedisStore[T]) Save(ctx context.Context, agg T) error {
	data, err := s.codec.Marshal(agg)
	if err != nil {
		return err
	}
	key := redisKey(agg.GetID())

	// WATCH makes the version check and the write one atomic step.
	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		existing, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			_, snap, err := s.codec.Unmarshal(existing)
			if err != nil {
				return err
			}
			if err := checkVersion(snap.Version, agg.GetVersion()); err != nil {
				return err
			}
		case !errors.Is(err, redis.Nil):
			return fmt.Errorf("failed to read %s: %w", key, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}, key)
}
