package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"playground/internal/infra"
)

const (
	defaultRedisPrefix = "playground:history"
	maxTxRetries       = 5
)

// Redis keeps ids newest first in a list and payloads in a hash, so an entry
// can be replaced or deleted by id without rewriting the whole list.
type Redis[T Record] struct {
	client   redis.UniversalClient
	idsKey   string
	itemsKey string
	capacity int
	logger   *infra.Logger
}

type RedisOptions struct {
	Prefix   string
	Capacity int
	Logger   *infra.Logger
}

func NewRedis[T Record](client redis.UniversalClient, opts RedisOptions) *Redis[T] {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Redis[T]{
		client:   client,
		idsKey:   prefix + ":ids",
		itemsKey: prefix + ":items",
		capacity: normalizeCapacity(opts.Capacity),
		logger:   logger,
	}
}

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("history: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("history: redis ping failed: %w", err)
	}
	return client, nil
}

func (r *Redis[T]) Push(ctx context.Context, item T) error {
	id := item.RecordID()
	if id == "" {
		return ErrMissingID
	}
	payload, err := encode(item)
	if err != nil {
		return err
	}

	txf := func(tx *redis.Tx) error {
		current, err := tx.LRange(ctx, r.idsKey, 0, -1).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		var overflow []string
		kept := 1
		for _, existing := range current {
			if existing == id {
				continue
			}
			if kept >= r.capacity {
				overflow = append(overflow, existing)
				continue
			}
			kept++
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.LRem(ctx, r.idsKey, 0, id)
			pipe.LPush(ctx, r.idsKey, id)
			pipe.LTrim(ctx, r.idsKey, 0, int64(r.capacity-1))
			pipe.HSet(ctx, r.itemsKey, id, payload)
			if len(overflow) > 0 {
				pipe.HDel(ctx, r.itemsKey, overflow...)
			}
			return nil
		})
		return err
	}
	return r.watch(ctx, txf)
}

func (r *Redis[T]) List(ctx context.Context) ([]T, error) {
	ids, err := r.client.LRange(ctx, r.idsKey, 0, int64(r.capacity-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("history: redis lrange: %w", err)
	}
	if len(ids) == 0 {
		return []T{}, nil
	}
	values, err := r.client.HMGet(ctx, r.itemsKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("history: redis hmget: %w", err)
	}
	out := make([]T, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			r.logger.Warn().Str("id", ids[i]).Msg("history: redis entry without payload")
			continue
		}
		item, err := decode[T]([]byte(s))
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *Redis[T]) Delete(ctx context.Context, id string) error {
	var removed *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.LRem(ctx, r.idsKey, 0, id)
		pipe.HDel(ctx, r.itemsKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("history: redis delete: %w", err)
	}
	if removed.Val() == 0 {
		return notFound(id)
	}
	return nil
}

func (r *Redis[T]) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.idsKey, r.itemsKey).Err(); err != nil {
		return fmt.Errorf("history: redis clear: %w", err)
	}
	return nil
}

func (r *Redis[T]) Capacity() int { return r.capacity }

func (r *Redis[T]) watch(ctx context.Context, fn func(*redis.Tx) error) error {
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := r.client.Watch(ctx, fn, r.idsKey)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			r.logger.Debug().Int("attempt", attempt+1).Msg("history: redis watch conflict, retrying")
			continue
		}
		return fmt.Errorf("history: redis push: %w", err)
	}
	return fmt.Errorf("history: redis push: %w", redis.TxFailedErr)
}
