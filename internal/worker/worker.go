package worker

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second
)

// queue pops raw payloads from a Redis list. It is shared by the workers
// that persist autosaved state.
type queue struct {
	rdb *redis.Client
	key string
	log zerolog.Logger
}

// pop blocks for up to timeout. ok is false when nothing arrived.
func (q queue) pop(ctx context.Context, timeout time.Duration) (string, bool) {
	item, err := q.rdb.BLPop(ctx, timeout, q.key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			q.log.Error().Err(err).Msg("BLPop error")
		}
		return "", false
	}
	if len(item) < 2 {
		return "", false
	}
	return item[1], true
}

// popNow pops without blocking; used while draining on shutdown.
func (q queue) popNow(ctx context.Context) (string, bool) {
	item, err := q.rdb.LPop(ctx, q.key).Result()
	if err != nil {
		return "", false
	}
	return item, true
}

func (q queue) requeue(ctx context.Context, raw []byte) {
	if err := q.rdb.RPush(ctx, q.key, raw).Err(); err != nil {
		q.log.Error().Err(err).Msg("Requeue failed, payload lost")
	}
}
