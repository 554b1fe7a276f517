package worker

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mockielts/mockielts-backend/internal/config"
	"github.com/mockielts/mockielts-backend/internal/model"
	"github.com/mockielts/mockielts-backend/internal/service"
)

// SectionExpirer submits a section whose time ran out.
type SectionExpirer interface {
	ExpireSection(ctx context.Context, attemptID uuid.UUID, kind model.SectionKind) (*model.SectionResult, error)
}

// DeadlineWorker polls the section deadline set and auto-submits sections
// whose time is up, including those whose candidate has disconnected.
type DeadlineWorker struct {
	expirer  SectionExpirer
	rdb      *redis.Client
	interval time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

func NewDeadlineWorker(expirer SectionExpirer, rdb *redis.Client, interval time.Duration, log zerolog.Logger) *DeadlineWorker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &DeadlineWorker{
		expirer:  expirer,
		rdb:      rdb,
		interval: interval,
		log:      log.With().Str("component", "deadline_worker").Logger(),
		now:      time.Now,
	}
}

// Start polls until ctx is cancelled. Call in a goroutine.
func (w *DeadlineWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("DeadlineWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("DeadlineWorker stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep expires every section whose deadline has passed and returns how
// many were submitted.
func (w *DeadlineWorker) Sweep(ctx context.Context) int {
	key := config.CacheKey.SectionDeadlinesKey()
	now := w.now()

	members, err := w.rdb.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error().Err(err).Msg("Deadline scan failed")
		}
		return 0
	}

	expired := 0
	for _, member := range members {
		// ZRem claims the member so that only one instance expires it.
		claimed, err := w.rdb.ZRem(ctx, key, member).Result()
		if err != nil || claimed == 0 {
			continue
		}

		attemptID, section, ok := config.CacheKey.ParseDeadlineMember(member)
		id, perr := uuid.Parse(attemptID)
		kind, kok := model.ParseSectionKind(section)
		if !ok || perr != nil || !kok {
			w.log.Warn().Str("member", member).Msg("Dropping malformed deadline")
			continue
		}

		if _, err := w.expirer.ExpireSection(ctx, id, kind); err != nil {
			if permanent(err) {
				w.log.Warn().Err(err).Str("attempt_id", attemptID).Str("section", section).
					Msg("Dropping deadline")
				continue
			}
			w.log.Error().Err(err).Str("attempt_id", attemptID).Str("section", section).
				Msg("Expire failed, retrying next sweep")
			w.rdb.ZAdd(ctx, key, redis.Z{Score: float64(now.Unix()), Member: member})
			continue
		}
		expired++
		w.log.Info().Str("attempt_id", attemptID).Str("section", section).Msg("Section expired")
	}
	return expired
}

func permanent(err error) bool {
	return errors.Is(err, service.ErrAttemptNotFound) ||
		errors.Is(err, service.ErrSectionNotRequested) ||
		errors.Is(err, service.ErrSectionNotInTest) ||
		errors.Is(err, service.ErrTestNotFound) ||
		errors.Is(err, service.ErrTestNotPublished)
}
