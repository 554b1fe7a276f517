package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mockielts/mockielts-backend/internal/config"
	"github.com/mockielts/mockielts-backend/internal/model"
)

// ResultSink persists section results.
type ResultSink interface {
	UpsertBatch(ctx context.Context, results []model.SectionResult) error
	Upsert(ctx context.Context, res model.SectionResult) error
}

// ResultWorker consumes persist_results_queue and writes section results in
// batches.
type ResultWorker struct {
	sink  ResultSink
	queue queue
	log   zerolog.Logger

	BatchSize    int
	BatchTimeout time.Duration
	PollTimeout  time.Duration
}

func NewResultWorker(sink ResultSink, rdb *redis.Client, log zerolog.Logger) *ResultWorker {
	log = log.With().Str("component", "result_worker").Logger()
	return &ResultWorker{
		sink:         sink,
		queue:        queue{rdb: rdb, key: config.WorkerKey.PersistResultsQueue, log: log},
		log:          log,
		BatchSize:    BatchSize,
		BatchTimeout: BatchTimeout,
		PollTimeout:  PollTimeout,
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")

	batch := make([]model.SectionResult, 0, w.BatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= w.BatchSize || time.Since(lastFlush) >= w.BatchTimeout) {
			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			w.drain(context.Background())
			return
		default:
			raw, ok := w.queue.pop(ctx, w.PollTimeout)
			if !ok {
				continue
			}
			var res model.SectionResult
			if err := json.Unmarshal([]byte(raw), &res); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}
			batch = append(batch, res)
		}
	}
}

// ----------------------------------------------------------------
// Batch write with per-result fallback
// ----------------------------------------------------------------

func (w *ResultWorker) flushSafe(ctx context.Context, batch []model.SectionResult) {
	if len(batch) == 0 {
		return
	}

	if err := w.sink.UpsertBatch(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk result write failed, using fallback")

		for _, res := range batch {
			if err := w.sink.Upsert(ctx, res); err != nil {
				w.log.Error().Err(err).
					Str("attempt_id", res.AttemptID.String()).
					Str("section", string(res.Section)).
					Msg("Upsert failed, requeueing")
				raw, _ := json.Marshal(res)
				w.queue.requeue(ctx, raw)
			}
		}
		return
	}
	w.log.Debug().Int("count", len(batch)).Msg("Results persisted")
}

func (w *ResultWorker) drain(ctx context.Context) {
	var pending []model.SectionResult
	for {
		raw, ok := w.queue.popNow(ctx)
		if !ok {
			break
		}
		var res model.SectionResult
		if err := json.Unmarshal([]byte(raw), &res); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}
		pending = append(pending, res)
	}
	if len(pending) > 0 {
		w.flushSafe(ctx, pending)
		w.log.Info().Int("count", len(pending)).Msg("Drained remaining results")
	}
}
