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

// AnswerSink persists autosaved section state.
type AnswerSink interface {
	SaveBatches(ctx context.Context, batches []model.AnswerBatch) error
}

// AnswerWorker consumes persist_answers_queue and writes section answers to
// PostgreSQL. Each payload is the full state of one section, so only the
// newest payload per section within a batch is written.
type AnswerWorker struct {
	sink  AnswerSink
	queue queue
	log   zerolog.Logger

	BatchSize    int
	BatchTimeout time.Duration
	PollTimeout  time.Duration
}

// NewAnswerWorker creates a new AnswerWorker.
func NewAnswerWorker(sink AnswerSink, rdb *redis.Client, log zerolog.Logger) *AnswerWorker {
	log = log.With().Str("component", "answer_worker").Logger()
	return &AnswerWorker{
		sink:         sink,
		queue:        queue{rdb: rdb, key: config.WorkerKey.PersistAnswersQueue, log: log},
		log:          log,
		BatchSize:    BatchSize,
		BatchTimeout: BatchTimeout,
		PollTimeout:  PollTimeout,
	}
}

// Start runs the worker loop until ctx is cancelled. Call in a goroutine.
func (w *AnswerWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AnswerWorker started")

	batch := make([]model.AnswerBatch, 0, w.BatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= w.BatchSize || time.Since(lastFlush) >= w.BatchTimeout) {
			w.flush(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining answers...")
			w.flush(context.Background(), batch)
			w.drain(context.Background())
			w.log.Info().Msg("AnswerWorker stopped")
			return
		default:
			raw, ok := w.queue.pop(ctx, w.PollTimeout)
			if !ok {
				continue
			}
			var b model.AnswerBatch
			if err := json.Unmarshal([]byte(raw), &b); err != nil {
				w.log.Error().Err(err).Msg("Invalid answer payload")
				continue
			}
			batch = append(batch, b)
		}
	}
}

func (w *AnswerWorker) flush(ctx context.Context, batch []model.AnswerBatch) {
	if len(batch) == 0 {
		return
	}
	latest := Latest(batch)

	if err := w.sink.SaveBatches(ctx, latest); err != nil {
		w.log.Warn().Err(err).Int("sections", len(latest)).Msg("Bulk answer save failed, using fallback")

		for _, b := range latest {
			if err := w.sink.SaveBatches(ctx, []model.AnswerBatch{b}); err != nil {
				w.log.Error().Err(err).
					Str("attempt_id", b.AttemptID.String()).
					Str("section", string(b.Section)).
					Msg("Answer save failed, requeueing")
				raw, _ := json.Marshal(b)
				w.queue.requeue(ctx, raw)
			}
		}
	}
}

// drain persists whatever is left in the queue before shutdown.
func (w *AnswerWorker) drain(ctx context.Context) {
	var pending []model.AnswerBatch
	for {
		raw, ok := w.queue.popNow(ctx)
		if !ok {
			break
		}
		var b model.AnswerBatch
		if err := json.Unmarshal([]byte(raw), &b); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}
		pending = append(pending, b)
	}
	if len(pending) == 0 {
		return
	}
	w.flush(ctx, pending)
	w.log.Info().Int("count", len(pending)).Msg("Drained remaining answers")
}

// Latest keeps the newest payload per attempt section, preserving the order
// in which sections first appeared.
func Latest(batch []model.AnswerBatch) []model.AnswerBatch {
	type key struct {
		attempt string
		section model.SectionKind
	}
	index := make(map[key]int, len(batch))
	out := make([]model.AnswerBatch, 0, len(batch))
	for _, b := range batch {
		k := key{b.AttemptID.String(), b.Section}
		if i, ok := index[k]; ok {
			out[i] = b
			continue
		}
		index[k] = len(out)
		out = append(out, b)
	}
	return out
}
