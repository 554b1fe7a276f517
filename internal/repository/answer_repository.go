package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mockielts/mockielts-backend/internal/model"
)

// AnswerRepository persists section answer state.
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

// SaveBatches writes every batch in one transaction. Each batch is the full
// state of its section, so answers missing from it are removed.
func (r *AnswerRepository) SaveBatches(ctx context.Context, batches []model.AnswerBatch) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, b := range batches {
		if err := saveBatch(ctx, tx, b); err != nil {
			return fmt.Errorf("save answers of attempt %s section %s: %w", b.AttemptID, b.Section, err)
		}
	}
	return tx.Commit(ctx)
}

func saveBatch(ctx context.Context, tx pgx.Tx, b model.AnswerBatch) error {
	qIDs := []int{}
	var (
		itemIDs []string
		texts   []string
		values  []string
		recIDs  []int
		files   []string
	)
	for _, row := range b.Answers {
		id, value, ok := model.ParseItemAnswer(row)
		if !ok {
			continue
		}
		if row.AudioFileID != "" {
			recIDs = append(recIDs, id)
			files = append(files, row.AudioFileID)
		}
		if len(row.AnswerJSON) == 0 && row.AnswerText == "" {
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		qIDs = append(qIDs, id)
		itemIDs = append(itemIDs, row.ItemID)
		texts = append(texts, row.AnswerText)
		values = append(values, string(raw))
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM attempt_answers
		 WHERE attempt_id = $1 AND section = $2 AND NOT (question_id = ANY($3::int[]))`,
		b.AttemptID, string(b.Section), qIDs); err != nil {
		return err
	}
	if len(qIDs) > 0 {
		if _, err := tx.Exec(ctx, `
			INSERT INTO attempt_answers (attempt_id, section, question_id, item_id, answer_text, value, updated_at)
			SELECT $1, $2, u.question_id, u.item_id, u.answer_text, u.value::jsonb, NOW()
			FROM UNNEST($3::int[], $4::text[], $5::text[], $6::text[])
			     AS u (question_id, item_id, answer_text, value)
			ON CONFLICT (attempt_id, section, question_id)
			DO UPDATE SET item_id = EXCLUDED.item_id,
			              answer_text = EXCLUDED.answer_text,
			              value = EXCLUDED.value,
			              updated_at = NOW()`,
			b.AttemptID, string(b.Section), qIDs, itemIDs, texts, values); err != nil {
			return err
		}
	}

	if len(recIDs) > 0 {
		if _, err := tx.Exec(ctx, `
			INSERT INTO attempt_recordings (attempt_id, question_id, audio_file_id, updated_at)
			SELECT $1, u.question_id, u.audio_file_id, NOW()
			FROM UNNEST($2::int[], $3::text[]) AS u (question_id, audio_file_id)
			ON CONFLICT (attempt_id, question_id)
			DO UPDATE SET audio_file_id = EXCLUDED.audio_file_id, updated_at = NOW()`,
			b.AttemptID, recIDs, files); err != nil {
			return err
		}
	}

	if len(b.Writings) > 0 {
		keys := make([]string, len(b.Writings))
		bodies := make([]string, len(b.Writings))
		for i, w := range b.Writings {
			keys[i], bodies[i] = w.TaskKey, w.Text
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO attempt_writings (attempt_id, task_key, text, updated_at)
			SELECT $1, u.task_key, u.text, NOW()
			FROM UNNEST($2::text[], $3::text[]) AS u (task_key, text)
			ON CONFLICT (attempt_id, task_key)
			DO UPDATE SET text = EXCLUDED.text, updated_at = NOW()`,
			b.AttemptID, keys, bodies); err != nil {
			return err
		}
	}
	return nil
}

// LoadSection rebuilds a section's answer state from the database. Writings
// are loaded for WRITING and recordings for SPEAKING.
func (r *AnswerRepository) LoadSection(ctx context.Context, attemptID uuid.UUID, kind model.SectionKind) (model.SectionAnswers, error) {
	state := model.NewSectionAnswers()

	rows, err := r.pool.Query(ctx,
		`SELECT question_id, value FROM attempt_answers
		 WHERE attempt_id = $1 AND section = $2`, attemptID, string(kind))
	if err != nil {
		return state, err
	}
	defer rows.Close()
	for rows.Next() {
		var id int
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return state, err
		}
		var value model.AnswerValue
		if err := json.Unmarshal(raw, &value); err != nil {
			return state, fmt.Errorf("decode answer %d: %w", id, err)
		}
		state.Answers[id] = model.Answer{QuestionID: id, Value: value}
	}
	if err := rows.Err(); err != nil {
		return state, err
	}

	switch kind {
	case model.SectionWriting:
		wrows, err := r.pool.Query(ctx,
			`SELECT task_key, text FROM attempt_writings WHERE attempt_id = $1`, attemptID)
		if err != nil {
			return state, err
		}
		defer wrows.Close()
		for wrows.Next() {
			var key, text string
			if err := wrows.Scan(&key, &text); err != nil {
				return state, err
			}
			state.Writings[key] = text
		}
		return state, wrows.Err()
	case model.SectionSpeaking:
		rrows, err := r.pool.Query(ctx,
			`SELECT question_id, audio_file_id FROM attempt_recordings WHERE attempt_id = $1`, attemptID)
		if err != nil {
			return state, err
		}
		defer rrows.Close()
		for rrows.Next() {
			var id int
			var file string
			if err := rrows.Scan(&id, &file); err != nil {
				return state, err
			}
			state.Recordings[id] = file
		}
		return state, rrows.Err()
	}
	return state, nil
}
