package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mockielts/mockielts-backend/internal/model"
)

// ResultRepository handles section result data access.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// UpsertBatch writes section results with a single UNNEST statement.
// The first stored result of a section wins.
func (r *ResultRepository) UpsertBatch(ctx context.Context, results []model.SectionResult) error {
	n := len(results)
	attemptIDs := make([]uuid.UUID, 0, n)
	sections := make([]string, 0, n)
	triggers := make([]string, 0, n)
	raws := make([]*int, 0, n)
	bands := make([]*float64, 0, n)
	spent := make([]int, 0, n)
	bodies := make([]string, 0, n)
	completed := make([]time.Time, 0, n)

	for _, res := range results {
		body, err := json.Marshal(res)
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		attemptIDs = append(attemptIDs, res.AttemptID)
		sections = append(sections, string(res.Section))
		triggers = append(triggers, string(res.Trigger))
		raws = append(raws, res.RawScore())
		bands = append(bands, res.BandScore())
		spent = append(spent, res.TimeSpent())
		bodies = append(bodies, string(body))
		completed = append(completed, res.CompletedAt())
	}

	query := `
		INSERT INTO section_results
			(attempt_id, section, trigger, raw_score, band_score, time_spent, result, completed_at)
		SELECT u.attempt_id, u.section, u.trigger, u.raw_score, u.band_score,
		       u.time_spent, u.result::jsonb, u.completed_at
		FROM UNNEST(
			$1::uuid[],
			$2::text[],
			$3::text[],
			$4::int[],
			$5::float8[],
			$6::int[],
			$7::text[],
			$8::timestamptz[]
		) AS u (attempt_id, section, trigger, raw_score, band_score, time_spent, result, completed_at)
		ON CONFLICT (attempt_id, section) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query, attemptIDs, sections, triggers, raws, bands, spent, bodies, completed)
	return err
}

// Upsert writes one section result.
func (r *ResultRepository) Upsert(ctx context.Context, res model.SectionResult) error {
	body, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO section_results
			(attempt_id, section, trigger, raw_score, band_score, time_spent, result, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (attempt_id, section) DO NOTHING`,
		res.AttemptID, string(res.Section), string(res.Trigger), res.RawScore(), res.BandScore(),
		res.TimeSpent(), body, res.CompletedAt())
	return err
}

// Get returns one stored section result. Returns pgx.ErrNoRows when absent.
func (r *ResultRepository) Get(ctx context.Context, attemptID uuid.UUID, kind model.SectionKind) (*model.SectionResult, error) {
	var body []byte
	if err := r.pool.QueryRow(ctx,
		`SELECT result FROM section_results WHERE attempt_id = $1 AND section = $2`,
		attemptID, string(kind),
	).Scan(&body); err != nil {
		return nil, err
	}
	res := &model.SectionResult{}
	if err := json.Unmarshal(body, res); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return res, nil
}

const resultRowSelect = `
	SELECT sr.attempt_id, a.test_id, t.title, a.user_id, sr.section,
	       sr.raw_score, sr.band_score, sr.time_spent, sr.trigger, sr.completed_at
	FROM section_results sr
	JOIN attempts a ON a.id = sr.attempt_id
	JOIN tests t ON t.id = a.test_id`

func collectResultRows(rows pgx.Rows) ([]model.ResultRow, error) {
	defer rows.Close()
	out := make([]model.ResultRow, 0)
	for rows.Next() {
		var row model.ResultRow
		if err := rows.Scan(&row.AttemptID, &row.TestID, &row.TestTitle, &row.UserID, &row.Section,
			&row.RawScore, &row.BandScore, &row.TimeSpent, &row.Trigger, &row.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ListRowsByUser returns a candidate's section results, oldest first.
func (r *ResultRepository) ListRowsByUser(ctx context.Context, userID string) ([]model.ResultRow, error) {
	rows, err := r.pool.Query(ctx,
		resultRowSelect+` WHERE a.user_id = $1 ORDER BY sr.completed_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	return collectResultRows(rows)
}

// ListRowsByTest returns all section results of a test for export.
func (r *ResultRepository) ListRowsByTest(ctx context.Context, testID uuid.UUID) ([]model.ResultRow, error) {
	rows, err := r.pool.Query(ctx,
		resultRowSelect+` WHERE a.test_id = $1 ORDER BY a.user_id, sr.completed_at`, testID)
	if err != nil {
		return nil, err
	}
	return collectResultRows(rows)
}
