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

// TestRepository handles test data access.
type TestRepository struct {
	pool *pgxpool.Pool
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{pool: pool}
}

const testColumns = `id, title, status, structure, created_by, created_at, updated_at, published_at`

func scanTest(row pgx.Row) (*model.Test, error) {
	t := &model.Test{}
	var structure []byte
	if err := row.Scan(&t.ID, &t.Title, &t.Status, &structure, &t.CreatedBy,
		&t.CreatedAt, &t.UpdatedAt, &t.PublishedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(structure, &t.Structure); err != nil {
		return nil, fmt.Errorf("decode structure of test %s: %w", t.ID, err)
	}
	return t, nil
}

// GetByID retrieves a test by its UUID. Returns pgx.ErrNoRows when absent.
func (r *TestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	return scanTest(r.pool.QueryRow(ctx,
		`SELECT `+testColumns+` FROM tests WHERE id = $1`, id))
}

// ListPaginated lists tests newest first. An empty status lists every test.
func (r *TestRepository) ListPaginated(ctx context.Context, status model.TestStatus, limit, offset int) ([]model.Test, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM tests WHERE ($1 = '' OR status = $1)`, string(status),
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+testColumns+`
		 FROM tests
		 WHERE ($1 = '' OR status = $1)
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, string(status), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tests := make([]model.Test, 0)
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, 0, err
		}
		tests = append(tests, *t)
	}
	return tests, total, rows.Err()
}

// ListPublished returns all PUBLISHED tests.
// Used for cache prewarming on application startup.
func (r *TestRepository) ListPublished(ctx context.Context) ([]model.Test, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+testColumns+`
		 FROM tests WHERE status = $1
		 ORDER BY published_at DESC`, model.TestStatusPublished)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tests := make([]model.Test, 0)
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, err
		}
		tests = append(tests, *t)
	}
	return tests, rows.Err()
}

// Create inserts a new draft test.
func (r *TestRepository) Create(ctx context.Context, t *model.Test) error {
	structure, err := json.Marshal(t.Structure)
	if err != nil {
		return fmt.Errorf("encode structure: %w", err)
	}
	t.Status = model.TestStatusDraft
	return r.pool.QueryRow(ctx,
		`INSERT INTO tests (title, status, structure, created_by)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		t.Title, t.Status, structure, t.CreatedBy,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// UpdateDraft replaces the title and structure of a DRAFT test.
// Returns pgx.ErrNoRows when the test is missing or no longer a draft.
func (r *TestRepository) UpdateDraft(ctx context.Context, t *model.Test) error {
	structure, err := json.Marshal(t.Structure)
	if err != nil {
		return fmt.Errorf("encode structure: %w", err)
	}
	return r.pool.QueryRow(ctx,
		`UPDATE tests SET title = $1, structure = $2, updated_at = NOW()
		 WHERE id = $3 AND status = $4
		 RETURNING updated_at`,
		t.Title, structure, t.ID, model.TestStatusDraft,
	).Scan(&t.UpdatedAt)
}

// DeleteDraft removes a DRAFT test. Reports whether a row was deleted.
func (r *TestRepository) DeleteDraft(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM tests WHERE id = $1 AND status = $2`, id, model.TestStatusDraft)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateStatus moves a test to a new status, stamping published_at on publish.
// Returns pgx.ErrNoRows when the test does not exist.
func (r *TestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.TestStatus) (time.Time, error) {
	var updated time.Time
	err := r.pool.QueryRow(ctx,
		`UPDATE tests
		 SET status = $1,
		     published_at = CASE WHEN $1 = 'PUBLISHED' THEN NOW() ELSE published_at END,
		     updated_at = NOW()
		 WHERE id = $2
		 RETURNING updated_at`,
		status, id,
	).Scan(&updated)
	return updated, err
}
