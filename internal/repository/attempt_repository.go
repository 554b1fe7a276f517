package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mockielts/mockielts-backend/internal/model"
)

// AttemptRepository handles attempt data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

func scanAttempt(row pgx.Row) (*model.Attempt, error) {
	a := &model.Attempt{}
	var requested []string
	var current *string
	if err := row.Scan(&a.ID, &a.TestID, &a.UserID, &a.Mode, &a.Random, &requested,
		&current, &a.Status, &a.StartedAt, &a.CompletedAt); err != nil {
		return nil, err
	}
	a.RequestedSections = make([]model.SectionKind, 0, len(requested))
	for _, s := range requested {
		a.RequestedSections = append(a.RequestedSections, model.SectionKind(s))
	}
	if current != nil {
		kind := model.SectionKind(*current)
		a.CurrentSection = &kind
	}
	return a, nil
}

// GetByID retrieves an attempt. Returns pgx.ErrNoRows when absent.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT id, test_id, user_id, mode, random, requested_sections,
		        current_section, status, started_at, completed_at
		 FROM attempts WHERE id = $1`, id))
}

// Create inserts a new in-progress attempt.
func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt) error {
	requested := make([]string, len(a.RequestedSections))
	for i, k := range a.RequestedSections {
		requested[i] = string(k)
	}
	var current *string
	if a.CurrentSection != nil {
		s := string(*a.CurrentSection)
		current = &s
	}
	a.Status = model.AttemptStatusInProgress
	return r.pool.QueryRow(ctx,
		`INSERT INTO attempts (test_id, user_id, mode, random, requested_sections, current_section, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, started_at`,
		a.TestID, a.UserID, a.Mode, a.Random, requested, current, a.Status,
	).Scan(&a.ID, &a.StartedAt)
}

// SetCurrentSection moves an in-progress attempt to another section.
func (r *AttemptRepository) SetCurrentSection(ctx context.Context, id uuid.UUID, kind model.SectionKind) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE attempts SET current_section = $1
		 WHERE id = $2 AND status = $3`,
		string(kind), id, model.AttemptStatusInProgress)
	return err
}

// Complete marks an attempt as completed. Completing twice keeps the first timestamp.
func (r *AttemptRepository) Complete(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET status = $1, current_section = NULL, completed_at = COALESCE(completed_at, $2)
		 WHERE id = $3`,
		model.AttemptStatusCompleted, at, id)
	return err
}
