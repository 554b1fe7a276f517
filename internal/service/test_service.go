package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mockielts/mockielts-backend/internal/config"
	"github.com/mockielts/mockielts-backend/internal/model"
	"github.com/mockielts/mockielts-backend/internal/response"
	"github.com/mockielts/mockielts-backend/internal/section"
)

// Domain Errors
var (
	ErrTestNotFound     = errors.New("test not found")
	ErrTestNotDraft     = errors.New("test status is not DRAFT")
	ErrTestNotPublished = errors.New("test status is not PUBLISHED")
	ErrTestEmpty        = errors.New("test has no section with content")
)

// TestStore is the persistence the catalogue needs.
type TestStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error)
	ListPaginated(ctx context.Context, status model.TestStatus, limit, offset int) ([]model.Test, int, error)
	ListPublished(ctx context.Context) ([]model.Test, error)
	Create(ctx context.Context, t *model.Test) error
	UpdateDraft(ctx context.Context, t *model.Test) error
	DeleteDraft(ctx context.Context, id uuid.UUID) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.TestStatus) (time.Time, error)
}

// TestService handles the test catalogue and its Redis cache.
type TestService struct {
	repo TestStore
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewTestService creates a new TestService.
func NewTestService(repo TestStore, rdb *redis.Client, log zerolog.Logger) *TestService {
	return &TestService{
		repo: repo,
		rdb:  rdb,
		log:  log.With().Str("component", "test_service").Logger(),
	}
}

// Get retrieves a test with its full structure.
func (s *TestService) Get(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("get test: %w", err)
	}
	return t, nil
}

// List returns catalogue summaries, optionally filtered by status.
func (s *TestService) List(ctx context.Context, status model.TestStatus, page, perPage int) ([]model.TestSummary, *response.Pagination, error) {
	p := response.NewPagination(page, perPage, 0)
	tests, total, err := s.repo.ListPaginated(ctx, status, p.PerPage, p.Offset())
	if err != nil {
		return nil, nil, fmt.Errorf("list tests: %w", err)
	}
	summaries := make([]model.TestSummary, len(tests))
	for i, t := range tests {
		summaries[i] = t.Summary()
	}
	return summaries, response.NewPagination(p.Page, p.PerPage, total), nil
}

// Create inserts a new test as DRAFT.
func (s *TestService) Create(ctx context.Context, createdBy string, req model.CreateTestRequest) (*model.Test, error) {
	t := &model.Test{
		Title:     req.Title,
		Structure: req.Structure,
		CreatedBy: createdBy,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create test: %w", err)
	}
	s.log.Info().Str("test_id", t.ID.String()).Str("created_by", createdBy).Msg("Test created")
	return t, nil
}

// Update modifies an existing draft test.
func (s *TestService) Update(ctx context.Context, id uuid.UUID, req model.UpdateTestRequest) (*model.Test, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status != model.TestStatusDraft {
		return nil, ErrTestNotDraft
	}
	if req.Title != "" {
		t.Title = req.Title
	}
	if req.Structure != nil {
		t.Structure = *req.Structure
	}
	if err := s.repo.UpdateDraft(ctx, t); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTestNotDraft
		}
		return nil, fmt.Errorf("update test: %w", err)
	}
	return t, nil
}

// Delete removes a draft test.
func (s *TestService) Delete(ctx context.Context, id uuid.UUID) error {
	t, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if t.Status != model.TestStatusDraft {
		return ErrTestNotDraft
	}
	deleted, err := s.repo.DeleteDraft(ctx, id)
	if err != nil {
		return fmt.Errorf("delete test: %w", err)
	}
	if !deleted {
		return ErrTestNotDraft
	}
	return nil
}

// Publish changes a draft to PUBLISHED and caches both structures in Redis.
func (s *TestService) Publish(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status != model.TestStatusDraft {
		return nil, ErrTestNotDraft
	}
	if !t.Structure.HasContent() {
		return nil, ErrTestEmpty
	}

	updated, err := s.repo.UpdateStatus(ctx, id, model.TestStatusPublished)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	t.Status = model.TestStatusPublished
	t.UpdatedAt = updated
	t.PublishedAt = &updated

	if err := s.WarmCache(ctx, t); err != nil {
		return nil, err
	}

	s.log.Info().Str("test_id", id.String()).Msg("Test published")
	return t, nil
}

// Archive withdraws a published test from the catalogue.
func (s *TestService) Archive(ctx context.Context, id uuid.UUID) error {
	t, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if t.Status != model.TestStatusPublished {
		return ErrTestNotPublished
	}
	if _, err := s.repo.UpdateStatus(ctx, id, model.TestStatusArchived); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	key := id.String()
	if err := s.rdb.Del(ctx, config.CacheKey.TestStructureKey(key), config.CacheKey.TestCandidateKey(key)).Err(); err != nil {
		s.log.Warn().Err(err).Str("test_id", key).Msg("Failed to evict test cache")
	}
	s.log.Info().Str("test_id", key).Msg("Test archived")
	return nil
}

// RefreshCache re-caches a published test.
func (s *TestService) RefreshCache(ctx context.Context, id uuid.UUID) error {
	t, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if t.Status != model.TestStatusPublished {
		return ErrTestNotPublished
	}
	if err := s.WarmCache(ctx, t); err != nil {
		return err
	}
	s.log.Info().Str("test_id", id.String()).Msg("Cache refreshed")
	return nil
}

// WarmCache stores the full test and its answer-free candidate copy in Redis.
func (s *TestService) WarmCache(ctx context.Context, t *model.Test) error {
	full, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal test: %w", err)
	}
	candidate := *t
	candidate.Structure = section.RedactStructure(t.Structure)
	candidate.CreatedBy = ""
	redacted, err := json.Marshal(candidate)
	if err != nil {
		return fmt.Errorf("marshal candidate test: %w", err)
	}

	key := t.ID.String()
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.TestStructureKey(key), full, 0)
	pipe.Set(ctx, config.CacheKey.TestCandidateKey(key), redacted, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("test_id", key).
		Int("sections", len(t.Structure.Sections)).
		Msg("Cache warmed")
	return nil
}

// PrewarmAllCaches loads every published test into Redis on startup.
func (s *TestService) PrewarmAllCaches(ctx context.Context) error {
	tests, err := s.repo.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published tests: %w", err)
	}
	if len(tests) == 0 {
		s.log.Info().Msg("No published tests to prewarm")
		return nil
	}

	warmed := 0
	for i := range tests {
		if err := s.WarmCache(ctx, &tests[i]); err != nil {
			s.log.Warn().Err(err).Str("test_id", tests[i].ID.String()).Msg("Failed to warm test, skipping")
			continue
		}
		warmed++
	}
	s.log.Info().Int("warmed", warmed).Int("total", len(tests)).Msg("Prewarming complete")
	return nil
}

// Published lists tests candidates can attempt.
func (s *TestService) Published(ctx context.Context) ([]model.TestSummary, error) {
	tests, err := s.repo.ListPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("list published tests: %w", err)
	}
	summaries := make([]model.TestSummary, len(tests))
	for i, t := range tests {
		summaries[i] = t.Summary()
	}
	return summaries, nil
}

// Structure returns a published or archived test with answer keys, reading
// through the cache.
func (s *TestService) Structure(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	return s.cached(ctx, id, config.CacheKey.TestStructureKey(id.String()))
}

// CandidateStructure returns a published test with answer keys removed.
func (s *TestService) CandidateStructure(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	return s.cached(ctx, id, config.CacheKey.TestCandidateKey(id.String()))
}

func (s *TestService) cached(ctx context.Context, id uuid.UUID, key string) (*model.Test, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var t model.Test
		if err := json.Unmarshal(data, &t); err == nil {
			return &t, nil
		}
		s.log.Warn().Str("key", key).Msg("Corrupt cached test, reloading")
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Str("key", key).Msg("Cache read failed, reloading")
	}

	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status == model.TestStatusArchived && key == config.CacheKey.TestStructureKey(id.String()) {
		// Attempts already under way keep scoring against an archived test.
		return t, nil
	}
	if t.Status != model.TestStatusPublished {
		return nil, ErrTestNotPublished
	}
	if err := s.WarmCache(ctx, t); err != nil {
		s.log.Warn().Err(err).Str("test_id", id.String()).Msg("Cache warm failed")
	}
	if key == config.CacheKey.TestCandidateKey(id.String()) {
		t.Structure = section.RedactStructure(t.Structure)
		t.CreatedBy = ""
	}
	return t, nil
}
