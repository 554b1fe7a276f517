package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockielts/mockielts-backend/internal/config"
	"github.com/mockielts/mockielts-backend/internal/model"
)

type memoryTests struct {
	mu    sync.Mutex
	tests map[uuid.UUID]model.Test
	reads int
}

func newMemoryTests() *memoryTests {
	return &memoryTests{tests: map[uuid.UUID]model.Test{}}
}

func (m *memoryTests) GetByID(_ context.Context, id uuid.UUID) (*model.Test, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	t, ok := m.tests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (m *memoryTests) ListPaginated(_ context.Context, status model.TestStatus, limit, offset int) ([]model.Test, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Test
	for _, t := range m.tests {
		if status == "" || t.Status == status {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

func (m *memoryTests) ListPublished(ctx context.Context) ([]model.Test, error) {
	out, _, err := m.ListPaginated(ctx, model.TestStatusPublished, 1000, 0)
	return out, err
}

func (m *memoryTests) Create(_ context.Context, t *model.Test) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = uuid.New()
	t.Status = model.TestStatusDraft
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	m.tests[t.ID] = *t
	return nil
}

func (m *memoryTests) UpdateDraft(_ context.Context, t *model.Test) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.tests[t.ID]
	if !ok || cur.Status != model.TestStatusDraft {
		return pgx.ErrNoRows
	}
	m.tests[t.ID] = *t
	return nil
}

func (m *memoryTests) DeleteDraft(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.tests[id]
	if !ok || cur.Status != model.TestStatusDraft {
		return false, nil
	}
	delete(m.tests, id)
	return true, nil
}

func (m *memoryTests) UpdateStatus(_ context.Context, id uuid.UUID, status model.TestStatus) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tests[id]
	if !ok {
		return time.Time{}, pgx.ErrNoRows
	}
	now := time.Now()
	t.Status = status
	t.UpdatedAt = now
	if status == model.TestStatusPublished {
		t.PublishedAt = &now
	}
	m.tests[id] = t
	return now, nil
}

func newTestService(t *testing.T) (*TestService, *memoryTests, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	store := newMemoryTests()
	return NewTestService(store, rdb, zerolog.Nop()), store, mr
}

func createFixture(t *testing.T, svc *TestService) *model.Test {
	t.Helper()
	var structure model.TestStructure
	require.NoError(t, json.Unmarshal([]byte(fixtureStructure), &structure))
	test, err := svc.Create(context.Background(), "admin-1", model.CreateTestRequest{Title: "Mock 1", Structure: structure})
	require.NoError(t, err)
	return test
}

func TestTestService_PublishCachesBothCopies(t *testing.T) {
	svc, _, mr := newTestService(t)
	ctx := context.Background()
	test := createFixture(t, svc)

	published, err := svc.Publish(ctx, test.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TestStatusPublished, published.Status)
	assert.NotNil(t, published.PublishedAt)

	full, err := mr.Get(config.CacheKey.TestStructureKey(test.ID.String()))
	require.NoError(t, err)
	assert.Contains(t, full, "Smith")

	candidate, err := mr.Get(config.CacheKey.TestCandidateKey(test.ID.String()))
	require.NoError(t, err)
	assert.NotContains(t, candidate, "Smith")
	assert.NotContains(t, candidate, "admin-1")

	_, err = svc.Publish(ctx, test.ID)
	assert.ErrorIs(t, err, ErrTestNotDraft)
}

func TestTestService_PublishRejectsEmptyTest(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	test, err := svc.Create(ctx, "admin-1", model.CreateTestRequest{
		Title:     "Empty",
		Structure: model.TestStructure{Sections: []model.Section{{SectionType: "READING"}}},
	})
	require.NoError(t, err)

	_, err = svc.Publish(ctx, test.ID)
	assert.ErrorIs(t, err, ErrTestEmpty)
}

func TestTestService_OnlyDraftsAreEditable(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	test := createFixture(t, svc)

	updated, err := svc.Update(ctx, test.ID, model.UpdateTestRequest{Title: "Mock 1 (revised)"})
	require.NoError(t, err)
	assert.Equal(t, "Mock 1 (revised)", updated.Title)
	assert.Len(t, updated.Structure.Sections, 2)

	_, err = svc.Publish(ctx, test.ID)
	require.NoError(t, err)

	_, err = svc.Update(ctx, test.ID, model.UpdateTestRequest{Title: "Again"})
	assert.ErrorIs(t, err, ErrTestNotDraft)
	assert.ErrorIs(t, svc.Delete(ctx, test.ID), ErrTestNotDraft)
}

func TestTestService_StructureReadsThroughCache(t *testing.T) {
	svc, store, mr := newTestService(t)
	ctx := context.Background()
	test := createFixture(t, svc)
	_, err := svc.Publish(ctx, test.ID)
	require.NoError(t, err)

	mr.FlushAll()
	reads := store.reads

	_, err = svc.Structure(ctx, test.ID)
	require.NoError(t, err)
	assert.Equal(t, reads+1, store.reads)

	_, err = svc.Structure(ctx, test.ID)
	require.NoError(t, err)
	assert.Equal(t, reads+1, store.reads, "second read should be served from redis")
}

func TestTestService_CandidateStructureRequiresPublished(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	test := createFixture(t, svc)

	_, err := svc.CandidateStructure(ctx, test.ID)
	assert.ErrorIs(t, err, ErrTestNotPublished)

	_, err = svc.CandidateStructure(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrTestNotFound)
}

func TestTestService_ArchiveKeepsStructureForRunningAttempts(t *testing.T) {
	svc, _, mr := newTestService(t)
	ctx := context.Background()
	test := createFixture(t, svc)
	_, err := svc.Publish(ctx, test.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Archive(ctx, test.ID))
	assert.False(t, mr.Exists(config.CacheKey.TestCandidateKey(test.ID.String())))

	_, err = svc.CandidateStructure(ctx, test.ID)
	assert.ErrorIs(t, err, ErrTestNotPublished)

	archived, err := svc.Structure(ctx, test.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TestStatusArchived, archived.Status)

	published, err := svc.Published(ctx)
	require.NoError(t, err)
	assert.Empty(t, published)
}

func TestTestService_PrewarmAllCaches(t *testing.T) {
	svc, _, mr := newTestService(t)
	ctx := context.Background()
	a := createFixture(t, svc)
	b := createFixture(t, svc)
	_, err := svc.Publish(ctx, a.ID)
	require.NoError(t, err)
	mr.FlushAll()

	require.NoError(t, svc.PrewarmAllCaches(ctx))
	assert.True(t, mr.Exists(config.CacheKey.TestStructureKey(a.ID.String())))
	assert.False(t, mr.Exists(config.CacheKey.TestStructureKey(b.ID.String())))
}

func TestTestService_ListFiltersByStatus(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	a := createFixture(t, svc)
	createFixture(t, svc)
	_, err := svc.Publish(ctx, a.ID)
	require.NoError(t, err)

	all, pagination, err := svc.List(ctx, "", 1, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, 2, pagination.TotalItems)

	drafts, _, err := svc.List(ctx, model.TestStatusDraft, 1, 10)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, model.SectionListening, drafts[0].Sections[0].SectionType)
}
