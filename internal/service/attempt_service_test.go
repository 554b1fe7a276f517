package service

import (
	"context"
	"encoding/json"
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
	"github.com/mockielts/mockielts-backend/internal/events"
	"github.com/mockielts/mockielts-backend/internal/model"
)

// ─── Fakes ─────────────────────────────────────────────────────────

type fakeAttempts struct {
	mu       sync.Mutex
	attempts map[uuid.UUID]model.Attempt
}

func (f *fakeAttempts) GetByID(_ context.Context, id uuid.UUID) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &a, nil
}

func (f *fakeAttempts) Create(_ context.Context, a *model.Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = uuid.New()
	a.Status = model.AttemptStatusInProgress
	a.StartedAt = time.Now()
	f.attempts[a.ID] = *a
	return nil
}

func (f *fakeAttempts) SetCurrentSection(_ context.Context, id uuid.UUID, kind model.SectionKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.attempts[id]
	a.CurrentSection = &kind
	f.attempts[id] = a
	return nil
}

func (f *fakeAttempts) Complete(_ context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.attempts[id]
	a.Status = model.AttemptStatusCompleted
	a.CurrentSection = nil
	a.CompletedAt = &at
	f.attempts[id] = a
	return nil
}

type fakeResults struct {
	results map[string]model.SectionResult
}

func (f *fakeResults) Get(_ context.Context, attemptID uuid.UUID, kind model.SectionKind) (*model.SectionResult, error) {
	r, ok := f.results[attemptID.String()+string(kind)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &r, nil
}

type fakeAnswers struct {
	state map[string]model.SectionAnswers
}

func (f *fakeAnswers) LoadSection(_ context.Context, attemptID uuid.UUID, kind model.SectionKind) (model.SectionAnswers, error) {
	if s, ok := f.state[attemptID.String()+string(kind)]; ok {
		return s, nil
	}
	return model.NewSectionAnswers(), nil
}

type fakeTests struct {
	test model.Test
}

func (f *fakeTests) Structure(_ context.Context, id uuid.UUID) (*model.Test, error) {
	if id != f.test.ID {
		return nil, ErrTestNotFound
	}
	t := f.test
	return &t, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e *events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// ─── Fixture ───────────────────────────────────────────────────────

const fixtureStructure = `{
  "sections": [
    {
      "id": 1, "sectionType": "LISTENING", "timeLimitSec": 1800,
      "parts": [{"part": 1}],
      "items": [
        {"id": "l1", "part": 1, "order": 1, "questionText": "Name", "metaJson": {"answer": "Smith"}},
        {"id": "l2", "part": 1, "order": 2, "questionText": "Sky", "metaJson": {"qType": "TFNG", "answer": "TRUE"}}
      ],
      "media": [{"id": 9, "kind": "AUDIO", "openUrl": "/a.mp3"}]
    },
    {
      "id": 2, "sectionType": "WRITING", "timeLimitSec": 3600,
      "items": [
        {"id": "w1", "part": 1, "itemType": "WRITING_TASK", "questionText": "Describe", "metaJson": {"taskKey": "task1"}}
      ]
    }
  ]
}`

type harness struct {
	svc       *AttemptService
	mr        *miniredis.Miniredis
	rdb       *redis.Client
	attempts  *fakeAttempts
	results   *fakeResults
	publisher *recordingPublisher
	test      model.Test
	now       time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, fixtureStructure)
}

func newHarnessWith(t *testing.T, doc string) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	var structure model.TestStructure
	require.NoError(t, json.Unmarshal([]byte(doc), &structure))
	test := model.Test{ID: uuid.New(), Title: "Mock 1", Status: model.TestStatusPublished, Structure: structure}

	h := &harness{
		mr:        mr,
		rdb:       rdb,
		attempts:  &fakeAttempts{attempts: map[uuid.UUID]model.Attempt{}},
		results:   &fakeResults{results: map[string]model.SectionResult{}},
		publisher: &recordingPublisher{},
		test:      test,
		now:       time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	cfg := &config.Config{SubmitGrace: 10 * time.Second}
	h.svc = NewAttemptService(h.attempts, h.results, &fakeAnswers{state: map[string]model.SectionAnswers{}},
		&fakeTests{test: test}, rdb, h.publisher, cfg, zerolog.Nop())
	h.svc.now = func() time.Time { return h.now }
	return h
}

func (h *harness) start(t *testing.T, sections ...string) *model.Attempt {
	t.Helper()
	a, err := h.svc.Start(context.Background(), "user-1", model.StartAttemptRequest{
		TestID:            h.test.ID.String(),
		RequestedSections: sections,
	})
	require.NoError(t, err)
	return a
}

// ─── Tests ─────────────────────────────────────────────────────────

func TestStart_DefaultsToSectionsOfTest(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)

	assert.Equal(t, []model.SectionKind{model.SectionListening, model.SectionWriting}, a.RequestedSections)
	require.NotNil(t, a.CurrentSection)
	assert.Equal(t, model.SectionListening, *a.CurrentSection)
	assert.Equal(t, model.AttemptModeFull, a.Mode)
}

func TestStart_RejectsSectionMissingFromTest(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Start(context.Background(), "user-1", model.StartAttemptRequest{
		TestID:            h.test.ID.String(),
		RequestedSections: []string{"READING"},
	})
	assert.ErrorIs(t, err, ErrSectionNotInTest)
}

func TestGet_ChecksOwner(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)

	_, err := h.svc.Get(context.Background(), "someone-else", a.ID)
	assert.ErrorIs(t, err, ErrNotAttemptOwner)

	_, err = h.svc.Get(context.Background(), "user-1", uuid.New())
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestSection_StartsCountdownAndRedacts(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)
	ctx := context.Background()

	view, err := h.svc.Section(ctx, a, model.SectionListening)
	require.NoError(t, err)

	require.NotNil(t, view.Listening)
	assert.Equal(t, 2, view.Listening.TotalQuestions)
	for _, q := range view.Listening.Parts[0].Questions {
		assert.True(t, q.CorrectAnswer.IsEmpty(), "answer key leaked")
	}
	assert.True(t, view.Session.Started)
	assert.Equal(t, 1800, view.Session.RemainingSeconds)
	require.NotNil(t, view.Session.Deadline)
	assert.True(t, h.now.Add(30*time.Minute).Equal(*view.Session.Deadline))

	score, err := h.mr.ZScore(config.CacheKey.SectionDeadlinesKey(),
		config.CacheKey.DeadlineMember(a.ID.String(), "LISTENING"))
	require.NoError(t, err)
	assert.Equal(t, float64(h.now.Add(30*time.Minute).Unix()), score)

	// reopening later keeps the original start
	h.now = h.now.Add(10 * time.Minute)
	view, err = h.svc.Section(ctx, a, model.SectionListening)
	require.NoError(t, err)
	assert.Equal(t, 1200, view.Session.RemainingSeconds)
}

func TestSection_NotRequested(t *testing.T) {
	h := newHarness(t)
	a := h.start(t, "WRITING")
	_, err := h.svc.Section(context.Background(), a, model.SectionListening)
	assert.ErrorIs(t, err, ErrSectionNotRequested)
}

func TestUpsertAnswers(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)
	ctx := context.Background()

	_, err := h.svc.UpsertAnswers(ctx, a, model.UpsertAnswersRequest{
		Answers: []model.ItemAnswerPayload{{ItemID: "1", AnswerText: "smith"}},
	})
	assert.ErrorIs(t, err, ErrSectionNotStarted)

	_, err = h.svc.Section(ctx, a, model.SectionListening)
	require.NoError(t, err)

	session, err := h.svc.UpsertAnswers(ctx, a, model.UpsertAnswersRequest{
		Answers: []model.ItemAnswerPayload{
			{ItemID: "1", AnswerText: "smith"},
			{ItemID: "2", AnswerJSON: json.RawMessage(`{"value":"TRUE"}`)},
			{ItemID: "oops", AnswerText: "ignored"},
		},
	})
	require.NoError(t, err)
	assert.Len(t, session.Answers, 2)
	assert.Equal(t, "smith", session.Answers[1].Value.Text())

	// clearing an answer removes it
	session, err = h.svc.UpsertAnswers(ctx, a, model.UpsertAnswersRequest{
		Answers: []model.ItemAnswerPayload{{ItemID: "2"}},
	})
	require.NoError(t, err)
	assert.Len(t, session.Answers, 1)

	queued, err := h.rdb.LLen(ctx, config.WorkerKey.PersistAnswersQueue).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), queued)

	raw, err := h.rdb.LIndex(ctx, config.WorkerKey.PersistAnswersQueue, -1).Result()
	require.NoError(t, err)
	var batch model.AnswerBatch
	require.NoError(t, json.Unmarshal([]byte(raw), &batch))
	assert.Equal(t, model.SectionListening, batch.Section)
	require.Len(t, batch.Answers, 1)
	assert.Equal(t, "1", batch.Answers[0].ItemID)
}

func TestUpsertAnswers_RefusedAfterDeadlinePlusGrace(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)
	ctx := context.Background()
	_, err := h.svc.Section(ctx, a, model.SectionListening)
	require.NoError(t, err)

	req := model.UpsertAnswersRequest{Answers: []model.ItemAnswerPayload{{ItemID: "1", AnswerText: "x"}}}

	h.now = h.now.Add(30*time.Minute + 5*time.Second)
	_, err = h.svc.UpsertAnswers(ctx, a, req)
	assert.NoError(t, err, "within grace")

	h.now = h.now.Add(5 * time.Second)
	_, err = h.svc.UpsertAnswers(ctx, a, req)
	assert.ErrorIs(t, err, ErrSectionExpired, "grace ends exactly at deadline plus grace")
}

func TestSubmitSection_ScoresOnceAndIsIdempotent(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)
	ctx := context.Background()
	_, err := h.svc.Section(ctx, a, model.SectionListening)
	require.NoError(t, err)
	_, err = h.svc.UpsertAnswers(ctx, a, model.UpsertAnswersRequest{
		Answers: []model.ItemAnswerPayload{
			{ItemID: "1", AnswerText: "  SMITH "},
			{ItemID: "2", AnswerText: "FALSE"},
		},
	})
	require.NoError(t, err)

	h.now = h.now.Add(45 * time.Minute)
	res, err := h.svc.SubmitSection(ctx, a, model.SectionListening, model.TriggerManual)
	require.NoError(t, err)
	require.NotNil(t, res.Graded)
	assert.Equal(t, 1, res.Graded.CorrectAnswers)
	assert.Equal(t, 2, res.Graded.TotalQuestions)
	assert.Equal(t, 1800, res.Graded.TimeSpent, "time spent is capped at the section duration")
	assert.Equal(t, h.test.ID.String(), res.Graded.TestID)

	again, err := h.svc.SubmitSection(ctx, a, model.SectionListening, model.TriggerExpired)
	require.NoError(t, err)
	assert.Equal(t, model.TriggerManual, again.Trigger)
	assert.Equal(t, res.Graded.Score, again.Graded.Score)

	queued, err := h.rdb.LLen(ctx, config.WorkerKey.PersistResultsQueue).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), queued)
	assert.Equal(t, []events.EventType{events.EventSectionSubmitted}, h.publisher.types())

	members, err := h.rdb.ZCard(ctx, config.CacheKey.SectionDeadlinesKey()).Result()
	require.NoError(t, err)
	assert.Zero(t, members)

	_, err = h.svc.UpsertAnswers(ctx, a, model.UpsertAnswersRequest{
		Answers: []model.ItemAnswerPayload{{ItemID: "1", AnswerText: "late"}},
	})
	assert.ErrorIs(t, err, ErrSectionSubmitted)
}

func TestUpsertAnswers_SplitsCommaJoinedBlanks(t *testing.T) {
	h := newHarnessWith(t, `{
  "sections": [
    {
      "id": 1, "sectionType": "LISTENING", "timeLimitSec": 1800,
      "parts": [{"part": 1}],
      "items": [
        {"id": "l1", "part": 1, "order": 1, "questionText": "Where and when", "metaJson": {"blanks": 2, "answer": ["north", "12"]}},
        {"id": "l2", "part": 1, "order": 2, "questionText": "Name", "metaJson": {"answer": "Smith, John"}}
      ]
    }
  ]
}`)
	a := h.start(t)
	ctx := context.Background()
	_, err := h.svc.Section(ctx, a, model.SectionListening)
	require.NoError(t, err)

	session, err := h.svc.UpsertAnswers(ctx, a, model.UpsertAnswersRequest{
		Answers: []model.ItemAnswerPayload{
			{ItemID: "1", AnswerText: "north,12", AnswerJSON: json.RawMessage(`{}`)},
			{ItemID: "2", AnswerText: "Smith, John", AnswerJSON: json.RawMessage(`{}`)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"north", "12"}, session.Answers[1].Value.Items())
	assert.False(t, session.Answers[2].Value.IsList(), "single blank keeps its commas")

	res, err := h.svc.SubmitSection(ctx, a, model.SectionListening, model.TriggerManual)
	require.NoError(t, err)
	require.NotNil(t, res.Graded)
	assert.Equal(t, 2, res.Graded.CorrectAnswers)
}

func TestUpsertAnswers_RefusedOnceSubmitGuardIsTaken(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)
	ctx := context.Background()
	_, err := h.svc.Section(ctx, a, model.SectionListening)
	require.NoError(t, err)

	// a submission wins the guard after UpsertAnswers has passed its early check
	guard := config.CacheKey.SectionSubmittedKey(a.ID.String(), "LISTENING")
	require.NoError(t, h.mr.Set(guard, string(model.TriggerManual)))

	err = h.svc.writeAnswers(ctx, a.ID, model.SectionListening, map[string]any{"q:1": `"late"`}, nil)
	assert.ErrorIs(t, err, ErrSectionSubmitted)
	assert.False(t, h.mr.Exists(config.CacheKey.SectionAnswersKey(a.ID.String(), "LISTENING")))
}

func TestSubmitSection_StoreFailureReleasesGuard(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)
	ctx := context.Background()
	_, err := h.svc.Section(ctx, a, model.SectionListening)
	require.NoError(t, err)

	id := a.ID.String()
	// a string at the queue key makes RPUSH fail inside the MULTI
	require.NoError(t, h.mr.Set(config.WorkerKey.PersistResultsQueue, "x"))

	_, err = h.svc.SubmitSection(ctx, a, model.SectionListening, model.TriggerManual)
	require.Error(t, err)
	assert.False(t, h.mr.Exists(config.CacheKey.SectionSubmittedKey(id, "LISTENING")))
	assert.False(t, h.mr.Exists(config.CacheKey.SectionResultKey(id, "LISTENING")))
	members, err := h.rdb.ZCard(ctx, config.CacheKey.SectionDeadlinesKey()).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), members, "deadline kept for the sweeper")
	assert.Empty(t, h.publisher.types())

	h.mr.Del(config.WorkerKey.PersistResultsQueue)
	res, err := h.svc.SubmitSection(ctx, a, model.SectionListening, model.TriggerManual)
	require.NoError(t, err)
	require.NotNil(t, res.Graded)

	queued, err := h.rdb.LLen(ctx, config.WorkerKey.PersistResultsQueue).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), queued)
}

func TestSubmitSection_ConcurrentCallersShareOneResult(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)
	ctx := context.Background()
	_, err := h.svc.Section(ctx, a, model.SectionListening)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*model.SectionResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := h.svc.SubmitSection(ctx, a, model.SectionListening, model.TriggerExpired)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, results[0].Graded.CompletedAt, r.Graded.CompletedAt)
	}
	assert.Len(t, h.publisher.types(), 1)
}

func TestAdvanceAndSubmit(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)
	ctx := context.Background()
	_, err := h.svc.Section(ctx, a, model.SectionListening)
	require.NoError(t, err)

	a, res, err := h.svc.Advance(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, model.SectionListening, res.Section)
	require.NotNil(t, a.CurrentSection)
	assert.Equal(t, model.SectionWriting, *a.CurrentSection)

	_, err = h.svc.Section(ctx, a, model.SectionWriting)
	require.NoError(t, err)
	_, err = h.svc.UpsertAnswers(ctx, a, model.UpsertAnswersRequest{
		Writings: []model.WritingPayload{{TaskKey: "task1", Text: "one two three"}},
	})
	require.NoError(t, err)

	result, err := h.svc.Submit(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptStatusCompleted, result.Status)
	require.Len(t, result.Sections, 2)
	require.NotNil(t, result.Sections[1].Writing)
	assert.Equal(t, 3, result.Sections[1].Writing.Tasks[0].Words)
	require.NotNil(t, result.OverallBand)

	assert.Equal(t, []events.EventType{
		events.EventSectionSubmitted,
		events.EventSectionSubmitted,
		events.EventAttemptCompleted,
	}, h.publisher.types())

	_, err = h.svc.Submit(ctx, a)
	assert.ErrorIs(t, err, ErrAttemptCompleted)
	_, _, err = h.svc.Advance(ctx, a)
	assert.ErrorIs(t, err, ErrAttemptCompleted)
}

func TestExpireSection_MovesToNextSection(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)
	ctx := context.Background()
	_, err := h.svc.Section(ctx, a, model.SectionListening)
	require.NoError(t, err)

	h.now = h.now.Add(31 * time.Minute)
	res, err := h.svc.ExpireSection(ctx, a.ID, model.SectionListening)
	require.NoError(t, err)
	assert.Equal(t, model.TriggerExpired, res.Trigger)

	stored, err := h.attempts.GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CurrentSection)
	assert.Equal(t, model.SectionWriting, *stored.CurrentSection)
}

func TestResult_FallsBackToDatabase(t *testing.T) {
	h := newHarness(t)
	a := h.start(t)
	stored := model.SectionResult{
		AttemptID: a.ID,
		Section:   model.SectionListening,
		Trigger:   model.TriggerManual,
		Graded:    &model.TestResult{Score: 6.5},
	}
	h.results.results[a.ID.String()+"LISTENING"] = stored

	result, err := h.svc.Result(context.Background(), a)
	require.NoError(t, err)
	require.Len(t, result.Sections, 1)
	require.NotNil(t, result.OverallBand)
	assert.Equal(t, 6.5, *result.OverallBand)
}

func TestPracticeModeIsUntimed(t *testing.T) {
	h := newHarness(t)
	a, err := h.svc.Start(context.Background(), "user-1", model.StartAttemptRequest{
		TestID: h.test.ID.String(),
		Mode:   "PRACTICE",
	})
	require.NoError(t, err)

	view, err := h.svc.Section(context.Background(), a, model.SectionListening)
	require.NoError(t, err)
	assert.Nil(t, view.Session.Deadline)
	assert.False(t, h.mr.Exists(config.CacheKey.SectionDeadlinesKey()))
}
