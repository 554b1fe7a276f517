package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mockielts/mockielts-backend/internal/config"
	"github.com/mockielts/mockielts-backend/internal/events"
	"github.com/mockielts/mockielts-backend/internal/model"
	"github.com/mockielts/mockielts-backend/internal/scoring"
	"github.com/mockielts/mockielts-backend/internal/section"
)

// Attempt errors
var (
	ErrAttemptNotFound     = errors.New("attempt not found")
	ErrNotAttemptOwner     = errors.New("attempt belongs to another user")
	ErrAttemptCompleted    = errors.New("attempt already completed")
	ErrSectionNotRequested = errors.New("section not requested for this attempt")
	ErrSectionNotInTest    = errors.New("section not present in test")
	ErrSectionSubmitted    = errors.New("section already submitted")
	ErrSectionExpired      = errors.New("section time expired")
	ErrSectionNotStarted   = errors.New("section not started")
)

const (
	// sessionTTL bounds how long per-section Redis state outlives an attempt.
	sessionTTL = 7 * 24 * time.Hour

	submitWaitTimeout = 3 * time.Second
	submitWaitStep    = 50 * time.Millisecond

	fieldAnswer    = "q"
	fieldWriting   = "w"
	fieldRecording = "r"
)

// AttemptStore is the attempt persistence.
type AttemptStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error)
	Create(ctx context.Context, a *model.Attempt) error
	SetCurrentSection(ctx context.Context, id uuid.UUID, kind model.SectionKind) error
	Complete(ctx context.Context, id uuid.UUID, at time.Time) error
}

// ResultStore reads persisted section results.
type ResultStore interface {
	Get(ctx context.Context, attemptID uuid.UUID, kind model.SectionKind) (*model.SectionResult, error)
}

// AnswerStore reads persisted answers when Redis has lost them.
type AnswerStore interface {
	LoadSection(ctx context.Context, attemptID uuid.UUID, kind model.SectionKind) (model.SectionAnswers, error)
}

// TestSource resolves published tests with answer keys.
type TestSource interface {
	Structure(ctx context.Context, id uuid.UUID) (*model.Test, error)
}

// AttemptService runs candidate attempts. Section state lives in Redis while
// the attempt is in flight; workers persist it to PostgreSQL.
type AttemptService struct {
	attempts AttemptStore
	results  ResultStore
	answers  AnswerStore
	tests    TestSource
	rdb      *redis.Client
	events   events.Publisher
	grace    time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	attempts AttemptStore,
	results ResultStore,
	answers AnswerStore,
	tests TestSource,
	rdb *redis.Client,
	publisher events.Publisher,
	cfg *config.Config,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attempts: attempts,
		results:  results,
		answers:  answers,
		tests:    tests,
		rdb:      rdb,
		events:   publisher,
		grace:    cfg.SubmitGrace,
		now:      time.Now,
		log:      log.With().Str("component", "attempt_service").Logger(),
	}
}

// ─── Attempts ──────────────────────────────────────────────────────

// Start creates an attempt on a published test. Without requested sections
// the attempt covers every section of the test in canonical order.
func (s *AttemptService) Start(ctx context.Context, userID string, req model.StartAttemptRequest) (*model.Attempt, error) {
	testID, err := uuid.Parse(req.TestID)
	if err != nil {
		return nil, ErrTestNotFound
	}
	test, err := s.tests.Structure(ctx, testID)
	if err != nil {
		return nil, err
	}
	if test.Status != model.TestStatusPublished {
		return nil, ErrTestNotPublished
	}

	available := test.Structure.Kinds()
	requested := make([]model.SectionKind, 0, len(req.RequestedSections))
	seen := map[model.SectionKind]bool{}
	for _, raw := range req.RequestedSections {
		kind, ok := model.ParseSectionKind(raw)
		if !ok || seen[kind] {
			continue
		}
		if _, ok := test.Structure.Section(kind); !ok {
			return nil, fmt.Errorf("%w: %s", ErrSectionNotInTest, kind)
		}
		seen[kind] = true
		requested = append(requested, kind)
	}
	if len(requested) == 0 {
		requested = available
	}
	if len(requested) == 0 {
		return nil, ErrTestEmpty
	}

	mode := model.AttemptModeFull
	if req.Mode == string(model.AttemptModePractice) {
		mode = model.AttemptModePractice
	}
	first := requested[0]
	a := &model.Attempt{
		TestID:            testID,
		UserID:            userID,
		Mode:              mode,
		Random:            req.Random,
		RequestedSections: requested,
		CurrentSection:    &first,
	}
	if err := s.attempts.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	s.log.Info().
		Str("attempt_id", a.ID.String()).
		Str("test_id", testID.String()).
		Str("user_id", userID).
		Str("mode", string(mode)).
		Msg("Attempt started")
	return a, nil
}

// Get loads an attempt owned by userID.
func (s *AttemptService) Get(ctx context.Context, userID string, id uuid.UUID) (*model.Attempt, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, ErrNotAttemptOwner
	}
	return a, nil
}

func (s *AttemptService) load(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	a, err := s.attempts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return a, nil
}

// ─── Sections ──────────────────────────────────────────────────────

// Section returns the candidate view of a section together with its session
// state. The first open of an unsubmitted section starts its countdown.
func (s *AttemptService) Section(ctx context.Context, a *model.Attempt, kind model.SectionKind) (*model.SectionView, error) {
	sec, err := s.section(ctx, a, kind)
	if err != nil {
		return nil, err
	}

	if a.Status == model.AttemptStatusInProgress {
		if err := s.startSection(ctx, a, kind, sec); err != nil {
			return nil, err
		}
	}

	session, err := s.state(ctx, a, kind, sec)
	if err != nil {
		return nil, err
	}
	view := section.Build(kind, sec).Redacted()
	view.Session = *session
	return &view, nil
}

// State returns the session snapshot of a section without starting it.
func (s *AttemptService) State(ctx context.Context, a *model.Attempt, kind model.SectionKind) (*model.SectionSession, error) {
	sec, err := s.section(ctx, a, kind)
	if err != nil {
		return nil, err
	}
	return s.state(ctx, a, kind, sec)
}

// Countdown returns the timer of a started section.
func (s *AttemptService) Countdown(ctx context.Context, a *model.Attempt, kind model.SectionKind) (Countdown, bool, error) {
	sec, err := s.section(ctx, a, kind)
	if err != nil {
		return Countdown{}, false, err
	}
	return s.countdown(ctx, a, kind, sec)
}

func (s *AttemptService) section(ctx context.Context, a *model.Attempt, kind model.SectionKind) (model.Section, error) {
	if !a.Requested(kind) {
		return model.Section{}, ErrSectionNotRequested
	}
	test, err := s.tests.Structure(ctx, a.TestID)
	if err != nil {
		return model.Section{}, err
	}
	sec, ok := section.Find(test.Structure, kind)
	if !ok {
		return model.Section{}, ErrSectionNotInTest
	}
	return sec, nil
}

func (s *AttemptService) duration(a *model.Attempt, sec model.Section) time.Duration {
	if a.Mode == model.AttemptModePractice || sec.TimeLimitSec <= 0 {
		return 0
	}
	return time.Duration(sec.TimeLimitSec * float64(time.Second))
}

func (s *AttemptService) startSection(ctx context.Context, a *model.Attempt, kind model.SectionKind, sec model.Section) error {
	id := a.ID.String()
	now := s.now()
	started, err := s.rdb.SetNX(ctx, config.CacheKey.SectionStartedKey(id, string(kind)), now.Unix(), sessionTTL).Result()
	if err != nil {
		return fmt.Errorf("start section: %w", err)
	}
	if !started {
		return nil
	}

	if d := s.duration(a, sec); d > 0 {
		deadline := Countdown{StartedAt: time.Unix(now.Unix(), 0), Duration: d}.Deadline()
		if err := s.rdb.ZAdd(ctx, config.CacheKey.SectionDeadlinesKey(), redis.Z{
			Score:  float64(deadline.Unix()),
			Member: config.CacheKey.DeadlineMember(id, string(kind)),
		}).Err(); err != nil {
			return fmt.Errorf("schedule deadline: %w", err)
		}
	}
	s.log.Info().Str("attempt_id", id).Str("section", string(kind)).Msg("Section started")
	return nil
}

func (s *AttemptService) countdown(ctx context.Context, a *model.Attempt, kind model.SectionKind, sec model.Section) (Countdown, bool, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.SectionStartedKey(a.ID.String(), string(kind))).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Countdown{Duration: s.duration(a, sec)}, false, nil
		}
		return Countdown{}, false, fmt.Errorf("read section start: %w", err)
	}
	return Countdown{StartedAt: time.Unix(raw, 0), Duration: s.duration(a, sec)}, true, nil
}

func (s *AttemptService) state(ctx context.Context, a *model.Attempt, kind model.SectionKind, sec model.Section) (*model.SectionSession, error) {
	cd, started, err := s.countdown(ctx, a, kind, sec)
	if err != nil {
		return nil, err
	}
	answers, err := s.loadAnswers(ctx, a.ID, kind)
	if err != nil {
		return nil, err
	}
	result, submitted, err := s.storedResult(ctx, a.ID, kind, false)
	if err != nil {
		return nil, err
	}

	session := &model.SectionSession{
		AttemptID:      a.ID,
		Section:        kind,
		Started:        started,
		Submitted:      submitted,
		SectionAnswers: answers,
		Result:         result,
	}
	if started {
		startedAt := cd.StartedAt.UTC()
		session.StartedAt = &startedAt
		if cd.Timed() {
			deadline := cd.Deadline().UTC()
			session.Deadline = &deadline
			if !submitted {
				session.RemainingSeconds = int(cd.Remaining(s.now()) / time.Second)
			}
		}
	}
	return session, nil
}

// ─── Answers ───────────────────────────────────────────────────────

// UpsertAnswers merges answers into a started, unsubmitted section and queues
// the resulting state for persistence. The section defaults to the attempt's
// current section.
func (s *AttemptService) UpsertAnswers(ctx context.Context, a *model.Attempt, req model.UpsertAnswersRequest) (*model.SectionSession, error) {
	if a.Status != model.AttemptStatusInProgress {
		return nil, ErrAttemptCompleted
	}
	kind, err := s.targetSection(a, req.Section)
	if err != nil {
		return nil, err
	}
	sec, err := s.section(ctx, a, kind)
	if err != nil {
		return nil, err
	}

	cd, started, err := s.countdown(ctx, a, kind, sec)
	if err != nil {
		return nil, err
	}
	if !started {
		return nil, ErrSectionNotStarted
	}
	if _, submitted, err := s.storedResult(ctx, a.ID, kind, false); err != nil {
		return nil, err
	} else if submitted {
		return nil, ErrSectionSubmitted
	}
	if cd.Expired(s.now().Add(-s.grace)) {
		return nil, ErrSectionExpired
	}

	if err := s.hydrate(ctx, a.ID, kind); err != nil {
		return nil, err
	}

	blanks := section.Build(kind, sec).Blanks()
	set := map[string]any{}
	var clear []string
	for _, row := range req.Answers {
		id, value, ok := model.ParseItemAnswer(row)
		if !ok {
			continue
		}
		value = model.SplitBlanks(value, blanks[id])
		if row.AudioFileID != "" {
			set[answerField(fieldRecording, strconv.Itoa(id))] = row.AudioFileID
		}
		field := answerField(fieldAnswer, strconv.Itoa(id))
		if value.IsEmpty() {
			if row.AudioFileID == "" {
				clear = append(clear, field)
			}
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode answer: %w", err)
		}
		set[field] = string(raw)
	}
	for _, w := range req.Writings {
		set[answerField(fieldWriting, w.TaskKey)] = w.Text
	}

	if err := s.writeAnswers(ctx, a.ID, kind, set, clear); err != nil {
		return nil, err
	}

	session, err := s.state(ctx, a, kind, sec)
	if err != nil {
		return nil, err
	}
	s.enqueueAnswers(ctx, a.ID, kind, session.SectionAnswers)
	return session, nil
}

// writeAnswers applies an answer update unless the section's submit guard is
// taken. The guard is watched so a submission that starts between the check
// and the write aborts the write.
func (s *AttemptService) writeAnswers(ctx context.Context, attemptID uuid.UUID, kind model.SectionKind, set map[string]any, clear []string) error {
	id := attemptID.String()
	guard := config.CacheKey.SectionSubmittedKey(id, string(kind))
	key := config.CacheKey.SectionAnswersKey(id, string(kind))

	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		taken, err := tx.Exists(ctx, guard).Result()
		if err != nil {
			return fmt.Errorf("read submit guard: %w", err)
		}
		if taken > 0 {
			return ErrSectionSubmitted
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(set) > 0 {
				pipe.HSet(ctx, key, set)
			}
			if len(clear) > 0 {
				pipe.HDel(ctx, key, clear...)
			}
			pipe.Expire(ctx, key, sessionTTL)
			return nil
		})
		if err != nil {
			return fmt.Errorf("save answers: %w", err)
		}
		return nil
	}, guard)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrSectionSubmitted
	}
	return err
}

func (s *AttemptService) targetSection(a *model.Attempt, raw string) (model.SectionKind, error) {
	if raw == "" {
		if a.CurrentSection == nil {
			return "", ErrAttemptCompleted
		}
		return *a.CurrentSection, nil
	}
	kind, ok := model.ParseSectionKind(raw)
	if !ok {
		return "", ErrSectionNotRequested
	}
	return kind, nil
}

func answerField(prefix, id string) string { return prefix + ":" + id }

// hydrate seeds an absent answer hash from PostgreSQL so that a partial
// write cannot drop answers persisted earlier.
func (s *AttemptService) hydrate(ctx context.Context, attemptID uuid.UUID, kind model.SectionKind) error {
	key := config.CacheKey.SectionAnswersKey(attemptID.String(), string(kind))
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("check answers: %w", err)
	}
	if n > 0 {
		return nil
	}
	state, err := s.answers.LoadSection(ctx, attemptID, kind)
	if err != nil {
		return fmt.Errorf("load answers: %w", err)
	}
	fields := encodeAnswers(state)
	if len(fields) == 0 {
		return nil
	}
	return s.rdb.HSet(ctx, key, fields).Err()
}

func encodeAnswers(state model.SectionAnswers) map[string]any {
	fields := map[string]any{}
	for id, ans := range state.Answers {
		raw, err := json.Marshal(ans.Value)
		if err != nil {
			continue
		}
		fields[answerField(fieldAnswer, strconv.Itoa(id))] = string(raw)
	}
	for k, v := range state.Writings {
		fields[answerField(fieldWriting, k)] = v
	}
	for id, file := range state.Recordings {
		fields[answerField(fieldRecording, strconv.Itoa(id))] = file
	}
	return fields
}

func (s *AttemptService) loadAnswers(ctx context.Context, attemptID uuid.UUID, kind model.SectionKind) (model.SectionAnswers, error) {
	fields, err := s.rdb.HGetAll(ctx, config.CacheKey.SectionAnswersKey(attemptID.String(), string(kind))).Result()
	if err != nil {
		return model.SectionAnswers{}, fmt.Errorf("read answers: %w", err)
	}
	if len(fields) == 0 {
		state, err := s.answers.LoadSection(ctx, attemptID, kind)
		if err != nil {
			return model.SectionAnswers{}, fmt.Errorf("load answers: %w", err)
		}
		return state, nil
	}

	state := model.NewSectionAnswers()
	for field, v := range fields {
		prefix, rest, ok := strings.Cut(field, ":")
		if !ok {
			continue
		}
		switch prefix {
		case fieldAnswer:
			id, err := strconv.Atoi(rest)
			if err != nil {
				continue
			}
			var value model.AnswerValue
			if err := json.Unmarshal([]byte(v), &value); err != nil {
				continue
			}
			state.Answers[id] = model.Answer{QuestionID: id, Value: value}
		case fieldWriting:
			state.Writings[rest] = v
		case fieldRecording:
			if id, err := strconv.Atoi(rest); err == nil {
				state.Recordings[id] = v
			}
		}
	}
	return state, nil
}

func (s *AttemptService) enqueueAnswers(ctx context.Context, attemptID uuid.UUID, kind model.SectionKind, state model.SectionAnswers) {
	batch := model.AnswerBatch{
		AttemptID: attemptID,
		Section:   kind,
		Answers:   model.FormatItemAnswers(state),
		Writings:  model.FormatWritings(state.Writings),
	}
	raw, err := json.Marshal(batch)
	if err != nil {
		s.log.Error().Err(err).Msg("Encode answer batch failed")
		return
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, raw).Err(); err != nil {
		s.log.Error().Err(err).Str("attempt_id", attemptID.String()).Msg("Enqueue answers failed")
	}
}

// ─── Submission ────────────────────────────────────────────────────

// SubmitSection scores a section at most once. The first caller takes the
// Redis guard and computes the result; later callers receive the stored one.
func (s *AttemptService) SubmitSection(ctx context.Context, a *model.Attempt, kind model.SectionKind, trigger model.SubmitTrigger) (*model.SectionResult, error) {
	sec, err := s.section(ctx, a, kind)
	if err != nil {
		return nil, err
	}
	if res, ok, err := s.storedResult(ctx, a.ID, kind, true); err != nil {
		return nil, err
	} else if ok && res != nil {
		return res, nil
	}

	id := a.ID.String()
	won, err := s.rdb.SetNX(ctx, config.CacheKey.SectionSubmittedKey(id, string(kind)), string(trigger), sessionTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire submit guard: %w", err)
	}
	if !won {
		return s.awaitResult(ctx, a.ID, kind)
	}

	res, err := s.grade(ctx, a, kind, sec, trigger)
	if err != nil {
		s.rdb.Del(ctx, config.CacheKey.SectionSubmittedKey(id, string(kind)))
		return nil, err
	}

	raw, err := json.Marshal(res)
	if err != nil {
		s.rdb.Del(ctx, config.CacheKey.SectionSubmittedKey(id, string(kind)))
		return nil, fmt.Errorf("encode result: %w", err)
	}
	resultKey := config.CacheKey.SectionResultKey(id, string(kind))
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, resultKey, raw, sessionTTL)
	pipe.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw)
	if _, err := pipe.Exec(ctx); err != nil {
		// MULTI does not roll back; clear both keys so a retry grades and queues again.
		if delErr := s.rdb.Del(ctx, resultKey, config.CacheKey.SectionSubmittedKey(id, string(kind))).Err(); delErr != nil {
			s.log.Error().Err(delErr).Str("attempt_id", id).Msg("Failed to release submit guard")
		}
		return nil, fmt.Errorf("store result: %w", err)
	}
	if err := s.rdb.ZRem(ctx, config.CacheKey.SectionDeadlinesKey(), config.CacheKey.DeadlineMember(id, string(kind))).Err(); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", id).Msg("Failed to clear section deadline")
	}

	ev := s.log.Info().
		Str("attempt_id", id).
		Str("section", string(kind)).
		Str("trigger", string(trigger)).
		Int("time_spent", res.TimeSpent())
	if band := res.BandScore(); band != nil {
		ev = ev.Float64("band", *band)
	}
	ev.Msg("Section submitted")

	if err := s.events.Publish(ctx, events.NewSectionSubmitted(*a, *res)); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", id).Msg("Publish section.submitted failed")
	}
	return res, nil
}

func (s *AttemptService) grade(ctx context.Context, a *model.Attempt, kind model.SectionKind, sec model.Section, trigger model.SubmitTrigger) (*model.SectionResult, error) {
	now := s.now()
	cd, started, err := s.countdown(ctx, a, kind, sec)
	if err != nil {
		return nil, err
	}
	if !started {
		cd.StartedAt = now
	}
	timeSpent := int(cd.Elapsed(now) / time.Second)

	answers, err := s.loadAnswers(ctx, a.ID, kind)
	if err != nil {
		return nil, err
	}
	s.enqueueAnswers(ctx, a.ID, kind, answers)

	view := section.Build(kind, sec)
	res := &model.SectionResult{AttemptID: a.ID, Section: kind, Trigger: trigger}
	switch kind {
	case model.SectionListening:
		r := scoring.GenerateResult(*view.Listening, answers.Answers, timeSpent, now)
		r.TestID = a.TestID.String()
		res.Graded = &r
	case model.SectionReading:
		r := scoring.GenerateResult(*view.Reading, answers.Answers, timeSpent, now)
		r.TestID = a.TestID.String()
		res.Graded = &r
	case model.SectionWriting:
		r := scoring.WritingSummary(*view.Writing, answers.Writings, timeSpent, now)
		r.TestID = a.TestID.String()
		res.Writing = &r
	case model.SectionSpeaking:
		r := scoring.SpeakingSummary(*view.Speaking, answers.Recordings, timeSpent, now)
		r.TestID = a.TestID.String()
		res.Speaking = &r
	}
	return res, nil
}

// storedResult reports the stored result of a section. A section whose guard
// is taken but whose result is still being computed reads as submitted with
// a nil result. PostgreSQL is consulted when the guard is taken or deep is set.
func (s *AttemptService) storedResult(ctx context.Context, attemptID uuid.UUID, kind model.SectionKind, deep bool) (*model.SectionResult, bool, error) {
	id := attemptID.String()
	raw, err := s.rdb.Get(ctx, config.CacheKey.SectionResultKey(id, string(kind))).Bytes()
	switch {
	case err == nil:
		var res model.SectionResult
		if err := json.Unmarshal(raw, &res); err != nil {
			return nil, false, fmt.Errorf("decode result: %w", err)
		}
		return &res, true, nil
	case !errors.Is(err, redis.Nil):
		return nil, false, fmt.Errorf("read result: %w", err)
	}

	guarded, err := s.rdb.Exists(ctx, config.CacheKey.SectionSubmittedKey(id, string(kind))).Result()
	if err != nil {
		return nil, false, fmt.Errorf("read submit guard: %w", err)
	}
	if guarded == 0 && !deep {
		return nil, false, nil
	}

	res, err := s.results.Get(ctx, attemptID, kind)
	if err == nil {
		return res, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("load result: %w", err)
	}
	return nil, guarded > 0, nil
}

func (s *AttemptService) awaitResult(ctx context.Context, attemptID uuid.UUID, kind model.SectionKind) (*model.SectionResult, error) {
	deadline := time.NewTimer(submitWaitTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(submitWaitStep)
	defer tick.Stop()

	for {
		res, _, err := s.storedResult(ctx, attemptID, kind, false)
		if err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, ErrSectionSubmitted
		case <-tick.C:
		}
	}
}

// Advance submits the current section if needed and moves to the next
// requested one, completing the attempt after the last.
func (s *AttemptService) Advance(ctx context.Context, a *model.Attempt) (*model.Attempt, *model.SectionResult, error) {
	if a.Status != model.AttemptStatusInProgress || a.CurrentSection == nil {
		return nil, nil, ErrAttemptCompleted
	}
	current := *a.CurrentSection
	res, err := s.SubmitSection(ctx, a, current, model.TriggerManual)
	if err != nil {
		return nil, nil, err
	}
	if err := s.moveOn(ctx, a, current); err != nil {
		return nil, nil, err
	}
	return a, res, nil
}

func (s *AttemptService) moveOn(ctx context.Context, a *model.Attempt, from model.SectionKind) error {
	if next, ok := a.NextSection(from); ok {
		if err := s.attempts.SetCurrentSection(ctx, a.ID, next); err != nil {
			return fmt.Errorf("advance attempt: %w", err)
		}
		a.CurrentSection = &next
		return nil
	}
	_, err := s.complete(ctx, a)
	return err
}

// ExpireSection submits a timed-out section and advances the attempt when
// it was the current one.
func (s *AttemptService) ExpireSection(ctx context.Context, attemptID uuid.UUID, kind model.SectionKind) (*model.SectionResult, error) {
	a, err := s.load(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	res, err := s.SubmitSection(ctx, a, kind, model.TriggerExpired)
	if err != nil {
		return nil, err
	}
	if a.Status == model.AttemptStatusInProgress && a.CurrentSection != nil && *a.CurrentSection == kind {
		if err := s.moveOn(ctx, a, kind); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Submit submits every remaining section and completes the attempt.
func (s *AttemptService) Submit(ctx context.Context, a *model.Attempt) (*model.AttemptResult, error) {
	if a.Status != model.AttemptStatusInProgress {
		return nil, ErrAttemptCompleted
	}
	for _, kind := range a.RequestedSections {
		if _, err := s.SubmitSection(ctx, a, kind, model.TriggerManual); err != nil {
			return nil, err
		}
	}
	return s.complete(ctx, a)
}

func (s *AttemptService) complete(ctx context.Context, a *model.Attempt) (*model.AttemptResult, error) {
	now := s.now()
	first, err := s.rdb.SetNX(ctx, config.CacheKey.AttemptCompletedKey(a.ID.String()), now.Unix(), sessionTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire completion guard: %w", err)
	}
	if err := s.attempts.Complete(ctx, a.ID, now); err != nil {
		return nil, fmt.Errorf("complete attempt: %w", err)
	}
	completedAt := now.UTC()
	a.Status = model.AttemptStatusCompleted
	a.CurrentSection = nil
	a.CompletedAt = &completedAt

	result, err := s.Result(ctx, a)
	if err != nil {
		return nil, err
	}
	if first {
		s.log.Info().Str("attempt_id", a.ID.String()).Msg("Attempt completed")
		if err := s.events.Publish(ctx, events.NewAttemptCompleted(*a, *result, now)); err != nil {
			s.log.Warn().Err(err).Str("attempt_id", a.ID.String()).Msg("Publish attempt.completed failed")
		}
	}
	return result, nil
}

// Result gathers the submitted sections of an attempt in requested order.
// The overall band averages the auto-marked bands.
func (s *AttemptService) Result(ctx context.Context, a *model.Attempt) (*model.AttemptResult, error) {
	result := &model.AttemptResult{
		AttemptID: a.ID,
		TestID:    a.TestID,
		Status:    a.Status,
		Sections:  make([]model.SectionResult, 0, len(a.RequestedSections)),
	}
	var bands []float64
	for _, kind := range a.RequestedSections {
		res, _, err := s.storedResult(ctx, a.ID, kind, true)
		if err != nil {
			return nil, err
		}
		if res == nil {
			continue
		}
		result.Sections = append(result.Sections, *res)
		if band := res.BandScore(); band != nil {
			bands = append(bands, *band)
		}
	}
	if overall, ok := scoring.OverallBand(bands); ok {
		result.OverallBand = &overall
	}
	return result, nil
}
