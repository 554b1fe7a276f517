package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/mockielts/mockielts-backend/internal/model"
)

// EventType names a domain event.
type EventType string

const (
	EventSectionSubmitted EventType = "section.submitted"
	EventAttemptCompleted EventType = "attempt.completed"
)

const (
	eventSource  = "mockielts-backend"
	eventVersion = "1.0"
)

// Event is the envelope of every published domain event.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
	Data      any       `json:"data"`
}

// SectionSubmittedEvent is emitted once per submitted section.
type SectionSubmittedEvent struct {
	AttemptID   uuid.UUID           `json:"attemptId"`
	TestID      uuid.UUID           `json:"testId"`
	UserID      string              `json:"userId"`
	Section     model.SectionKind   `json:"section"`
	Trigger     model.SubmitTrigger `json:"trigger"`
	RawScore    *int                `json:"rawScore,omitempty"`
	BandScore   *float64            `json:"bandScore,omitempty"`
	TimeSpent   int                 `json:"timeSpent"`
	CompletedAt time.Time           `json:"completedAt"`
}

// AttemptCompletedEvent is emitted when the last section of an attempt is submitted.
type AttemptCompletedEvent struct {
	AttemptID   uuid.UUID           `json:"attemptId"`
	TestID      uuid.UUID           `json:"testId"`
	UserID      string              `json:"userId"`
	Sections    []model.SectionKind `json:"sections"`
	OverallBand *float64            `json:"overallBand,omitempty"`
	CompletedAt time.Time           `json:"completedAt"`
}

func newEvent(t EventType, at time.Time, data any) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: at.UTC(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

// NewSectionSubmitted builds a section.submitted event from a stored result.
func NewSectionSubmitted(attempt model.Attempt, res model.SectionResult) *Event {
	return newEvent(EventSectionSubmitted, res.CompletedAt(), SectionSubmittedEvent{
		AttemptID:   attempt.ID,
		TestID:      attempt.TestID,
		UserID:      attempt.UserID,
		Section:     res.Section,
		Trigger:     res.Trigger,
		RawScore:    res.RawScore(),
		BandScore:   res.BandScore(),
		TimeSpent:   res.TimeSpent(),
		CompletedAt: res.CompletedAt(),
	})
}

// NewAttemptCompleted builds an attempt.completed event.
func NewAttemptCompleted(attempt model.Attempt, result model.AttemptResult, at time.Time) *Event {
	sections := make([]model.SectionKind, 0, len(result.Sections))
	for _, s := range result.Sections {
		sections = append(sections, s.Section)
	}
	return newEvent(EventAttemptCompleted, at, AttemptCompletedEvent{
		AttemptID:   attempt.ID,
		TestID:      attempt.TestID,
		UserID:      attempt.UserID,
		Sections:    sections,
		OverallBand: result.OverallBand,
		CompletedAt: at.UTC(),
	})
}
