package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AttemptMode distinguishes a timed full mock from untimed practice.
type AttemptMode string

const (
	AttemptModeFull     AttemptMode = "FULL"
	AttemptModePractice AttemptMode = "PRACTICE"
)

// AttemptStatus enumerates attempt states.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusCompleted  AttemptStatus = "COMPLETED"
)

// Attempt is one candidate's run through a test.
type Attempt struct {
	ID                uuid.UUID     `json:"id"`
	TestID            uuid.UUID     `json:"testId"`
	UserID            string        `json:"userId"`
	Mode              AttemptMode   `json:"mode"`
	Random            bool          `json:"random"`
	RequestedSections []SectionKind `json:"requestedSections"`
	CurrentSection    *SectionKind  `json:"currentSection,omitempty"`
	Status            AttemptStatus `json:"status"`
	StartedAt         time.Time     `json:"startedAt"`
	CompletedAt       *time.Time    `json:"completedAt,omitempty"`
}

// Requested reports whether the attempt includes a section.
func (a Attempt) Requested(kind SectionKind) bool {
	for _, k := range a.RequestedSections {
		if k == kind {
			return true
		}
	}
	return false
}

// NextSection returns the requested section after the given one.
func (a Attempt) NextSection(after SectionKind) (SectionKind, bool) {
	for i, k := range a.RequestedSections {
		if k == after && i+1 < len(a.RequestedSections) {
			return a.RequestedSections[i+1], true
		}
	}
	return "", false
}

// StartAttemptRequest is the payload for starting an attempt.
type StartAttemptRequest struct {
	TestID            string   `json:"testId" binding:"required,uuid"`
	Random            bool     `json:"random"`
	Mode              string   `json:"mode" binding:"omitempty,oneof=FULL PRACTICE"`
	RequestedSections []string `json:"requestedSections" binding:"omitempty,max=4,dive,section_kind"`
}

// ItemAnswerPayload is one answer row of the upsert payload. ItemID carries the
// question number; AnswerJSON may carry {"value": ...} for multi-blank answers.
type ItemAnswerPayload struct {
	ItemID      string          `json:"itemId" binding:"required,max=64"`
	AnswerText  string          `json:"answerText" binding:"max=2000"`
	AnswerJSON  json.RawMessage `json:"answerJson,omitempty"`
	AudioFileID string          `json:"audioFileId" binding:"omitempty,max=64"`
}

// WritingPayload is one essay of the upsert payload.
type WritingPayload struct {
	TaskKey string `json:"taskKey" binding:"required,max=64"`
	Text    string `json:"text" binding:"max=20000"`
}

// UpsertAnswersRequest saves answers for a section; Section defaults to the
// attempt's current section.
type UpsertAnswersRequest struct {
	Section  string              `json:"section" binding:"omitempty,section_kind"`
	Answers  []ItemAnswerPayload `json:"answers" binding:"omitempty,max=200,dive"`
	Writings []WritingPayload    `json:"writings" binding:"omitempty,max=10,dive"`
}

// SectionAnswers is the in-flight answer state of one section.
type SectionAnswers struct {
	Answers    Answers           `json:"answers"`
	Writings   map[string]string `json:"writings"`
	Recordings map[int]string    `json:"recordings"`
}

// NewSectionAnswers returns an empty, non-nil answer state.
func NewSectionAnswers() SectionAnswers {
	return SectionAnswers{
		Answers:    Answers{},
		Writings:   map[string]string{},
		Recordings: map[int]string{},
	}
}

// SectionSession is a snapshot of a candidate's progress in one section.
type SectionSession struct {
	AttemptID        uuid.UUID      `json:"attemptId"`
	Section          SectionKind    `json:"section"`
	Started          bool           `json:"started"`
	StartedAt        *time.Time     `json:"startedAt,omitempty"`
	Deadline         *time.Time     `json:"deadline,omitempty"`
	RemainingSeconds int            `json:"remainingSeconds"`
	Submitted        bool           `json:"submitted"`
	SectionAnswers                  // answers, writings, recordings
	Result           *SectionResult `json:"result,omitempty"`
}

// SectionView is what a candidate receives when opening a section: the
// redacted view model plus the session snapshot.
type SectionView struct {
	Section   SectionKind    `json:"section"`
	Listening *ListeningTest `json:"listening,omitempty"`
	Reading   *ReadingTest   `json:"reading,omitempty"`
	Writing   *WritingTest   `json:"writing,omitempty"`
	Speaking  *SpeakingTest  `json:"speaking,omitempty"`
	Session   SectionSession `json:"session"`
}

// Blanks maps fill-in-blank question ids to their blank count for the
// auto-marked sections.
func (v SectionView) Blanks() map[int]int {
	var parts []ScoringPart
	switch {
	case v.Listening != nil:
		parts = v.Listening.ScoringParts()
	case v.Reading != nil:
		parts = v.Reading.ScoringParts()
	}
	out := make(map[int]int)
	for _, p := range parts {
		for _, q := range p.Questions {
			if q.Blanks > 0 {
				out[q.ID] = q.Blanks
			}
		}
	}
	return out
}

// Redacted strips answer keys from whichever view model is set.
func (v SectionView) Redacted() SectionView {
	if v.Listening != nil {
		red := v.Listening.Redacted()
		v.Listening = &red
	}
	if v.Reading != nil {
		red := v.Reading.Redacted()
		v.Reading = &red
	}
	return v
}
