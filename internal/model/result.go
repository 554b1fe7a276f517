package model

import (
	"time"

	"github.com/google/uuid"
)

// QuestionResult is the outcome for one question.
type QuestionResult struct {
	QuestionID    int          `json:"questionId"`
	UserAnswer    AnswerValue  `json:"userAnswer"`
	CorrectAnswer AnswerValue  `json:"correctAnswer"`
	IsCorrect     bool         `json:"isCorrect"`
	QuestionType  QuestionType `json:"questionType"`
}

// PartResult counts correct answers within one part.
type PartResult struct {
	PartNumber     int `json:"partNumber"`
	TotalQuestions int `json:"totalQuestions"`
	CorrectAnswers int `json:"correctAnswers"`
}

// TestResult is the scored outcome of a listening or reading section.
// TimeSpent is in seconds.
type TestResult struct {
	TestID          string           `json:"testId"`
	TotalQuestions  int              `json:"totalQuestions"`
	CorrectAnswers  int              `json:"correctAnswers"`
	Score           float64          `json:"score"`
	RawScore        int              `json:"rawScore"`
	TimeSpent       int              `json:"timeSpent"`
	CompletedAt     time.Time        `json:"completedAt"`
	PartResults     []PartResult     `json:"partResults"`
	QuestionResults []QuestionResult `json:"questionResults"`
}

// WritingTaskSummary reports length against the task's minimum.
type WritingTaskSummary struct {
	TaskKey      string `json:"taskKey"`
	Words        int    `json:"words"`
	MinWords     int    `json:"minWords"`
	MeetsMinimum bool   `json:"meetsMinimum"`
}

// WritingResult records a writing submission. Essays are marked outside the system.
type WritingResult struct {
	TestID        string               `json:"testId"`
	TasksAnswered int                  `json:"tasksAnswered"`
	TimeSpent     int                  `json:"timeSpent"`
	CompletedAt   time.Time            `json:"completedAt"`
	Tasks         []WritingTaskSummary `json:"tasks"`
}

// SpeakingResult records a speaking submission.
type SpeakingResult struct {
	TestID            string    `json:"testId"`
	QuestionsAnswered int       `json:"questionsAnswered"`
	TimeSpent         int       `json:"timeSpent"`
	CompletedAt       time.Time `json:"completedAt"`
}

// SubmitTrigger records why a section was submitted.
type SubmitTrigger string

const (
	TriggerManual  SubmitTrigger = "manual"
	TriggerExpired SubmitTrigger = "expired"
)

// SectionResult is the single stored outcome of a section submission.
// Exactly one of Graded, Writing and Speaking is set.
type SectionResult struct {
	AttemptID uuid.UUID       `json:"attemptId"`
	Section   SectionKind     `json:"section"`
	Trigger   SubmitTrigger   `json:"trigger"`
	Graded    *TestResult     `json:"graded,omitempty"`
	Writing   *WritingResult  `json:"writing,omitempty"`
	Speaking  *SpeakingResult `json:"speaking,omitempty"`
}

// BandScore is set for auto-marked sections only.
func (r SectionResult) BandScore() *float64 {
	if r.Graded == nil {
		return nil
	}
	score := r.Graded.Score
	return &score
}

// RawScore is set for auto-marked sections only.
func (r SectionResult) RawScore() *int {
	if r.Graded == nil {
		return nil
	}
	raw := r.Graded.RawScore
	return &raw
}

func (r SectionResult) TimeSpent() int {
	switch {
	case r.Graded != nil:
		return r.Graded.TimeSpent
	case r.Writing != nil:
		return r.Writing.TimeSpent
	case r.Speaking != nil:
		return r.Speaking.TimeSpent
	}
	return 0
}

func (r SectionResult) CompletedAt() time.Time {
	switch {
	case r.Graded != nil:
		return r.Graded.CompletedAt
	case r.Writing != nil:
		return r.Writing.CompletedAt
	case r.Speaking != nil:
		return r.Speaking.CompletedAt
	}
	return time.Time{}
}

// AttemptResult gathers every submitted section of an attempt.
type AttemptResult struct {
	AttemptID   uuid.UUID       `json:"attemptId"`
	TestID      uuid.UUID       `json:"testId"`
	Status      AttemptStatus   `json:"status"`
	Sections    []SectionResult `json:"sections"`
	OverallBand *float64        `json:"overallBand,omitempty"`
}
