package model

import (
	"time"

	"github.com/google/uuid"
)

// ResultRow is a flattened section result used by the dashboard and the export.
type ResultRow struct {
	AttemptID   uuid.UUID     `json:"attemptId"`
	TestID      uuid.UUID     `json:"testId"`
	TestTitle   string        `json:"testTitle"`
	UserID      string        `json:"userId"`
	Section     SectionKind   `json:"section"`
	RawScore    *int          `json:"rawScore,omitempty"`
	BandScore   *float64      `json:"bandScore,omitempty"`
	TimeSpent   int           `json:"timeSpent"`
	Trigger     SubmitTrigger `json:"trigger"`
	CompletedAt time.Time     `json:"completedAt"`
}

// ProgressDataPoint is one band score on the progress chart. Date is "DD MON".
type ProgressDataPoint struct {
	Date     string  `json:"date"`
	Score    float64 `json:"score"`
	FullDate string  `json:"fullDate"`
}

// SkillScore is the latest band of one skill.
type SkillScore struct {
	Name  string   `json:"name"`
	Score *float64 `json:"score"`
}

// DashboardData is a candidate's progress overview.
type DashboardData struct {
	ProgressData []ProgressDataPoint `json:"progressData"`
	SkillScores  []SkillScore        `json:"skillScores"`
	CurrentScore float64             `json:"currentScore"`
	CurrentDate  string              `json:"currentDate"`
	ScoreBand    float64             `json:"scoreBand"`
	Points       int                 `json:"points"`
}
