package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mockielts/mockielts-backend/internal/model"
	"github.com/mockielts/mockielts-backend/internal/scoring"
)

// ResultRowStore lists flattened section results.
type ResultRowStore interface {
	ListRowsByUser(ctx context.Context, userID string) ([]model.ResultRow, error)
	ListRowsByTest(ctx context.Context, testID uuid.UUID) ([]model.ResultRow, error)
}

// DashboardService builds a candidate's progress overview.
type DashboardService struct {
	rows ResultRowStore
	now  func() time.Time
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(rows ResultRowStore) *DashboardService {
	return &DashboardService{rows: rows, now: time.Now}
}

// GetDashboardData loads a candidate's results and summarises them.
func (s *DashboardService) GetDashboardData(ctx context.Context, userID string) (*model.DashboardData, error) {
	rows, err := s.rows.ListRowsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	data := BuildDashboard(rows, s.now())
	return &data, nil
}

// BuildDashboard summarises section results ordered oldest first. Progress
// points average the listening and reading bands of each day; the score band
// is the overall band of the latest listening and reading results.
func BuildDashboard(rows []model.ResultRow, now time.Time) model.DashboardData {
	data := model.DashboardData{
		ProgressData: []model.ProgressDataPoint{},
		CurrentDate:  dayLabel(now),
		Points:       len(rows),
	}

	latest := map[model.SectionKind]float64{}
	var (
		day   string
		sum   float64
		count int
	)
	flush := func() {
		if count == 0 {
			return
		}
		t, _ := time.Parse(time.DateOnly, day)
		data.ProgressData = append(data.ProgressData, model.ProgressDataPoint{
			Date:     dayLabel(t),
			Score:    math.Round(sum/float64(count)*10) / 10,
			FullDate: day,
		})
	}

	for _, row := range rows {
		if row.BandScore == nil || !row.Section.AutoMarked() {
			continue
		}
		latest[row.Section] = *row.BandScore
		d := row.CompletedAt.UTC().Format(time.DateOnly)
		if d != day {
			flush()
			day, sum, count = d, 0, 0
		}
		sum += *row.BandScore
		count++
	}
	flush()

	data.SkillScores = make([]model.SkillScore, 0, len(model.AllSectionKinds))
	var bands []float64
	for _, kind := range model.AllSectionKinds {
		skill := model.SkillScore{Name: string(kind)}
		if band, ok := latest[kind]; ok {
			b := band
			skill.Score = &b
			bands = append(bands, band)
		}
		data.SkillScores = append(data.SkillScores, skill)
	}

	if n := len(data.ProgressData); n > 0 {
		data.CurrentScore = data.ProgressData[n-1].Score
	}
	if overall, ok := scoring.OverallBand(bands); ok {
		data.ScoreBand = overall
	}
	return data
}

// dayLabel renders a date as "DD MON", e.g. "12 MAY".
func dayLabel(t time.Time) string {
	return strings.ToUpper(t.UTC().Format("02 Jan"))
}
