package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mockielts/mockielts-backend/internal/model"
)

func band(v float64) *float64 { return &v }

func raw(v int) *int { return &v }

func sampleRows() []model.ResultRow {
	day1 := time.Date(2025, 5, 12, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 5, 13, 9, 0, 0, 0, time.UTC)
	attempt := uuid.MustParse("6f1c1f39-54a4-4d4e-a0e2-3c47f7a5d001")
	return []model.ResultRow{
		{AttemptID: attempt, UserID: "u1", Section: model.SectionListening, RawScore: raw(30), BandScore: band(7.0), TimeSpent: 1800, Trigger: model.TriggerManual, CompletedAt: day1},
		{AttemptID: attempt, UserID: "u1", Section: model.SectionReading, RawScore: raw(26), BandScore: band(6.0), TimeSpent: 3600, Trigger: model.TriggerExpired, CompletedAt: day1.Add(time.Hour)},
		{AttemptID: attempt, UserID: "u1", Section: model.SectionWriting, TimeSpent: 3000, Trigger: model.TriggerManual, CompletedAt: day1.Add(2 * time.Hour)},
		{AttemptID: attempt, UserID: "u1", Section: model.SectionReading, RawScore: raw(33), BandScore: band(7.5), TimeSpent: 3500, Trigger: model.TriggerManual, CompletedAt: day2},
	}
}

func TestBuildDashboard(t *testing.T) {
	now := time.Date(2025, 5, 16, 12, 0, 0, 0, time.UTC)
	data := BuildDashboard(sampleRows(), now)

	require.Len(t, data.ProgressData, 2)
	assert.Equal(t, model.ProgressDataPoint{Date: "12 MAY", Score: 6.5, FullDate: "2025-05-12"}, data.ProgressData[0])
	assert.Equal(t, model.ProgressDataPoint{Date: "13 MAY", Score: 7.5, FullDate: "2025-05-13"}, data.ProgressData[1])

	require.Len(t, data.SkillScores, 4)
	assert.Equal(t, "LISTENING", data.SkillScores[0].Name)
	assert.Equal(t, 7.0, *data.SkillScores[0].Score)
	assert.Equal(t, 7.5, *data.SkillScores[1].Score)
	assert.Nil(t, data.SkillScores[2].Score)
	assert.Nil(t, data.SkillScores[3].Score)

	assert.Equal(t, 7.5, data.CurrentScore)
	assert.Equal(t, 7.5, data.ScoreBand) // (7.0 + 7.5) / 2 = 7.25 rounds to 7.5
	assert.Equal(t, "16 MAY", data.CurrentDate)
	assert.Equal(t, 4, data.Points)
}

func TestBuildDashboard_Empty(t *testing.T) {
	data := BuildDashboard(nil, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))
	assert.Empty(t, data.ProgressData)
	assert.NotNil(t, data.ProgressData)
	assert.Len(t, data.SkillScores, 4)
	assert.Zero(t, data.ScoreBand)
	assert.Equal(t, "02 JAN", data.CurrentDate)
}

func TestResultsWorkbook(t *testing.T) {
	buf, err := ResultsWorkbook(sampleRows())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(resultsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, resultHeaders, rows[0])
	assert.Equal(t, []string{
		"6f1c1f39-54a4-4d4e-a0e2-3c47f7a5d001", "u1", "LISTENING", "30", "7", "30:00", "manual", "2025-05-12 09:00:00",
	}, rows[1])
	// writing has no raw or band score
	assert.Equal(t, "", rows[3][3])
	assert.Equal(t, "", rows[3][4])
}

type stubRows struct{ rows []model.ResultRow }

func (s stubRows) ListRowsByUser(context.Context, string) ([]model.ResultRow, error) {
	return s.rows, nil
}

func (s stubRows) ListRowsByTest(context.Context, uuid.UUID) ([]model.ResultRow, error) {
	return s.rows, nil
}

type stubTests struct{ test *model.Test }

func (s stubTests) Get(context.Context, uuid.UUID) (*model.Test, error) {
	if s.test == nil {
		return nil, ErrTestNotFound
	}
	return s.test, nil
}

func TestExportTestResults(t *testing.T) {
	svc := NewExportService(stubRows{rows: sampleRows()}, stubTests{test: &model.Test{Title: "Mock Test #3 (May)"}})
	buf, name, err := svc.ExportTestResults(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, "mock-test--3--may-results.xlsx", name)
	assert.NotZero(t, buf.Len())

	_, _, err = NewExportService(stubRows{}, stubTests{}).ExportTestResults(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrTestNotFound)
}
