package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/mockielts/mockielts-backend/internal/model"
	"github.com/mockielts/mockielts-backend/internal/scoring"
)

const resultsSheet = "Results"

var resultHeaders = []string{
	"Attempt ID", "User ID", "Section", "Raw Score", "Band Score",
	"Time Spent", "Trigger", "Completed At",
}

// TestGetter resolves a test by id.
type TestGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Test, error)
}

// ExportService renders section results as spreadsheets.
type ExportService struct {
	rows  ResultRowStore
	tests TestGetter
}

// NewExportService creates a new ExportService.
func NewExportService(rows ResultRowStore, tests TestGetter) *ExportService {
	return &ExportService{rows: rows, tests: tests}
}

// ExportTestResults builds the workbook of every section result of a test and
// a file name for it.
func (s *ExportService) ExportTestResults(ctx context.Context, testID uuid.UUID) (*bytes.Buffer, string, error) {
	test, err := s.tests.Get(ctx, testID)
	if err != nil {
		return nil, "", err
	}
	rows, err := s.rows.ListRowsByTest(ctx, testID)
	if err != nil {
		return nil, "", fmt.Errorf("list results: %w", err)
	}
	buf, err := ResultsWorkbook(rows)
	if err != nil {
		return nil, "", err
	}
	return buf, exportFileName(test.Title), nil
}

// ResultsWorkbook writes one row per section result on the "Results" sheet.
func ResultsWorkbook(rows []model.ResultRow) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	for i, header := range resultHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(resultsSheet, cell, header)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(resultHeaders), 1)
		f.SetCellStyle(resultsSheet, "A1", last, style)
	}

	for r, row := range rows {
		values := []any{
			row.AttemptID.String(),
			row.UserID,
			string(row.Section),
			optional(row.RawScore),
			optional(row.BandScore),
			scoring.FormatTime(row.TimeSpent),
			string(row.Trigger),
			row.CompletedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(resultsSheet, cell, v)
		}
	}
	f.SetColWidth(resultsSheet, "A", "A", 38)
	f.SetColWidth(resultsSheet, "B", "B", 24)
	f.SetColWidth(resultsSheet, "H", "H", 20)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf, nil
}

func optional[T any](p *T) any {
	if p == nil {
		return ""
	}
	return *p
}

func exportFileName(title string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return '-'
	}, strings.TrimSpace(title))
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "test"
	}
	return slug + "-results.xlsx"
}
