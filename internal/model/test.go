package model

import (
	"time"

	"github.com/google/uuid"
)

// TestStatus enumerates the lifecycle states of a test.
type TestStatus string

const (
	TestStatusDraft     TestStatus = "DRAFT"
	TestStatusPublished TestStatus = "PUBLISHED"
	TestStatusArchived  TestStatus = "ARCHIVED"
)

// Test is a stored mock exam.
type Test struct {
	ID          uuid.UUID     `json:"id"`
	Title       string        `json:"title"`
	Status      TestStatus    `json:"status"`
	Structure   TestStructure `json:"structure"`
	CreatedBy   string        `json:"createdBy"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	PublishedAt *time.Time    `json:"publishedAt,omitempty"`
}

// SectionSummary describes one section without its content.
type SectionSummary struct {
	SectionType  SectionKind `json:"sectionType"`
	TimeLimitSec float64     `json:"timeLimitSec"`
	ItemCount    int         `json:"itemCount"`
}

// TestSummary is a catalogue entry.
type TestSummary struct {
	ID          uuid.UUID        `json:"id"`
	Title       string           `json:"title"`
	Status      TestStatus       `json:"status"`
	Sections    []SectionSummary `json:"sections"`
	PublishedAt *time.Time       `json:"publishedAt,omitempty"`
}

// Summary strips content from a test.
func (t Test) Summary() TestSummary {
	sections := make([]SectionSummary, 0, len(t.Structure.Sections))
	for _, sec := range t.Structure.Sections {
		kind, ok := ParseSectionKind(sec.SectionType)
		if !ok {
			continue
		}
		sections = append(sections, SectionSummary{
			SectionType:  kind,
			TimeLimitSec: sec.TimeLimitSec,
			ItemCount:    len(sec.Items),
		})
	}
	return TestSummary{
		ID:          t.ID,
		Title:       t.Title,
		Status:      t.Status,
		Sections:    sections,
		PublishedAt: t.PublishedAt,
	}
}

// CreateTestRequest is the payload for creating a draft test.
type CreateTestRequest struct {
	Title     string        `json:"title" binding:"required,min=3,max=255"`
	Structure TestStructure `json:"structure" binding:"required"`
}

// UpdateTestRequest replaces a draft's title and/or structure.
type UpdateTestRequest struct {
	Title     string         `json:"title" binding:"omitempty,min=3,max=255"`
	Structure *TestStructure `json:"structure" binding:"omitempty"`
}
