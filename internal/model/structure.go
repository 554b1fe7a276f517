package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FlexString decodes from either a JSON string or a JSON number.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

// TestStructure is the authoring document of a full test: one section per skill.
type TestStructure struct {
	ID       FlexString `json:"id,omitempty"`
	Title    string     `json:"title,omitempty"`
	Sections []Section  `json:"sections" binding:"required,min=1,dive"`
}

// Section is one skill section as stored by the authoring backend. Item and
// part metadata stay loosely typed JSON until the section transformer parses them.
type Section struct {
	ID           FlexString    `json:"id"`
	SectionType  string        `json:"sectionType" binding:"required,section_kind"`
	Title        *string       `json:"title,omitempty"`
	TimeLimitSec float64       `json:"timeLimitSec" binding:"min=0"`
	Items        []Item        `json:"items"`
	Parts        []SectionPart `json:"parts"`
	Media        []Media       `json:"media"`
}

// Item is one question or writing task before transformation.
type Item struct {
	ID           FlexString      `json:"id"`
	Part         *int            `json:"part,omitempty"`
	Order        *int            `json:"order,omitempty"`
	ItemType     string          `json:"itemType,omitempty"`
	QuestionText string          `json:"questionText,omitempty"`
	TaskKey      string          `json:"taskKey,omitempty"`
	MetaJSON     json.RawMessage `json:"metaJson,omitempty"`
}

// SectionPart is one numbered part with optional passage text.
type SectionPart struct {
	Part        *int            `json:"part,omitempty"`
	Title       *string         `json:"title,omitempty"`
	PassageText string          `json:"passageText,omitempty"`
	MetaJSON    json.RawMessage `json:"metaJson,omitempty"`
}

// Media is an audio recording or image attached to a section, optionally to one part.
type Media struct {
	ID      FlexString `json:"id"`
	Kind    string     `json:"kind"`
	Part    *int       `json:"part,omitempty"`
	OpenURL string     `json:"openUrl"`
}

const (
	MediaKindAudio = "AUDIO"
	MediaKindImage = "IMAGE"

	ItemTypeWritingTask = "WRITING_TASK"
)

// IntOr dereferences p, falling back to def when p is nil.
func IntOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

// Section returns the first section of the given kind.
func (s TestStructure) Section(kind SectionKind) (Section, bool) {
	for _, sec := range s.Sections {
		if k, ok := ParseSectionKind(sec.SectionType); ok && k == kind {
			return sec, true
		}
	}
	return Section{}, false
}

// Kinds lists the section kinds present, in canonical order.
func (s TestStructure) Kinds() []SectionKind {
	var kinds []SectionKind
	for _, k := range AllSectionKinds {
		if _, ok := s.Section(k); ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// HasContent reports whether at least one section carries an item.
func (s TestStructure) HasContent() bool {
	for _, sec := range s.Sections {
		if len(sec.Items) > 0 {
			return true
		}
	}
	return false
}
