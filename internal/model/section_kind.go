package model

import "strings"

// SectionKind names one of the four skill sections.
type SectionKind string

const (
	SectionListening SectionKind = "LISTENING"
	SectionReading   SectionKind = "READING"
	SectionWriting   SectionKind = "WRITING"
	SectionSpeaking  SectionKind = "SPEAKING"
)

// AllSectionKinds is the canonical order in which sections are taken.
var AllSectionKinds = []SectionKind{SectionListening, SectionReading, SectionWriting, SectionSpeaking}

// ParseSectionKind accepts a kind name in any letter case.
func ParseSectionKind(s string) (SectionKind, bool) {
	k := SectionKind(strings.ToUpper(strings.TrimSpace(s)))
	switch k {
	case SectionListening, SectionReading, SectionWriting, SectionSpeaking:
		return k, true
	}
	return "", false
}

// AutoMarked reports whether the section is scored against an answer key.
func (k SectionKind) AutoMarked() bool {
	return k == SectionListening || k == SectionReading
}

func (k SectionKind) String() string { return string(k) }
