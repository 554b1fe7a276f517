package config

import (
	"fmt"
	"strings"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// TestStructureKey returns the cache key for a test's full structure (answer keys included).
func (r *CacheKeyStruct) TestStructureKey(testID string) string {
	return fmt.Sprintf("test:%s:structure", testID)
}

// TestCandidateKey returns the cache key for a test's redacted structure.
func (r *CacheKeyStruct) TestCandidateKey(testID string) string {
	return fmt.Sprintf("test:%s:candidate", testID)
}

// SectionAnswersKey returns the hash key holding a section's in-flight answers.
func (r *CacheKeyStruct) SectionAnswersKey(attemptID, section string) string {
	return fmt.Sprintf("attempt:%s:section:%s:answers", attemptID, section)
}

// SectionStartedKey returns the key holding a section's start timestamp (unix seconds).
func (r *CacheKeyStruct) SectionStartedKey(attemptID, section string) string {
	return fmt.Sprintf("attempt:%s:section:%s:started_at", attemptID, section)
}

// SectionSubmittedKey returns the at-most-once submission guard for a section.
func (r *CacheKeyStruct) SectionSubmittedKey(attemptID, section string) string {
	return fmt.Sprintf("attempt:%s:section:%s:submitted", attemptID, section)
}

// SectionResultKey returns the key caching a section's computed result.
func (r *CacheKeyStruct) SectionResultKey(attemptID, section string) string {
	return fmt.Sprintf("attempt:%s:section:%s:result", attemptID, section)
}

// AttemptCompletedKey guards the one-time completion of an attempt.
func (r *CacheKeyStruct) AttemptCompletedKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:completed", attemptID)
}

// SectionDeadlinesKey is the sorted set of pending section deadlines scored by unix seconds.
func (r *CacheKeyStruct) SectionDeadlinesKey() string {
	return "section_deadlines"
}

// DeadlineMember encodes an attempt section as a deadline set member.
func (r *CacheKeyStruct) DeadlineMember(attemptID, section string) string {
	return attemptID + "|" + section
}

// ParseDeadlineMember reverses DeadlineMember.
func (r *CacheKeyStruct) ParseDeadlineMember(member string) (attemptID, section string, ok bool) {
	attemptID, section, ok = strings.Cut(member, "|")
	return attemptID, section, ok && attemptID != "" && section != ""
}

var CacheKey = NewCacheKeyStruct()
