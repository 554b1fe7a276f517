// Package scoring marks listening and reading answers and converts raw
// scores to band scores. Every function is pure and total.
package scoring

import (
	"strings"

	"github.com/mockielts/mockielts-backend/internal/model"
)

// NormalizeAnswer lowercases s, trims it and collapses internal whitespace runs.
func NormalizeAnswer(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// ValidateAnswer reports whether submitted matches correct. accepted holds,
// per blank position, alternative spellings that also count as correct.
//
// A single value facing a list answer (or the reverse) is lifted to a
// one-element list, so the arity rule decides it.
func ValidateAnswer(submitted *model.AnswerValue, correct model.AnswerValue, accepted [][]string) bool {
	if submitted == nil || submitted.IsEmpty() {
		return false
	}

	if !submitted.IsList() && !correct.IsList() {
		return blankMatches(submitted.Text(), correct.Text(), alternativesAt(accepted, 0))
	}

	got := submitted.Values()
	want := correct.Values()
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if !blankMatches(got[i], want[i], alternativesAt(accepted, i)) {
			return false
		}
	}
	return true
}

func blankMatches(got, want string, alternatives []string) bool {
	normalized := NormalizeAnswer(got)
	if normalized == NormalizeAnswer(want) {
		return true
	}
	for _, alt := range alternatives {
		if NormalizeAnswer(alt) == normalized {
			return true
		}
	}
	return false
}

func alternativesAt(accepted [][]string, i int) []string {
	if i < len(accepted) {
		return accepted[i]
	}
	return nil
}

// questionCorrect validates the answer recorded for q, if any.
func questionCorrect(answers model.Answers, q model.Question) bool {
	value, ok := answers.Lookup(q.ID)
	if !ok {
		return false
	}
	return ValidateAnswer(&value, q.CorrectAnswer, q.AcceptableAnswers)
}
