package scoring

import (
	"fmt"
	"strings"
	"time"

	"github.com/mockielts/mockielts-backend/internal/model"
)

// GenerateResult scores a listening or reading test. Question results follow
// the order of the parts and, within a part, the order of its questions.
// The band is looked up against the test's declared question total.
func GenerateResult(test model.Scorable, answers model.Answers, timeSpent int, now time.Time) model.TestResult {
	parts := test.ScoringParts()

	var all []model.Question
	for _, p := range parts {
		all = append(all, p.Questions...)
	}

	raw := RawScore(answers, all)
	total := test.ScoringTotal()

	partResults := make([]model.PartResult, 0, len(parts))
	for _, p := range parts {
		partResults = append(partResults, model.PartResult{
			PartNumber:     p.PartNumber,
			TotalQuestions: len(p.Questions),
			CorrectAnswers: RawScore(answers, p.Questions),
		})
	}

	questionResults := make([]model.QuestionResult, 0, len(all))
	for _, q := range all {
		value, _ := answers.Lookup(q.ID)
		questionResults = append(questionResults, model.QuestionResult{
			QuestionID:    q.ID,
			UserAnswer:    value,
			CorrectAnswer: q.CorrectAnswer,
			IsCorrect:     ValidateAnswer(&value, q.CorrectAnswer, q.AcceptableAnswers),
			QuestionType:  q.Type,
		})
	}

	return model.TestResult{
		TestID:          test.ScoringID(),
		TotalQuestions:  total,
		CorrectAnswers:  raw,
		Score:           BandScore(raw, total),
		RawScore:        raw,
		TimeSpent:       timeSpent,
		CompletedAt:     now.UTC(),
		PartResults:     partResults,
		QuestionResults: questionResults,
	}
}

// Generate is GenerateResult stamped with the current time.
func Generate(test model.Scorable, answers model.Answers, timeSpent int) model.TestResult {
	return GenerateResult(test, answers, timeSpent, time.Now())
}

// WritingSummary records which tasks were answered and how long each essay is.
func WritingSummary(test model.WritingTest, writings map[string]string, timeSpent int, now time.Time) model.WritingResult {
	tasks := make([]model.WritingTaskSummary, 0, len(test.Tasks))
	answered := 0
	for _, task := range test.Tasks {
		words := CountWords(writings[task.TaskKey])
		if words > 0 {
			answered++
		}
		tasks = append(tasks, model.WritingTaskSummary{
			TaskKey:      task.TaskKey,
			Words:        words,
			MinWords:     task.MinWords,
			MeetsMinimum: words >= task.MinWords,
		})
	}
	return model.WritingResult{
		TestID:        test.ID,
		TasksAnswered: answered,
		TimeSpent:     timeSpent,
		CompletedAt:   now.UTC(),
		Tasks:         tasks,
	}
}

// SpeakingSummary counts the prompts that have a recording.
func SpeakingSummary(test model.SpeakingTest, recordings map[int]string, timeSpent int, now time.Time) model.SpeakingResult {
	answered := 0
	for _, id := range test.QuestionIDs() {
		if recordings[id] != "" {
			answered++
		}
	}
	return model.SpeakingResult{
		TestID:            test.ID,
		QuestionsAnswered: answered,
		TimeSpent:         timeSpent,
		CompletedAt:       now.UTC(),
	}
}

// CountWords counts whitespace-separated tokens.
func CountWords(s string) int {
	return len(strings.Fields(s))
}

// FormatTime renders seconds as MM:SS. Minutes are not capped at 59.
func FormatTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
