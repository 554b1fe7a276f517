package model

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// AnswerBatch is the unit queued for answer persistence: the full answer
// state of one section at the time of the write.
type AnswerBatch struct {
	AttemptID uuid.UUID           `json:"attemptId"`
	Section   SectionKind         `json:"section"`
	Answers   []ItemAnswerPayload `json:"answers"`
	Writings  []WritingPayload    `json:"writings"`
}

// FormatItemAnswers renders an answer state as submission rows: one row per
// answered question (list values joined with commas, the structured value in
// answerJson) and one per recording, ordered by question id.
func FormatItemAnswers(state SectionAnswers) []ItemAnswerPayload {
	ids := make([]int, 0, len(state.Answers)+len(state.Recordings))
	seen := make(map[int]bool)
	for id := range state.Answers {
		ids = append(ids, id)
		seen[id] = true
	}
	for id := range state.Recordings {
		if !seen[id] {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)

	rows := make([]ItemAnswerPayload, 0, len(ids))
	for _, id := range ids {
		row := ItemAnswerPayload{ItemID: strconv.Itoa(id), AudioFileID: state.Recordings[id]}
		if ans, ok := state.Answers[id]; ok {
			row.AnswerText = ans.Value.String()
			raw, _ := json.Marshal(struct {
				Value AnswerValue `json:"value"`
			}{ans.Value})
			row.AnswerJSON = raw
		}
		rows = append(rows, row)
	}
	return rows
}

// FormatWritings renders essays as submission rows ordered by task key.
func FormatWritings(writings map[string]string) []WritingPayload {
	keys := make([]string, 0, len(writings))
	for k := range writings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([]WritingPayload, len(keys))
	for i, k := range keys {
		rows[i] = WritingPayload{TaskKey: k, Text: writings[k]}
	}
	return rows
}

// ParseItemAnswer recovers a question id and value from an upsert row. The
// structured answerJson value wins over answerText when present.
func ParseItemAnswer(row ItemAnswerPayload) (int, AnswerValue, bool) {
	id, err := strconv.Atoi(row.ItemID)
	if err != nil || id <= 0 {
		return 0, AnswerValue{}, false
	}
	if len(row.AnswerJSON) > 0 {
		var wrapped struct {
			Value *AnswerValue `json:"value"`
		}
		if err := json.Unmarshal(row.AnswerJSON, &wrapped); err == nil && wrapped.Value != nil {
			return id, *wrapped.Value, true
		}
	}
	return id, SingleAnswer(row.AnswerText), true
}

// SplitBlanks turns a comma-joined text answer into one entry per blank.
// Single-blank questions, list values and empty answers pass through.
func SplitBlanks(value AnswerValue, blanks int) AnswerValue {
	if blanks <= 1 || value.IsList() || value.IsEmpty() {
		return value
	}
	parts := strings.Split(value.Text(), ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return ListAnswer(parts...)
}
