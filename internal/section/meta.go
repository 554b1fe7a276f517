package section

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/mockielts/mockielts-backend/internal/model"
)

// meta is loosely typed item or part metadata. Lookups never fail: a field
// that is missing, null or of the wrong JSON type reads as absent.
type meta map[string]json.RawMessage

func parseMeta(raw json.RawMessage) meta {
	m := meta{}
	if len(raw) == 0 {
		return m
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return meta{}
	}
	return m
}

func (m meta) raw(key string) (json.RawMessage, bool) {
	v, ok := m[key]
	if !ok || isNull(v) {
		return nil, false
	}
	return v, true
}

func (m meta) str(key string) (string, bool) {
	v, ok := m.raw(key)
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", false
	}
	return s, true
}

func (m meta) num(key string) (int, bool) {
	v, ok := m.raw(key)
	if !ok {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		if s, ok := m.str(key); ok {
			if n, err := strconv.Atoi(s); err == nil {
				return n, true
			}
		}
		return 0, false
	}
	return int(f), true
}

func (m meta) list(key string) ([]json.RawMessage, bool) {
	v, ok := m.raw(key)
	if !ok {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(v, &items); err != nil {
		return nil, false
	}
	return items, true
}

// answerKey reads the correct answer ("answer", or "correctAnswer") and the
// per-blank accepted alternatives ("accepted").
func (m meta) answerKey() (model.AnswerValue, [][]string) {
	var correct model.AnswerValue
	for _, key := range []string{"answer", "correctAnswer"} {
		if v, ok := m.raw(key); ok {
			if err := json.Unmarshal(v, &correct); err == nil {
				break
			}
			correct = model.AnswerValue{}
		}
	}

	var accepted [][]string
	if entries, ok := m.list("accepted"); ok {
		for _, e := range entries {
			var alt model.AnswerValue
			if isNull(e) || json.Unmarshal(e, &alt) != nil {
				accepted = append(accepted, nil)
				continue
			}
			accepted = append(accepted, alt.Values())
		}
	}
	return correct, accepted
}

func isNull(v json.RawMessage) bool {
	return len(bytes.TrimSpace(v)) == 0 || bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// object decodes v as a JSON object, reporting false for any other JSON type.
func object(v json.RawMessage) (meta, bool) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || v[0] != '{' {
		return nil, false
	}
	var m meta
	if err := json.Unmarshal(v, &m); err != nil {
		return nil, false
	}
	return m, true
}

// text renders a JSON scalar the way it would be printed: strings verbatim,
// numbers and booleans in their literal form. Objects and arrays render as
// compact JSON.
func text(v json.RawMessage) string {
	v = bytes.TrimSpace(v)
	if len(v) == 0 {
		return ""
	}
	if v[0] == '"' {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, v); err != nil {
		return string(v)
	}
	return buf.String()
}

// firstText returns the rendering of the first present key, or def.
func (m meta) firstText(def string, keys ...string) string {
	for _, k := range keys {
		if v, ok := m.raw(k); ok {
			return text(v)
		}
	}
	return def
}

func isString(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) > 0 && v[0] == '"'
}

// minutes converts a second count to whole minutes, rounding halves up.
func minutes(seconds float64) int {
	return int(math.Floor(seconds/60 + 0.5))
}
