package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// AnswerValue is either a single string or an ordered list of strings
// (one entry per blank). The zero value is an empty single answer.
type AnswerValue struct {
	text  string
	items []string
	list  bool
}

// SingleAnswer wraps one string.
func SingleAnswer(s string) AnswerValue {
	return AnswerValue{text: s}
}

// ListAnswer wraps an ordered list of strings.
func ListAnswer(items ...string) AnswerValue {
	cp := make([]string, len(items))
	copy(cp, items)
	return AnswerValue{items: cp, list: true}
}

// IsList reports whether the value is the list form.
func (a AnswerValue) IsList() bool { return a.list }

// Text returns the single form. It is empty for lists.
func (a AnswerValue) Text() string { return a.text }

// Items returns a copy of the list form. It is nil for single values.
func (a AnswerValue) Items() []string {
	if !a.list {
		return nil
	}
	cp := make([]string, len(a.items))
	copy(cp, a.items)
	return cp
}

// Values returns the value as a list, lifting a single string to one element.
func (a AnswerValue) Values() []string {
	if a.list {
		return a.Items()
	}
	return []string{a.text}
}

// IsEmpty reports an absent answer: an empty string or an empty list.
func (a AnswerValue) IsEmpty() bool {
	if a.list {
		return len(a.items) == 0
	}
	return a.text == ""
}

// String joins list values with commas, matching the submission payload format.
func (a AnswerValue) String() string {
	if a.list {
		return strings.Join(a.items, ",")
	}
	return a.text
}

// Equal compares shape and contents.
func (a AnswerValue) Equal(b AnswerValue) bool {
	if a.list != b.list {
		return false
	}
	if !a.list {
		return a.text == b.text
	}
	if len(a.items) != len(b.items) {
		return false
	}
	for i := range a.items {
		if a.items[i] != b.items[i] {
			return false
		}
	}
	return true
}

func (a AnswerValue) MarshalJSON() ([]byte, error) {
	if a.list {
		items := a.items
		if items == nil {
			items = []string{}
		}
		return json.Marshal(items)
	}
	return json.Marshal(a.text)
}

// UnmarshalJSON accepts a string, a number, a boolean, null or an array of those.
func (a *AnswerValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("answer list: %w", err)
		}
		items := make([]string, 0, len(raw))
		for _, r := range raw {
			s, err := scalarString(r)
			if err != nil {
				return err
			}
			items = append(items, s)
		}
		*a = AnswerValue{items: items, list: true}
		return nil
	}
	s, err := scalarString(data)
	if err != nil {
		return err
	}
	*a = AnswerValue{text: s}
	return nil
}

// scalarString renders a JSON scalar as a string; null becomes "".
func scalarString(data json.RawMessage) (string, error) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("answer value: %w", err)
	}
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		return strconv.FormatBool(t), nil
	default:
		return "", fmt.Errorf("answer value: unsupported JSON type %T", v)
	}
}

// Answer is a candidate's submitted value for one question.
type Answer struct {
	QuestionID int         `json:"questionId"`
	Value      AnswerValue `json:"value"`
}

// Answers maps question ids to submitted answers for one section attempt.
type Answers map[int]Answer

// Lookup returns the submitted value for a question, or the empty value.
func (a Answers) Lookup(questionID int) (AnswerValue, bool) {
	ans, ok := a[questionID]
	return ans.Value, ok
}
