package section

import (
	"encoding/json"

	"github.com/mockielts/mockielts-backend/internal/model"
)

var answerKeyFields = []string{"answer", "correctAnswer", "accepted"}

// RedactStructure returns a copy of a structure document with answer keys
// removed from every item's metadata.
func RedactStructure(s model.TestStructure) model.TestStructure {
	out := s
	out.Sections = make([]model.Section, len(s.Sections))
	for i, sec := range s.Sections {
		items := make([]model.Item, len(sec.Items))
		for j, item := range sec.Items {
			item.MetaJSON = redactMeta(item.MetaJSON)
			items[j] = item
		}
		sec.Items = items
		out.Sections[i] = sec
	}
	return out
}

func redactMeta(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return raw
	}
	m := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	removed := false
	for _, k := range answerKeyFields {
		if _, ok := m[k]; ok {
			delete(m, k)
			removed = true
		}
	}
	if !removed {
		return raw
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return b
}
