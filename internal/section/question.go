package section

import (
	"encoding/json"

	"github.com/mockielts/mockielts-backend/internal/model"
)

// Recognized qType tags. Anything else renders as fill-in-blank.
const (
	qTypeMCQSingle          = "MCQ_SINGLE"
	qTypeTFNG               = "TFNG"
	qTypeMatchingParagraphs = "MATCHING_PARAGRAPHS"
	qTypeMatchingSections   = "MATCHING_SECTIONS"
	qTypeMatchingPeople     = "MATCHING_PEOPLE"
	qTypeMatching           = "MATCHING"
	qTypeTwoLettersGroup    = "TWO_LETTERS_GROUP"
)

// questionFromItem parses one item into its question variant and attaches
// the answer key found in its metadata.
func questionFromItem(item model.Item, id int) model.Question {
	m := parseMeta(item.MetaJSON)
	qType, _ := m.str("qType")
	itemID := string(item.ID)

	var q model.Question
	switch qType {
	case qTypeMCQSingle:
		q = model.NewMultipleChoice(id, itemID, item.QuestionText, keyedOptions(m))
	case qTypeTFNG:
		q = model.NewTrueFalseNotGiven(id, itemID, item.QuestionText)
	case qTypeMatchingParagraphs, qTypeMatchingSections:
		q = model.NewMultipleChoice(id, itemID, item.QuestionText, letterOptions(m))
	case qTypeMatchingPeople, qTypeMatching, qTypeTwoLettersGroup:
		q = model.NewMultipleChoice(id, itemID, item.QuestionText, choiceOptions(m))
	default:
		blanks, ok := m.num("blanks")
		if !ok {
			blanks = 1
		}
		q = model.NewFillInBlank(id, itemID, item.QuestionText, blanks)
	}

	correct, accepted := m.answerKey()
	return q.WithAnswerKey(correct, accepted)
}

// keyedOptions reads "options": objects with a key become {key, text|key},
// anything else is used as both value and label.
func keyedOptions(m meta) []model.Option {
	entries, _ := m.list("options")
	opts := make([]model.Option, 0, len(entries))
	for _, e := range entries {
		if obj, ok := object(e); ok {
			if key, has := obj["key"]; has {
				opts = append(opts, model.Option{Value: text(key), Label: obj.firstText(text(key), "text")})
				continue
			}
		}
		s := text(e)
		opts = append(opts, model.Option{Value: s, Label: s})
	}
	return opts
}

// letterOptions reads "letters" as bare option letters.
func letterOptions(m meta) []model.Option {
	entries, _ := m.list("letters")
	opts := make([]model.Option, 0, len(entries))
	for _, e := range entries {
		s := text(e)
		opts = append(opts, model.Option{Value: s, Label: s})
	}
	return opts
}

// choiceOptions reads "choices": bare strings, or objects with key|value and text|label.
func choiceOptions(m meta) []model.Option {
	entries, _ := m.list("choices")
	opts := make([]model.Option, 0, len(entries))
	for _, e := range entries {
		if obj, ok := object(e); ok {
			opts = append(opts, model.Option{
				Value: obj.firstText("", "key", "value"),
				Label: obj.firstText("", "text", "label"),
			})
			continue
		}
		s := choiceScalar(e)
		opts = append(opts, model.Option{Value: s, Label: s})
	}
	return opts
}

func choiceScalar(e json.RawMessage) string {
	if isString(e) || !isNull(e) {
		return text(e)
	}
	return ""
}
