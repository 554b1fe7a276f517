package model

import "encoding/json"

// QuestionType is the rendering shape of a question.
type QuestionType string

const (
	QuestionTypeFillInBlank    QuestionType = "fill-in-blank"
	QuestionTypeMultipleChoice QuestionType = "multiple-choice"
	QuestionTypeTrueFalseNG    QuestionType = "true-false-ng"
)

// Option is one choice of a multiple-choice question.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Question is a tagged union over the three question shapes. Build it with
// NewFillInBlank, NewMultipleChoice or NewTrueFalseNotGiven so that only the
// fields of the chosen variant are set.
type Question struct {
	ID                int
	ItemID            string
	Type              QuestionType
	Question          string
	CorrectAnswer     AnswerValue
	AcceptableAnswers [][]string
	// Options is set for multiple-choice questions only.
	Options []Option
	// Blanks is set for fill-in-blank questions only.
	Blanks int
}

// NewFillInBlank builds a fill-in-blank question. Blank counts below one become one.
func NewFillInBlank(id int, itemID, prompt string, blanks int) Question {
	if blanks < 1 {
		blanks = 1
	}
	return Question{ID: id, ItemID: itemID, Type: QuestionTypeFillInBlank, Question: prompt, Blanks: blanks}
}

// NewMultipleChoice builds a multiple-choice question.
func NewMultipleChoice(id int, itemID, prompt string, options []Option) Question {
	if options == nil {
		options = []Option{}
	}
	return Question{ID: id, ItemID: itemID, Type: QuestionTypeMultipleChoice, Question: prompt, Options: options}
}

// NewTrueFalseNotGiven builds a true/false/not-given question.
func NewTrueFalseNotGiven(id int, itemID, prompt string) Question {
	return Question{ID: id, ItemID: itemID, Type: QuestionTypeTrueFalseNG, Question: prompt}
}

// WithAnswerKey returns a copy carrying the correct answer and accepted alternatives.
func (q Question) WithAnswerKey(correct AnswerValue, accepted [][]string) Question {
	q.CorrectAnswer = correct
	q.AcceptableAnswers = accepted
	return q
}

// Redacted returns a copy without the answer key.
func (q Question) Redacted() Question {
	q.CorrectAnswer = AnswerValue{}
	q.AcceptableAnswers = nil
	return q
}

type questionJSON struct {
	ID                int          `json:"id"`
	ItemID            string       `json:"itemId"`
	Type              QuestionType `json:"type"`
	Question          string       `json:"question"`
	CorrectAnswer     AnswerValue  `json:"correctAnswer"`
	AcceptableAnswers [][]string   `json:"acceptableAnswers,omitempty"`
	Options           *[]Option    `json:"options,omitempty"`
	Blanks            *int         `json:"blanks,omitempty"`
}

// MarshalJSON writes only the fields that belong to the question's variant.
func (q Question) MarshalJSON() ([]byte, error) {
	out := questionJSON{
		ID:                q.ID,
		ItemID:            q.ItemID,
		Type:              q.Type,
		Question:          q.Question,
		CorrectAnswer:     q.CorrectAnswer,
		AcceptableAnswers: q.AcceptableAnswers,
	}
	switch q.Type {
	case QuestionTypeMultipleChoice:
		opts := q.Options
		if opts == nil {
			opts = []Option{}
		}
		out.Options = &opts
	case QuestionTypeFillInBlank:
		blanks := q.Blanks
		out.Blanks = &blanks
	}
	return json.Marshal(out)
}

func (q *Question) UnmarshalJSON(data []byte) error {
	var in questionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*q = Question{
		ID:                in.ID,
		ItemID:            in.ItemID,
		Type:              in.Type,
		Question:          in.Question,
		CorrectAnswer:     in.CorrectAnswer,
		AcceptableAnswers: in.AcceptableAnswers,
	}
	if in.Options != nil {
		q.Options = *in.Options
	}
	if in.Blanks != nil {
		q.Blanks = *in.Blanks
	}
	return nil
}

// ScoringPart is the slice of a test the result aggregator needs per part.
type ScoringPart struct {
	PartNumber int
	Questions  []Question
}

// Scorable is implemented by the auto-marked section tests (listening and reading).
type Scorable interface {
	ScoringID() string
	ScoringTotal() int
	ScoringParts() []ScoringPart
}

func answerKeyOf(questions []Question, key map[int]AnswerValue) {
	for _, q := range questions {
		if !q.CorrectAnswer.IsEmpty() {
			key[q.ID] = q.CorrectAnswer
		}
	}
}

func redactAll(questions []Question) []Question {
	out := make([]Question, len(questions))
	for i, q := range questions {
		out[i] = q.Redacted()
	}
	return out
}
