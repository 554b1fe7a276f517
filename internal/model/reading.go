package model

// PassageParagraph is one (optionally lettered) paragraph of a reading passage.
type PassageParagraph struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// ReadingPassage is the text a reading part's questions refer to.
type ReadingPassage struct {
	Title      string             `json:"title"`
	Subtitle   string             `json:"subtitle,omitempty"`
	Paragraphs []PassageParagraph `json:"paragraphs"`
}

// ReadingPart is one passage with its questions.
type ReadingPart struct {
	PartNumber  int            `json:"partNumber"`
	Title       string         `json:"title"`
	Subtitle    string         `json:"subtitle"`
	Instruction string         `json:"instruction"`
	Passage     ReadingPassage `json:"passage"`
	Questions   []Question     `json:"questions"`
}

// ReadingTest is the reading section view model.
type ReadingTest struct {
	ID             string              `json:"id"`
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	TotalQuestions int                 `json:"totalQuestions"`
	Duration       int                 `json:"duration"`
	Parts          []ReadingPart       `json:"parts"`
	AnswerKey      map[int]AnswerValue `json:"answerKey"`
}

func (t ReadingTest) ScoringID() string { return t.ID }

func (t ReadingTest) ScoringTotal() int { return t.TotalQuestions }

func (t ReadingTest) ScoringParts() []ScoringPart {
	parts := make([]ScoringPart, len(t.Parts))
	for i, p := range t.Parts {
		parts[i] = ScoringPart{PartNumber: p.PartNumber, Questions: p.Questions}
	}
	return parts
}

// WithAnswerKey fills AnswerKey from the questions' correct answers.
func (t ReadingTest) WithAnswerKey() ReadingTest {
	key := make(map[int]AnswerValue)
	for _, p := range t.Parts {
		answerKeyOf(p.Questions, key)
	}
	t.AnswerKey = key
	return t
}

// Redacted returns a copy safe to send to a candidate.
func (t ReadingTest) Redacted() ReadingTest {
	parts := make([]ReadingPart, len(t.Parts))
	for i, p := range t.Parts {
		p.Questions = redactAll(p.Questions)
		parts[i] = p
	}
	t.Parts = parts
	t.AnswerKey = map[int]AnswerValue{}
	return t
}
