package model

// AudioControlMode controls whether the candidate may seek the recording.
type AudioControlMode string

const (
	AudioControlPractice AudioControlMode = "practice"
	AudioControlExam     AudioControlMode = "exam"
)

// TestPart is one numbered part of a listening test.
type TestPart struct {
	PartNumber int        `json:"partNumber"`
	Title      string     `json:"title"`
	Subtitle   string     `json:"subtitle"`
	Questions  []Question `json:"questions"`
	AudioURL   string     `json:"audioUrl,omitempty"`
}

// ListeningTest is the listening section view model. Durations are minutes.
type ListeningTest struct {
	ID               string              `json:"id"`
	Title            string              `json:"title"`
	Description      string              `json:"description"`
	TotalQuestions   int                 `json:"totalQuestions"`
	Duration         int                 `json:"duration"`
	TestDuration     int                 `json:"testDuration"`
	TransferDuration int                 `json:"transferDuration"`
	Parts            []TestPart          `json:"parts"`
	AudioURL         string              `json:"audioUrl"`
	AudioControlMode AudioControlMode    `json:"audioControlMode"`
	AnswerKey        map[int]AnswerValue `json:"answerKey"`
}

func (t ListeningTest) ScoringID() string { return t.ID }

func (t ListeningTest) ScoringTotal() int { return t.TotalQuestions }

func (t ListeningTest) ScoringParts() []ScoringPart {
	parts := make([]ScoringPart, len(t.Parts))
	for i, p := range t.Parts {
		parts[i] = ScoringPart{PartNumber: p.PartNumber, Questions: p.Questions}
	}
	return parts
}

// WithAnswerKey fills AnswerKey from the questions' correct answers.
func (t ListeningTest) WithAnswerKey() ListeningTest {
	key := make(map[int]AnswerValue)
	for _, p := range t.Parts {
		answerKeyOf(p.Questions, key)
	}
	t.AnswerKey = key
	return t
}

// Redacted returns a copy safe to send to a candidate.
func (t ListeningTest) Redacted() ListeningTest {
	parts := make([]TestPart, len(t.Parts))
	for i, p := range t.Parts {
		p.Questions = redactAll(p.Questions)
		parts[i] = p
	}
	t.Parts = parts
	t.AnswerKey = map[int]AnswerValue{}
	return t
}
