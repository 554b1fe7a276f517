package model

// SpeakingQuestion is one prompt the candidate answers with a recording.
type SpeakingQuestion struct {
	ID             int    `json:"id"`
	ItemID         string `json:"itemId"`
	QuestionNumber int    `json:"questionNumber"`
	Topic          string `json:"topic"`
	Question       string `json:"question"`
}

// SpeakingPart groups the prompts of one interview part.
type SpeakingPart struct {
	PartNumber int                `json:"partNumber"`
	Title      string             `json:"title"`
	Questions  []SpeakingQuestion `json:"questions"`
}

// SpeakingTest is the speaking section view model.
type SpeakingTest struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Duration       int            `json:"duration"`
	Parts          []SpeakingPart `json:"parts"`
	TotalQuestions int            `json:"totalQuestions"`
}

// QuestionIDs lists every prompt id in order.
func (t SpeakingTest) QuestionIDs() []int {
	var ids []int
	for _, p := range t.Parts {
		for _, q := range p.Questions {
			ids = append(ids, q.ID)
		}
	}
	return ids
}
