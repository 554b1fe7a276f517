package model

// WritingTask is one essay prompt.
type WritingTask struct {
	ID          int    `json:"id"`
	TaskNumber  int    `json:"taskNumber"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl,omitempty"`
	MinWords    int    `json:"minWords"`
	TaskKey     string `json:"taskKey"`
}

// WritingTest is the writing section view model. It has no answer key.
type WritingTest struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Duration int           `json:"duration"`
	Tasks    []WritingTask `json:"tasks"`
}

// TaskKeys lists the task keys in task order.
func (t WritingTest) TaskKeys() []string {
	keys := make([]string, len(t.Tasks))
	for i, task := range t.Tasks {
		keys[i] = task.TaskKey
	}
	return keys
}
