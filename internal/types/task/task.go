package task

import (
	"strings"

	"selfAPI/internal/types/record"
)

const (
	CategoryLearning = "Learning"
	CategoryDSA      = "DSA"
	CategoryProject  = "Project"
	CategoryContent  = "Content"
	CategoryReading  = "Reading"
	CategoryOther    = "Other"
)

// Task is one item of the daily to-do list kept on the admin side.
type Task struct {
	record.Meta
	Title     string `json:"title" validate:"required|maxLen:200"`
	Category  string `json:"category" validate:"required|in:Learning,DSA,Project,Content,Reading,Other"`
	Completed bool   `json:"completed"`
	Date      string `json:"date" validate:"required"`
}

func (t *Task) ApplyDefaults() {
	t.Title = strings.TrimSpace(t.Title)
	if t.Category == "" {
		t.Category = CategoryLearning
	}
}

func (t *Task) ActivityDate() string {
	return t.Date
}
