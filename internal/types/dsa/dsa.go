package dsa

import (
	"strings"

	"selfAPI/internal/types/record"
)

type Entry struct {
	record.Meta
	ProblemName string `json:"problemName" validate:"required|maxLen:200"`
	Platform    string `json:"platform" validate:"required|in:LeetCode,CodeForces,HackerRank,GeeksforGeeks,Other"`
	Difficulty  string `json:"difficulty" validate:"required|in:Easy,Medium,Hard"`
	Topic       string `json:"topic"`
	Notes       string `json:"notes"`
	Link        string `json:"link" validate:"url"`
	Date        string `json:"date" validate:"required"`
}

func (e *Entry) ApplyDefaults() {
	e.ProblemName = strings.TrimSpace(e.ProblemName)
	e.Topic = strings.TrimSpace(e.Topic)
	e.Link = strings.TrimSpace(e.Link)
}

func (e *Entry) ActivityDate() string {
	return e.Date
}
