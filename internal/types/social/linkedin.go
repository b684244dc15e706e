package social

import (
	"strings"

	"selfAPI/internal/types/record"
)

type LinkedInMetrics struct {
	Likes       int `json:"likes"`
	Comments    int `json:"comments"`
	Impressions int `json:"impressions"`
}

type LinkedInPost struct {
	record.Meta
	Date       string          `json:"date" validate:"required"`
	Topic      string          `json:"topic" validate:"in:Learning,DSA,Career,Project,Tech,Personal"`
	Summary    string          `json:"summary" validate:"required"`
	Link       string          `json:"link"`
	Engagement string          `json:"engagement"`
	Metrics    LinkedInMetrics `json:"metrics"`
}

func (p *LinkedInPost) ApplyDefaults() {
	p.Link = strings.TrimSpace(p.Link)
	if p.Topic == "" {
		p.Topic = "Learning"
	}
}

func (p *LinkedInPost) ActivityDate() string {
	return p.Date
}
