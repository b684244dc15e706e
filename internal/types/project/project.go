package project

import (
	"cmp"
	"slices"
	"strings"

	"selfAPI/internal/types/record"
)

const (
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
	CategoryWebApp   = "Web App"
)

type Project struct {
	record.Meta
	Title           string   `json:"title" validate:"required"`
	Description     string   `json:"description" validate:"required"`
	LongDescription string   `json:"longDescription"`
	Category        string   `json:"category" validate:"required|in:Web App,Mobile App,API,CLI Tool,Library,AI/ML,DevOps,Other"`
	Status          string   `json:"status" validate:"required|in:In Progress,Completed,Maintained,Archived"`
	Technologies    []string `json:"technologies"`
	Features        []string `json:"features"`
	GithubURL       string   `json:"githubUrl" validate:"url"`
	LiveURL         string   `json:"liveUrl" validate:"url"`
	ImageURL        string   `json:"imageUrl"`
	StartDate       string   `json:"startDate" validate:"required"`
	EndDate         string   `json:"endDate"`
	Featured        bool     `json:"featured"`
	Order           int      `json:"order"`
}

func (p *Project) ApplyDefaults() {
	p.Title = strings.TrimSpace(p.Title)
	p.GithubURL = strings.TrimSpace(p.GithubURL)
	p.LiveURL = strings.TrimSpace(p.LiveURL)
	p.ImageURL = strings.TrimSpace(p.ImageURL)
	if p.Status == "" {
		p.Status = StatusInProgress
	}
	if p.Technologies == nil {
		p.Technologies = []string{}
	}
	if p.Features == nil {
		p.Features = []string{}
	}
	for i, t := range p.Technologies {
		p.Technologies[i] = strings.TrimSpace(t)
	}
}

func (p *Project) ActivityDate() string {
	return p.StartDate
}

// SortForDisplay orders featured projects first, then by ascending order,
// then newest start date.
func SortForDisplay(projects []*Project) {
	slices.SortStableFunc(projects, func(a, b *Project) int {
		if a.Featured != b.Featured {
			if a.Featured {
				return -1
			}
			return 1
		}
		if n := cmp.Compare(a.Order, b.Order); n != 0 {
			return n
		}
		return cmp.Compare(b.StartDate, a.StartDate)
	})
}
