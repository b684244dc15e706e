package video

import (
	"strings"

	"selfAPI/internal/types/record"
)

const PlatformYouTube = "YouTube"

type Entry struct {
	record.Meta
	Date        string `json:"date" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Platform    string `json:"platform" validate:"required|in:YouTube,Instagram,LinkedIn,Other"`
	Thumbnail   string `json:"thumbnail"`
	Link        string `json:"link"`
	Views       int    `json:"views" validate:"min:0"`
	Likes       int    `json:"likes" validate:"min:0"`
	Comments    int    `json:"comments" validate:"min:0"`
}

func (e *Entry) ApplyDefaults() {
	e.Title = strings.TrimSpace(e.Title)
	e.Link = strings.TrimSpace(e.Link)
	if e.Platform == "" {
		e.Platform = PlatformYouTube
	}
}

func (e *Entry) ActivityDate() string {
	return e.Date
}
