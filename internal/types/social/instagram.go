package social

import (
	"strings"

	"selfAPI/internal/types/record"
)

const (
	TypeReel     = "Reel"
	TypePost     = "Post"
	TypeStory    = "Story"
	TypeCarousel = "Carousel"
)

type InstagramPost struct {
	record.Meta
	Date         string `json:"date" validate:"required"`
	Caption      string `json:"caption"`
	Type         string `json:"type" validate:"in:Reel,Post,Story,Carousel"`
	Topic        string `json:"topic"`
	MediaURL     string `json:"media_url"`
	Permalink    string `json:"permalink"`
	ThumbnailURL string `json:"thumbnail_url"`
	Link         string `json:"link"`
	Views        int    `json:"views" validate:"min:0"`
	Likes        int    `json:"likes" validate:"min:0"`
	Comments     int    `json:"comments" validate:"min:0"`
}

func (p *InstagramPost) ApplyDefaults() {
	p.Topic = strings.TrimSpace(p.Topic)
	if p.Type == "" {
		p.Type = TypeReel
	}
}

func (p *InstagramPost) ActivityDate() string {
	return p.Date
}
