package feedsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"selfAPI/internal/instagram"
	"selfAPI/internal/stats"
	"selfAPI/internal/store"
	"selfAPI/internal/types/project"
	"selfAPI/internal/types/social"
	"selfAPI/internal/types/video"
	"selfAPI/internal/vercel"
	"selfAPI/internal/youtube"
)

const (
	SourceYouTube   = "youtube"
	SourceInstagram = "instagram"
	SourceVercel    = "vercel"
)

var timestamps = stats.NewCalendar(time.UTC)

func checkTimestamp(field, value string) error {
	if !timestamps.Parse(value).Valid() {
		return fmt.Errorf("invalid %s %q", field, value)
	}
	return nil
}

func engagementDefaults() map[string]any {
	return map[string]any{"views": 0, "likes": 0, "comments": 0}
}

type VideoLister interface {
	Configured() bool
	LatestVideos(ctx context.Context) ([]youtube.Video, error)
}

type YouTubeSource struct {
	client VideoLister
}

func NewYouTubeSource(client VideoLister) *YouTubeSource {
	return &YouTubeSource{client: client}
}

func (s *YouTubeSource) Name() string       { return SourceYouTube }
func (s *YouTubeSource) Collection() string { return store.CollectionVideos }

func (s *YouTubeSource) Ready() error {
	if s.client == nil || !s.client.Configured() {
		return fmt.Errorf("%w: YOUTUBE_API_KEY and YOUTUBE_CHANNEL_ID are required", ErrMissingCredentials)
	}
	return nil
}

func (s *YouTubeSource) Fetch(ctx context.Context) ([]Item, error) {
	videos, err := s.client.LatestVideos(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(videos))
	for i, v := range videos {
		items = append(items, mapVideo(i, v))
	}
	return items, nil
}

func mapVideo(i int, v youtube.Video) Item {
	if v.ID == "" {
		return Item{Ref: fmt.Sprintf("#%d", i), Err: errors.New("missing video id")}
	}
	if err := checkTimestamp("publishedAt", v.PublishedAt); err != nil {
		return Item{Ref: v.ID, Err: err}
	}

	return Item{Ref: v.ID, Op: store.UpsertOp{
		ExternalID: v.ID,
		Set: map[string]any{
			"title":       v.Title,
			"description": v.Description,
			"thumbnail":   v.Thumbnail,
			"link":        v.Link(),
			"date":        v.PublishedAt,
			"platform":    video.PlatformYouTube,
		},
		SetOnInsert: engagementDefaults(),
	}}
}

type MediaLister interface {
	Configured() bool
	RecentMedia(ctx context.Context) ([]instagram.Media, error)
}

type InstagramSource struct {
	client MediaLister
}

func NewInstagramSource(client MediaLister) *InstagramSource {
	return &InstagramSource{client: client}
}

func (s *InstagramSource) Name() string       { return SourceInstagram }
func (s *InstagramSource) Collection() string { return store.CollectionInstagram }

func (s *InstagramSource) Ready() error {
	if s.client == nil || !s.client.Configured() {
		return fmt.Errorf("%w: INSTAGRAM_ACCESS_TOKEN is required", ErrMissingCredentials)
	}
	return nil
}

func (s *InstagramSource) Fetch(ctx context.Context) ([]Item, error) {
	media, err := s.client.RecentMedia(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(media))
	for i, m := range media {
		items = append(items, mapMedia(i, m))
	}
	return items, nil
}

func postType(mediaType string) string {
	switch mediaType {
	case instagram.MediaTypeImage:
		return social.TypePost
	case instagram.MediaTypeCarousel:
		return social.TypeCarousel
	default:
		return social.TypeReel
	}
}

func mapMedia(i int, m instagram.Media) Item {
	if m.ID == "" {
		return Item{Ref: fmt.Sprintf("#%d", i), Err: errors.New("missing media id")}
	}
	if err := checkTimestamp("timestamp", m.Timestamp); err != nil {
		return Item{Ref: m.ID, Err: err}
	}

	thumbnail := m.ThumbnailURL
	if thumbnail == "" {
		thumbnail = m.MediaURL
	}

	onInsert := engagementDefaults()
	onInsert["type"] = postType(m.MediaType)
	onInsert["topic"] = ""

	return Item{Ref: m.ID, Op: store.UpsertOp{
		ExternalID: m.ID,
		Set: map[string]any{
			"caption":       m.Caption,
			"media_url":     m.MediaURL,
			"thumbnail_url": thumbnail,
			"permalink":     m.Permalink,
			"link":          m.Permalink,
			"date":          m.Timestamp,
		},
		SetOnInsert: onInsert,
	}}
}

type ProjectLister interface {
	Configured() bool
	Projects(ctx context.Context) ([]vercel.Project, error)
}

type VercelSource struct {
	client ProjectLister
}

func NewVercelSource(client ProjectLister) *VercelSource {
	return &VercelSource{client: client}
}

func (s *VercelSource) Name() string       { return SourceVercel }
func (s *VercelSource) Collection() string { return store.CollectionProjects }

func (s *VercelSource) Ready() error {
	if s.client == nil || !s.client.Configured() {
		return fmt.Errorf("%w: VERCEL_TOKEN is required", ErrMissingCredentials)
	}
	return nil
}

func (s *VercelSource) Fetch(ctx context.Context) ([]Item, error) {
	projects, err := s.client.Projects(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(projects))
	for i, p := range projects {
		items = append(items, mapProject(i, p))
	}
	return items, nil
}

// projectTitle turns "habit-tracker" into "Habit Tracker".
func projectTitle(name string) string {
	words := strings.Split(name, "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func mapProject(i int, p vercel.Project) Item {
	if p.ID == "" {
		return Item{Ref: fmt.Sprintf("#%d", i), Err: errors.New("missing project id")}
	}
	if p.CreatedAt <= 0 {
		return Item{Ref: p.ID, Err: errors.New("missing createdAt")}
	}

	description := p.Description
	if description == "" {
		framework := p.Framework
		if framework == "" {
			framework = "modern technologies"
		}
		description = fmt.Sprintf("A project built with %s.", framework)
	}

	technologies := []string{}
	if p.Framework != "" {
		technologies = append(technologies, p.Framework)
	}

	set := map[string]any{
		"title":        projectTitle(p.Name),
		"description":  description,
		"technologies": technologies,
		"startDate":    time.UnixMilli(p.CreatedAt).UTC().Format(time.DateOnly),
	}
	if len(p.Alias) > 0 && p.Alias[0] != "" {
		set["liveUrl"] = "https://" + string(p.Alias[0])
	}
	if p.Link != nil && p.Link.Org != "" && p.Link.Repo != "" {
		set["githubUrl"] = fmt.Sprintf("https://github.com/%s/%s", p.Link.Org, p.Link.Repo)
	}

	return Item{Ref: p.ID, Op: store.UpsertOp{
		ExternalID: p.ID,
		Set:        set,
		SetOnInsert: map[string]any{
			"category":        project.CategoryWebApp,
			"status":          project.StatusCompleted,
			"featured":        false,
			"order":           0,
			"features":        []string{},
			"longDescription": "",
		},
	}}
}
