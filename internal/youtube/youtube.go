package youtube

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-cleanhttp"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"selfAPI/internal/redact"
)

const (
	defaultMaxResults = 50
	defaultMaxPages   = 1
)

type Config struct {
	APIKey     string
	ChannelID  string
	MaxResults int64
	MaxPages   int
	// Endpoint overrides the API base URL. It must end with a slash.
	Endpoint   string
	HTTPClient *http.Client
}

type Video struct {
	ID          string
	Title       string
	Description string
	Thumbnail   string
	PublishedAt string
}

func (v Video) Link() string {
	return "https://www.youtube.com/watch?v=" + v.ID
}

type Client struct {
	svc        *yt.Service
	apiKey     string
	channelID  string
	maxResults int64
	maxPages   int
}

// New builds a client. It never calls the API, so it succeeds without
// credentials; Configured reports whether a sync can run.
func New(ctx context.Context, cfg Config) (*Client, error) {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = cleanhttp.DefaultPooledClient()
	}
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}

	c := &Client{
		svc:        svc,
		apiKey:     cfg.APIKey,
		channelID:  cfg.ChannelID,
		maxResults: cfg.MaxResults,
		maxPages:   cfg.MaxPages,
	}
	if c.maxResults <= 0 {
		c.maxResults = defaultMaxResults
	}
	if c.maxPages <= 0 {
		c.maxPages = defaultMaxPages
	}
	return c, nil
}

func (c *Client) Configured() bool {
	return c.apiKey != "" && c.channelID != ""
}

// LatestVideos lists the channel's uploads newest first, following page
// tokens up to the configured page limit.
func (c *Client) LatestVideos(ctx context.Context) ([]Video, error) {
	var (
		videos    []Video
		pageToken string
	)

	for page := 0; page < c.maxPages; page++ {
		call := c.svc.Search.List([]string{"snippet", "id"}).
			ChannelId(c.channelID).
			Order("date").
			Type("video").
			MaxResults(c.maxResults).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do(googleapi.QueryParameter("key", c.apiKey))
		if err != nil {
			return nil, fmt.Errorf("youtube search failed: %w", redact.Error(err, c.apiKey))
		}

		for _, item := range resp.Items {
			videos = append(videos, toVideo(item))
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	return videos, nil
}

func toVideo(item *yt.SearchResult) Video {
	var v Video
	if item.Id != nil {
		v.ID = item.Id.VideoId
	}
	if s := item.Snippet; s != nil {
		v.Title = s.Title
		v.Description = s.Description
		v.PublishedAt = s.PublishedAt
		v.Thumbnail = bestThumbnail(s.Thumbnails)
	}
	return v
}

func bestThumbnail(t *yt.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*yt.Thumbnail{t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}
