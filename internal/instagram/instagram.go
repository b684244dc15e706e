package instagram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/hashicorp/go-cleanhttp"

	"selfAPI/internal/redact"
)

const (
	DefaultBaseURL  = "https://graph.instagram.com/"
	mediaFields     = "id,caption,media_type,media_url,permalink,thumbnail_url,timestamp"
	defaultLimit    = 25
	defaultMaxPages = 1
)

const (
	MediaTypeImage    = "IMAGE"
	MediaTypeVideo    = "VIDEO"
	MediaTypeCarousel = "CAROUSEL_ALBUM"
)

type Media struct {
	ID           string `json:"id"`
	Caption      string `json:"caption"`
	MediaType    string `json:"media_type"`
	MediaURL     string `json:"media_url"`
	Permalink    string `json:"permalink"`
	ThumbnailURL string `json:"thumbnail_url"`
	Timestamp    string `json:"timestamp"`
}

type mediaPage struct {
	Data   []Media `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

type Config struct {
	AccessToken string
	BaseURL     string
	Limit       int
	MaxPages    int
	HTTPClient  *http.Client
}

type Client struct {
	http     *http.Client
	baseURL  string
	token    string
	limit    int
	maxPages int
}

func New(cfg Config) *Client {
	c := &Client{
		http:     cfg.HTTPClient,
		baseURL:  cfg.BaseURL,
		token:    cfg.AccessToken,
		limit:    cfg.Limit,
		maxPages: cfg.MaxPages,
	}
	if c.http == nil {
		c.http = cleanhttp.DefaultPooledClient()
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(c.baseURL, "/") {
		c.baseURL += "/"
	}
	if c.limit <= 0 {
		c.limit = defaultLimit
	}
	if c.maxPages <= 0 {
		c.maxPages = defaultMaxPages
	}
	return c
}

func (c *Client) Configured() bool {
	return c.token != ""
}

// RecentMedia lists the account's media newest first, following paging
// links up to the configured page limit.
func (c *Client) RecentMedia(ctx context.Context) ([]Media, error) {
	params := url.Values{}
	params.Set("fields", mediaFields)
	params.Set("limit", strconv.Itoa(c.limit))
	params.Set("access_token", c.token)
	next := c.baseURL + "me/media?" + params.Encode()

	var media []Media
	for page := 0; page < c.maxPages && next != ""; page++ {
		p, err := c.fetchPage(ctx, next)
		if err != nil {
			return nil, err
		}
		media = append(media, p.Data...)
		next = p.Paging.Next
	}

	return media, nil
}

func (c *Client) fetchPage(ctx context.Context, pageURL string) (*mediaPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build instagram request: %w", redact.Error(err, c.token))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Paging links carry the access token too.
		return nil, fmt.Errorf("instagram request failed: %w", redact.Error(err, c.token))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read instagram response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("instagram api returned %d: %s", resp.StatusCode, redact.String(apiErr.Error.Message, c.token))
		}
		return nil, fmt.Errorf("instagram api returned %d", resp.StatusCode)
	}

	var page mediaPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to decode instagram response: %w", err)
	}
	return &page, nil
}
