package vercel

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/hashicorp/go-cleanhttp"
)

const DefaultBaseURL = "https://api.vercel.com"

type Link struct {
	Type string `json:"type"`
	Org  string `json:"org"`
	Repo string `json:"repo"`
}

// Alias accepts both the plain string and the object form the projects
// endpoint has returned over time.
type Alias string

func (a *Alias) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = Alias(s)
		return nil
	}

	var obj struct {
		Domain string `json:"domain"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*a = Alias(obj.Domain)
	return nil
}

type Project struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Framework   string  `json:"framework"`
	CreatedAt   int64   `json:"createdAt"`
	Link        *Link   `json:"link"`
	Alias       []Alias `json:"alias"`
}

type projectsResponse struct {
	Projects []Project `json:"projects"`
}

type Config struct {
	Token      string
	TeamID     string
	BaseURL    string
	HTTPClient *http.Client
}

type Client struct {
	http    *http.Client
	baseURL string
	token   string
	teamID  string
}

func New(cfg Config) *Client {
	c := &Client{
		http:    cfg.HTTPClient,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		token:   cfg.Token,
		teamID:  cfg.TeamID,
	}
	if c.http == nil {
		c.http = cleanhttp.DefaultPooledClient()
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	return c
}

func (c *Client) Configured() bool {
	return c.token != ""
}

func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	endpoint := c.baseURL + "/v9/projects"
	if c.teamID != "" {
		endpoint += "?teamId=" + url.QueryEscape(c.teamID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build vercel request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vercel request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read vercel response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vercel api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out projectsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode vercel response: %w", err)
	}
	return out.Projects, nil
}
