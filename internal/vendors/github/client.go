package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const defaultBaseURL = "https://api.github.com"

// Repository is the subset of GitHub repo metadata surfaced in reports for
// portfolio sites that link to their source.
type Repository struct {
	Name        string    `json:"name"`
	FullName    string    `json:"full_name"`
	Description string    `json:"description"`
	Language    string    `json:"language"`
	Stars       int       `json:"stargazers_count"`
	Forks       int       `json:"forks_count"`
	HTMLURL     string    `json:"html_url"`
	PushedAt    time.Time `json:"pushed_at"`
}

// Client fetches public repository metadata. Authenticated requests get the
// 5000/hour rate limit tier.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a GitHub client. An empty token falls back to
// unauthenticated requests with their lower rate limit.
func NewClient(ctx context.Context, token, baseURL string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	httpClient := &http.Client{Timeout: 15 * time.Second}
	if strings.TrimSpace(token) != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, src)
		httpClient.Timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// ListUserRepos returns the most recently pushed public repos for a user.
func (c *Client) ListUserRepos(ctx context.Context, username string, limit int) ([]Repository, error) {
	if strings.TrimSpace(username) == "" {
		return nil, fmt.Errorf("username is required")
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	endpoint := fmt.Sprintf("%s/users/%s/repos?sort=pushed&per_page=%d",
		c.baseURL, url.PathEscape(username), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("github user %s not found", username)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github status %d", resp.StatusCode)
	}

	var repos []Repository
	if err := json.Unmarshal(body, &repos); err != nil {
		return nil, fmt.Errorf("github response parse: %w", err)
	}
	return repos, nil
}
