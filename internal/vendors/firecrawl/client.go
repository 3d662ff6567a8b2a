package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"plusfolio-backend/internal/vendors"
)

const defaultBaseURL = "https://api.firecrawl.dev/v1"

// Client crawls pages through the Firecrawl scrape API. A crawl failure is
// fatal to the analysis pipeline, so errors here are returned verbatim.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a Firecrawl client.
func NewClient(apiKey, baseURL string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("FIRECRAWL_API_KEY is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	timeout := 60 * time.Second
	if raw := strings.TrimSpace(os.Getenv("FIRECRAWL_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type scrapeRequest struct {
	URL      string   `json:"url"`
	Formats  []string `json:"formats"`
	OnlyMain bool     `json:"onlyMainContent"`
}

type scrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    struct {
		HTML       string                 `json:"html"`
		Markdown   string                 `json:"markdown"`
		Screenshot string                 `json:"screenshot"`
		Metadata   vendors.CrawlMetadata  `json:"metadata"`
		Extra      map[string]interface{} `json:"-"`
	} `json:"data"`
}

// Crawl scrapes url and returns its content plus metadata.
func (c *Client) Crawl(ctx context.Context, url string) (*vendors.CrawlResult, error) {
	reqBody := scrapeRequest{
		URL:      url,
		Formats:  []string{"html", "markdown", "screenshot"},
		OnlyMain: false,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/scrape", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, fmt.Errorf("firecrawl request timeout: %w", err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("firecrawl status %d: %s", resp.StatusCode, truncate(string(body), 300))
	}

	var parsed scrapeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("firecrawl response parse: %w", err)
	}
	if !parsed.Success {
		msg := parsed.Error
		if msg == "" {
			msg = "unknown error"
		}
		return nil, fmt.Errorf("firecrawl scrape failed: %s", msg)
	}
	if strings.TrimSpace(parsed.Data.HTML) == "" && strings.TrimSpace(parsed.Data.Markdown) == "" {
		return nil, fmt.Errorf("firecrawl scrape returned empty content")
	}

	return &vendors.CrawlResult{
		HTML:       parsed.Data.HTML,
		Markdown:   parsed.Data.Markdown,
		Screenshot: parsed.Data.Screenshot,
		Metadata:   parsed.Data.Metadata,
	}, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

var _ vendors.Crawler = (*Client)(nil)
