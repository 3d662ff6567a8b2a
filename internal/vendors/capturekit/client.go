package capturekit

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

const defaultBaseURL = "https://api.capturekit.dev/v1"

// Client captures full-page screenshots via the CaptureKit API. Screenshot
// failures are non-fatal to the analysis pipeline; callers log and move on.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a CaptureKit client.
func NewClient(apiKey, baseURL string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("CAPTUREKIT_API_KEY is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	timeout := 30 * time.Second
	if raw := strings.TrimSpace(os.Getenv("CAPTUREKIT_TIMEOUT_SECONDS")); raw != "" {
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

type captureRequest struct {
	URL      string   `json:"url"`
	Viewport viewport `json:"viewport"`
	FullPage bool     `json:"fullPage"`
	Format   string   `json:"format"`
	Quality  int      `json:"quality"`
}

type viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type captureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
}

// Capture takes a full-page webp screenshot of url.
func (c *Client) Capture(ctx context.Context, url string) (*vendors.ScreenshotResult, error) {
	reqBody := captureRequest{
		URL:      url,
		Viewport: viewport{Width: 1920, Height: 1080},
		FullPage: true,
		Format:   "webp",
		Quality:  85,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/screenshot", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, fmt.Errorf("capturekit request timeout: %w", err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("capturekit status %d", resp.StatusCode)
	}

	var parsed captureResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("capturekit response parse: %w", err)
	}
	if !parsed.Success {
		msg := parsed.Error
		if msg == "" {
			msg = "unknown error"
		}
		return nil, fmt.Errorf("capturekit capture failed: %s", msg)
	}
	if strings.TrimSpace(parsed.Data.URL) == "" {
		return nil, fmt.Errorf("capturekit capture returned no image URL")
	}

	return &vendors.ScreenshotResult{URL: parsed.Data.URL}, nil
}

var _ vendors.ScreenshotTaker = (*Client)(nil)
