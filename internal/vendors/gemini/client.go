package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
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

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// maxScreenshotBytes caps the downloaded screenshot riding along as an
// inline request part.
const maxScreenshotBytes = 4 << 20

// Client produces website analyses through the Gemini generateContent API.
// The response is constrained to the analysis schema so the model returns
// parseable JSON.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a Gemini client.
func NewClient(apiKey, model, baseURL string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("GEMINI_MODEL is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	timeout := 90 * time.Second
	if raw := strings.TrimSpace(os.Getenv("GEMINI_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature      float32         `json:"temperature"`
	ResponseMimeType string          `json:"responseMimeType"`
	ResponseSchema   json.RawMessage `json:"responseSchema"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata,omitempty"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Analyze sends the crawled page, and the screenshot when one was captured,
// to Gemini and parses the structured result.
func (c *Client) Analyze(ctx context.Context, url, markdown string, meta vendors.CrawlMetadata, screenshotURL, mode string) (*vendors.AnalysisResult, error) {
	var image *inlineData
	if strings.TrimSpace(screenshotURL) != "" {
		image = c.fetchScreenshot(ctx, screenshotURL)
	}

	parts := []part{{Text: buildPrompt(url, markdown, meta, mode, image != nil)}}
	if image != nil {
		parts = append(parts, part{InlineData: image})
	}
	reqBody := generateRequest{
		Contents: []content{{Parts: parts}},
		GenerationConfig: generationConfig{
			Temperature:      0.2,
			ResponseMimeType: "application/json",
			ResponseSchema:   analysisSchema,
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-goog-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, fmt.Errorf("gemini request timeout: %w", err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("gemini response parse: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("gemini error: %s (%s)", parsed.Error.Message, parsed.Error.Status)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini response missing candidates")
	}

	text := strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return nil, fmt.Errorf("gemini response empty content")
	}

	var result vendors.AnalysisResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("gemini analysis parse: %w", err)
	}
	if parsed.UsageMetadata != nil {
		result.TokensUsed = parsed.UsageMetadata.TotalTokenCount
	}
	return &result, nil
}

// fetchScreenshot downloads the captured image so it can be sent inline.
// Failures drop the image; the text-only analysis still runs.
func (c *Client) fetchScreenshot(ctx context.Context, url string) *inlineData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxScreenshotBytes))
	if err != nil || len(body) == 0 {
		return nil
	}
	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/png"
	}
	return &inlineData{
		MimeType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(body),
	}
}

func buildPrompt(url, markdown string, meta vendors.CrawlMetadata, mode string, hasScreenshot bool) string {
	var b strings.Builder
	b.WriteString("You are a website quality auditor. Analyze the site below and score it ")
	b.WriteString("across design, ux, technical, and accessibility. Scores are 0-100 integers.\n")
	if audience, ok := modeAudience[mode]; ok {
		b.WriteString(audience)
		b.WriteString("\n")
	}
	if hasScreenshot {
		b.WriteString("A rendered screenshot of the page is attached; use it for visual judgments.\n")
	}
	b.WriteString("\nURL: ")
	b.WriteString(url)
	b.WriteString("\n")
	if meta.Title != "" {
		b.WriteString("Title: ")
		b.WriteString(meta.Title)
		b.WriteString("\n")
	}
	if meta.Description != "" {
		b.WriteString("Description: ")
		b.WriteString(meta.Description)
		b.WriteString("\n")
	}
	b.WriteString("\nPage content (markdown):\n")
	b.WriteString(truncateContent(markdown, 30000))
	return b.String()
}

// modeAudience adds a per-mode framing line to the prompt.
var modeAudience = map[string]string{
	"recruiter": "Evaluate through the eyes of a technical recruiter screening a candidate's portfolio.",
	"peer":      "Evaluate as a fellow developer giving a code-adjacent peer review.",
	"client":    "Evaluate as a prospective client judging professionalism and trust.",
	"quick":     "Give a fast first-impression pass; keep findings short.",
}

// Gemini rejects oversized payloads; trim page content rather than fail.
func truncateContent(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

var analysisSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"score": {"type": "integer"},
		"analysis": {
			"type": "object",
			"properties": {
				"design": {"$ref": "#/definitions/category"},
				"ux": {"$ref": "#/definitions/category"},
				"technical": {"$ref": "#/definitions/category"},
				"accessibility": {"$ref": "#/definitions/category"}
			},
			"required": ["design", "ux", "technical", "accessibility"]
		},
		"insights": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"id": {"type": "string"},
					"title": {"type": "string"},
					"description": {"type": "string"},
					"impact": {"type": "string"},
					"effort": {"type": "string"},
					"category": {"type": "string"}
				},
				"required": ["id", "title", "description", "impact", "effort", "category"]
			}
		},
		"recommendations": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"id": {"type": "string"},
					"title": {"type": "string"},
					"description": {"type": "string"},
					"priority": {"type": "string"},
					"category": {"type": "string"},
					"implementation_steps": {"type": "array", "items": {"type": "string"}}
				},
				"required": ["id", "title", "description", "priority", "category", "implementation_steps"]
			}
		}
	},
	"required": ["score", "analysis", "insights", "recommendations"],
	"definitions": {
		"category": {
			"type": "object",
			"properties": {
				"score": {"type": "integer"},
				"findings": {"type": "array", "items": {"type": "string"}},
				"recommendations": {"type": "array", "items": {"type": "string"}}
			},
			"required": ["score", "findings", "recommendations"]
		}
	}
}`)

var _ vendors.Analyzer = (*Client)(nil)
