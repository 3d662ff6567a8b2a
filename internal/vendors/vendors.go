package vendors

import "context"

// Service names used in rate limiting and the usage ledger.
const (
	ServiceFirecrawl  = "firecrawl"
	ServiceCaptureKit = "capturekit"
	ServiceGemini     = "gemini"
	ServiceGitHub     = "github"
)

// CrawlMetadata is page metadata extracted during a crawl.
type CrawlMetadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Language    string `json:"language"`
	SourceURL   string `json:"sourceURL"`
}

// CrawlResult is the output of a successful page crawl.
type CrawlResult struct {
	HTML       string
	Markdown   string
	Screenshot string
	Metadata   CrawlMetadata
}

// ScreenshotResult is the output of a screenshot capture.
type ScreenshotResult struct {
	URL string
}

// CategoryScore is one scored analysis dimension.
type CategoryScore struct {
	Score           int      `json:"score"`
	Findings        []string `json:"findings"`
	Recommendations []string `json:"recommendations"`
}

// Insight is a single observation surfaced by the analysis.
type Insight struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Impact      string `json:"impact"`
	Effort      string `json:"effort"`
	Category    string `json:"category"`
}

// Recommendation is an actionable improvement with implementation steps.
type Recommendation struct {
	ID                  string   `json:"id"`
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	Priority            string   `json:"priority"`
	Category            string   `json:"category"`
	ImplementationSteps []string `json:"implementation_steps"`
}

// AnalysisResult is the structured output of an AI website analysis.
type AnalysisResult struct {
	Score           int                      `json:"score"`
	Analysis        map[string]CategoryScore `json:"analysis"`
	Insights        []Insight                `json:"insights"`
	Recommendations []Recommendation         `json:"recommendations"`
	TokensUsed      int                      `json:"-"`
}

// Crawler fetches page content and metadata for a URL.
type Crawler interface {
	Crawl(ctx context.Context, url string) (*CrawlResult, error)
}

// ScreenshotTaker captures a rendered screenshot for a URL.
type ScreenshotTaker interface {
	Capture(ctx context.Context, url string) (*ScreenshotResult, error)
}

// Analyzer produces a structured analysis from crawled content. The
// screenshot URL is optional extra input (empty when capture failed); the
// mode steers the prompt toward an audience (comprehensive, recruiter, ...).
type Analyzer interface {
	Analyze(ctx context.Context, url, markdown string, meta CrawlMetadata, screenshotURL, mode string) (*AnalysisResult, error)
}
