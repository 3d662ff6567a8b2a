package reports

import (
	"context"
	"time"
)

// FinalizeUpdate carries the terminal state written when a report leaves
// processing. Status must be completed or failed.
type FinalizeUpdate struct {
	Status           string
	ClarityScore     *int
	ScoreBreakdown   *ScoreBreakdown
	ReportData       map[string]any
	ErrorMessage     string
	ShareableToken   string
	ProcessingTimeMs int64
	CompletedAt      time.Time
}

// CrawlMetadataUpdate carries the fields filled in once the crawl returns.
type CrawlMetadataUpdate struct {
	FinalURL    string
	Title       string
	Description string
}

// Repo defines persistence operations for reports.
type Repo interface {
	Create(ctx context.Context, report Report) error
	GetByID(ctx context.Context, reportID string) (Report, error)
	GetByShareToken(ctx context.Context, token string) (Report, error)
	Finalize(ctx context.Context, reportID string, update FinalizeUpdate) error
	UpdateCrawlMetadata(ctx context.Context, reportID string, update CrawlMetadataUpdate) error
	SetVisibility(ctx context.Context, reportID, userID string, isPublic bool, expiresAt *time.Time) error
	IncrementViewCount(ctx context.Context, reportID string) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Report, error)
}
