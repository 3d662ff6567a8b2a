package reports

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory report repository for dev environments.
type MemoryRepo struct {
	mu      sync.Mutex
	reports map[string]Report
}

// NewMemoryRepo constructs an empty in-memory repo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{reports: make(map[string]Report)}
}

func (r *MemoryRepo) Create(ctx context.Context, report Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports[report.ID] = report
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, reportID string) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	report, ok := r.reports[reportID]
	if !ok {
		return Report{}, ErrNotFound
	}
	return report, nil
}

func (r *MemoryRepo) GetByShareToken(ctx context.Context, token string) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, report := range r.reports {
		if report.ShareableToken == token && report.IsPublic {
			return report, nil
		}
	}
	return Report{}, ErrNotFound
}

func (r *MemoryRepo) Finalize(ctx context.Context, reportID string, update FinalizeUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	report, ok := r.reports[reportID]
	if !ok {
		return ErrNotFound
	}
	if report.ProcessingStatus != StatusProcessing {
		return ErrAlreadyFinalized
	}
	report.ProcessingStatus = update.Status
	report.ClarityScore = update.ClarityScore
	report.ScoreBreakdown = update.ScoreBreakdown
	report.ReportData = update.ReportData
	report.ErrorMessage = update.ErrorMessage
	if update.ShareableToken != "" {
		report.ShareableToken = update.ShareableToken
	}
	report.ProcessingTimeMs = update.ProcessingTimeMs
	completedAt := update.CompletedAt
	report.CompletedAt = &completedAt
	r.reports[reportID] = report
	return nil
}

func (r *MemoryRepo) UpdateCrawlMetadata(ctx context.Context, reportID string, update CrawlMetadataUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	report, ok := r.reports[reportID]
	if !ok {
		return ErrNotFound
	}
	report.FinalURL = update.FinalURL
	report.Title = update.Title
	report.Description = update.Description
	r.reports[reportID] = report
	return nil
}

func (r *MemoryRepo) SetVisibility(ctx context.Context, reportID, userID string, isPublic bool, expiresAt *time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	report, ok := r.reports[reportID]
	if !ok || report.UserID != userID {
		return ErrNotFound
	}
	report.IsPublic = isPublic
	report.ShareExpiresAt = expiresAt
	r.reports[reportID] = report
	return nil
}

func (r *MemoryRepo) IncrementViewCount(ctx context.Context, reportID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	report, ok := r.reports[reportID]
	if !ok {
		return ErrNotFound
	}
	report.ViewCount++
	r.reports[reportID] = report
	return nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Report
	for _, report := range r.reports {
		if report.UserID == userID {
			out = append(out, report)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
