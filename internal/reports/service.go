package reports

import (
	"context"
	"errors"
	"fmt"
	neturl "net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"plusfolio-backend/internal/apiusage"
	"plusfolio-backend/internal/queue"
	"plusfolio-backend/internal/quota"
	"plusfolio-backend/internal/shared/metrics"
	"plusfolio-backend/internal/shared/storage/object"
	"plusfolio-backend/internal/shared/telemetry"
	"plusfolio-backend/internal/shared/util"
	"plusfolio-backend/internal/vendors"
	"plusfolio-backend/internal/vendors/github"
)

// ErrQuotaExceeded is returned when a user is out of monthly reports.
var ErrQuotaExceeded = errors.New("monthly report limit reached")

// ValidationError rejects a submitted URL with a client-facing reason.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string {
	return e.Reason
}

// Accepted is the response body for a successfully started analysis.
type Accepted struct {
	ID                        string `json:"id"`
	Status                    string `json:"status"`
	EstimatedCompletionTimeMs int    `json:"estimated_completion_time_ms"`
}

// Service orchestrates website analyses: validation and quota up front,
// then the crawl/screenshot/AI pipeline off the request path.
type Service struct {
	Repo      Repo
	Quota     quota.Guard
	Limiter   vendors.RateLimiter
	Crawler   vendors.Crawler
	Shots     vendors.ScreenshotTaker
	Analyzer  vendors.Analyzer
	Usage     apiusage.Recorder
	Snapshots object.ObjectStore
	GitHub    *github.Client
	Queue     queue.Client
	ShareTTL  time.Duration
	Now       func() time.Time
}

// Analyze validates the URL, checks quota, creates a processing report,
// and hands the work off. It returns before any vendor call is made.
func (s *Service) Analyze(ctx context.Context, userID, rawURL, mode string) (Accepted, error) {
	if valid, reason := ValidateURL(rawURL); !valid {
		return Accepted{}, ValidationError{Reason: reason}
	}
	mode, ok := NormalizeMode(strings.TrimSpace(mode))
	if !ok {
		return Accepted{}, ValidationError{Reason: "analysis_mode is invalid"}
	}

	if s.Quota != nil {
		decision := s.Quota.Check(ctx, userID)
		if !decision.Allowed {
			return Accepted{}, ErrQuotaExceeded
		}
	}

	report := Report{
		ID:               uuid.NewString(),
		UserID:           userID,
		URL:              strings.TrimSpace(rawURL),
		Domain:           domainOf(rawURL),
		AnalysisMode:     mode,
		ProcessingStatus: StatusProcessing,
		CreatedAt:        s.now(),
	}
	if err := s.Repo.Create(ctx, report); err != nil {
		return Accepted{}, fmt.Errorf("create report: %w", err)
	}

	s.dispatch(ctx, report.ID)

	return Accepted{
		ID:                        report.ID,
		Status:                    StatusProcessing,
		EstimatedCompletionTimeMs: EstimatedCompletionMs,
	}, nil
}

// dispatch hands the report to the durable queue when one is configured.
// Without a queue, or when enqueue fails, processing runs in-process so a
// report never sits in processing with no one working on it.
func (s *Service) dispatch(ctx context.Context, reportID string) {
	if s.Queue != nil {
		msg := queue.Message{ReportID: reportID, EnqueuedAt: s.now(), Version: queue.MessageVersion}
		if err := s.Queue.Enqueue(ctx, msg); err == nil {
			return
		} else {
			telemetry.Warn("report.enqueue_failed", map[string]any{
				"report_id": reportID,
				"error":     err.Error(),
			})
		}
	}
	go func() {
		if err := s.Process(context.Background(), reportID); err != nil {
			telemetry.Error("report.process", map[string]any{
				"report_id": reportID,
				"error":     err.Error(),
			})
		}
	}()
}

// Process runs the full analysis pipeline for a report. It is safe to call
// more than once for the same report: the finalize guard makes redelivered
// work items no-ops.
func (s *Service) Process(ctx context.Context, reportID string) error {
	defer func() {
		if r := recover(); r != nil {
			s.failReport(ctx, reportID, fmt.Errorf("panic: %v", r), nil)
		}
	}()

	report, err := s.Repo.GetByID(ctx, reportID)
	if err != nil {
		return fmt.Errorf("report lookup id=%s: %w", reportID, err)
	}
	if report.ProcessingStatus != StatusProcessing {
		telemetry.Info("report.already_finalized", map[string]any{
			"report_id": reportID,
			"status":    report.ProcessingStatus,
		})
		return nil
	}

	startedAt := s.now()
	metrics.IncAnalysisStarted()
	telemetry.Info("report.status", map[string]any{
		"report_id": reportID,
		"user_id":   report.UserID,
		"url":       report.URL,
		"status":    StatusProcessing,
	})

	crawl, screenshotURL, err := s.gatherContent(ctx, report)
	if err != nil {
		s.failReport(ctx, reportID, err, &startedAt)
		return nil
	}

	meta := CrawlMetadataUpdate{
		FinalURL:    crawl.Metadata.SourceURL,
		Title:       crawl.Metadata.Title,
		Description: crawl.Metadata.Description,
	}
	if err := s.Repo.UpdateCrawlMetadata(ctx, reportID, meta); err != nil {
		telemetry.Warn("report.metadata_update_failed", map[string]any{
			"report_id": reportID,
			"error":     err.Error(),
		})
	}
	s.storeSnapshots(ctx, reportID, crawl)

	analysis, degraded := s.analyze(ctx, report, crawl, screenshotURL)

	reportData := buildReportData(report.URL, crawl, screenshotURL, analysis, degraded)
	if repos := s.enrichGitHub(ctx, report); len(repos) > 0 {
		reportData["github_repos"] = repos
	}

	clarityScore := analysis.Score
	finishedAt := s.now()
	update := FinalizeUpdate{
		Status:           StatusCompleted,
		ClarityScore:     &clarityScore,
		ScoreBreakdown:   BreakdownFrom(analysis),
		ReportData:       reportData,
		ShareableToken:   util.ShareToken(reportID),
		ProcessingTimeMs: finishedAt.Sub(startedAt).Milliseconds(),
		CompletedAt:      finishedAt,
	}
	if err := s.Repo.Finalize(ctx, reportID, update); err != nil {
		if errors.Is(err, ErrAlreadyFinalized) {
			telemetry.Info("report.finalize_race", map[string]any{"report_id": reportID})
			return nil
		}
		s.failReport(ctx, reportID, fmt.Errorf("finalize report: %w", err), &startedAt)
		return nil
	}

	if s.Quota != nil {
		if err := s.Quota.Increment(ctx, report.UserID); err != nil {
			telemetry.Warn("quota.increment_failed", map[string]any{
				"report_id": reportID,
				"user_id":   report.UserID,
				"error":     err.Error(),
			})
		}
	}

	completedAt := s.now()
	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(durationMs(startedAt, completedAt))
	telemetry.Info("report.status", map[string]any{
		"report_id":         reportID,
		"user_id":           report.UserID,
		"status":            StatusCompleted,
		"status_transition": "processing->completed",
		"degraded":          degraded,
		"duration_ms":       durationMs(startedAt, completedAt),
	})
	return nil
}

// gatherContent runs the crawl and screenshot concurrently. The crawl is
// fatal on error; the screenshot is best-effort.
func (s *Service) gatherContent(ctx context.Context, report Report) (*vendors.CrawlResult, string, error) {
	var (
		wg            sync.WaitGroup
		crawl         *vendors.CrawlResult
		crawlErr      error
		screenshotURL string
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		crawl, crawlErr = s.crawl(ctx, report)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		screenshotURL = s.screenshot(ctx, report)
	}()

	wg.Wait()
	if crawlErr != nil {
		return nil, "", crawlErr
	}
	return crawl, screenshotURL, nil
}

func (s *Service) crawl(ctx context.Context, report Report) (*vendors.CrawlResult, error) {
	if s.Limiter != nil && !s.Limiter.CanMakeRequest(vendors.ServiceFirecrawl) {
		return nil, fmt.Errorf("crawl rate limit reached")
	}
	start := s.now()
	result, err := s.Crawler.Crawl(ctx, report.URL)
	if s.Limiter != nil {
		s.Limiter.RecordRequest(vendors.ServiceFirecrawl)
	}
	s.recordUsage(ctx, report, apiusage.Record{
		Service:        vendors.ServiceFirecrawl,
		Endpoint:       "scrape",
		CostUSD:        apiusage.FirecrawlCost(),
		ResponseTimeMs: int(s.now().Sub(start).Milliseconds()),
	}, err)
	metrics.IncVendorCall(vendors.ServiceFirecrawl, err == nil)
	if err != nil {
		return nil, fmt.Errorf("crawl: %w", err)
	}
	return result, nil
}

func (s *Service) screenshot(ctx context.Context, report Report) string {
	if s.Shots == nil {
		return ""
	}
	if s.Limiter != nil && !s.Limiter.CanMakeRequest(vendors.ServiceCaptureKit) {
		telemetry.Warn("screenshot.rate_limited", map[string]any{"report_id": report.ID})
		return ""
	}
	start := s.now()
	result, err := s.Shots.Capture(ctx, report.URL)
	if s.Limiter != nil {
		s.Limiter.RecordRequest(vendors.ServiceCaptureKit)
	}
	s.recordUsage(ctx, report, apiusage.Record{
		Service:        vendors.ServiceCaptureKit,
		Endpoint:       "screenshot",
		CostUSD:        apiusage.CaptureKitCost(),
		ResponseTimeMs: int(s.now().Sub(start).Milliseconds()),
	}, err)
	metrics.IncVendorCall(vendors.ServiceCaptureKit, err == nil)
	if err != nil {
		telemetry.Warn("screenshot.failed", map[string]any{
			"report_id": report.ID,
			"error":     err.Error(),
		})
		return ""
	}
	if result == nil {
		return ""
	}
	return result.URL
}

// analyze returns the AI result, or the neutral fallback with degraded set
// when the vendor is rate limited or errors.
func (s *Service) analyze(ctx context.Context, report Report, crawl *vendors.CrawlResult, screenshotURL string) (*vendors.AnalysisResult, bool) {
	if s.Analyzer == nil {
		return NeutralFallback(), true
	}
	if s.Limiter != nil && !s.Limiter.CanMakeRequest(vendors.ServiceGemini) {
		telemetry.Warn("analysis.rate_limited", map[string]any{"report_id": report.ID})
		return NeutralFallback(), true
	}

	start := s.now()
	result, err := s.Analyzer.Analyze(ctx, report.URL, crawl.Markdown, crawl.Metadata, screenshotURL, report.AnalysisMode)
	if s.Limiter != nil {
		s.Limiter.RecordRequest(vendors.ServiceGemini)
	}
	tokens := 0
	if result != nil {
		tokens = result.TokensUsed
	}
	s.recordUsage(ctx, report, apiusage.Record{
		Service:        vendors.ServiceGemini,
		Endpoint:       "generateContent",
		TokensUsed:     tokens,
		CostUSD:        apiusage.GeminiCost(tokens),
		ResponseTimeMs: int(s.now().Sub(start).Milliseconds()),
	}, err)
	metrics.IncVendorCall(vendors.ServiceGemini, err == nil)
	if err != nil {
		telemetry.Warn("analysis.fallback", map[string]any{
			"report_id": report.ID,
			"error":     err.Error(),
		})
		return NeutralFallback(), true
	}
	return result, false
}

// enrichGitHub pulls public repos for GitHub Pages portfolios so the report
// can surface the owner's work. Best-effort and only for *.github.io hosts.
func (s *Service) enrichGitHub(ctx context.Context, report Report) []github.Repository {
	if s.GitHub == nil {
		return nil
	}
	username := githubPagesOwner(report.URL)
	if username == "" {
		return nil
	}
	if s.Limiter != nil && !s.Limiter.CanMakeRequest(vendors.ServiceGitHub) {
		return nil
	}
	repos, err := s.GitHub.ListUserRepos(ctx, username, 10)
	if s.Limiter != nil {
		s.Limiter.RecordRequest(vendors.ServiceGitHub)
	}
	if err != nil {
		telemetry.Warn("github.enrich_failed", map[string]any{
			"report_id": report.ID,
			"username":  username,
			"error":     err.Error(),
		})
		return nil
	}
	return repos
}

// domainOf returns the lowercased host of an already validated URL.
func domainOf(rawURL string) string {
	parsed, err := neturl.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

// githubPagesOwner extracts the account name from a *.github.io URL.
func githubPagesOwner(rawURL string) string {
	parsed, err := neturl.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	if !strings.HasSuffix(host, ".github.io") {
		return ""
	}
	owner := strings.TrimSuffix(host, ".github.io")
	if owner == "" || strings.Contains(owner, ".") {
		return ""
	}
	return owner
}

// storeSnapshots saves the raw crawl output for later re-analysis.
// Best-effort: a storage failure never fails the report.
func (s *Service) storeSnapshots(ctx context.Context, reportID string, crawl *vendors.CrawlResult) {
	if s.Snapshots == nil || crawl == nil {
		return
	}
	snapshots := []struct {
		kind        string
		contentType string
		body        string
	}{
		{"page.html", "text/html", crawl.HTML},
		{"page.md", "text/markdown", crawl.Markdown},
	}
	for _, snap := range snapshots {
		if snap.body == "" {
			continue
		}
		key := util.SnapshotKey(reportID, snap.kind)
		if _, err := s.Snapshots.Save(ctx, key, snap.contentType, strings.NewReader(snap.body)); err != nil {
			telemetry.Warn("snapshot.save_failed", map[string]any{
				"report_id": reportID,
				"key":       key,
				"error":     err.Error(),
			})
		}
	}
}

func (s *Service) recordUsage(ctx context.Context, report Report, rec apiusage.Record, callErr error) {
	if s.Usage == nil {
		return
	}
	rec.UserID = report.UserID
	rec.ReportID = report.ID
	if callErr != nil {
		rec.StatusCode = 0
	} else {
		rec.StatusCode = 200
	}
	if err := s.Usage.Record(ctx, rec); err != nil {
		telemetry.Warn("usage.record_failed", map[string]any{
			"report_id": report.ID,
			"service":   rec.Service,
			"error":     err.Error(),
		})
	}
}

func (s *Service) failReport(ctx context.Context, reportID string, cause error, startedAt *time.Time) {
	completedAt := s.now()
	update := FinalizeUpdate{
		Status:       StatusFailed,
		ErrorMessage: sanitizeError(cause),
		CompletedAt:  completedAt,
	}
	if startedAt != nil {
		update.ProcessingTimeMs = completedAt.Sub(*startedAt).Milliseconds()
	}
	if err := s.Repo.Finalize(context.Background(), reportID, update); err != nil {
		if errors.Is(err, ErrAlreadyFinalized) {
			return
		}
		telemetry.Error("report.fail_update", map[string]any{
			"report_id": reportID,
			"error":     err.Error(),
			"cause":     cause.Error(),
		})
	}
	metrics.IncAnalysisFailed()
	fields := map[string]any{
		"report_id":         reportID,
		"status":            StatusFailed,
		"status_transition": "processing->failed",
		"error":             sanitizeError(cause),
	}
	if startedAt != nil {
		fields["duration_ms"] = durationMs(*startedAt, completedAt)
	}
	telemetry.Info("report.status", fields)
}

// Get returns a report by ID.
func (s *Service) Get(ctx context.Context, reportID string) (Report, error) {
	if reportID == "" {
		return Report{}, errors.New("reportID is required")
	}
	return s.Repo.GetByID(ctx, reportID)
}

// List returns a user's reports newest-first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Report, error) {
	if userID == "" {
		return nil, errors.New("userID is required")
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// SetVisibility publishes or unpublishes a report. Publishing stamps a new
// expiry from ShareTTL; unpublishing clears it.
func (s *Service) SetVisibility(ctx context.Context, reportID, userID string, isPublic bool) (Report, error) {
	if reportID == "" || userID == "" {
		return Report{}, errors.New("reportID and userID are required")
	}
	var expiresAt *time.Time
	if isPublic && s.ShareTTL > 0 {
		t := s.now().Add(s.ShareTTL)
		expiresAt = &t
	}
	if err := s.Repo.SetVisibility(ctx, reportID, userID, isPublic, expiresAt); err != nil {
		return Report{}, err
	}
	return s.Repo.GetByID(ctx, reportID)
}

// GetShared resolves a public share token. Expired links return
// ErrShareExpired; live ones count the view and come back with the owner
// stripped.
func (s *Service) GetShared(ctx context.Context, token string) (Report, error) {
	if strings.TrimSpace(token) == "" {
		return Report{}, ErrNotFound
	}
	report, err := s.Repo.GetByShareToken(ctx, token)
	if err != nil {
		return Report{}, err
	}
	if report.ShareExpiresAt != nil && s.now().After(*report.ShareExpiresAt) {
		return Report{}, ErrShareExpired
	}
	if err := s.Repo.IncrementViewCount(ctx, report.ID); err != nil {
		telemetry.Warn("share.view_count_failed", map[string]any{
			"report_id": report.ID,
			"error":     err.Error(),
		})
	} else {
		report.ViewCount++
	}
	report.UserID = ""
	return report, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func durationMs(startedAt, completedAt time.Time) float64 {
	return float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
