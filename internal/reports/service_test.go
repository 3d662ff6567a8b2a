package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"plusfolio-backend/internal/apiusage"
	"plusfolio-backend/internal/queue"
	"plusfolio-backend/internal/quota"
	"plusfolio-backend/internal/shared/util"
	"plusfolio-backend/internal/vendors"
)

type stubCrawler struct {
	result *vendors.CrawlResult
	err    error
	calls  int
}

func (s *stubCrawler) Crawl(ctx context.Context, url string) (*vendors.CrawlResult, error) {
	s.calls++
	return s.result, s.err
}

type stubShots struct {
	result *vendors.ScreenshotResult
	err    error
	calls  int
}

func (s *stubShots) Capture(ctx context.Context, url string) (*vendors.ScreenshotResult, error) {
	s.calls++
	return s.result, s.err
}

type stubAnalyzer struct {
	result      *vendors.AnalysisResult
	err         error
	calls       int
	screenshots []string
}

func (s *stubAnalyzer) Analyze(ctx context.Context, url, markdown string, meta vendors.CrawlMetadata, screenshotURL, mode string) (*vendors.AnalysisResult, error) {
	s.calls++
	s.screenshots = append(s.screenshots, screenshotURL)
	return s.result, s.err
}

type stubGuard struct {
	decision quota.Decision
	incs     []string
}

func (s *stubGuard) Check(ctx context.Context, userID string) quota.Decision {
	return s.decision
}

func (s *stubGuard) Increment(ctx context.Context, userID string) error {
	s.incs = append(s.incs, userID)
	return nil
}

type stubQueue struct {
	messages []queue.Message
	err      error
}

func (s *stubQueue) Enqueue(ctx context.Context, msg queue.Message) error {
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, msg)
	return nil
}

func goodCrawl() *vendors.CrawlResult {
	return &vendors.CrawlResult{
		HTML:     "<html><body>hi</body></html>",
		Markdown: "# hi",
		Metadata: vendors.CrawlMetadata{Title: "Example", Description: "A site", SourceURL: "https://example.com/"},
	}
}

func goodAnalysis() *vendors.AnalysisResult {
	return &vendors.AnalysisResult{
		Score: 82,
		Analysis: map[string]vendors.CategoryScore{
			"design":        {Score: 85},
			"ux":            {Score: 80},
			"technical":     {Score: 84},
			"accessibility": {Score: 78},
		},
		TokensUsed: 1500,
	}
}

func newTestService(crawler *stubCrawler, shots *stubShots, analyzer *stubAnalyzer) (*Service, *MemoryRepo, *apiusage.MemoryStore, *stubGuard, *stubQueue) {
	repo := NewMemoryRepo()
	usage := apiusage.NewMemoryStore()
	guard := &stubGuard{decision: quota.Decision{Allowed: true}}
	q := &stubQueue{}
	svc := &Service{
		Repo:     repo,
		Quota:    guard,
		Crawler:  crawler,
		Shots:    shots,
		Analyzer: analyzer,
		Usage:    usage,
		Queue:    q,
		ShareTTL: 30 * 24 * time.Hour,
	}
	return svc, repo, usage, guard, q
}

func TestAnalyzeRejectsInvalidURL(t *testing.T) {
	svc, _, _, _, q := newTestService(&stubCrawler{}, &stubShots{}, &stubAnalyzer{})

	_, err := svc.Analyze(context.Background(), "user-1", "http://localhost:3000", "")
	var validationErr ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if len(q.messages) != 0 {
		t.Fatal("invalid URL must not enqueue work")
	}
}

func TestAnalyzeRejectsUnknownMode(t *testing.T) {
	svc, _, _, _, q := newTestService(&stubCrawler{}, &stubShots{}, &stubAnalyzer{})

	_, err := svc.Analyze(context.Background(), "user-1", "https://example.com", "adversarial")
	var validationErr ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if len(q.messages) != 0 {
		t.Fatal("invalid mode must not enqueue work")
	}
}

func TestAnalyzeQuotaDenied(t *testing.T) {
	svc, repo, _, guard, _ := newTestService(&stubCrawler{}, &stubShots{}, &stubAnalyzer{})
	guard.decision = quota.Decision{Allowed: false, Reason: "monthly_limit_reached"}

	_, err := svc.Analyze(context.Background(), "user-1", "https://example.com", "")
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("err = %v, want ErrQuotaExceeded", err)
	}
	if list, _ := repo.ListByUser(context.Background(), "user-1", 10, 0); len(list) != 0 {
		t.Fatal("denied request must not create a report")
	}
}

func TestAnalyzeAccepted(t *testing.T) {
	svc, repo, _, _, q := newTestService(&stubCrawler{}, &stubShots{}, &stubAnalyzer{})

	accepted, err := svc.Analyze(context.Background(), "user-1", "https://example.com", "")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if accepted.ID == "" {
		t.Fatal("missing report id")
	}
	if accepted.Status != StatusProcessing {
		t.Fatalf("status = %q, want processing", accepted.Status)
	}
	if accepted.EstimatedCompletionTimeMs != 60000 {
		t.Fatalf("estimate = %d, want 60000", accepted.EstimatedCompletionTimeMs)
	}

	report, err := repo.GetByID(context.Background(), accepted.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if report.ProcessingStatus != StatusProcessing {
		t.Fatalf("stored status = %q", report.ProcessingStatus)
	}
	if report.AnalysisMode != ModeComprehensive {
		t.Fatalf("mode = %q, want default comprehensive", report.AnalysisMode)
	}
	if report.Domain != "example.com" {
		t.Fatalf("domain = %q", report.Domain)
	}
	if len(q.messages) != 1 || q.messages[0].ReportID != accepted.ID {
		t.Fatalf("queue messages = %+v", q.messages)
	}
}

func TestProcessHappyPath(t *testing.T) {
	crawler := &stubCrawler{result: goodCrawl()}
	shots := &stubShots{result: &vendors.ScreenshotResult{URL: "https://cdn.example.com/shot.webp"}}
	analyzer := &stubAnalyzer{result: goodAnalysis()}
	svc, repo, usage, guard, _ := newTestService(crawler, shots, analyzer)

	accepted, err := svc.Analyze(context.Background(), "user-1", "https://example.com", "")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if err := svc.Process(context.Background(), accepted.ID); err != nil {
		t.Fatalf("Process: %v", err)
	}

	report, err := repo.GetByID(context.Background(), accepted.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if report.ProcessingStatus != StatusCompleted {
		t.Fatalf("status = %q, want completed", report.ProcessingStatus)
	}
	if report.ClarityScore == nil || *report.ClarityScore != 82 {
		t.Fatalf("clarity score = %v, want 82", report.ClarityScore)
	}
	if report.ScoreBreakdown == nil || report.ScoreBreakdown.Design != 85 {
		t.Fatalf("score breakdown = %+v", report.ScoreBreakdown)
	}
	if report.ShareableToken != util.ShareToken(accepted.ID) {
		t.Fatalf("share token = %q", report.ShareableToken)
	}
	if report.Title != "Example" {
		t.Fatalf("title = %q", report.Title)
	}
	if report.FinalURL != "https://example.com/" {
		t.Fatalf("final url = %q", report.FinalURL)
	}
	if degraded := report.ReportData["degraded"]; degraded != false {
		t.Fatalf("degraded = %v, want false", degraded)
	}
	if report.ReportData["screenshot_url"] != "https://cdn.example.com/shot.webp" {
		t.Fatalf("screenshot_url = %v", report.ReportData["screenshot_url"])
	}
	if len(analyzer.screenshots) != 1 || analyzer.screenshots[0] != "https://cdn.example.com/shot.webp" {
		t.Fatalf("analyzer screenshot input = %v", analyzer.screenshots)
	}
	if report.CompletedAt == nil {
		t.Fatal("missing completed_at")
	}

	records := usage.Records()
	if len(records) != 3 {
		t.Fatalf("usage records = %d, want 3", len(records))
	}
	services := map[string]bool{}
	for _, rec := range records {
		services[rec.Service] = true
		if rec.ReportID != accepted.ID {
			t.Fatalf("usage record missing report id: %+v", rec)
		}
	}
	for _, svcName := range []string{vendors.ServiceFirecrawl, vendors.ServiceCaptureKit, vendors.ServiceGemini} {
		if !services[svcName] {
			t.Fatalf("missing usage record for %s", svcName)
		}
	}

	if len(guard.incs) != 1 || guard.incs[0] != "user-1" {
		t.Fatalf("quota increments = %v", guard.incs)
	}
}

func TestProcessCrawlFailureIsFatal(t *testing.T) {
	crawler := &stubCrawler{err: errors.New("firecrawl scrape failed: 502")}
	analyzer := &stubAnalyzer{result: goodAnalysis()}
	svc, repo, _, guard, _ := newTestService(crawler, &stubShots{}, analyzer)

	accepted, _ := svc.Analyze(context.Background(), "user-1", "https://example.com", "")
	if err := svc.Process(context.Background(), accepted.ID); err != nil {
		t.Fatalf("Process: %v", err)
	}

	report, _ := repo.GetByID(context.Background(), accepted.ID)
	if report.ProcessingStatus != StatusFailed {
		t.Fatalf("status = %q, want failed", report.ProcessingStatus)
	}
	if report.ErrorMessage == "" {
		t.Fatal("missing error message")
	}
	if analyzer.calls != 0 {
		t.Fatal("analyzer must not run after fatal crawl failure")
	}
	if len(guard.incs) != 0 {
		t.Fatal("failed report must not consume quota")
	}
}

func TestProcessScreenshotFailureNonFatal(t *testing.T) {
	crawler := &stubCrawler{result: goodCrawl()}
	shots := &stubShots{err: errors.New("capturekit status 502")}
	analyzer := &stubAnalyzer{result: goodAnalysis()}
	svc, repo, _, _, _ := newTestService(crawler, shots, analyzer)

	accepted, _ := svc.Analyze(context.Background(), "user-1", "https://example.com", "")
	if err := svc.Process(context.Background(), accepted.ID); err != nil {
		t.Fatalf("Process: %v", err)
	}

	report, _ := repo.GetByID(context.Background(), accepted.ID)
	if report.ProcessingStatus != StatusCompleted {
		t.Fatalf("status = %q, want completed", report.ProcessingStatus)
	}
	if _, ok := report.ReportData["screenshot_url"]; ok {
		t.Fatal("failed screenshot must not appear in report data")
	}
	if len(analyzer.screenshots) != 1 || analyzer.screenshots[0] != "" {
		t.Fatalf("analyzer screenshot input = %v, want one empty entry", analyzer.screenshots)
	}
}

func TestProcessAIFallback(t *testing.T) {
	crawler := &stubCrawler{result: goodCrawl()}
	analyzer := &stubAnalyzer{err: errors.New("gemini error: quota exceeded")}
	svc, repo, _, _, _ := newTestService(crawler, &stubShots{}, analyzer)

	accepted, _ := svc.Analyze(context.Background(), "user-1", "https://example.com", "")
	if err := svc.Process(context.Background(), accepted.ID); err != nil {
		t.Fatalf("Process: %v", err)
	}

	report, _ := repo.GetByID(context.Background(), accepted.ID)
	if report.ProcessingStatus != StatusCompleted {
		t.Fatalf("status = %q, want completed", report.ProcessingStatus)
	}
	if report.ClarityScore == nil || *report.ClarityScore != 50 {
		t.Fatalf("fallback score = %v, want 50", report.ClarityScore)
	}
	if report.ScoreBreakdown == nil || report.ScoreBreakdown.UX != 50 {
		t.Fatalf("fallback breakdown = %+v", report.ScoreBreakdown)
	}
	if degraded := report.ReportData["degraded"]; degraded != true {
		t.Fatalf("degraded = %v, want true", degraded)
	}
}

func TestProcessRedeliveryIsNoOp(t *testing.T) {
	crawler := &stubCrawler{result: goodCrawl()}
	analyzer := &stubAnalyzer{result: goodAnalysis()}
	svc, repo, _, _, _ := newTestService(crawler, &stubShots{}, analyzer)

	accepted, _ := svc.Analyze(context.Background(), "user-1", "https://example.com", "")
	if err := svc.Process(context.Background(), accepted.ID); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if err := svc.Process(context.Background(), accepted.ID); err != nil {
		t.Fatalf("Process redelivery: %v", err)
	}

	if analyzer.calls != 1 {
		t.Fatalf("analyzer calls = %d, want 1", analyzer.calls)
	}
	report, _ := repo.GetByID(context.Background(), accepted.ID)
	if report.ProcessingStatus != StatusCompleted {
		t.Fatalf("status = %q", report.ProcessingStatus)
	}
}

func TestGetSharedStripsOwnerAndCountsView(t *testing.T) {
	crawler := &stubCrawler{result: goodCrawl()}
	analyzer := &stubAnalyzer{result: goodAnalysis()}
	svc, repo, _, _, _ := newTestService(crawler, &stubShots{}, analyzer)

	accepted, _ := svc.Analyze(context.Background(), "user-1", "https://example.com", "")
	if err := svc.Process(context.Background(), accepted.ID); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if _, err := svc.SetVisibility(context.Background(), accepted.ID, "user-1", true); err != nil {
		t.Fatalf("SetVisibility: %v", err)
	}

	stored, _ := repo.GetByID(context.Background(), accepted.ID)
	shared, err := svc.GetShared(context.Background(), stored.ShareableToken)
	if err != nil {
		t.Fatalf("GetShared: %v", err)
	}
	if shared.UserID != "" {
		t.Fatal("shared report must not expose owner")
	}
	if shared.ViewCount != 1 {
		t.Fatalf("view count = %d, want 1", shared.ViewCount)
	}

	again, _ := svc.GetShared(context.Background(), stored.ShareableToken)
	if again.ViewCount != 2 {
		t.Fatalf("view count = %d, want 2", again.ViewCount)
	}
}

func TestGetSharedExpired(t *testing.T) {
	crawler := &stubCrawler{result: goodCrawl()}
	analyzer := &stubAnalyzer{result: goodAnalysis()}
	svc, repo, _, _, _ := newTestService(crawler, &stubShots{}, analyzer)

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return current }

	accepted, _ := svc.Analyze(context.Background(), "user-1", "https://example.com", "")
	if err := svc.Process(context.Background(), accepted.ID); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if _, err := svc.SetVisibility(context.Background(), accepted.ID, "user-1", true); err != nil {
		t.Fatalf("SetVisibility: %v", err)
	}

	current = current.Add(svc.ShareTTL + time.Hour)
	stored, _ := repo.GetByID(context.Background(), accepted.ID)
	if _, err := svc.GetShared(context.Background(), stored.ShareableToken); !errors.Is(err, ErrShareExpired) {
		t.Fatalf("err = %v, want ErrShareExpired", err)
	}
}

func TestGetSharedPrivateReportHidden(t *testing.T) {
	crawler := &stubCrawler{result: goodCrawl()}
	analyzer := &stubAnalyzer{result: goodAnalysis()}
	svc, repo, _, _, _ := newTestService(crawler, &stubShots{}, analyzer)

	accepted, _ := svc.Analyze(context.Background(), "user-1", "https://example.com", "")
	if err := svc.Process(context.Background(), accepted.ID); err != nil {
		t.Fatalf("Process: %v", err)
	}

	stored, _ := repo.GetByID(context.Background(), accepted.ID)
	if _, err := svc.GetShared(context.Background(), stored.ShareableToken); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for private report", err)
	}
}

func TestDispatchFallsBackWhenEnqueueFails(t *testing.T) {
	crawler := &stubCrawler{result: goodCrawl()}
	analyzer := &stubAnalyzer{result: goodAnalysis()}
	svc, repo, _, _, q := newTestService(crawler, &stubShots{}, analyzer)
	q.err = errors.New("sqs send message: throttled")

	accepted, err := svc.Analyze(context.Background(), "user-1", "https://example.com", "")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	// In-process fallback finishes the report eventually.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		report, _ := repo.GetByID(context.Background(), accepted.ID)
		if report.ProcessingStatus == StatusCompleted {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("report never completed via in-process fallback")
}
