package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"plusfolio-backend/internal/apiusage"
	"plusfolio-backend/internal/feedback"
	"plusfolio-backend/internal/queue"
	"plusfolio-backend/internal/quota"
	"plusfolio-backend/internal/reports"
	"plusfolio-backend/internal/shared/config"
	"plusfolio-backend/internal/shared/server"
	"plusfolio-backend/internal/shared/server/middleware"
	"plusfolio-backend/internal/shared/storage/db"
	"plusfolio-backend/internal/shared/storage/object"
	localstore "plusfolio-backend/internal/shared/storage/object/local"
	s3store "plusfolio-backend/internal/shared/storage/object/s3"
	"plusfolio-backend/internal/vendors"
	"plusfolio-backend/internal/vendors/capturekit"
	"plusfolio-backend/internal/vendors/firecrawl"
	"plusfolio-backend/internal/vendors/gemini"
	"plusfolio-backend/internal/vendors/github"
)

// App holds shared dependencies. The API binary uses Router; the worker
// binary uses ReportsService directly.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client

	ReportsRepo     reports.Repo
	QuotaStore      quota.Store
	UsageRecorder   apiusage.Recorder
	FeedbackRepo    feedback.Repo
	VendorLimiter   vendors.RateLimiter
	ReportsService  *reports.Service
	FeedbackService *feedback.Service
	ReportsHandler  *reports.Handler
	FeedbackHandler *feedback.Handler
	GitHubHandler   *github.Handler
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
	}

	if err := buildServices(ctx, app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(cfg, server.Deps{
		Reports:  app.ReportsHandler,
		Feedback: app.FeedbackHandler,
		GitHub:   app.GitHubHandler,
		Limiter:  middleware.NewRateLimiter(nil),
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.QueueURL) == "" {
		return nil, nil
	}
	client, err := queue.NewSQSClient(ctx)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(ctx context.Context, app *App) error {
	cfg := app.Config

	var reportsRepo reports.Repo
	var quotaStore quota.Store
	var usageRecorder apiusage.Recorder
	var feedbackRepo feedback.Repo

	if app.DB != nil {
		reportsRepo = &reports.PGRepo{DB: app.DB}
		quotaStore = quota.NewPGStore(app.DB)
		usageRecorder = apiusage.NewPGStore(app.DB)
		feedbackRepo = &feedback.PGRepo{DB: app.DB}
	} else {
		reportsRepo = reports.NewMemoryRepo()
		quotaStore = quota.NewMemoryStore()
		usageRecorder = apiusage.NewMemoryStore()
		feedbackRepo = feedback.NewMemoryRepo()
	}

	crawler := vendors.Crawler(placeholderCrawler{})
	if strings.TrimSpace(cfg.FirecrawlAPIKey) != "" {
		client, err := firecrawl.NewClient(cfg.FirecrawlAPIKey, cfg.FirecrawlBaseURL)
		if err != nil {
			return err
		}
		crawler = client
	}

	shots := vendors.ScreenshotTaker(placeholderShots{})
	if strings.TrimSpace(cfg.CaptureKitAPIKey) != "" {
		client, err := capturekit.NewClient(cfg.CaptureKitAPIKey, cfg.CaptureKitBase)
		if err != nil {
			return err
		}
		shots = client
	}

	analyzer := vendors.Analyzer(placeholderAnalyzer{})
	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		client, err := gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL)
		if err != nil {
			return err
		}
		analyzer = client
	}

	limits := quota.Limits{
		Starter:   cfg.StarterLimit,
		Plus:      cfg.PlusLimit,
		PlusUltra: cfg.PlusUltraLimit,
	}

	vendorLimiter := vendors.NewSlidingLimiter(nil, nil)
	githubClient := github.NewClient(ctx, cfg.GitHubToken, "")

	reportsSvc := &reports.Service{
		Repo:      reportsRepo,
		Quota:     quota.NewService(quotaStore, limits),
		Limiter:   vendorLimiter,
		Crawler:   crawler,
		Shots:     shots,
		Analyzer:  analyzer,
		Usage:     usageRecorder,
		Snapshots: app.Store,
		GitHub:    githubClient,
		Queue:     app.Queue,
		ShareTTL:  time.Duration(cfg.ShareTTLDays) * 24 * time.Hour,
	}

	feedbackSvc := &feedback.Service{Repo: feedbackRepo}

	app.ReportsRepo = reportsRepo
	app.QuotaStore = quotaStore
	app.UsageRecorder = usageRecorder
	app.FeedbackRepo = feedbackRepo
	app.VendorLimiter = vendorLimiter
	app.ReportsService = reportsSvc
	app.FeedbackService = feedbackSvc
	app.ReportsHandler = reports.NewHandler(reportsSvc)
	app.FeedbackHandler = feedback.NewHandler(feedbackSvc)
	app.GitHubHandler = github.NewHandler(githubClient, vendorLimiter)

	if app.ReportsHandler == nil || app.FeedbackHandler == nil {
		return errors.New("failed to initialize handlers")
	}
	return nil
}

// Process satisfies the worker's report processor contract.
func (a *App) Process(ctx context.Context, reportID string) error {
	if a.ReportsService == nil {
		return errors.New("reports service not configured")
	}
	return a.ReportsService.Process(ctx, reportID)
}

type placeholderCrawler struct{}

func (placeholderCrawler) Crawl(ctx context.Context, url string) (*vendors.CrawlResult, error) {
	return nil, errors.New("crawler not configured")
}

type placeholderShots struct{}

func (placeholderShots) Capture(ctx context.Context, url string) (*vendors.ScreenshotResult, error) {
	return nil, errors.New("screenshot client not configured")
}

type placeholderAnalyzer struct{}

func (placeholderAnalyzer) Analyze(ctx context.Context, url, markdown string, meta vendors.CrawlMetadata, screenshotURL, mode string) (*vendors.AnalysisResult, error) {
	return nil, errors.New("analyzer not configured")
}
