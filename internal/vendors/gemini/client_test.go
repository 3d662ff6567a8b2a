package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"plusfolio-backend/internal/vendors"
)

const analysisResponseBody = `{
	"candidates": [{
		"content": {"parts": [{"text": "{\"score\": 78, \"analysis\": {\"design\": {\"score\": 80, \"findings\": [], \"recommendations\": []}, \"ux\": {\"score\": 75, \"findings\": [], \"recommendations\": []}, \"technical\": {\"score\": 82, \"findings\": [], \"recommendations\": []}, \"accessibility\": {\"score\": 70, \"findings\": [], \"recommendations\": []}}, \"insights\": [], \"recommendations\": []}"}]
	}}]
}`

func TestAnalyzeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "models/gemini-test:generateContent") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Fatalf("unexpected api key header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"candidates": [{
				"content": {"parts": [{"text": "{\"score\": 78, \"analysis\": {\"design\": {\"score\": 80, \"findings\": [\"clean layout\"], \"recommendations\": []}, \"ux\": {\"score\": 75, \"findings\": [], \"recommendations\": []}, \"technical\": {\"score\": 82, \"findings\": [], \"recommendations\": []}, \"accessibility\": {\"score\": 70, \"findings\": [], \"recommendations\": []}}, \"insights\": [], \"recommendations\": []}"}]
			}}],
			"usageMetadata": {"promptTokenCount": 1200, "candidatesTokenCount": 300, "totalTokenCount": 1500}
		}`))
	}))
	defer srv.Close()

	client, err := NewClient("test-key", "gemini-test", srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	result, err := client.Analyze(context.Background(), "https://example.com", "# content", vendors.CrawlMetadata{Title: "Example"}, "", "comprehensive")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.Score != 78 {
		t.Fatalf("score = %d, want 78", result.Score)
	}
	if result.Analysis["design"].Score != 80 {
		t.Fatalf("design score = %d, want 80", result.Analysis["design"].Score)
	}
	if result.TokensUsed != 1500 {
		t.Fatalf("tokens = %d, want 1500", result.TokensUsed)
	}
}

func TestAnalyzeVendorError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error": {"code": 429, "message": "quota exceeded", "status": "RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	client, err := NewClient("test-key", "gemini-test", srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if _, err := client.Analyze(context.Background(), "https://example.com", "x", vendors.CrawlMetadata{}, "", "comprehensive"); err == nil {
		t.Fatal("expected error on vendor failure")
	}
}

func TestAnalyzeMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "not json at all"}]}}]}`))
	}))
	defer srv.Close()

	client, err := NewClient("test-key", "gemini-test", srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if _, err := client.Analyze(context.Background(), "https://example.com", "x", vendors.CrawlMetadata{}, "", "comprehensive"); err == nil {
		t.Fatal("expected parse error for malformed analysis")
	}
}

func TestAnalyzeAttachesScreenshot(t *testing.T) {
	imgSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/webp")
		w.Write([]byte("webp-bytes"))
	}))
	defer imgSrv.Close()

	var captured generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(analysisResponseBody))
	}))
	defer srv.Close()

	client, err := NewClient("test-key", "gemini-test", srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if _, err := client.Analyze(context.Background(), "https://example.com", "# content", vendors.CrawlMetadata{}, imgSrv.URL, "comprehensive"); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if len(captured.Contents) != 1 || len(captured.Contents[0].Parts) != 2 {
		t.Fatalf("request parts = %+v, want prompt plus image", captured.Contents)
	}
	img := captured.Contents[0].Parts[1].InlineData
	if img == nil {
		t.Fatal("missing inline image part")
	}
	if img.MimeType != "image/webp" {
		t.Fatalf("mime type = %q, want image/webp", img.MimeType)
	}
	if img.Data != base64.StdEncoding.EncodeToString([]byte("webp-bytes")) {
		t.Fatalf("image data = %q", img.Data)
	}
	if !strings.Contains(captured.Contents[0].Parts[0].Text, "screenshot of the page is attached") {
		t.Fatal("prompt does not mention the attached screenshot")
	}
}

func TestAnalyzeScreenshotFetchFailureIsNonFatal(t *testing.T) {
	imgSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer imgSrv.Close()

	var captured generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(analysisResponseBody))
	}))
	defer srv.Close()

	client, err := NewClient("test-key", "gemini-test", srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if _, err := client.Analyze(context.Background(), "https://example.com", "# content", vendors.CrawlMetadata{}, imgSrv.URL, "comprehensive"); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(captured.Contents) != 1 || len(captured.Contents[0].Parts) != 1 {
		t.Fatalf("request parts = %+v, want text-only", captured.Contents)
	}
}

func TestTruncateContent(t *testing.T) {
	long := strings.Repeat("a", 100)
	if got := truncateContent(long, 10); len(got) != 10 {
		t.Fatalf("len = %d, want 10", len(got))
	}
	if got := truncateContent("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
}
