package feedback

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"plusfolio-backend/internal/shared/server/middleware"
)

func newTestRouter(repo *MemoryRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Identity())
	api := r.Group("/api/v1")
	NewHandler(&Service{Repo: repo}).RegisterRoutes(api)
	return r
}

func TestSubmitFeedback(t *testing.T) {
	repo := NewMemoryRepo()
	r := newTestRouter(repo)

	payload, _ := json.Marshal(gin.H{"report_id": "report-1", "rating": 4, "comment": "useful"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/feedback", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer user-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	entries := repo.Entries()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].UserID != "user-1" || entries[0].Rating != 4 {
		t.Fatalf("entry = %+v", entries[0])
	}
}

func TestSubmitFeedbackInvalidRating(t *testing.T) {
	r := newTestRouter(NewMemoryRepo())

	payload, _ := json.Marshal(gin.H{"rating": 9})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/feedback", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestSubmitFeedbackAnonymous(t *testing.T) {
	repo := NewMemoryRepo()
	r := newTestRouter(repo)

	payload, _ := json.Marshal(gin.H{"rating": 5})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/feedback", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if entries := repo.Entries(); entries[0].UserID != "" {
		t.Fatalf("anonymous entry has user id %q", entries[0].UserID)
	}
}
