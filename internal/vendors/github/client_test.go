package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestListUserRepos(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/users/octocat/repos") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Fatalf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"name": "hello", "full_name": "octocat/hello", "language": "Go", "stargazers_count": 42, "html_url": "https://github.com/octocat/hello"}
		]`))
	}))
	defer srv.Close()

	client := NewClient(context.Background(), "test-token", srv.URL)
	repos, err := client.ListUserRepos(context.Background(), "octocat", 10)
	if err != nil {
		t.Fatalf("ListUserRepos: %v", err)
	}
	if len(repos) != 1 || repos[0].Stars != 42 {
		t.Fatalf("unexpected repos %+v", repos)
	}
}

func TestListUserReposNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(context.Background(), "", srv.URL)
	if _, err := client.ListUserRepos(context.Background(), "nobody", 10); err == nil {
		t.Fatal("expected not found error")
	}
}

func TestListUserReposRequiresUsername(t *testing.T) {
	client := NewClient(context.Background(), "", "")
	if _, err := client.ListUserRepos(context.Background(), "  ", 10); err == nil {
		t.Fatal("expected error for empty username")
	}
}
