package github

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"plusfolio-backend/internal/shared/server/middleware"
	"plusfolio-backend/internal/shared/server/respond"
	"plusfolio-backend/internal/vendors"
)

// Handler exposes repository listing for signed-in users.
type Handler struct {
	Client  *Client
	Limiter vendors.RateLimiter
}

// NewHandler constructs the GitHub HTTP handler.
func NewHandler(client *Client, limiter vendors.RateLimiter) *Handler {
	return &Handler{Client: client, Limiter: limiter}
}

// RegisterRoutes attaches GitHub endpoints to the API group.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/github/repositories", h.listRepositories)
}

func (h *Handler) listRepositories(c *gin.Context) {
	if middleware.UserIDFromContext(c) == "" {
		respond.Error(c, http.StatusUnauthorized, "login_required", "Sign in to list repositories", nil)
		return
	}

	username := strings.TrimSpace(c.Query("username"))
	if username == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "username is required", nil)
		return
	}

	if h.Client == nil {
		respond.Error(c, http.StatusServiceUnavailable, "github_unavailable", "GitHub integration is not configured", nil)
		return
	}
	if h.Limiter != nil && !h.Limiter.CanMakeRequest(vendors.ServiceGitHub) {
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "GitHub request budget exhausted, try again later", nil)
		return
	}

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	repos, err := h.Client.ListUserRepos(c.Request.Context(), username, limit)
	if h.Limiter != nil {
		h.Limiter.RecordRequest(vendors.ServiceGitHub)
	}
	if err != nil {
		respond.Error(c, http.StatusBadGateway, "github_error", "Could not list repositories", nil)
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{"repositories": repos})
}
