package reports

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"plusfolio-backend/internal/shared/server/middleware"
	"plusfolio-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the reports service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches report routes to the router group.
func (h *Handler) RegisterRoutes(rg gin.IRouter) {
	rg.POST("/analyze", h.analyze)
	rg.GET("/reports", h.listReports)
	rg.GET("/reports/:id", h.getReport)
	rg.PUT("/reports/:id", h.updateReport)
	rg.GET("/reports/shared/:token", h.getSharedReport)
}

type analyzeRequest struct {
	URL          string `json:"url"`
	AnalysisMode string `json:"analysis_mode"`
}

func (h *Handler) analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Failed(c, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}

	userID := middleware.UserIDFromContext(c)
	accepted, err := h.Svc.Analyze(c.Request.Context(), userID, req.URL, req.AnalysisMode)
	if err != nil {
		var validationErr ValidationError
		switch {
		case errors.As(err, &validationErr):
			respond.Failed(c, http.StatusBadRequest, "validation_error", validationErr.Reason)
		case errors.Is(err, ErrQuotaExceeded):
			respond.Failed(c, http.StatusTooManyRequests, "quota_exceeded", "Monthly report limit reached. Upgrade your plan to continue.")
		default:
			respond.Failed(c, http.StatusInternalServerError, "internal_error", "failed to start analysis")
		}
		return
	}

	c.Set("reportId", accepted.ID)
	c.JSON(http.StatusAccepted, accepted)
}

func (h *Handler) getReport(c *gin.Context) {
	reportID := c.Param("id")
	if reportID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "report id is required", nil)
		return
	}

	report, err := h.Svc.Get(c.Request.Context(), reportID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "report not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch report", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, reportResponse(report))
}

func (h *Handler) listReports(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "login_required", "Login required to view history", nil)
		return
	}

	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	list, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list reports", nil)
		return
	}

	resp := make([]gin.H, 0, len(list))
	for _, report := range list {
		item := gin.H{
			"id":                report.ID,
			"url":               report.URL,
			"processing_status": report.ProcessingStatus,
			"created_at":        report.CreatedAt,
		}
		if report.Title != "" {
			item["title"] = report.Title
		}
		if report.ClarityScore != nil {
			item["clarity_score"] = *report.ClarityScore
		}
		resp = append(resp, item)
	}
	respond.JSON(c, http.StatusOK, resp)
}

type updateReportRequest struct {
	IsPublic *bool `json:"is_public"`
}

func (h *Handler) updateReport(c *gin.Context) {
	reportID := c.Param("id")
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "login_required", "Login required to update reports", nil)
		return
	}

	var req updateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsPublic == nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "is_public is required", nil)
		return
	}

	report, err := h.Svc.SetVisibility(c.Request.Context(), reportID, userID, *req.IsPublic)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "report not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to update report", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, reportResponse(report))
}

func (h *Handler) getSharedReport(c *gin.Context) {
	token := c.Param("token")

	report, err := h.Svc.GetShared(c.Request.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, ErrShareExpired):
			respond.Error(c, http.StatusGone, "share_expired", "This share link has expired", nil)
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "report not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch report", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, reportResponse(report))
}

// reportResponse is the API shape for a report. UserID is already stripped
// for shared lookups by the service.
func reportResponse(report Report) gin.H {
	resp := gin.H{
		"id":                report.ID,
		"url":               report.URL,
		"domain":            report.Domain,
		"analysis_mode":     report.AnalysisMode,
		"processing_status": report.ProcessingStatus,
		"is_public":         report.IsPublic,
		"view_count":        report.ViewCount,
		"created_at":        report.CreatedAt,
	}
	if report.UserID != "" {
		resp["user_id"] = report.UserID
	}
	if report.FinalURL != "" {
		resp["final_url"] = report.FinalURL
	}
	if report.ProcessingStatus != StatusProcessing {
		resp["processing_time_ms"] = report.ProcessingTimeMs
	}
	if report.Title != "" {
		resp["title"] = report.Title
	}
	if report.Description != "" {
		resp["description"] = report.Description
	}
	if report.ClarityScore != nil {
		resp["clarity_score"] = *report.ClarityScore
	}
	if report.ScoreBreakdown != nil {
		resp["score_breakdown"] = report.ScoreBreakdown
	}
	if report.ProcessingStatus == StatusCompleted && report.ReportData != nil {
		resp["report_data"] = report.ReportData
	}
	if report.ProcessingStatus == StatusFailed && report.ErrorMessage != "" {
		resp["error_message"] = report.ErrorMessage
	}
	if report.ShareableToken != "" {
		resp["shareable_token"] = report.ShareableToken
	}
	if report.ShareExpiresAt != nil {
		resp["share_expires_at"] = report.ShareExpiresAt
	}
	if report.CompletedAt != nil {
		resp["completed_at"] = report.CompletedAt
	}
	return resp
}
