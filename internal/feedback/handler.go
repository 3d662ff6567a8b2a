package feedback

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"plusfolio-backend/internal/shared/server/middleware"
	"plusfolio-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the feedback service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches feedback routes to the router group.
func (h *Handler) RegisterRoutes(rg gin.IRouter) {
	rg.POST("/feedback", h.submitFeedback)
}

type submitRequest struct {
	ReportID string `json:"report_id"`
	Rating   int    `json:"rating"`
	Comment  string `json:"comment"`
}

func (h *Handler) submitFeedback(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	userID := middleware.UserIDFromContext(c)
	entry, err := h.Svc.Submit(c.Request.Context(), userID, req.ReportID, req.Rating, req.Comment)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}

	respond.JSON(c, http.StatusCreated, gin.H{"id": entry.ID})
}
