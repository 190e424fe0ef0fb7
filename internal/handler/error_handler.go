package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/errwatch/errwatch-backend/internal/common"
	"github.com/errwatch/errwatch-backend/internal/domain"
	"github.com/errwatch/errwatch-backend/internal/service"
)

// ErrorHandler handles error capture, query, and management requests
type ErrorHandler struct {
	tracker *service.TrackerService
}

// NewErrorHandler creates a new ErrorHandler
func NewErrorHandler(tracker *service.TrackerService) *ErrorHandler {
	return &ErrorHandler{tracker: tracker}
}

// Capture handles POST /api/v1/errors
func (h *ErrorHandler) Capture(c *gin.Context) {
	var req domain.CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid capture payload", err)
		return
	}

	// Malformed-but-parseable input still produces a best-effort event;
	// missing fields are defaulted inside the engine.
	resp := h.tracker.Capture(req)
	c.JSON(http.StatusAccepted, common.APIResponse{Data: resp})
}

// GetStats handles GET /api/v1/errors/stats?range=1h|24h|7d|30d
func (h *ErrorHandler) GetStats(c *gin.Context) {
	timeRange := c.DefaultQuery("range", "24h")
	stats := h.tracker.GetErrorStats(timeRange)
	common.SuccessResponse(c, stats, &common.Meta{TimeRange: stats.TimeRange})
}

// GetTopErrors handles GET /api/v1/errors/top?since=<RFC3339>&limit=N
func (h *ErrorHandler) GetTopErrors(c *gin.Context) {
	since := time.Now().Add(-24 * time.Hour)
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			common.ErrorResponse(c, http.StatusBadRequest, "invalid since parameter, expected RFC3339", err)
			return
		}
		since = parsed
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	top := h.tracker.GetTopErrors(since, limit)
	common.SuccessResponse(c, top, &common.Meta{Limit: limit, Total: int64(len(top))})
}

// GetDetails handles GET /api/v1/errors/:fingerprint
func (h *ErrorHandler) GetDetails(c *gin.Context) {
	fingerprint := c.Param("fingerprint")

	detail, ok := h.tracker.GetErrorDetails(fingerprint)
	if !ok {
		common.ErrorResponse(c, http.StatusNotFound, "error group not found", common.ErrGroupNotFound)
		return
	}
	common.SuccessResponse(c, detail, nil)
}

// Resolve handles POST /api/v1/errors/:fingerprint/resolve
func (h *ErrorHandler) Resolve(c *gin.Context) {
	fingerprint := c.Param("fingerprint")

	var req domain.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid resolve payload", err)
		return
	}

	if !h.tracker.ResolveError(fingerprint, req) {
		common.ErrorResponse(c, http.StatusNotFound, "error group not found", common.ErrGroupNotFound)
		return
	}
	c.JSON(http.StatusOK, common.APIResponse{Data: gin.H{"success": true}})
}

// Assign handles POST /api/v1/errors/:fingerprint/assign
func (h *ErrorHandler) Assign(c *gin.Context) {
	fingerprint := c.Param("fingerprint")

	var req domain.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "assignee is required", err)
		return
	}

	if !h.tracker.AssignError(fingerprint, req.Assignee) {
		common.ErrorResponse(c, http.StatusNotFound, "error group not found", common.ErrGroupNotFound)
		return
	}
	c.JSON(http.StatusOK, common.APIResponse{Data: gin.H{"success": true}})
}

// AddNote handles POST /api/v1/errors/:fingerprint/notes
func (h *ErrorHandler) AddNote(c *gin.Context) {
	fingerprint := c.Param("fingerprint")

	var req domain.AddNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "note content is required", err)
		return
	}

	if !h.tracker.AddNote(fingerprint, req.Content, req.Author) {
		common.ErrorResponse(c, http.StatusNotFound, "error group not found", common.ErrGroupNotFound)
		return
	}
	c.JSON(http.StatusOK, common.APIResponse{Data: gin.H{"success": true}})
}
