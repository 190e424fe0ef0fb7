package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/errwatch/errwatch-backend/internal/common"
	"github.com/errwatch/errwatch-backend/internal/service"
)

// AnalysisHandler exposes the analyzer's read-only report
type AnalysisHandler struct {
	analyzer *service.AnalyzerService
}

// NewAnalysisHandler creates a new AnalysisHandler
func NewAnalysisHandler(analyzer *service.AnalyzerService) *AnalysisHandler {
	return &AnalysisHandler{analyzer: analyzer}
}

// GetReport handles GET /api/v1/analysis/report
func (h *AnalysisHandler) GetReport(c *gin.Context) {
	common.SuccessResponse(c, h.analyzer.GetAnalysisReport(), nil)
}
