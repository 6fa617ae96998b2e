package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"claim-evaluator/internal/app"
	"claim-evaluator/internal/transport/http/response"
)

type AnalysisHandler struct {
	analysisService *app.AnalysisService
	documentsDir    string
}

type CreateAnalysisRequest struct {
	DocumentIDs []string `json:"documentIds"`
}

func NewAnalysisHandler(analysisService *app.AnalysisService, documentsDir string) *AnalysisHandler {
	return &AnalysisHandler{analysisService: analysisService, documentsDir: documentsDir}
}

func (h *AnalysisHandler) Create(c *gin.Context) {
	var req CreateAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Document IDs are required")
		return
	}

	outcome, err := h.analysisService.Create(c.Request.Context(), req.DocumentIDs)
	if err != nil {
		response.FromError(c, err, "Failed to create analysis")
		return
	}
	response.OK(c, outcome)
}

func (h *AnalysisHandler) BatchAnalyze(c *gin.Context) {
	outcome, err := h.analysisService.BatchAnalyze(c.Request.Context())
	if err != nil {
		response.FromError(c, err, "Failed to analyze documents")
		return
	}
	response.OK(c, outcome)
}

func (h *AnalysisHandler) Latest(c *gin.Context) {
	latest, err := h.analysisService.Latest(c.Request.Context())
	if err != nil {
		response.FromError(c, err, "Failed to fetch analysis")
		return
	}
	response.OK(c, gin.H{"analysis": latest})
}

// Quick analyzes the documents folder and reports the short summary the
// dashboard's quick action expects.
func (h *AnalysisHandler) Quick(c *gin.Context) {
	outcome, err := h.analysisService.AnalyzeFolder(c.Request.Context(), h.documentsDir)
	if err != nil {
		response.FromError(c, err, "Quick analysis failed")
		return
	}
	message := fmt.Sprintf("Comprehensive analysis completed on %d documents (all documents in folder processed)",
		outcome.DocumentsProcessed)
	response.OK(c, gin.H{
		"success":            outcome.Success,
		"documentsProcessed": outcome.DocumentsProcessed,
		"results":            outcome.Results,
		"message":            message,
	})
}

func (h *AnalysisHandler) Comprehensive(c *gin.Context) {
	outcome, err := h.analysisService.AnalyzeFolder(c.Request.Context(), h.documentsDir)
	if err != nil {
		response.FromError(c, err, "Comprehensive analysis failed")
		return
	}
	response.OK(c, outcome)
}
