package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taxrecon/internal/domain"
	"taxrecon/internal/reconcile"
	"taxrecon/internal/service"
)

// AnalysisHandler handles document analysis and reconciliation endpoints.
type AnalysisHandler struct {
	svc            service.DocumentService
	maxUploadBytes int64
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(svc service.DocumentService, maxUploadBytes int64) *AnalysisHandler {
	return &AnalysisHandler{svc: svc, maxUploadBytes: maxUploadBytes}
}

// BatchResponse carries batch results in request order, with optional insights.
type BatchResponse struct {
	Results  []domain.StructuredResult `json:"results"`
	Insights *domain.BatchInsights     `json:"insights,omitempty"`
}

// Analyze handles POST /api/v1/analyze (multipart: file, optional instructions).
// @Summary Analyze a document
// @Description Extract a structured result from one uploaded tax document
// @Tags analysis
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document (PDF, PNG, JPEG, WEBP or TIFF)"
// @Param instructions formData string false "Custom analysis instructions"
// @Success 200 {object} APIResponse{data=domain.StructuredResult}
// @Failure 400 {object} APIResponse "Missing or empty file"
// @Failure 413 {object} APIResponse "File too large"
// @Failure 415 {object} APIResponse "Unsupported content type"
// @Failure 502 {object} APIResponse "Provider failed"
// @Router /analyze [post]
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	req, err := readUpload(fh, h.maxUploadBytes)
	if err != nil {
		HandleError(c, err)
		return
	}
	req.CustomInstructions = c.PostForm("instructions")

	res, err := h.svc.Analyze(c.Request.Context(), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, res)
}

// AnalyzeBatch handles POST /api/v1/analyze/batch (multipart: files[],
// optional instructions, optional insights=true).
// @Summary Analyze a batch of documents
// @Description Analyze several documents concurrently; results keep upload order
// @Tags analysis
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "Documents"
// @Param instructions formData string false "Custom analysis instructions for every document"
// @Param insights formData bool false "Include batch insights"
// @Success 200 {object} APIResponse{data=BatchResponse}
// @Failure 400 {object} APIResponse "Empty batch"
// @Failure 413 {object} APIResponse "Batch or file too large"
// @Router /analyze/batch [post]
func (h *AnalysisHandler) AnalyzeBatch(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_FORM", "multipart form is required")
		return
	}
	files := form.File["files"]

	instructions := c.PostForm("instructions")
	reqs := make([]domain.AnalysisRequest, 0, len(files))
	for _, fh := range files {
		req, readErr := readUpload(fh, h.maxUploadBytes)
		if readErr != nil {
			HandleError(c, readErr)
			return
		}
		req.CustomInstructions = instructions
		reqs = append(reqs, req)
	}

	results, err := h.svc.AnalyzeBatch(c.Request.Context(), reqs)
	if err != nil {
		HandleError(c, err)
		return
	}

	resp := BatchResponse{Results: results}
	if withInsights, _ := strconv.ParseBool(c.PostForm("insights")); withInsights {
		ins := h.svc.Insights(results)
		resp.Insights = &ins
	}
	RespondOK(c, resp)
}

// Reconcile handles POST /api/v1/reconcile (multipart: file, optional
// secondary as a JSON object of strings).
// @Summary Analyze and reconcile a document
// @Description Compare fields extracted from a document with a supplied or extracted secondary field map
// @Tags reconcile
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document"
// @Param secondary formData string false "Flat JSON object of secondary field values"
// @Success 200 {object} APIResponse{data=domain.Reconciliation}
// @Failure 400 {object} APIResponse "Invalid field map or no secondary source"
// @Router /reconcile [post]
func (h *AnalysisHandler) Reconcile(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	req, err := readUpload(fh, h.maxUploadBytes)
	if err != nil {
		HandleError(c, err)
		return
	}

	var secondary map[string]string
	if raw, ok := c.GetPostForm("secondary"); ok && raw != "" {
		secondary, err = reconcile.ParseFieldMapJSON([]byte(raw))
		if err != nil {
			HandleError(c, err)
			return
		}
	}

	out, err := h.svc.Reconcile(c.Request.Context(), req, secondary)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, out)
}
