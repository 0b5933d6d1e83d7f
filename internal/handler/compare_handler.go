package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"taxrecon/internal/domain"
	"taxrecon/internal/export"
	"taxrecon/internal/reconcile"
	"taxrecon/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// CompareHandler handles the standalone reconciliation and insight endpoints.
type CompareHandler struct {
	svc service.DocumentService
	now func() time.Time
}

// NewCompareHandler creates a new CompareHandler.
func NewCompareHandler(svc service.DocumentService) *CompareHandler {
	return &CompareHandler{svc: svc, now: time.Now}
}

type compareRequest struct {
	DocumentName string          `json:"document_name"`
	Primary      json.RawMessage `json:"primary"`
	Secondary    json.RawMessage `json:"secondary"`
}

// ComparisonResponse is the JSON form of a comparison.
type ComparisonResponse struct {
	domain.ComparisonResult
	Counts      domain.ComparisonCounts `json:"counts"`
	NeedsReview bool                    `json:"needs_review"`
}

type insightsRequest struct {
	Results []domain.StructuredResult `json:"results"`
}

// Compare handles POST /api/v1/compare?format=json|csv|xlsx.
// @Summary Compare two field maps
// @Description Bucket the fields of two flat maps into matching, discrepancies, primary-only and secondary-only
// @Tags reconcile
// @Accept json
// @Produce json,text/csv,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param request body compareRequest true "Field maps"
// @Param format query string false "json (default), csv or xlsx"
// @Success 200 {object} APIResponse{data=ComparisonResponse}
// @Failure 400 {object} APIResponse "Invalid body, field map or format"
// @Router /compare [post]
func (h *CompareHandler) Compare(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", "could not read request body")
		return
	}
	var req compareRequest
	if err := json.Unmarshal(body, &req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", "body must be a JSON object with primary and secondary maps")
		return
	}
	if len(req.Primary) == 0 || len(req.Secondary) == 0 {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", "primary and secondary are required")
		return
	}
	primary, err := reconcile.ParseFieldMapJSON(req.Primary)
	if err != nil {
		HandleError(c, err)
		return
	}
	secondary, err := reconcile.ParseFieldMapJSON(req.Secondary)
	if err != nil {
		HandleError(c, err)
		return
	}

	res := h.svc.Compare(primary, secondary)

	switch format := strings.ToLower(c.DefaultQuery("format", "json")); format {
	case "json":
		RespondOK(c, ComparisonResponse{ComparisonResult: res, Counts: res.Counts(), NeedsReview: res.NeedsReview()})
	case export.FormatCSV:
		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, &res); err != nil {
			HandleError(c, err)
			return
		}
		h.attachment(c, req.DocumentName, format, "text/csv; charset=utf-8", buf.Bytes())
	case export.FormatXLSX:
		var buf bytes.Buffer
		if err := export.WriteXLSX(&buf, req.DocumentName, &res); err != nil {
			HandleError(c, err)
			return
		}
		h.attachment(c, req.DocumentName, format, xlsxContentType, buf.Bytes())
	default:
		RespondError(c, http.StatusBadRequest, "INVALID_FORMAT", "format must be json, csv or xlsx")
	}
}

// Insights handles POST /api/v1/insights.
// @Summary Summarize analysis results
// @Tags analysis
// @Accept json
// @Produce json
// @Param request body insightsRequest true "Structured results"
// @Success 200 {object} APIResponse{data=domain.BatchInsights}
// @Failure 400 {object} APIResponse "Invalid body"
// @Router /insights [post]
func (h *CompareHandler) Insights(c *gin.Context) {
	var req insightsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", "body must be a JSON object with a results list")
		return
	}
	RespondOK(c, h.svc.Insights(req.Results))
}

func (h *CompareHandler) attachment(c *gin.Context, name, format, contentType string, data []byte) {
	filename := export.BuildFilename(name, format, h.now())
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, data)
}
