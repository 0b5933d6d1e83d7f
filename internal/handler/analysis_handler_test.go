package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"taxrecon/internal/analysis"
	"taxrecon/internal/domain"
	"taxrecon/internal/handler"
	"taxrecon/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type upload struct {
	field, name, contentType string
	content                  []byte
}

func multipartBody(t *testing.T, files []upload, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := writer.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func newContext(method, target string, body *bytes.Buffer, contentType string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	if body == nil {
		body = &bytes.Buffer{}
	}
	c.Request, _ = http.NewRequest(method, target, body)
	if contentType != "" {
		c.Request.Header.Set("Content-Type", contentType)
	}
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) handler.APIResponse {
	t.Helper()
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake")

func sampleResult(name string) *domain.StructuredResult {
	return &domain.StructuredResult{
		DocumentCategory: "Income",
		Narrative:        "W-2 wage statement.",
		ExtractedFields:  map[string]string{"Box1": "100.00"},
		Bookmark:         domain.Bookmark{Level1: "Income", Level2: "W-2", Level3: name},
	}
}

func TestAnalysisHandler_Analyze_Success(t *testing.T) {
	svc := new(mocks.MockDocumentService)
	h := handler.NewAnalysisHandler(svc, 1<<20)

	svc.On("Analyze", mock.Anything, mock.MatchedBy(func(req domain.AnalysisRequest) bool {
		return req.Name == "w2.png" && req.ContentType == "image/png" &&
			bytes.Equal(req.Content, pngBytes) && req.CustomInstructions == "focus on box 12"
	})).Return(sampleResult("w2.png"), nil)

	body, ct := multipartBody(t, []upload{{"file", "w2.png", "image/png", pngBytes}},
		map[string]string{"instructions": "focus on box 12"})
	c, w := newContext(http.MethodPost, "/api/v1/analyze", body, ct)

	h.Analyze(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.True(t, resp.Success)
	assert.Contains(t, w.Body.String(), `"document_category":"Income"`)
	svc.AssertExpectations(t)
}

func TestAnalysisHandler_Analyze_NoFile(t *testing.T) {
	h := handler.NewAnalysisHandler(new(mocks.MockDocumentService), 1<<20)
	c, w := newContext(http.MethodPost, "/api/v1/analyze", nil, "")

	h.Analyze(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MISSING_FILE", decode(t, w).Error.Code)
}

func TestAnalysisHandler_Analyze_TooLarge(t *testing.T) {
	h := handler.NewAnalysisHandler(new(mocks.MockDocumentService), 4)
	body, ct := multipartBody(t, []upload{{"file", "w2.png", "image/png", pngBytes}}, nil)
	c, w := newContext(http.MethodPost, "/api/v1/analyze", body, ct)

	h.Analyze(c)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestAnalysisHandler_Analyze_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unsupported", domain.ErrUnsupportedContentType, http.StatusUnsupportedMediaType, "UNSUPPORTED_CONTENT_TYPE"},
		{"empty response", &analysis.EmptyResponseError{Provider: "gemini"}, http.StatusBadGateway, "EMPTY_MODEL_RESPONSE"},
		{"exhausted", &analysis.RetryExhaustedError{Attempts: 3, Err: errors.New("503")}, http.StatusBadGateway, "PROVIDER_UNAVAILABLE"},
		{"rate limited", analysis.NewRateLimitError("gemini", errors.New("429"), 0), http.StatusServiceUnavailable, "PROVIDER_RATE_LIMITED"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(mocks.MockDocumentService)
			svc.On("Analyze", mock.Anything, mock.Anything).Return(nil, tc.err)
			h := handler.NewAnalysisHandler(svc, 1<<20)

			body, ct := multipartBody(t, []upload{{"file", "w2.png", "image/png", pngBytes}}, nil)
			c, w := newContext(http.MethodPost, "/api/v1/analyze", body, ct)
			h.Analyze(c)

			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, decode(t, w).Error.Code)
		})
	}
}

func TestAnalysisHandler_AnalyzeBatch_OrderAndInsights(t *testing.T) {
	svc := new(mocks.MockDocumentService)
	h := handler.NewAnalysisHandler(svc, 1<<20)

	results := []domain.StructuredResult{
		*sampleResult("a.png"),
		domain.NewErrorResult("b.png", errors.New("provider failed")),
	}
	svc.On("AnalyzeBatch", mock.Anything, mock.MatchedBy(func(reqs []domain.AnalysisRequest) bool {
		return len(reqs) == 2 && reqs[0].Name == "a.png" && reqs[1].Name == "b.png"
	})).Return(results, nil)
	svc.On("Insights", results).Return(domain.BatchInsights{Total: 2, Narrative: "Analyzed 2 documents."})

	body, ct := multipartBody(t, []upload{
		{"files", "a.png", "image/png", pngBytes},
		{"files", "b.png", "image/png", pngBytes},
	}, map[string]string{"insights": "true"})
	c, w := newContext(http.MethodPost, "/api/v1/analyze/batch", body, ct)

	h.AnalyzeBatch(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data handler.BatchResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Results, 2)
	assert.Equal(t, "a.png", resp.Data.Results[0].Bookmark.Level3)
	assert.True(t, resp.Data.Results[1].IsError())
	require.NotNil(t, resp.Data.Insights)
	assert.Equal(t, 2, resp.Data.Insights.Total)
	svc.AssertExpectations(t)
}

func TestAnalysisHandler_AnalyzeBatch_Empty(t *testing.T) {
	svc := new(mocks.MockDocumentService)
	svc.On("AnalyzeBatch", mock.Anything, mock.Anything).Return(nil, domain.ErrEmptyBatch)
	h := handler.NewAnalysisHandler(svc, 1<<20)

	body, ct := multipartBody(t, nil, map[string]string{"instructions": ""})
	c, w := newContext(http.MethodPost, "/api/v1/analyze/batch", body, ct)
	h.AnalyzeBatch(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "EMPTY_BATCH", decode(t, w).Error.Code)
}

func TestAnalysisHandler_Reconcile_WithSecondary(t *testing.T) {
	svc := new(mocks.MockDocumentService)
	h := handler.NewAnalysisHandler(svc, 1<<20)

	out := &domain.Reconciliation{
		Document: "w2.png",
		Comparison: domain.ComparisonResult{
			Matching:      map[string]string{"Box1": "100.00"},
			Discrepancies: map[string]domain.FieldDiff{},
			PrimaryOnly:   map[string]string{},
			SecondaryOnly: map[string]string{"Box2": "50.00"},
		},
		NeedsReview: true,
	}
	svc.On("Reconcile", mock.Anything, mock.Anything, map[string]string{"Box1": "100.00", "Box2": "50.00"}).
		Return(out, nil)

	body, ct := multipartBody(t, []upload{{"file", "w2.png", "image/png", pngBytes}},
		map[string]string{"secondary": `{"Box1":"100.00","Box2":"50.00"}`})
	c, w := newContext(http.MethodPost, "/api/v1/reconcile", body, ct)

	h.Reconcile(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"secondary_only":{"Box2":"50.00"}`)
	svc.AssertExpectations(t)
}

func TestAnalysisHandler_Reconcile_InvalidSecondary(t *testing.T) {
	h := handler.NewAnalysisHandler(new(mocks.MockDocumentService), 1<<20)

	body, ct := multipartBody(t, []upload{{"file", "w2.png", "image/png", pngBytes}},
		map[string]string{"secondary": `{"Box1":{"nested":"x"}}`})
	c, w := newContext(http.MethodPost, "/api/v1/reconcile", body, ct)

	h.Reconcile(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_FIELD_MAP", decode(t, w).Error.Code)
}

func TestAnalysisHandler_Reconcile_NoSource(t *testing.T) {
	svc := new(mocks.MockDocumentService)
	svc.On("Reconcile", mock.Anything, mock.Anything, map[string]string(nil)).Return(nil, domain.ErrNoSecondarySource)
	h := handler.NewAnalysisHandler(svc, 1<<20)

	body, ct := multipartBody(t, []upload{{"file", "w2.png", "image/png", pngBytes}}, nil)
	c, w := newContext(http.MethodPost, "/api/v1/reconcile", body, ct)

	h.Reconcile(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "NO_SECONDARY_SOURCE", decode(t, w).Error.Code)
}
