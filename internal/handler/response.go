package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"taxrecon/internal/analysis"
	"taxrecon/internal/domain"
	"taxrecon/internal/middleware"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain and analysis errors to HTTP status codes
// and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	var (
		rateErr  *analysis.RateLimitError
		emptyErr *analysis.EmptyResponseError
		exhErr   *analysis.RetryExhaustedError
	)
	switch {
	case errors.Is(err, domain.ErrUnsupportedContentType):
		return http.StatusUnsupportedMediaType, "UNSUPPORTED_CONTENT_TYPE", "unsupported content type; allowed: pdf, png, jpeg, webp, tiff"
	case errors.Is(err, domain.ErrEmptyContent):
		return http.StatusBadRequest, "EMPTY_CONTENT", "document content is empty"
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds maximum allowed size"
	case errors.Is(err, domain.ErrEmptyBatch):
		return http.StatusBadRequest, "EMPTY_BATCH", "batch contains no documents"
	case errors.Is(err, domain.ErrBatchTooLarge):
		return http.StatusRequestEntityTooLarge, "BATCH_TOO_LARGE", err.Error()
	case errors.Is(err, domain.ErrNoSecondarySource):
		return http.StatusBadRequest, "NO_SECONDARY_SOURCE", "secondary fields are required when no secondary source is configured"
	case errors.Is(err, domain.ErrInvalidFieldMap):
		return http.StatusBadRequest, "INVALID_FIELD_MAP", err.Error()
	case errors.Is(err, domain.ErrTelemetryUnavailable):
		return http.StatusNotFound, "TELEMETRY_UNAVAILABLE", "telemetry persistence is not enabled"
	case errors.As(err, &emptyErr):
		return http.StatusBadGateway, "EMPTY_MODEL_RESPONSE", "the analysis provider returned an empty response"
	case errors.As(err, &rateErr):
		return http.StatusServiceUnavailable, "PROVIDER_RATE_LIMITED", "the analysis provider is rate limiting requests; retry later"
	case errors.As(err, &exhErr):
		return http.StatusBadGateway, "PROVIDER_UNAVAILABLE", "the analysis provider failed after retries"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps an error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Str("code", code).
			Msg("handler.HandleError: request failed")
	}
	RespondError(c, status, code, msg)
}
