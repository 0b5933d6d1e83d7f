package domain

// Well-known categories and bookmark roots.
const (
	CategoryUnknown        = "Unknown"
	CategoryError          = "Error"
	CategoryCustomAnalysis = "Custom Analysis"

	BookmarkOtherDocuments = "Other Documents"
)

// Marker keys placed in ExtractedFields by fallback and error results.
const (
	FieldParsingError = "parsing_error"
	FieldRawLength    = "raw_length"
	FieldError        = "error"
	FieldErrorMessage = "error_message"
)

// DecodeOutcome tags how raw model output became a StructuredResult.
type DecodeOutcome string

const (
	OutcomeParsedDirectly      DecodeOutcome = "parsed_directly"
	OutcomeCleanedAndParsed    DecodeOutcome = "cleaned_and_parsed"
	OutcomeFailedUsingFallback DecodeOutcome = "failed_using_fallback"
	OutcomeNarrativeOnly       DecodeOutcome = "narrative_only"
)

// CallStatus tags the telemetry record of one external invocation.
type CallStatus string

const (
	CallStatusSuccess       CallStatus = "success"
	CallStatusError         CallStatus = "error"
	CallStatusRateLimited   CallStatus = "rate_limited"
	CallStatusEmptyResponse CallStatus = "empty_response"
)

// Content types accepted for analysis.
const (
	ContentTypePDF  = "application/pdf"
	ContentTypePNG  = "image/png"
	ContentTypeJPEG = "image/jpeg"
	ContentTypeWEBP = "image/webp"
	ContentTypeTIFF = "image/tiff"
)

// AllowedContentTypes lists accepted MIME types. Only PDF is paginated.
var AllowedContentTypes = map[string]bool{
	ContentTypePDF:  true,
	ContentTypePNG:  true,
	ContentTypeJPEG: true,
	ContentTypeWEBP: true,
	ContentTypeTIFF: true,
}

// IsPaginated reports whether a content type is converted page by page.
func IsPaginated(contentType string) bool {
	return contentType == ContentTypePDF
}
