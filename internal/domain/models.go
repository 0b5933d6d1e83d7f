package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AnalysisRequest carries one document submission. It is consumed once by the
// analysis pipeline and never retained after the call completes.
type AnalysisRequest struct {
	Content            []byte
	Name               string
	ContentType        string
	CustomInstructions string
}

// HasCustomInstructions reports whether the caller supplied free-form
// instructions. Whitespace alone does not count.
func (r *AnalysisRequest) HasCustomInstructions() bool {
	return strings.TrimSpace(r.CustomInstructions) != ""
}

// Bookmark is the three-level classification path used to group results.
type Bookmark struct {
	Level1 string `json:"level1"`
	Level2 string `json:"level2"`
	Level3 string `json:"level3"`
}

// StructuredResult is the canonical output of document analysis. Callers can
// rely on it being well-formed: the decoder synthesizes one even when model
// output cannot be parsed.
type StructuredResult struct {
	DocumentCategory string            `json:"document_category"`
	Narrative        string            `json:"narrative"`
	ExtractedFields  map[string]string `json:"extracted_fields"`
	Bookmark         Bookmark          `json:"bookmark"`
	RawResponse      string            `json:"raw_response"`
}

// IsError reports whether the result stands in for a failed analysis.
func (r *StructuredResult) IsError() bool {
	return r.DocumentCategory == CategoryError
}

// IsFallback reports whether the result was synthesized from unparseable output.
func (r *StructuredResult) IsFallback() bool {
	return r.ExtractedFields[FieldParsingError] == "true"
}

// MarshalJSON keeps extracted_fields an object even when empty.
func (r StructuredResult) MarshalJSON() ([]byte, error) {
	type alias StructuredResult
	if r.ExtractedFields == nil {
		r.ExtractedFields = map[string]string{}
	}
	return json.Marshal(alias(r))
}

// NewErrorResult builds the StructuredResult-shaped value reported in place of a
// document whose analysis failed.
func NewErrorResult(name string, err error) StructuredResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return StructuredResult{
		DocumentCategory: CategoryError,
		Narrative:        fmt.Sprintf("Analysis of %s failed: %s", displayName(name), msg),
		ExtractedFields: map[string]string{
			FieldError:        "true",
			FieldErrorMessage: msg,
		},
		Bookmark: Bookmark{
			Level1: BookmarkOtherDocuments,
			Level2: CategoryError,
			Level3: displayName(name),
		},
	}
}

// FieldDiff holds both raw values of a key whose normalized values disagree.
type FieldDiff struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

// ComparisonResult buckets the union of keys of two flat field maps. The four
// buckets are mutually exclusive and jointly cover every normalized key.
type ComparisonResult struct {
	Matching      map[string]string    `json:"matching"`
	Discrepancies map[string]FieldDiff `json:"discrepancies"`
	PrimaryOnly   map[string]string    `json:"primary_only"`
	SecondaryOnly map[string]string    `json:"secondary_only"`
}

// ComparisonCounts summarizes bucket sizes.
type ComparisonCounts struct {
	Matching      int `json:"matching"`
	Discrepancies int `json:"discrepancies"`
	PrimaryOnly   int `json:"primary_only"`
	SecondaryOnly int `json:"secondary_only"`
}

// Counts returns the size of each bucket.
func (c *ComparisonResult) Counts() ComparisonCounts {
	return ComparisonCounts{
		Matching:      len(c.Matching),
		Discrepancies: len(c.Discrepancies),
		PrimaryOnly:   len(c.PrimaryOnly),
		SecondaryOnly: len(c.SecondaryOnly),
	}
}

// NeedsReview reports whether anything other than matching fields was found.
func (c *ComparisonResult) NeedsReview() bool {
	return len(c.Discrepancies) > 0 || len(c.PrimaryOnly) > 0 || len(c.SecondaryOnly) > 0
}

// BatchInsights is a derived summary over a list of results.
type BatchInsights struct {
	Total      int            `json:"total"`
	ByCategory map[string]int `json:"by_category"`
	ByType     map[string]int `json:"by_type"`
	Narrative  string         `json:"narrative"`
}

// TelemetryRecord describes one external call or one decode outcome.
type TelemetryRecord struct {
	ID           uuid.UUID      `json:"id"`
	Service      string         `json:"service"`
	Endpoint     string         `json:"endpoint"`
	Method       string         `json:"method"`
	RequestMeta  map[string]any `json:"request_meta"`
	ResponseMeta map[string]any `json:"response_meta"`
	ElapsedMS    int64          `json:"elapsed_ms"`
	Status       string         `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
}

func displayName(name string) string {
	if name == "" {
		return "unnamed document"
	}
	return name
}

// Reconciliation is the outcome of comparing a document's primary analysis
// with an independent secondary field map.
type Reconciliation struct {
	Document    string            `json:"document"`
	Primary     StructuredResult  `json:"primary"`
	Secondary   map[string]string `json:"secondary"`
	Comparison  ComparisonResult  `json:"comparison"`
	Counts      ComparisonCounts  `json:"counts"`
	NeedsReview bool              `json:"needs_review"`
}
