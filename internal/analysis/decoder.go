package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"taxrecon/internal/domain"
)

// maxNarrativeWords caps narratives taken from model output.
const maxNarrativeWords = 200

// schemaDecodeError records why a raw response could not be decoded. It never
// leaves this package: decode failures become fallback results.
type schemaDecodeError struct {
	stage string
	err   error
}

func (e *schemaDecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.stage, e.err)
}

// decodeResult is either a parsed result or a fallback, with the outcome tag.
type decodeResult struct {
	result  domain.StructuredResult
	outcome domain.DecodeOutcome
	err     *schemaDecodeError
}

func (r decodeResult) failed() bool {
	return r.err != nil
}

// Decoder turns raw model output into a StructuredResult. It holds no state
// and is safe for concurrent use.
type Decoder struct{}

// NewDecoder creates a Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode never fails; unparseable output yields a fallback result.
func (d *Decoder) Decode(raw, documentName string) domain.StructuredResult {
	res, _ := d.DecodeWithOutcome(raw, documentName)
	return res
}

// DecodeWithOutcome is Decode plus the tag describing which path produced the result.
func (d *Decoder) DecodeWithOutcome(raw, documentName string) (domain.StructuredResult, domain.DecodeOutcome) {
	r := decodeStructured(raw, documentName)
	return r.result, r.outcome
}

// DecodeNarrative is used for custom-instruction requests, where the model was
// not bound to a schema. JSON output is still honoured; anything else becomes
// a narrative-only result.
func (d *Decoder) DecodeNarrative(raw, documentName string) (domain.StructuredResult, domain.DecodeOutcome) {
	r := decodeStructured(raw, documentName)
	if !r.failed() {
		return r.result, r.outcome
	}
	return domain.StructuredResult{
		DocumentCategory: domain.CategoryCustomAnalysis,
		Narrative:        limitWords(stripFences(raw), maxNarrativeWords),
		ExtractedFields:  map[string]string{},
		Bookmark: domain.Bookmark{
			Level1: domain.BookmarkOtherDocuments,
			Level2: domain.CategoryCustomAnalysis,
			Level3: documentName,
		},
		RawResponse: raw,
	}, domain.OutcomeNarrativeOnly
}

// DecodeFields extracts only a flat field map, for secondary sources. Well-known
// result keys are treated like any other field.
func (d *Decoder) DecodeFields(raw string) (map[string]string, error) {
	obj, err := parseObject(raw)
	if err != nil {
		obj, err = parseObject(cleanResponse(raw))
		if err != nil {
			return nil, &schemaDecodeError{stage: "fields", err: err}
		}
	}
	fields := make(map[string]string)
	if ef, ok := obj[domain.KeyExtractedFields]; ok {
		flattenFieldList(ef, fields)
		delete(obj, domain.KeyExtractedFields)
	}
	for _, k := range sortedKeys(obj) {
		flattenValue(k, obj[k], fields)
	}
	return fields, nil
}

func decodeStructured(raw, documentName string) decodeResult {
	obj, err := parseObject(raw)
	if err == nil {
		return decodeResult{result: buildResult(obj, raw, documentName), outcome: domain.OutcomeParsedDirectly}
	}

	obj, err = parseObject(cleanResponse(raw))
	if err == nil {
		return decodeResult{result: buildResult(obj, raw, documentName), outcome: domain.OutcomeCleanedAndParsed}
	}

	return decodeResult{
		result:  fallbackResult(raw, documentName),
		outcome: domain.OutcomeFailedUsingFallback,
		err:     &schemaDecodeError{stage: "structured result", err: err},
	}
}

func parseObject(text string) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("top-level value is null")
	}
	return obj, nil
}

func buildResult(obj map[string]json.RawMessage, raw, documentName string) domain.StructuredResult {
	res := domain.StructuredResult{
		ExtractedFields: make(map[string]string),
		RawResponse:     raw,
	}

	if v, ok := obj[domain.KeyDocumentCategory]; ok {
		res.DocumentCategory = strings.TrimSpace(scalarString(v))
	}
	if v, ok := obj[domain.KeyNarrative]; ok {
		res.Narrative = limitWords(strings.TrimSpace(scalarString(v)), maxNarrativeWords)
	}
	if v, ok := obj[domain.KeyExtractedFields]; ok {
		flattenFieldList(v, res.ExtractedFields)
	}
	if v, ok := obj[domain.KeyBookmark]; ok {
		res.Bookmark = parseBookmark(v)
	}

	// Keys the model put at the top level are fields too.
	for _, k := range sortedKeys(obj) {
		switch k {
		case domain.KeyDocumentCategory, domain.KeyNarrative, domain.KeyExtractedFields,
			domain.KeyBookmark, domain.KeyRawResponse:
			continue
		}
		flattenValue(k, obj[k], res.ExtractedFields)
	}

	if res.DocumentCategory == "" {
		res.DocumentCategory = domain.CategoryUnknown
	}
	if res.Bookmark.Level1 == "" {
		res.Bookmark.Level1 = domain.BookmarkOtherDocuments
	}
	if res.Bookmark.Level2 == "" {
		res.Bookmark.Level2 = res.DocumentCategory
	}
	if res.Bookmark.Level3 == "" {
		res.Bookmark.Level3 = documentName
	}
	return res
}

func fallbackResult(raw, documentName string) domain.StructuredResult {
	return domain.StructuredResult{
		DocumentCategory: domain.CategoryUnknown,
		Narrative: fmt.Sprintf(
			"The analysis response for %s could not be parsed as structured data. The raw response (%d characters) was preserved for review.",
			documentName, len(raw)),
		ExtractedFields: map[string]string{
			domain.FieldParsingError: "true",
			domain.FieldRawLength:    strconv.Itoa(len(raw)),
		},
		Bookmark: domain.Bookmark{
			Level1: domain.BookmarkOtherDocuments,
			Level2: domain.CategoryUnknown,
			Level3: documentName,
		},
		RawResponse: raw,
	}
}

func parseBookmark(v json.RawMessage) domain.Bookmark {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(v, &obj); err == nil {
		return domain.Bookmark{
			Level1: strings.TrimSpace(scalarString(obj["level1"])),
			Level2: strings.TrimSpace(scalarString(obj["level2"])),
			Level3: strings.TrimSpace(scalarString(obj["level3"])),
		}
	}
	var levels []string
	if err := json.Unmarshal(v, &levels); err == nil {
		var b domain.Bookmark
		dst := []*string{&b.Level1, &b.Level2, &b.Level3}
		for i := 0; i < len(levels) && i < len(dst); i++ {
			*dst[i] = strings.TrimSpace(levels[i])
		}
		return b
	}
	return domain.Bookmark{}
}

// flattenFieldList accepts extracted_fields as an object or as a list of
// name/value pairs.
func flattenFieldList(v json.RawMessage, out map[string]string) {
	trimmed := bytes.TrimSpace(v)
	if len(trimmed) == 0 {
		return
	}
	switch trimmed[0] {
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return
		}
		for _, k := range sortedKeys(obj) {
			flattenValue(k, obj[k], out)
		}
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return
		}
		for i, item := range items {
			if name, value, ok := fieldPair(item); ok {
				addPair(out, name, value)
				continue
			}
			flattenValue(fmt.Sprintf("%s[%d]", domain.KeyExtractedFields, i), item, out)
		}
	case '"':
		s := scalarString(trimmed)
		if obj, err := parseObject(s); err == nil {
			for _, k := range sortedKeys(obj) {
				flattenValue(k, obj[k], out)
			}
			return
		}
		if s != "" {
			setOnce(out, domain.KeyExtractedFields, s)
		}
	}
}

var pairNameKeys = []string{"name", "key", "field", "label"}

func fieldPair(item json.RawMessage) (string, string, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(item, &obj); err != nil {
		return "", "", false
	}
	value, hasValue := obj["value"]
	if !hasValue {
		return "", "", false
	}
	for _, k := range pairNameKeys {
		if nameRaw, ok := obj[k]; ok {
			name := strings.TrimSpace(scalarString(nameRaw))
			if name == "" {
				return "", "", false
			}
			return name, scalarString(value), true
		}
	}
	return "", "", false
}

// addPair stores a pair, suffixing repeated names ("Box 12", "Box 12 (2)").
func addPair(out map[string]string, name, value string) {
	if _, exists := out[name]; !exists {
		out[name] = value
		return
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", name, n)
		if _, exists := out[candidate]; !exists {
			out[candidate] = value
			return
		}
	}
}

func flattenValue(prefix string, v json.RawMessage, out map[string]string) {
	trimmed := bytes.TrimSpace(v)
	if len(trimmed) == 0 {
		return
	}
	switch trimmed[0] {
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			setOnce(out, prefix, string(trimmed))
			return
		}
		for _, k := range sortedKeys(obj) {
			flattenValue(prefix+"."+k, obj[k], out)
		}
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			setOnce(out, prefix, string(trimmed))
			return
		}
		for i, item := range items {
			flattenValue(fmt.Sprintf("%s[%d]", prefix, i), item, out)
		}
	default:
		setOnce(out, prefix, scalarString(trimmed))
	}
}

func setOnce(out map[string]string, key, value string) {
	if _, exists := out[key]; !exists {
		out[key] = value
	}
}

// scalarString renders a JSON value as a field string. Numbers and booleans keep
// their literal text so "100.00" stays "100.00".
func scalarString(v json.RawMessage) string {
	trimmed := bytes.TrimSpace(v)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
		return string(trimmed)
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err == nil {
			return buf.String()
		}
		return string(trimmed)
	default:
		return string(trimmed)
	}
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func limitWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ") + "..."
}
