package domain

// SchemaType names a JSON schema node type.
type SchemaType string

const (
	SchemaObject SchemaType = "object"
	SchemaArray  SchemaType = "array"
	SchemaString SchemaType = "string"
)

// Schema is a provider-neutral subset of JSON Schema. Adapters translate it into
// whatever response-schema form their API accepts.
type Schema struct {
	Type        SchemaType         `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Ordering    []string           `json:"-"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// Keys of the StructuredResult wire object as requested from the model.
const (
	KeyDocumentCategory = "document_category"
	KeyNarrative        = "narrative"
	KeyExtractedFields  = "extracted_fields"
	KeyBookmark         = "bookmark"
	KeyRawResponse      = "raw_response"
)

// StructuredResultSchema returns the response schema requested in strict mode.
// Extracted fields are requested as name/value pairs because response schemas
// cannot describe objects with arbitrary keys; the decoder folds them back into
// a flat map.
func StructuredResultSchema() *Schema {
	str := func(desc string) *Schema {
		return &Schema{Type: SchemaString, Description: desc}
	}
	return &Schema{
		Type: SchemaObject,
		Properties: map[string]*Schema{
			KeyDocumentCategory: str("Broad document category, e.g. Income, Deductions, Identification, Prior Year Return"),
			KeyNarrative:        str("Plain-language summary of the document, at most 200 words"),
			KeyExtractedFields: {
				Type:        SchemaArray,
				Description: "Every labelled value on the document as a flat list",
				Items: &Schema{
					Type: SchemaObject,
					Properties: map[string]*Schema{
						"name":  str("Field label exactly as printed, e.g. Box 1 or Payer TIN"),
						"value": str("Field value as printed"),
					},
					Ordering: []string{"name", "value"},
					Required: []string{"name", "value"},
				},
			},
			KeyBookmark: {
				Type: SchemaObject,
				Properties: map[string]*Schema{
					"level1": str("Broad category"),
					"level2": str("Specific form or document type, e.g. W-2 or 1099-INT"),
					"level3": str("Instance label, e.g. issuer name and tax year"),
				},
				Ordering: []string{"level1", "level2", "level3"},
				Required: []string{"level1", "level2", "level3"},
			},
		},
		Ordering: []string{KeyDocumentCategory, KeyNarrative, KeyExtractedFields, KeyBookmark},
		Required: []string{KeyDocumentCategory, KeyNarrative, KeyExtractedFields, KeyBookmark},
	}
}
