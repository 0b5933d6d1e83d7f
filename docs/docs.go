// Package docs holds the Swagger description of the taxrecon HTTP API, in the
// layout produced by swag init.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/analyze": {
            "post": {
                "description": "Extract a structured result from one uploaded tax document",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["analysis"],
                "summary": "Analyze a document",
                "parameters": [
                    {"type": "file", "description": "Document (PDF, PNG, JPEG, WEBP or TIFF)", "name": "file", "in": "formData", "required": true},
                    {"type": "string", "description": "Custom analysis instructions", "name": "instructions", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [{"$ref": "#/definitions/handler.APIResponse"}, {"type": "object", "properties": {"data": {"$ref": "#/definitions/domain.StructuredResult"}}}]}},
                    "400": {"description": "Missing or empty file", "schema": {"$ref": "#/definitions/handler.APIResponse"}},
                    "413": {"description": "File too large", "schema": {"$ref": "#/definitions/handler.APIResponse"}},
                    "415": {"description": "Unsupported content type", "schema": {"$ref": "#/definitions/handler.APIResponse"}},
                    "502": {"description": "Provider failed", "schema": {"$ref": "#/definitions/handler.APIResponse"}}
                }
            }
        },
        "/analyze/batch": {
            "post": {
                "description": "Analyze several documents concurrently; results keep upload order",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["analysis"],
                "summary": "Analyze a batch of documents",
                "parameters": [
                    {"type": "file", "description": "Documents", "name": "files", "in": "formData", "required": true},
                    {"type": "string", "description": "Custom analysis instructions for every document", "name": "instructions", "in": "formData"},
                    {"type": "boolean", "description": "Include batch insights", "name": "insights", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [{"$ref": "#/definitions/handler.APIResponse"}, {"type": "object", "properties": {"data": {"$ref": "#/definitions/handler.BatchResponse"}}}]}},
                    "400": {"description": "Empty batch", "schema": {"$ref": "#/definitions/handler.APIResponse"}},
                    "413": {"description": "Batch or file too large", "schema": {"$ref": "#/definitions/handler.APIResponse"}}
                }
            }
        },
        "/reconcile": {
            "post": {
                "description": "Compare fields extracted from a document with a supplied or extracted secondary field map",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["reconcile"],
                "summary": "Analyze and reconcile a document",
                "parameters": [
                    {"type": "file", "description": "Document", "name": "file", "in": "formData", "required": true},
                    {"type": "string", "description": "Flat JSON object of secondary field values", "name": "secondary", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [{"$ref": "#/definitions/handler.APIResponse"}, {"type": "object", "properties": {"data": {"$ref": "#/definitions/domain.Reconciliation"}}}]}},
                    "400": {"description": "Invalid field map or no secondary source", "schema": {"$ref": "#/definitions/handler.APIResponse"}}
                }
            }
        },
        "/compare": {
            "post": {
                "description": "Bucket the fields of two flat maps into matching, discrepancies, primary-only and secondary-only",
                "consumes": ["application/json"],
                "produces": ["application/json", "text/csv", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "tags": ["reconcile"],
                "summary": "Compare two field maps",
                "parameters": [
                    {"description": "Field maps", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.compareRequest"}},
                    {"type": "string", "description": "json (default), csv or xlsx", "name": "format", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [{"$ref": "#/definitions/handler.APIResponse"}, {"type": "object", "properties": {"data": {"$ref": "#/definitions/handler.ComparisonResponse"}}}]}},
                    "400": {"description": "Invalid body, field map or format", "schema": {"$ref": "#/definitions/handler.APIResponse"}}
                }
            }
        },
        "/insights": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["analysis"],
                "summary": "Summarize analysis results",
                "parameters": [
                    {"description": "Structured results", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.insightsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [{"$ref": "#/definitions/handler.APIResponse"}, {"type": "object", "properties": {"data": {"$ref": "#/definitions/domain.BatchInsights"}}}]}},
                    "400": {"description": "Invalid body", "schema": {"$ref": "#/definitions/handler.APIResponse"}}
                }
            }
        },
        "/telemetry": {
            "get": {
                "produces": ["application/json"],
                "tags": ["telemetry"],
                "summary": "List recent telemetry",
                "parameters": [
                    {"type": "integer", "description": "Maximum records (default 50, capped at 500)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [{"$ref": "#/definitions/handler.APIResponse"}, {"type": "object", "properties": {"data": {"type": "array", "items": {"$ref": "#/definitions/domain.TelemetryRecord"}}}}]}},
                    "404": {"description": "Telemetry persistence disabled", "schema": {"$ref": "#/definitions/handler.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.Bookmark": {
            "type": "object",
            "properties": {
                "level1": {"type": "string"},
                "level2": {"type": "string"},
                "level3": {"type": "string"}
            }
        },
        "domain.StructuredResult": {
            "type": "object",
            "properties": {
                "document_category": {"type": "string"},
                "narrative": {"type": "string"},
                "extracted_fields": {"type": "object", "additionalProperties": {"type": "string"}},
                "bookmark": {"$ref": "#/definitions/domain.Bookmark"},
                "raw_response": {"type": "string"}
            }
        },
        "domain.FieldDiff": {
            "type": "object",
            "properties": {
                "primary": {"type": "string"},
                "secondary": {"type": "string"}
            }
        },
        "domain.ComparisonResult": {
            "type": "object",
            "properties": {
                "matching": {"type": "object", "additionalProperties": {"type": "string"}},
                "discrepancies": {"type": "object", "additionalProperties": {"$ref": "#/definitions/domain.FieldDiff"}},
                "primary_only": {"type": "object", "additionalProperties": {"type": "string"}},
                "secondary_only": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "domain.ComparisonCounts": {
            "type": "object",
            "properties": {
                "matching": {"type": "integer"},
                "discrepancies": {"type": "integer"},
                "primary_only": {"type": "integer"},
                "secondary_only": {"type": "integer"}
            }
        },
        "domain.Reconciliation": {
            "type": "object",
            "properties": {
                "document": {"type": "string"},
                "primary": {"$ref": "#/definitions/domain.StructuredResult"},
                "secondary": {"type": "object", "additionalProperties": {"type": "string"}},
                "comparison": {"$ref": "#/definitions/domain.ComparisonResult"},
                "counts": {"$ref": "#/definitions/domain.ComparisonCounts"},
                "needs_review": {"type": "boolean"}
            }
        },
        "domain.BatchInsights": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "by_category": {"type": "object", "additionalProperties": {"type": "integer"}},
                "by_type": {"type": "object", "additionalProperties": {"type": "integer"}},
                "narrative": {"type": "string"}
            }
        },
        "domain.TelemetryRecord": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "service": {"type": "string"},
                "endpoint": {"type": "string"},
                "method": {"type": "string"},
                "request_meta": {"type": "object", "additionalProperties": true},
                "response_meta": {"type": "object", "additionalProperties": true},
                "elapsed_ms": {"type": "integer"},
                "status": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "handler.APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "handler.APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {},
                "error": {"$ref": "#/definitions/handler.APIError"}
            }
        },
        "handler.BatchResponse": {
            "type": "object",
            "properties": {
                "results": {"type": "array", "items": {"$ref": "#/definitions/domain.StructuredResult"}},
                "insights": {"$ref": "#/definitions/domain.BatchInsights"}
            }
        },
        "handler.ComparisonResponse": {
            "type": "object",
            "properties": {
                "matching": {"type": "object", "additionalProperties": {"type": "string"}},
                "discrepancies": {"type": "object", "additionalProperties": {"$ref": "#/definitions/domain.FieldDiff"}},
                "primary_only": {"type": "object", "additionalProperties": {"type": "string"}},
                "secondary_only": {"type": "object", "additionalProperties": {"type": "string"}},
                "counts": {"$ref": "#/definitions/domain.ComparisonCounts"},
                "needs_review": {"type": "boolean"}
            }
        },
        "handler.compareRequest": {
            "type": "object",
            "properties": {
                "document_name": {"type": "string"},
                "primary": {"type": "object", "additionalProperties": {"type": "string"}},
                "secondary": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "handler.insightsRequest": {
            "type": "object",
            "properties": {
                "results": {"type": "array", "items": {"$ref": "#/definitions/domain.StructuredResult"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "taxrecon API",
	Description:      "Tax document analysis and field reconciliation.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
