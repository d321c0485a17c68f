package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Gradebook API",
        "description": "Read-only view of a course gradebook with report exports",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Course", "description": "Loaded course, students and aggregates"},
        {"name": "Exports", "description": "CSV, PDF and XLSX course reports"}
    ],
    "paths": {
        "/course": {
            "get": {
                "tags": ["Course"],
                "summary": "Course document",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "No course loaded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/course/summary": {
            "get": {
                "tags": ["Course"],
                "summary": "Course summary",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/CourseSummaryEnvelope"}}
                }
            }
        },
        "/course/students/{id}": {
            "get": {
                "tags": ["Course"],
                "summary": "Student detail",
                "produces": ["application/json"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/course/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue a course report",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/jobs/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export job status",
                "produces": ["application/json"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/download/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a finished export",
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "404": {"description": "Unknown export", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "410": {"description": "Link expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "ExportRequest": {
            "type": "object",
            "required": ["format"],
            "properties": {
                "format": {"type": "string", "enum": ["csv", "pdf", "xlsx"]}
            }
        },
        "StudentSummary": {
            "type": "object",
            "properties": {
                "id": {"description": "string or number, as stored"},
                "name": {"type": "string"},
                "grades": {"type": "array", "items": {"type": "number"}},
                "average": {"type": "number"},
                "status": {"type": "string", "enum": ["APPROVED", "FAILED"]},
                "invalid": {"type": "boolean"}
            }
        },
        "CourseSummary": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "pass_threshold": {"type": "number"},
                "average": {"type": "number"},
                "student_count": {"type": "integer"},
                "invalid_count": {"type": "integer"},
                "students": {"type": "array", "items": {"$ref": "#/definitions/StudentSummary"}},
                "approved": {"type": "array", "items": {"$ref": "#/definitions/StudentSummary"}},
                "failed": {"type": "array", "items": {"$ref": "#/definitions/StudentSummary"}}
            }
        },
        "CourseSummaryEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/CourseSummary"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
