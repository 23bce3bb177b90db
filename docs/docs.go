// Package docs holds the OpenAPI description served at /swagger.
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
        "/api/chat": {
            "post": {
                "description": "Answers strictly from the knowledge base; unknown topics get the contact fallback",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["chat"],
                "summary": "Ask the assistant a question",
                "parameters": [
                    {
                        "description": "Chat request",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/dto.ChatRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ChatResponse"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/admin/upload": {
            "post": {
                "description": "Parses an .xlsx or .csv file with Question/Answer columns, embeds every answer and stores the entries",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Upload a knowledge spreadsheet",
                "parameters": [
                    {
                        "type": "file",
                        "description": "Spreadsheet (.xlsx, .xlsm or .csv)",
                        "name": "file",
                        "in": "formData",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.UploadResponse"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/admin/knowledge": {
            "get": {
                "description": "Newest first, embeddings excluded",
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "List knowledge entries",
                "parameters": [
                    {"type": "integer", "default": 1, "description": "Page number, from 1", "name": "page", "in": "query"},
                    {"type": "integer", "default": 50, "description": "Page size, up to 500", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.KnowledgeListResponse"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        }
    },
    "definitions": {
        "dto.ChatRequest": {
            "type": "object",
            "required": ["message"],
            "properties": {
                "message": {"type": "string", "maxLength": 4000},
                "sessionId": {"type": "string", "maxLength": 128}
            }
        },
        "dto.ChatResponse": {
            "type": "object",
            "properties": {
                "response": {"type": "string"},
                "sources": {"type": "array", "items": {"$ref": "#/definitions/dto.SourceEntry"}}
            }
        },
        "dto.SourceEntry": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "category": {"type": "string"},
                "question": {"type": "string"},
                "answer": {"type": "string"},
                "source": {"type": "string"},
                "score": {"type": "number"}
            }
        },
        "dto.UploadResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "entriesAdded": {"type": "integer"},
                "entriesFailed": {"type": "integer"},
                "entriesTotal": {"type": "integer"}
            }
        },
        "dto.KnowledgeListResponse": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "page": {"type": "integer"},
                "limit": {"type": "integer"},
                "entries": {"type": "array", "items": {"$ref": "#/definitions/dto.KnowledgeEntryBrief"}}
            }
        },
        "dto.KnowledgeEntryBrief": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "category": {"type": "string"},
                "question": {"type": "string"},
                "answer": {"type": "string"},
                "source": {"type": "string"},
                "createdAt": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "kbchat API",
	Description:      "Knowledge-base chat assistant answering only from uploaded Q&A spreadsheets",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
