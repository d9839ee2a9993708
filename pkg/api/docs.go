package api

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK"}, "503": {"description": "Archive unavailable"}}
            }
        },
        "/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Archive statistics",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/captures": {
            "get": {
                "produces": ["application/json"],
                "tags": ["captures"],
                "summary": "List captures",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/octet-stream"],
                "produces": ["application/json"],
                "tags": ["captures"],
                "summary": "Upload a capture",
                "parameters": [
                    {"type": "string", "description": "Capture name", "name": "name", "in": "query"},
                    {"description": "UF2 stream", "name": "body", "in": "body", "required": true, "schema": {"type": "string", "format": "binary"}}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Identical stream already archived"},
                    "413": {"description": "Upload too large"},
                    "422": {"description": "Stream could not be decoded"}
                }
            }
        },
        "/captures/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["captures"],
                "summary": "Get a capture",
                "parameters": [{"type": "string", "description": "Capture ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid ID"}, "404": {"description": "Not found"}}
            },
            "delete": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["captures"],
                "summary": "Delete a capture",
                "parameters": [{"type": "string", "description": "Capture ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            }
        },
        "/captures/{id}/raw": {
            "get": {
                "produces": ["application/octet-stream"],
                "tags": ["captures"],
                "summary": "Download the original UF2 stream of a capture",
                "parameters": [{"type": "string", "description": "Capture ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            }
        },
        "/records": {
            "get": {
                "produces": ["application/json", "text/csv", "application/x-ndjson"],
                "tags": ["records"],
                "summary": "Query archived measurements",
                "parameters": [
                    {"type": "integer", "description": "Record version, newest when omitted", "name": "version", "in": "query"},
                    {"type": "integer", "description": "First unix timestamp", "name": "from", "in": "query"},
                    {"type": "integer", "description": "Last unix timestamp (inclusive)", "name": "to", "in": "query"},
                    {"type": "string", "description": "json (default), csv or jsonl", "name": "format", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad query"}}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "X-API-Key", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "HowFar Archive API",
	Description:      "Upload HowFar flash dumps and query archived measurements.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
