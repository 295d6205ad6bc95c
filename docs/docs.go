// Package docs registers the Swagger spec served at /swagger/index.html.
//
//	@title						RMS Pipeline API
//	@version					1.0
//	@description				Outlier cleaning, feature derivation and alarm alignment for RMS sensor units.
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
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
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/auth/token": {
            "post": {
                "description": "Exchanges the operator key for a bearer token. Returns 400 when auth is disabled.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Issue API token",
                "parameters": [
                    {"description": "Operator key", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.TokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "token", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/v1/process": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Cleans, enriches and aligns alarms for the posted units. Failing units are listed under errors unless fail_fast is set.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["pipeline"],
                "summary": "Process units",
                "parameters": [
                    {"description": "Units and optional tuning", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.ProcessRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.RunResponse"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "422": {"description": "error, run", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/api/v1/runs": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Loads units from the configured CSV folder or SQLite file and runs the pipeline. A date-only 'to' is end-of-day inclusive.",
                "produces": ["application/json"],
                "tags": ["pipeline"],
                "summary": "Run over the configured source",
                "parameters": [
                    {"type": "string", "example": "pump1,pump2", "description": "Comma-separated unit ids; all units when empty", "name": "units", "in": "query"},
                    {"type": "string", "example": "2024-05-01", "description": "Start of range", "name": "from", "in": "query"},
                    {"type": "string", "example": "2024-05-31", "description": "End of range", "name": "to", "in": "query"},
                    {"type": "number", "example": 12, "description": "MAD multiplier", "name": "sensitivity", "in": "query"},
                    {"type": "number", "example": 1, "description": "Half window in hours", "name": "window_hours", "in": "query"},
                    {"type": "boolean", "description": "Abort at the first failing unit", "name": "fail_fast", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.RunResponse"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "422": {"description": "error, run", "schema": {"type": "object", "additionalProperties": true}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/v1/ws/process": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "WebSocket. The client sends one ProcessRequest; the server answers with one unit envelope per finished unit, then a done envelope.",
                "tags": ["pipeline"],
                "summary": "Stream unit results",
                "responses": {}
            }
        }
    },
    "definitions": {
        "handlers.AlarmPayload": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "warning: overheat"},
                "timestamp": {"type": "string", "example": "2024-05-06T08:05:00Z"}
            }
        },
        "handlers.UnitPayload": {
            "type": "object",
            "properties": {
                "alarms": {"type": "array", "items": {"$ref": "#/definitions/handlers.AlarmPayload"}},
                "columns": {"type": "object", "additionalProperties": {"type": "array", "items": {"type": "number"}}},
                "timestamps": {"type": "array", "items": {"type": "string"}}
            }
        },
        "handlers.ProcessRequest": {
            "type": "object",
            "required": ["units"],
            "properties": {
                "fail_fast": {"type": "boolean"},
                "sensitivity": {"type": "number", "example": 12},
                "units": {"type": "object", "additionalProperties": {"$ref": "#/definitions/handlers.UnitPayload"}},
                "window_hours": {"type": "number", "example": 1}
            }
        },
        "handlers.TokenRequest": {
            "type": "object",
            "required": ["key"],
            "properties": {
                "key": {"type": "string", "example": "operator-key"}
            }
        },
        "handlers.TableResponse": {
            "type": "object",
            "properties": {
                "column_order": {"type": "array", "items": {"type": "string"}},
                "columns": {"type": "object", "additionalProperties": {"type": "array", "items": {"type": "number", "x-nullable": true}}},
                "flags": {"type": "array", "items": {"$ref": "#/definitions/models.DataQualityFlag"}},
                "timestamps": {"type": "array", "items": {"type": "string"}}
            }
        },
        "handlers.RunResponse": {
            "type": "object",
            "properties": {
                "duration_ms": {"type": "integer"},
                "errors": {"type": "object", "additionalProperties": {"type": "string"}},
                "load_errors": {"type": "array", "items": {"type": "string"}},
                "results": {"type": "object", "additionalProperties": {"$ref": "#/definitions/handlers.TableResponse"}},
                "run_id": {"type": "string"},
                "warnings": {"type": "object", "additionalProperties": {"type": "array", "items": {"type": "string"}}}
            }
        },
        "models.DataQualityFlag": {
            "type": "object",
            "properties": {
                "at": {"type": "string"},
                "column": {"type": "string"},
                "reason": {"type": "string"},
                "row": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "RMS Pipeline API",
	Description:      "Outlier cleaning, feature derivation and alarm alignment for RMS sensor units.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
