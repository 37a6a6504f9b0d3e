// Package docs holds the OpenAPI description served under /swagger.
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
                "description": "Pings the event store.",
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/v1/event": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "Create event",
                "parameters": [
                    {"description": "Event", "name": "event", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.Event"}}
                ],
                "responses": {
                    "200": {"description": "message, total_milliseconds", "schema": {"type": "object"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/v1/event/severity": {
            "put": {
                "description": "Moves the first event in [timestamp, timestamp+1s) with the given old severity, type and source to the new severity.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "Update event severity",
                "parameters": [
                    {"description": "Identity and new severity", "name": "update", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.SeverityUpdate"}}
                ],
                "responses": {
                    "200": {"description": "message, total_milliseconds", "schema": {"type": "object"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/v1/events": {
            "get": {
                "description": "Events in [start_time, end_time] matching every given tag. Oldest first.",
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "Query events",
                "parameters": [
                    {"type": "string", "description": "Start of range", "name": "start_time", "in": "query", "required": true},
                    {"type": "string", "description": "End of range, inclusive", "name": "end_time", "in": "query", "required": true},
                    {"enum": ["INFO", "WARNING", "ERROR", "CRITICAL"], "type": "string", "name": "severity", "in": "query"},
                    {"enum": ["SYSTEM_STATUS", "SECURITY_ALERT", "PERFORMANCE", "USER_ACTION"], "type": "string", "name": "event_type", "in": "query"},
                    {"type": "string", "name": "source_name", "in": "query"},
                    {"type": "string", "name": "country", "in": "query"},
                    {"type": "string", "name": "city", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "events, count, total_milliseconds", "schema": {"type": "object"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "Create events in one batch",
                "parameters": [
                    {"description": "Events", "name": "events", "in": "body", "required": true, "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Event"}}}
                ],
                "responses": {
                    "200": {"description": "message, count, total_milliseconds", "schema": {"type": "object"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/v1/events/clear": {
            "delete": {
                "description": "Deletes every event in [start_time, end_time]. Missing bounds default to 1080 days back and 1 day ahead.",
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "Clear events",
                "parameters": [
                    {"type": "string", "name": "start_time", "in": "query"},
                    {"type": "string", "name": "end_time", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "message, start_time, end_time, total_milliseconds", "schema": {"type": "object"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/v1/events/generate": {
            "post": {
                "description": "Writes random events spread uniformly over [start_time, end_time]. Defaults: 10 events over the last 3 days.",
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "Generate synthetic events",
                "parameters": [
                    {"type": "integer", "name": "events_to_generate", "in": "query"},
                    {"type": "string", "name": "start_time", "in": "query"},
                    {"type": "string", "name": "end_time", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "message, count, total_milliseconds", "schema": {"type": "object"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/auth/sign-up": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Create operator account",
                "parameters": [
                    {"description": "Username and password", "name": "credentials", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.authCredentials"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "integer"}}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/auth/sign-in": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Issue bearer token",
                "parameters": [
                    {"description": "Username and password", "name": "credentials", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.authCredentials"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        }
    },
    "definitions": {
        "handlers.authCredentials": {
            "type": "object",
            "required": ["password", "username"],
            "properties": {
                "password": {"type": "string"},
                "username": {"type": "string"}
            }
        },
        "models.Event": {
            "type": "object",
            "required": ["event_type", "severity", "source", "timestamp"],
            "properties": {
                "event_type": {"$ref": "#/definitions/models.EventType"},
                "message": {"type": "string"},
                "severity": {"$ref": "#/definitions/models.Severity"},
                "source": {"$ref": "#/definitions/models.Source"},
                "timestamp": {"type": "string", "example": "2025-01-15T10:00:00Z"}
            }
        },
        "models.EventType": {
            "type": "object",
            "required": ["name"],
            "properties": {"description": {"type": "string"}, "name": {"type": "string"}}
        },
        "models.Location": {
            "type": "object",
            "required": ["city", "country"],
            "properties": {"city": {"type": "string"}, "country": {"type": "string"}, "name": {"type": "string"}}
        },
        "models.Severity": {
            "type": "object",
            "required": ["name"],
            "properties": {"description": {"type": "string"}, "name": {"type": "string"}}
        },
        "models.SeverityUpdate": {
            "type": "object",
            "required": ["event_type", "new_severity", "old_severity", "source_name", "timestamp"],
            "properties": {
                "event_type": {"type": "string"},
                "new_severity": {"type": "string"},
                "old_severity": {"type": "string"},
                "source_name": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        },
        "models.Source": {
            "type": "object",
            "required": ["ip_address", "location", "name"],
            "properties": {
                "ip_address": {"type": "string"},
                "location": {"$ref": "#/definitions/models.Location"},
                "name": {"type": "string"}
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
	Title:            "Influx Events API",
	Description:      "Write, query, update and clear timestamped events kept in InfluxDB.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
