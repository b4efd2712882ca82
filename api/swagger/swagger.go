package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Attendance Bot Gateway",
        "description": "WhatsApp chat gateway for attendance management",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Webhook", "description": "WhatsApp Cloud API webhook"},
        {"name": "Reports", "description": "Generated attendance report downloads"},
        {"name": "Health", "description": "Probes"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Health"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["Health"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is unavailable"}
                }
            }
        },
        "/webhook": {
            "get": {
                "tags": ["Webhook"],
                "summary": "Webhook verification handshake",
                "parameters": [
                    {"name": "hub.mode", "in": "query", "type": "string", "required": true},
                    {"name": "hub.verify_token", "in": "query", "type": "string", "required": true},
                    {"name": "hub.challenge", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Challenge echoed"},
                    "403": {"description": "Token mismatch"}
                }
            },
            "post": {
                "tags": ["Webhook"],
                "summary": "Receive message events",
                "responses": {
                    "200": {"description": "Acknowledged"}
                }
            }
        },
        "/reports/download/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download a generated attendance report",
                "parameters": [
                    {"name": "token", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Report file"},
                    "404": {"description": "Link invalid or expired"}
                }
            }
        }
    },
    "definitions": {
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
