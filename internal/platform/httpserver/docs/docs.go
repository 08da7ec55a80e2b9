// Package docs holds the generated swagger document. Code generated by swag. DO NOT EDIT.
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
        "/v1/market/listings": {
            "get": {
                "produces": ["application/json"],
                "tags": ["market"],
                "summary": "List active listings",
                "parameters": [
                    {"type": "string", "name": "collection", "in": "query"},
                    {"type": "string", "name": "seller", "in": "query"},
                    {"type": "string", "name": "cursor", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["market"],
                "summary": "Create a fixed-price listing",
                "parameters": [
                    {"type": "string", "name": "X-User-Id", "in": "header", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"},
                    "403": {"description": "Forbidden"},
                    "409": {"description": "Conflict"},
                    "424": {"description": "Failed Dependency"}
                }
            }
        },
        "/v1/market/listings/{collection}/{token_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["market"],
                "summary": "Get one listing",
                "parameters": [
                    {"type": "string", "name": "collection", "in": "path", "required": true},
                    {"type": "integer", "name": "token_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found"}
                }
            },
            "patch": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["market"],
                "summary": "Update listing price",
                "parameters": [
                    {"type": "string", "name": "X-User-Id", "in": "header", "required": true},
                    {"type": "string", "name": "collection", "in": "path", "required": true},
                    {"type": "integer", "name": "token_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"},
                    "403": {"description": "Forbidden"},
                    "404": {"description": "Not Found"}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["market"],
                "summary": "Cancel a listing",
                "parameters": [
                    {"type": "string", "name": "X-User-Id", "in": "header", "required": true},
                    {"type": "string", "name": "collection", "in": "path", "required": true},
                    {"type": "integer", "name": "token_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Unauthorized"},
                    "403": {"description": "Forbidden"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/v1/market/listings/{collection}/{token_id}/purchase": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["market"],
                "summary": "Purchase a listed asset",
                "parameters": [
                    {"type": "string", "name": "X-User-Id", "in": "header", "required": true},
                    {"type": "string", "name": "collection", "in": "path", "required": true},
                    {"type": "integer", "name": "token_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"},
                    "404": {"description": "Not Found"},
                    "424": {"description": "Failed Dependency"}
                }
            }
        },
        "/v1/market/events": {
            "get": {
                "produces": ["application/json"],
                "tags": ["market"],
                "summary": "List recorded listing events",
                "parameters": [
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"}
                }
            }
        },
        "/healthz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Service health probe",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Bazaar Listing Engine API",
	Description:      "Fixed-price asset listing and atomic exchange service.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
