// Package docs registers the OpenAPI description served at /swagger.
// Regenerate with: swag init -g cmd/main.go
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
    "securityDefinitions": {
        "BasicAuth": {
            "type": "basic"
        }
    },
    "paths": {
        "/listings": {
            "get": {
                "tags": ["listings"],
                "summary": "List listings",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "default": 1, "name": "page", "in": "query"},
                    {"type": "integer", "default": 10, "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "security": [{"BasicAuth": []}],
                "tags": ["listings"],
                "summary": "Create listing",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "InvalidPrice or IncorrectPayment"},
                    "409": {"description": "TransferFailed"}
                }
            }
        },
        "/listings/{registry}/{asset_id}": {
            "get": {
                "tags": ["listings"],
                "summary": "Get listing",
                "parameters": [
                    {"type": "string", "name": "registry", "in": "path", "required": true},
                    {"type": "integer", "name": "asset_id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/listings/{registry}/{asset_id}/price": {
            "patch": {
                "security": [{"BasicAuth": []}],
                "tags": ["listings"],
                "summary": "Update listing price",
                "responses": {"200": {"description": "OK"}, "403": {"description": "NotAuthorized"}, "404": {"description": "NotListed"}}
            }
        },
        "/listings/{registry}/{asset_id}/delist": {
            "post": {
                "security": [{"BasicAuth": []}],
                "tags": ["listings"],
                "summary": "Delist",
                "responses": {"200": {"description": "OK"}, "403": {"description": "NotAuthorized"}, "404": {"description": "NotListed"}}
            }
        },
        "/listings/{registry}/{asset_id}/buy": {
            "post": {
                "security": [{"BasicAuth": []}],
                "tags": ["listings"],
                "summary": "Buy",
                "responses": {"200": {"description": "OK"}, "400": {"description": "IncorrectPayment"}, "409": {"description": "TransferFailed"}}
            }
        },
        "/fee": {
            "get": {"tags": ["market"], "summary": "Listing fee", "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"BasicAuth": []}], "tags": ["market"], "summary": "Set listing fee", "responses": {"200": {"description": "OK"}, "403": {"description": "NotAuthorized"}}}
        },
        "/withdraw": {
            "post": {"security": [{"BasicAuth": []}], "tags": ["market"], "summary": "Withdraw fees", "responses": {"200": {"description": "OK"}, "403": {"description": "NotAuthorized"}}}
        },
        "/accounts": {
            "post": {"tags": ["accounts"], "summary": "Register account", "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}}}
        },
        "/registries": {
            "get": {"tags": ["registries"], "summary": "List collections", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BasicAuth": []}], "tags": ["registries"], "summary": "Create collection", "responses": {"201": {"description": "Created"}}}
        },
        "/events": {
            "get": {"tags": ["events"], "summary": "Recent events", "responses": {"200": {"description": "OK"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "NFT Market API",
	Description:      "Fixed-price NFT marketplace: escrowed listings, royalty-aware sales and listing fees",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
