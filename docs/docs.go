// Package docs holds the OpenAPI document served under /swagger.
// Regenerate with: swag init -g cmd/server/main.go -o docs
package docs

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
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/auth/register": {"post": {"tags": ["auth"], "summary": "Register",
            "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/models.RegisterRequest"}}],
            "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}, "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}}}},
        "/auth/login": {"post": {"tags": ["auth"], "summary": "Login",
            "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/models.LoginRequest"}}],
            "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}}}},
        "/auth/profile": {
            "get": {"tags": ["auth"], "summary": "Current user", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
            "patch": {"tags": ["auth"], "summary": "Update profile", "security": [{"BearerAuth": []}],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/models.UpdateProfileRequest"}}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}}}},
        "/buses": {
            "get": {"tags": ["buses"], "summary": "List buses", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["buses"], "summary": "Create bus (staff)", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}}}},
        "/buses/{id}": {
            "get": {"tags": ["buses"], "summary": "Get bus", "security": [{"BearerAuth": []}], "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "put": {"tags": ["buses"], "summary": "Update bus (staff)", "security": [{"BearerAuth": []}], "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["buses"], "summary": "Delete bus (staff)", "security": [{"BearerAuth": []}], "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Referenced by schedules"}}}},
        "/routes": {
            "get": {"tags": ["routes"], "summary": "List routes", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["routes"], "summary": "Create route (staff)", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}}}},
        "/routes/{id}": {
            "get": {"tags": ["routes"], "summary": "Get route", "security": [{"BearerAuth": []}], "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["routes"], "summary": "Update route (staff)", "security": [{"BearerAuth": []}], "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["routes"], "summary": "Delete route (staff)", "security": [{"BearerAuth": []}], "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/schedules": {
            "get": {"tags": ["schedules"], "summary": "Upcoming schedules", "security": [{"BearerAuth": []}],
                "parameters": [{"type": "string", "name": "date", "in": "query"}, {"type": "integer", "name": "route_id", "in": "query"}, {"type": "string", "name": "source", "in": "query"}, {"type": "string", "name": "destination", "in": "query"}],
                "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["schedules"], "summary": "Create schedules over a date range (staff)", "security": [{"BearerAuth": []}],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/models.CreateScheduleRequest"}}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}}}},
        "/schedules/{id}": {
            "get": {"tags": ["schedules"], "summary": "Schedule with seat map", "security": [{"BearerAuth": []}], "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "delete": {"tags": ["schedules"], "summary": "Delete schedule (staff)", "security": [{"BearerAuth": []}], "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Has confirmed bookings"}}}},
        "/schedules/{id}/reserve": {"patch": {"tags": ["schedules"], "summary": "Replace reserved seats (staff)", "security": [{"BearerAuth": []}],
            "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}, {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/models.ReservationRequest"}}],
            "responses": {"200": {"description": "OK"}}}},
        "/schedules/{id}/events": {"get": {"tags": ["schedules"], "summary": "Schedule change stream", "produces": ["text/event-stream"], "security": [{"BearerAuth": []}], "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "503": {"description": "Redis not configured"}}}},
        "/bookings": {
            "get": {"tags": ["bookings"], "summary": "List bookings", "security": [{"BearerAuth": []}],
                "parameters": [{"type": "string", "name": "status", "in": "query"}, {"type": "string", "name": "date", "in": "query"}, {"type": "integer", "name": "route_id", "in": "query"}, {"type": "string", "name": "search", "in": "query"}],
                "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["bookings"], "summary": "Book seats", "security": [{"BearerAuth": []}],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/models.CreateBookingRequest"}}],
                "responses": {"201": {"description": "Created"}, "409": {"description": "Seat conflict", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}, "429": {"description": "Rate limited"}, "503": {"description": "Retry", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}}}},
        "/bookings/{id}": {"get": {"tags": ["bookings"], "summary": "Get booking", "security": [{"BearerAuth": []}], "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/bookings/{id}/cancel": {"patch": {"tags": ["bookings"], "summary": "Cancel booking or some seats (staff)", "security": [{"BearerAuth": []}],
            "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}, {"in": "body", "name": "body", "schema": {"$ref": "#/definitions/models.CancelBookingRequest"}}],
            "responses": {"200": {"description": "OK"}, "409": {"description": "Already cancelled"}}}},
        "/bookings/{id}/ticket": {"get": {"tags": ["bookings"], "summary": "PDF e-ticket", "produces": ["application/pdf"], "security": [{"BearerAuth": []}], "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/dashboard/stats": {"get": {"tags": ["dashboard"], "summary": "Dashboard figures (staff)", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}}
    },
    "definitions": {
        "handlers.ErrorResponse": {"type": "object", "properties": {
            "error": {"type": "string"}, "message": {"type": "string"}, "code": {"type": "string"},
            "seats": {"type": "array", "items": {"type": "integer"}},
            "fields": {"type": "object", "additionalProperties": {"type": "string"}},
            "retryable": {"type": "boolean"}}},
        "models.RegisterRequest": {"type": "object", "required": ["name", "email", "password"], "properties": {
            "name": {"type": "string"}, "email": {"type": "string"}, "password": {"type": "string"}, "phone": {"type": "string"}}},
        "models.LoginRequest": {"type": "object", "required": ["email", "password"], "properties": {
            "email": {"type": "string"}, "password": {"type": "string"}}},
        "models.UpdateProfileRequest": {"type": "object", "properties": {
            "name": {"type": "string"}, "password": {"type": "string"}, "phone": {"type": "string"}}},
        "models.CreateScheduleRequest": {"type": "object", "required": ["bus_id", "route_id", "departure_time", "start_date", "end_date", "price"], "properties": {
            "bus_id": {"type": "integer"}, "route_id": {"type": "integer"}, "departure_time": {"type": "string", "example": "08:30"},
            "start_date": {"type": "string", "example": "2026-10-20"}, "end_date": {"type": "string", "example": "2026-10-31"}, "price": {"type": "number"}}},
        "models.ReservationRequest": {"type": "object", "required": ["reserved_seats"], "properties": {
            "reserved_seats": {"type": "array", "items": {"type": "integer"}}}},
        "models.CreateBookingRequest": {"type": "object", "required": ["schedule_id", "seat_numbers"], "properties": {
            "schedule_id": {"type": "integer"}, "seat_numbers": {"type": "array", "items": {"type": "integer"}}, "total_amount": {"type": "number"}}},
        "models.CancelBookingRequest": {"type": "object", "properties": {
            "seats_to_cancel": {"type": "array", "items": {"type": "integer"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Bus Booking API",
	Description:      "Seat booking, reservations and catalog management for scheduled bus departures.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
