package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Havenbridge Booking API",
        "description": "Availability resolution and appointment booking for agency staff",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Availability", "description": "Slot resolution and weekly rules"},
        {"name": "Bookings", "description": "Public booking submission"},
        {"name": "Appointments", "description": "Appointment lifecycle and exports"},
        {"name": "AppointmentTypes", "description": "Bookable appointment offerings"},
        {"name": "Auth", "description": "Staff authentication"}
    ],
    "paths": {
        "/availability": {
            "get": {
                "tags": ["Availability"],
                "summary": "Resolve available slots",
                "parameters": [
                    {"name": "staff_id", "in": "query", "type": "string", "required": true},
                    {"name": "appointment_type_id", "in": "query", "type": "string", "required": true},
                    {"name": "date_from", "in": "query", "type": "string", "required": true},
                    {"name": "date_to", "in": "query", "type": "string"},
                    {"name": "timezone", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Bookable slots ordered by start time", "schema": {"$ref": "#/definitions/Envelope"}},
                    "404": {"description": "Unknown staff or appointment type"},
                    "422": {"description": "Invalid query"}
                }
            }
        },
        "/bookings": {
            "post": {
                "tags": ["Bookings"],
                "summary": "Submit a booking",
                "parameters": [
                    {"name": "Idempotency-Key", "in": "header", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "Replayed from an earlier submission"},
                    "201": {"description": "Appointment created"},
                    "409": {"description": "Slot no longer available"},
                    "422": {"description": "Invalid payload"},
                    "429": {"description": "Rate limited"}
                }
            }
        },
        "/appointments": {
            "get": {
                "tags": ["Appointments"],
                "summary": "List appointments",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Appointments", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/appointments/{id}": {
            "get": {
                "tags": ["Appointments"],
                "summary": "Get appointment",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "Appointment"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/appointments/{id}/approve": {
            "post": {
                "tags": ["Appointments"],
                "summary": "Approve a pending appointment",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "Confirmed appointment"},
                    "409": {"description": "Invalid transition"}
                }
            }
        },
        "/appointments/{id}/decline": {
            "post": {
                "tags": ["Appointments"],
                "summary": "Decline a pending appointment",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "Cancelled appointment"},
                    "409": {"description": "Invalid transition"}
                }
            }
        },
        "/appointments/{id}/cancel": {
            "post": {
                "tags": ["Appointments"],
                "summary": "Cancel an appointment",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "Cancelled appointment"},
                    "409": {"description": "Invalid transition"}
                }
            }
        },
        "/appointments/{id}/complete": {
            "post": {
                "tags": ["Appointments"],
                "summary": "Mark an appointment as held",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "Completed appointment"},
                    "409": {"description": "Invalid transition"}
                }
            }
        },
        "/appointments/{id}/no-show": {
            "post": {
                "tags": ["Appointments"],
                "summary": "Record a client no-show",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "Updated appointment"},
                    "409": {"description": "Invalid transition"}
                }
            }
        },
        "/appointments/{id}/calendar.ics": {
            "get": {
                "tags": ["Appointments"],
                "summary": "Download an appointment as iCalendar",
                "produces": ["text/calendar"],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "iCalendar document"},
                    "404": {"description": "Not found or not exportable"}
                }
            }
        },
        "/appointments/export": {
            "get": {
                "tags": ["Appointments"],
                "summary": "Export a staff day sheet",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "date", "in": "query", "type": "string", "required": true},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Rendered file"},
                    "422": {"description": "Invalid parameters"}
                }
            }
        },
        "/availability-rules": {
            "get": {
                "tags": ["Availability"],
                "summary": "List weekly availability rules",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Rules"}
                }
            },
            "put": {
                "tags": ["Availability"],
                "summary": "Replace the weekly availability rule set",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {
                    "200": {"description": "Replaced rules"},
                    "422": {"description": "Invalid rule set"}
                }
            }
        },
        "/appointment-types": {
            "get": {
                "tags": ["AppointmentTypes"],
                "summary": "List appointment types",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Appointment types"}
                }
            },
            "post": {
                "tags": ["AppointmentTypes"],
                "summary": "Create appointment type",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {
                    "201": {"description": "Created"},
                    "422": {"description": "Invalid payload"}
                }
            }
        },
        "/appointment-types/{id}": {
            "get": {
                "tags": ["AppointmentTypes"],
                "summary": "Get appointment type",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "Appointment type"},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["AppointmentTypes"],
                "summary": "Update appointment type",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "Updated"},
                    "404": {"description": "Not found"}
                }
            },
            "delete": {
                "tags": ["AppointmentTypes"],
                "summary": "Deactivate appointment type",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {
                    "204": {"description": "Deactivated"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate a staff member",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {
                    "200": {"description": "Token pair"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate a refresh token",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {
                    "200": {"description": "Token pair"},
                    "401": {"description": "Expired or revoked"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Auth"],
                "summary": "Revoke the caller's refresh token",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "Revoked"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Return the authenticated staff profile",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Staff profile"}
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
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
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "Envelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
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
