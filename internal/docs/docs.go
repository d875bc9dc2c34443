// Package docs registra la definición OpenAPI que sirve /swagger/*.
// Se regenera con: swag init -g cmd/api/main.go -o internal/docs
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
        "/patients": {
            "post": {
                "tags": ["patients"],
                "summary": "Crear paciente",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Solo en modo dev, ID de usuario para depuración", "name": "X-Debug-User-ID", "in": "header"},
                    {"description": "Paciente", "name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/patients.createPatientRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/patients.Patient"}},
                    "400": {"description": "invalid input", "schema": {"type": "string"}},
                    "401": {"description": "unauthorized", "schema": {"type": "string"}}
                }
            }
        },
        "/patients/{patientID}": {
            "get": {
                "tags": ["patients"],
                "summary": "Obtener paciente",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "ID del paciente", "name": "patientID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/patients.Patient"}},
                    "404": {"description": "patient not found", "schema": {"type": "string"}}
                }
            }
        },
        "/patients/{patientID}/meal-times": {
            "put": {
                "tags": ["patients"],
                "summary": "Actualizar horarios de comida",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "ID del paciente", "name": "patientID", "in": "path", "required": true},
                    {"description": "breakfast/lunch/dinner en HH:MM", "name": "payload", "in": "body", "required": true, "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/patients.Patient"}},
                    "400": {"description": "invalid input", "schema": {"type": "string"}},
                    "404": {"description": "patient not found", "schema": {"type": "string"}}
                }
            }
        },
        "/patients/{patientID}/schedules": {
            "get": {
                "tags": ["schedules"],
                "summary": "Listar schedules del paciente",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "ID del paciente", "name": "patientID", "in": "path", "required": true},
                    {"type": "string", "description": "active|superseded|retired|all (default active)", "name": "status", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/schedules.Schedule"}}}
                }
            },
            "post": {
                "tags": ["schedules"],
                "summary": "Crear schedule",
                "description": "Valida la regla y guarda la versión activa. Si el medicamento ya tenía un schedule activo, ese queda superseded.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "ID del paciente", "name": "patientID", "in": "path", "required": true},
                    {"description": "Schedule", "name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/schedules.Schedule"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/schedules.Schedule"}},
                    "404": {"description": "patient not found", "schema": {"type": "string"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/validationResponse"}}
                }
            }
        },
        "/schedules/{scheduleID}": {
            "get": {
                "tags": ["schedules"],
                "summary": "Obtener schedule",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "ID del schedule", "name": "scheduleID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/schedules.Schedule"}},
                    "404": {"description": "not found", "schema": {"type": "string"}}
                }
            },
            "put": {
                "tags": ["schedules"],
                "summary": "Revisar schedule (nueva versión)",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "ID del schedule", "name": "scheduleID", "in": "path", "required": true},
                    {"description": "Schedule", "name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/schedules.Schedule"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/schedules.Schedule"}},
                    "404": {"description": "not found", "schema": {"type": "string"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/validationResponse"}}
                }
            }
        },
        "/schedules/{scheduleID}/retire": {
            "post": {
                "tags": ["schedules"],
                "summary": "Retirar schedule",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "ID del schedule", "name": "scheduleID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/schedules.Schedule"}},
                    "404": {"description": "not found", "schema": {"type": "string"}}
                }
            }
        },
        "/schedules/{scheduleID}/next": {
            "get": {
                "tags": ["schedules"],
                "summary": "Próxima ocurrencia",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "ID del schedule", "name": "scheduleID", "in": "path", "required": true},
                    {"type": "string", "description": "RFC3339, default ahora", "name": "from", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/schedules.Occurrence"}},
                    "404": {"description": "not found / no occurrence within horizon", "schema": {"type": "string"}}
                }
            }
        },
        "/schedules/{scheduleID}/occurrences": {
            "get": {
                "tags": ["schedules"],
                "summary": "Ocurrencias en una ventana",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "ID del schedule", "name": "scheduleID", "in": "path", "required": true},
                    {"type": "string", "description": "RFC3339, default ahora", "name": "from", "in": "query"},
                    {"type": "integer", "description": "1-90, default 7", "name": "days", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/schedules.Occurrence"}}}
                }
            }
        },
        "/schedules/{scheduleID}/sliding-scale": {
            "post": {
                "tags": ["schedules"],
                "summary": "Dosis para una medición (sliding_scale)",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "ID del schedule", "name": "scheduleID", "in": "path", "required": true},
                    {"description": "Medición", "name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"measurement": {"type": "number"}}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "400": {"description": "schedule is not sliding_scale", "schema": {"type": "string"}}
                }
            }
        },
        "/schedules/{scheduleID}/prn-check": {
            "get": {
                "tags": ["administrations"],
                "summary": "Chequear techos prn",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "ID del schedule", "name": "scheduleID", "in": "path", "required": true},
                    {"type": "string", "description": "RFC3339, default ahora", "name": "at", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/schedules.AsNeededDecision"}},
                    "400": {"description": "schedule is not prn", "schema": {"type": "string"}}
                }
            }
        },
        "/patients/{patientID}/administrations": {
            "get": {
                "tags": ["administrations"],
                "summary": "Listar administraciones",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "ID del paciente", "name": "patientID", "in": "path", "required": true},
                    {"type": "string", "description": "Filtra por schedule", "name": "schedule_id", "in": "query"},
                    {"type": "string", "description": "RFC3339", "name": "from", "in": "query"},
                    {"type": "string", "description": "RFC3339", "name": "to", "in": "query"},
                    {"type": "boolean", "description": "Incluir anuladas", "name": "include_voided", "in": "query"},
                    {"type": "integer", "description": "Máximo de resultados", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"type": "object"}}}
                }
            },
            "post": {
                "tags": ["administrations"],
                "summary": "Registrar administración",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "ID del paciente", "name": "patientID", "in": "path", "required": true},
                    {"description": "Administración", "name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"type": "object"}},
                    "409": {"description": "prn ceiling exceeded", "schema": {"type": "object"}}
                }
            }
        },
        "/administrations/{administrationID}/void": {
            "post": {
                "tags": ["administrations"],
                "summary": "Anular administración",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "ID de la administración", "name": "administrationID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "404": {"description": "not found", "schema": {"type": "string"}}
                }
            }
        },
        "/patients/{patientID}/conflict-checks": {
            "post": {
                "tags": ["conflicts"],
                "summary": "Chequear conflictos de un schedule candidato",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "ID del paciente", "name": "patientID", "in": "path", "required": true},
                    {"description": "Schedule candidato y ventana", "name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/conflicts.checkRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/conflicts.CheckResult"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/validationResponse"}}
                }
            }
        },
        "/resolutions/{resolutionID}": {
            "get": {
                "tags": ["conflicts"],
                "summary": "Obtener resolución",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "ID de la resolución", "name": "resolutionID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "404": {"description": "resolution not found", "schema": {"type": "string"}}
                }
            }
        },
        "/resolutions/{resolutionID}/adjust": {
            "post": {
                "tags": ["conflicts"],
                "summary": "Resolver aplicando una sugerencia",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "ID de la resolución", "name": "resolutionID", "in": "path", "required": true},
                    {"description": "Sugerencia elegida", "name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"finding": {"type": "integer"}, "rank": {"type": "integer"}}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "400": {"description": "missing selection", "schema": {"type": "string"}},
                    "409": {"description": "invalid transition", "schema": {"type": "string"}}
                }
            }
        },
        "/resolutions/{resolutionID}/override": {
            "post": {
                "tags": ["conflicts"],
                "summary": "Aceptar el candidato a pesar de los conflictos",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "ID de la resolución", "name": "resolutionID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "409": {"description": "invalid transition", "schema": {"type": "string"}}
                }
            }
        },
        "/resolutions/{resolutionID}/cancel": {
            "post": {
                "tags": ["conflicts"],
                "summary": "Descartar el candidato",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "ID de la resolución", "name": "resolutionID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "409": {"description": "invalid transition", "schema": {"type": "string"}}
                }
            }
        }
    },
    "definitions": {
        "patients.createPatientRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "timezone": {"type": "string", "example": "America/Lima"},
                "meal_times": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "patients.Patient": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "timezone": {"type": "string"},
                "meal_times": {"type": "object", "additionalProperties": {"type": "string"}},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "schedules.Schedule": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "medication_id": {"type": "string"},
                "patient_id": {"type": "string"},
                "version": {"type": "integer"},
                "status": {"type": "string", "enum": ["active", "superseded", "retired"]},
                "type": {"type": "string", "enum": ["fixed_time", "interval", "prn", "cyclic", "tapered", "meal_based", "sliding_scale"]},
                "start_date": {"type": "string"},
                "end_date": {"type": "string"},
                "timezone": {"type": "string"},
                "rule": {"type": "object"}
            }
        },
        "schedules.Occurrence": {
            "type": "object",
            "properties": {
                "schedule_id": {"type": "string"},
                "medication_id": {"type": "string"},
                "scheduled_at": {"type": "string"},
                "dose": {"type": "object", "properties": {"amount": {"type": "number"}, "unit": {"type": "string"}}}
            }
        },
        "schedules.AsNeededDecision": {
            "type": "object",
            "properties": {
                "allowed": {"type": "boolean"},
                "violations": {"type": "array", "items": {"type": "string"}},
                "taken_last_24h": {"type": "number"},
                "next_allowed_at": {"type": "string"}
            }
        },
        "conflicts.checkRequest": {
            "type": "object",
            "properties": {
                "candidate": {"$ref": "#/definitions/schedules.Schedule"},
                "from": {"type": "string"}
            }
        },
        "conflicts.CheckResult": {
            "type": "object",
            "properties": {
                "resolution_id": {"type": "string"},
                "conflicts": {"type": "array", "items": {"type": "object"}},
                "warnings": {"type": "array", "items": {"type": "object"}}
            }
        },
        "validationResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "fields": {"type": "array", "items": {"type": "object", "properties": {"field": {"type": "string"}, "message": {"type": "string"}}}}
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
	Title:            "Medication Schedule API",
	Description:      "Horarios de medicación, detección de conflictos y resolución asistida.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
