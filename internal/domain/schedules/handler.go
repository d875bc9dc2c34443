package schedules

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"medication-schedule/internal/middleware"
)

// Las rutas se registran planas: /schedules/{scheduleID}/... también lo usa
// el módulo de administraciones.
func RegisterRoutes(r chi.Router, svc *Service) {
	r.Post("/patients/{patientID}/schedules", createScheduleHandler(svc))
	r.Get("/patients/{patientID}/schedules", listSchedulesHandler(svc))

	r.Get("/schedules/{scheduleID}", getScheduleHandler(svc))
	r.Put("/schedules/{scheduleID}", reviseScheduleHandler(svc))
	r.Post("/schedules/{scheduleID}/retire", retireScheduleHandler(svc))
	r.Get("/schedules/{scheduleID}/next", nextOccurrenceHandler(svc))
	r.Get("/schedules/{scheduleID}/occurrences", listOccurrencesHandler(svc))
	r.Post("/schedules/{scheduleID}/sliding-scale", slidingScaleHandler(svc))
}

type validationResponse struct {
	Error  string           `json:"error"`
	Fields ValidationErrors `json:"fields"`
}

type slidingScaleRequest struct {
	Measurement *float64 `json:"measurement"`
}

type slidingScaleResponse struct {
	Measurement float64 `json:"measurement"`
	Matched     bool    `json:"matched"`
	Dose        *Dose   `json:"dose,omitempty"`
}

// createScheduleHandler godoc
// @Summary Crear schedule
// @Description Registra el schedule como versión activa del medicamento; la versión anterior queda superseded. No chequea conflictos (ver /conflict-checks). Si timezone viene vacío se usa el del paciente.
// @Tags schedules
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param patientID path string true "ID del paciente"
// @Param payload body Schedule true "type + rule según el tipo (fixed_time, interval, prn, cyclic, tapered, meal_based, sliding_scale)"
// @Success 201 {object} Schedule
// @Failure 400 {string} string "invalid json"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "patient not found"
// @Failure 422 {object} validationResponse
// @Router /patients/{patientID}/schedules [post]
func createScheduleHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.PatientClaims(w, r, chi.URLParam(r, "patientID")); !ok {
			return
		}

		var draft Schedule
		if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
			http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
			return
		}
		draft.PatientID = chi.URLParam(r, "patientID")

		sc, err := svc.Create(r.Context(), draft)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sc)
	}
}

// listSchedulesHandler godoc
// @Summary Listar schedules del paciente
// @Tags schedules
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param patientID path string true "ID del paciente"
// @Param status query string false "active | superseded | retired. Por defecto active"
// @Param medication_id query string false "Filtrar por medicamento"
// @Success 200 {array} Schedule
// @Failure 400 {string} string "status inválido"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /patients/{patientID}/schedules [get]
func listSchedulesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.PatientClaims(w, r, chi.URLParam(r, "patientID")); !ok {
			return
		}

		q := r.URL.Query()
		status := Status(strings.TrimSpace(q.Get("status")))
		switch status {
		case "":
			status = StatusActive
		case StatusActive, StatusSuperseded, StatusRetired:
		case "all":
			status = ""
		default:
			http.Error(w, "status must be active, superseded, retired or all", http.StatusBadRequest)
			return
		}

		items, err := svc.List(r.Context(), chi.URLParam(r, "patientID"), ListFilter{
			Status:       status,
			MedicationID: strings.TrimSpace(q.Get("medication_id")),
		})
		if err != nil {
			writeError(w, err)
			return
		}
		if items == nil {
			items = []Schedule{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

// getScheduleHandler godoc
// @Summary Obtener schedule
// @Tags schedules
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param scheduleID path string true "ID del schedule"
// @Success 200 {object} Schedule
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "schedule not found"
// @Router /schedules/{scheduleID} [get]
func getScheduleHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.GetClaims(r.Context()); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		sc, err := svc.GetByID(r.Context(), chi.URLParam(r, "scheduleID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sc)
	}
}

// reviseScheduleHandler godoc
// @Summary Revisar schedule
// @Description Crea una versión nueva con la regla/ventana enviada. Paciente y medicamento se heredan.
// @Tags schedules
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param scheduleID path string true "ID del schedule a revisar"
// @Param payload body Schedule true "Nueva definición"
// @Success 201 {object} Schedule
// @Failure 400 {string} string "invalid json"
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "schedule not found"
// @Failure 422 {object} validationResponse
// @Router /schedules/{scheduleID} [put]
func reviseScheduleHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.GetClaims(r.Context()); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var draft Schedule
		if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
			http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
			return
		}

		sc, err := svc.Revise(r.Context(), chi.URLParam(r, "scheduleID"), draft)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sc)
	}
}

// retireScheduleHandler godoc
// @Summary Discontinuar schedule
// @Description Marca el schedule como retired y cierra su end_date en el instante actual. Idempotente.
// @Tags schedules
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param scheduleID path string true "ID del schedule"
// @Success 200 {object} Schedule
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "schedule not found"
// @Router /schedules/{scheduleID}/retire [post]
func retireScheduleHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.GetClaims(r.Context()); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		sc, err := svc.Retire(r.Context(), chi.URLParam(r, "scheduleID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sc)
	}
}

// nextOccurrenceHandler godoc
// @Summary Próxima dosis
// @Description Primera ocurrencia >= from dentro de 31 días.
// @Tags schedules
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param scheduleID path string true "ID del schedule"
// @Param from query string false "Instante de partida (RFC3339). Por defecto ahora"
// @Success 200 {object} Occurrence
// @Failure 400 {string} string "from inválido"
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "schedule not found / sin ocurrencia en el horizonte"
// @Router /schedules/{scheduleID}/next [get]
func nextOccurrenceHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.GetClaims(r.Context()); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		from, err := parseTimeParam(r, "from")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		o, err := svc.Next(r.Context(), chi.URLParam(r, "scheduleID"), from)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	}
}

// listOccurrencesHandler godoc
// @Summary Próximas dosis
// @Description Ocurrencias en [from, from + days días locales), en orden ascendente.
// @Tags schedules
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param scheduleID path string true "ID del schedule"
// @Param from query string false "Instante de partida (RFC3339). Por defecto ahora"
// @Param days query int false "Ventana en días (1-90). Por defecto 7"
// @Success 200 {array} Occurrence
// @Failure 400 {string} string "from/days inválidos"
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "schedule not found"
// @Router /schedules/{scheduleID}/occurrences [get]
func listOccurrencesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.GetClaims(r.Context()); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		from, err := parseTimeParam(r, "from")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		days := 7
		if v := strings.TrimSpace(r.URL.Query().Get("days")); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > 90 {
				http.Error(w, "days must be between 1 and 90", http.StatusBadRequest)
				return
			}
			days = n
		}

		items, err := svc.Occurrences(r.Context(), chi.URLParam(r, "scheduleID"), from, days)
		if err != nil {
			writeError(w, err)
			return
		}
		if items == nil {
			items = []Occurrence{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

// slidingScaleHandler godoc
// @Summary Dosis por medición
// @Description Traduce una medición (p.ej. glucemia) a la dosis del sliding scale: el umbral más alto <= medición; en empate gana el último declarado.
// @Tags schedules
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param scheduleID path string true "ID del schedule sliding_scale"
// @Param payload body slidingScaleRequest true "Medición"
// @Success 200 {object} slidingScaleResponse
// @Failure 400 {string} string "invalid json / schedule no es sliding_scale"
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "schedule not found"
// @Router /schedules/{scheduleID}/sliding-scale [post]
func slidingScaleHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.GetClaims(r.Context()); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req slidingScaleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Measurement == nil {
			http.Error(w, "invalid json: measurement required", http.StatusBadRequest)
			return
		}

		d, ok, err := svc.DoseForReading(r.Context(), chi.URLParam(r, "scheduleID"), *req.Measurement)
		if err != nil {
			writeError(w, err)
			return
		}
		out := slidingScaleResponse{Measurement: *req.Measurement, Matched: ok}
		if ok {
			out.Dose = &d
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func parseTimeParam(r *http.Request, key string) (time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, errors.New(key + " must be RFC3339")
	}
	return t, nil
}

// writeError traduce errores del dominio a status HTTP.
func writeError(w http.ResponseWriter, err error) {
	var verrs ValidationErrors
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Error: "validation failed", Fields: verrs})
	case errors.Is(err, ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, ErrNoOccurrenceWithinHorizon):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrNotSlidingScale):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// writeJSON está duplicado en los handlers de cada módulo.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
