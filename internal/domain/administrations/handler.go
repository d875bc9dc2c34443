package administrations

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"medication-schedule/internal/domain/schedules"
	"medication-schedule/internal/middleware"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Post("/patients/{patientID}/administrations", createAdministrationHandler(svc))
	r.Get("/patients/{patientID}/administrations", listAdministrationsHandler(svc))
	r.Post("/administrations/{administrationID}/void", voidAdministrationHandler(svc))
	r.Get("/schedules/{scheduleID}/prn-check", prnCheckHandler(svc))
}

type createAdministrationRequest struct {
	ScheduleID     string          `json:"schedule_id"`
	AdministeredAt string          `json:"administered_at"` // RFC3339, opcional (default ahora)
	Dose           *schedules.Dose `json:"dose,omitempty"`
	Reading        *float64        `json:"reading,omitempty"`
	Notes          string          `json:"notes"`
	ActorType      ActorType       `json:"actor_type,omitempty" enums:"CLINICIAN,CAREGIVER,EXTERNAL_SYSTEM"`
	Source         Source          `json:"source,omitempty"`
	Force          bool            `json:"force"`
}

type administrationResponse struct {
	ID             string         `json:"id"`
	PatientID      string         `json:"patient_id"`
	ScheduleID     string         `json:"schedule_id"`
	MedicationID   string         `json:"medication_id"`
	AdministeredAt time.Time      `json:"administered_at"`
	RecordedAt     time.Time      `json:"recorded_at"`
	Dose           schedules.Dose `json:"dose"`
	Reading        *float64       `json:"reading,omitempty"`
	Notes          string         `json:"notes"`
	ActorType      ActorType      `json:"actor_type"`
	ActorID        string         `json:"actor_id"`
	Source         Source         `json:"source"`
	Status         Status         `json:"status"`
}

type ceilingResponse struct {
	Error    string                     `json:"error"`
	Decision schedules.AsNeededDecision `json:"decision"`
}

// createAdministrationHandler godoc
// @Summary Registrar administración
// @Description Registra una dosis dada. Sin dose explícita se usa la de la regla (sliding_scale requiere reading). Las dosis prn se rechazan con 409 si superan un techo, salvo force=true.
// @Tags administrations
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param patientID path string true "ID del paciente"
// @Param payload body createAdministrationRequest true "Datos de la administración"
// @Success 201 {object} administrationResponse
// @Failure 400 {string} string "invalid json / administered_at inválido / reglas de negocio"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "schedule not found"
// @Failure 409 {object} ceilingResponse
// @Router /patients/{patientID}/administrations [post]
func createAdministrationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.PatientClaims(w, r, chi.URLParam(r, "patientID"))
		if !ok {
			return
		}

		var req createAdministrationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		var at time.Time
		if strings.TrimSpace(req.AdministeredAt) != "" {
			t, err := time.Parse(time.RFC3339, req.AdministeredAt)
			if err != nil {
				http.Error(w, "administered_at must be RFC3339", http.StatusBadRequest)
				return
			}
			at = t
		}

		actorType := req.ActorType
		if actorType == "" && claims.Role != "" {
			actorType = ActorType(claims.Role)
		}
		if actorType == "" {
			actorType = ActorTypeClinician
		}

		a, err := svc.Create(r.Context(), chi.URLParam(r, "patientID"), Actor{Type: actorType, ID: claims.UserID}, CreateInput{
			ScheduleID:     req.ScheduleID,
			AdministeredAt: at,
			Dose:           req.Dose,
			Reading:        req.Reading,
			Notes:          req.Notes,
			Source:         req.Source,
			Force:          req.Force,
		})
		if err != nil {
			var ce *CeilingError
			switch {
			case errors.As(err, &ce):
				writeJSON(w, http.StatusConflict, ceilingResponse{Error: err.Error(), Decision: ce.Decision})
			case errors.Is(err, schedules.ErrNotFound):
				http.Error(w, "schedule not found", http.StatusNotFound)
			default:
				http.Error(w, err.Error(), http.StatusBadRequest)
			}
			return
		}

		writeJSON(w, http.StatusCreated, toAdministrationResponse(a))
	}
}

// listAdministrationsHandler godoc
// @Summary Listar administraciones
// @Tags administrations
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param patientID path string true "ID del paciente"
// @Param schedule_id query string false "Filtrar por schedule"
// @Param from query string false "administered_at mínimo (RFC3339)"
// @Param to query string false "administered_at máximo (RFC3339)"
// @Param include_voided query bool false "Incluir anuladas"
// @Param limit query int false "Máximo a devolver (1-200). Por defecto 50"
// @Success 200 {array} administrationResponse
// @Failure 400 {string} string "Parámetros de filtro inválidos"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /patients/{patientID}/administrations [get]
func listAdministrationsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.PatientClaims(w, r, chi.URLParam(r, "patientID")); !ok {
			return
		}

		filter, err := parseListFilter(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		items, err := svc.ListByPatient(r.Context(), chi.URLParam(r, "patientID"), filter)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]administrationResponse, 0, len(items))
		for _, a := range items {
			out = append(out, toAdministrationResponse(a))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// voidAdministrationHandler godoc
// @Summary Anular administración
// @Description La administración queda con status voided y deja de contar para los techos prn.
// @Tags administrations
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param administrationID path string true "ID de la administración"
// @Success 200 {object} administrationResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "administration not found"
// @Router /administrations/{administrationID}/void [post]
func voidAdministrationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.GetClaims(r.Context()); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		a, err := svc.Void(r.Context(), chi.URLParam(r, "administrationID"))
		if err != nil {
			http.Error(w, "administration not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, toAdministrationResponse(a))
	}
}

// prnCheckHandler godoc
// @Summary Chequear techo prn
// @Description Indica si una dosis prn en `at` respeta min_hours_between y max_daily_dose (24h móviles).
// @Tags administrations
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param scheduleID path string true "ID del schedule prn"
// @Param at query string false "Instante propuesto (RFC3339). Por defecto ahora"
// @Success 200 {object} schedules.AsNeededDecision
// @Failure 400 {string} string "at inválido / schedule no es prn"
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "schedule not found"
// @Router /schedules/{scheduleID}/prn-check [get]
func prnCheckHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.GetClaims(r.Context()); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var at time.Time
		if v := strings.TrimSpace(r.URL.Query().Get("at")); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				http.Error(w, "at must be RFC3339", http.StatusBadRequest)
				return
			}
			at = t
		}

		d, err := svc.CheckAsNeeded(r.Context(), chi.URLParam(r, "scheduleID"), at)
		switch {
		case errors.Is(err, schedules.ErrNotFound):
			http.Error(w, "schedule not found", http.StatusNotFound)
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func parseListFilter(r *http.Request) (ListFilter, error) {
	q := r.URL.Query()
	f := ListFilter{
		ScheduleID: strings.TrimSpace(q.Get("schedule_id")),
		Limit:      50,
	}

	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			return ListFilter{}, errors.New("limit must be between 1 and 200")
		}
		f.Limit = n
	}
	if v := strings.TrimSpace(q.Get("include_voided")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return ListFilter{}, errors.New("include_voided must be a boolean")
		}
		f.IncludeVoided = b
	}
	for key, dst := range map[string]**time.Time{"from": &f.From, "to": &f.To} {
		v := strings.TrimSpace(q.Get(key))
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return ListFilter{}, errors.New(key + " must be RFC3339")
		}
		*dst = &t
	}
	return f, nil
}

func toAdministrationResponse(a Administration) administrationResponse {
	return administrationResponse{
		ID:             a.ID,
		PatientID:      a.PatientID,
		ScheduleID:     a.ScheduleID,
		MedicationID:   a.MedicationID,
		AdministeredAt: a.AdministeredAt,
		RecordedAt:     a.RecordedAt,
		Dose:           a.Dose,
		Reading:        a.Reading,
		Notes:          a.Notes,
		ActorType:      a.Actor.Type,
		ActorID:        a.Actor.ID,
		Source:         a.Source,
		Status:         a.Status,
	}
}

// writeJSON está duplicado en los handlers de cada módulo.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
