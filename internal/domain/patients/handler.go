package patients

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"medication-schedule/internal/domain/schedules"
	"medication-schedule/internal/middleware"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Post("/patients", createPatientHandler(svc))
	r.Get("/patients/{patientID}", getPatientHandler(svc))
	r.Put("/patients/{patientID}/meal-times", updateMealTimesHandler(svc))
}

type createPatientRequest struct {
	Name      string              `json:"name"`
	Timezone  string              `json:"timezone"`
	MealTimes schedules.MealTimes `json:"meal_times,omitempty"`
}

type patientResponse struct {
	ID              string              `json:"id"`
	CreatedByUserID string              `json:"created_by_user_id"`
	Name            string              `json:"name"`
	Timezone        string              `json:"timezone"`
	MealTimes       schedules.MealTimes `json:"meal_times"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// @Summary Crear paciente
// @Description Registra un paciente con su zona horaria (IANA) y horarios de comida. Las comidas omitidas usan 08:00/12:00/18:00.
// @Tags patients
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param payload body createPatientRequest true "Datos del paciente"
// @Success 201 {object} patientResponse
// @Failure 400 {string} string "invalid json / timezone o comidas inválidas"
// @Failure 401 {string} string "unauthorized"
// @Router /patients [post]
func createPatientHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createPatientRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		p, err := svc.Create(r.Context(), claims.UserID, CreateInput{
			Name:      req.Name,
			Timezone:  req.Timezone,
			MealTimes: req.MealTimes,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		writeJSON(w, http.StatusCreated, toPatientResponse(p))
	}
}

// @Summary Obtener paciente
// @Tags patients
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param patientID path string true "ID del paciente"
// @Success 200 {object} patientResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "patient not found"
// @Router /patients/{patientID} [get]
func getPatientHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.PatientClaims(w, r, chi.URLParam(r, "patientID")); !ok {
			return
		}

		p, err := svc.GetByID(r.Context(), chi.URLParam(r, "patientID"))
		if err != nil {
			http.Error(w, "patient not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, toPatientResponse(p))
	}
}

// @Summary Actualizar horarios de comida
// @Description Reemplaza los horarios de comida del paciente. Afecta a todos sus schedules meal_based.
// @Tags patients
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param patientID path string true "ID del paciente"
// @Param payload body schedules.MealTimes true "Ej: {\"breakfast\":\"07:30\",\"dinner\":\"20:00\"}"
// @Success 200 {object} patientResponse
// @Failure 400 {string} string "invalid json / comidas inválidas"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "patient not found"
// @Router /patients/{patientID}/meal-times [put]
func updateMealTimesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.PatientClaims(w, r, chi.URLParam(r, "patientID")); !ok {
			return
		}

		var meals schedules.MealTimes
		if err := json.NewDecoder(r.Body).Decode(&meals); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		p, err := svc.UpdateMealTimes(r.Context(), chi.URLParam(r, "patientID"), meals)
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, "patient not found", http.StatusNotFound)
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, toPatientResponse(p))
	}
}

func toPatientResponse(p Patient) patientResponse {
	return patientResponse{
		ID:              p.ID,
		CreatedByUserID: p.CreatedByUserID,
		Name:            p.Name,
		Timezone:        p.Timezone,
		MealTimes:       p.MealTimes,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

// writeJSON está duplicado en los handlers de cada módulo.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
