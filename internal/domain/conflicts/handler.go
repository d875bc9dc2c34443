package conflicts

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"medication-schedule/internal/domain/schedules"
	"medication-schedule/internal/middleware"
	"medication-schedule/internal/ports/auth"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Post("/patients/{patientID}/conflict-checks", checkHandler(svc))
	r.Get("/resolutions/{resolutionID}", getResolutionHandler(svc))
	r.Post("/resolutions/{resolutionID}/adjust", adjustHandler(svc))
	r.Post("/resolutions/{resolutionID}/override", overrideHandler(svc))
	r.Post("/resolutions/{resolutionID}/cancel", cancelHandler(svc))
}

type checkRequest struct {
	Candidate schedules.Schedule `json:"candidate"`
	From      string             `json:"from,omitempty"` // RFC3339, default ahora
}

// adjustRequest elige la sugerencia: finding es el índice del conflicto en
// la respuesta del chequeo y rank la posición de la sugerencia.
type adjustRequest struct {
	Finding *int `json:"finding"`
	Rank    *int `json:"rank"`
}

type errorResponse struct {
	Error  string                     `json:"error"`
	Fields schedules.ValidationErrors `json:"fields,omitempty"`
}

// checkHandler godoc
// @Summary Chequear conflictos de un schedule candidato
// @Description Compara el candidato contra los schedules activos del paciente (overlap, too_close, interaction) y propone hasta 3 ajustes por conflicto de horario. Si hay conflictos queda una resolución pending (resolution_id). Sin conflictos el candidato se crea directo con POST /patients/{patientID}/schedules.
// @Tags conflicts
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param patientID path string true "ID del paciente"
// @Param payload body checkRequest true "Schedule candidato y ventana"
// @Success 200 {object} CheckResult
// @Failure 400 {string} string "invalid json / from inválido"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "patient not found"
// @Failure 422 {object} errorResponse
// @Router /patients/{patientID}/conflict-checks [post]
func checkHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.PatientClaims(w, r, chi.URLParam(r, "patientID"))
		if !ok {
			return
		}

		var req checkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
			return
		}
		var from time.Time
		if strings.TrimSpace(req.From) != "" {
			t, err := time.Parse(time.RFC3339, req.From)
			if err != nil {
				http.Error(w, "from must be RFC3339", http.StatusBadRequest)
				return
			}
			from = t
		}

		res, err := svc.Check(r.Context(), CheckInput{
			PatientID: chi.URLParam(r, "patientID"),
			Candidate: req.Candidate,
			From:      from,
			ActorID:   claims.UserID,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// getResolutionHandler godoc
// @Summary Obtener resolución
// @Tags conflicts
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param resolutionID path string true "ID de la resolución"
// @Success 200 {object} Resolution
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "resolution not found"
// @Router /resolutions/{resolutionID} [get]
func getResolutionHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := resolutionClaims(w, r, svc); !ok {
			return
		}

		res, err := svc.GetByID(r.Context(), chi.URLParam(r, "resolutionID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// adjustHandler godoc
// @Summary Resolver aplicando una sugerencia
// @Description pending -> adjusted. Aplica la sugerencia elegida, revalida y guarda el schedule ajustado como versión activa.
// @Tags conflicts
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param resolutionID path string true "ID de la resolución"
// @Param payload body adjustRequest true "Sugerencia elegida (finding + rank)"
// @Success 200 {object} Resolution
// @Failure 400 {string} string "invalid json / missing selection"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "resolution not found"
// @Failure 409 {string} string "invalid transition"
// @Failure 422 {object} errorResponse
// @Router /resolutions/{resolutionID}/adjust [post]
func adjustHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := resolutionClaims(w, r, svc)
		if !ok {
			return
		}

		var req adjustRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
		}
		var sel *Selection
		if req.Finding != nil && req.Rank != nil {
			sel = &Selection{Finding: *req.Finding, Rank: *req.Rank}
		}

		res, err := svc.Adjust(r.Context(), chi.URLParam(r, "resolutionID"), sel, claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// overrideHandler godoc
// @Summary Aceptar el candidato a pesar de los conflictos
// @Description pending -> overridden. Queda registrado en auditoría y el candidato original se guarda como versión activa.
// @Tags conflicts
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param resolutionID path string true "ID de la resolución"
// @Success 200 {object} Resolution
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "resolution not found"
// @Failure 409 {string} string "invalid transition"
// @Router /resolutions/{resolutionID}/override [post]
func overrideHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := resolutionClaims(w, r, svc)
		if !ok {
			return
		}

		res, err := svc.Override(r.Context(), chi.URLParam(r, "resolutionID"), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// cancelHandler godoc
// @Summary Descartar el candidato
// @Description pending -> cancelled.
// @Tags conflicts
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param resolutionID path string true "ID de la resolución"
// @Success 200 {object} Resolution
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "resolution not found"
// @Failure 409 {string} string "invalid transition"
// @Router /resolutions/{resolutionID}/cancel [post]
func cancelHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := resolutionClaims(w, r, svc)
		if !ok {
			return
		}

		res, err := svc.Cancel(r.Context(), chi.URLParam(r, "resolutionID"), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// resolutionClaims aplica a /resolutions/{resolutionID} el alcance por
// paciente de las rutas /patients/{patientID}.
func resolutionClaims(w http.ResponseWriter, r *http.Request, svc *Service) (auth.Claims, bool) {
	if c, ok := middleware.GetClaims(r.Context()); !ok || strings.TrimSpace(c.UserID) == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return auth.Claims{}, false
	}
	res, err := svc.GetByID(r.Context(), chi.URLParam(r, "resolutionID"))
	if err != nil {
		writeError(w, err)
		return auth.Claims{}, false
	}
	return middleware.PatientClaims(w, r, res.PatientID)
}

func writeError(w http.ResponseWriter, err error) {
	var verrs schedules.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Fields: verrs})
	case errors.Is(err, ErrNotFound), errors.Is(err, schedules.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrMissingSelection), errors.Is(err, ErrSuggestionMismatch), errors.Is(err, ErrInvalidInput):
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
