package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"medication-schedule/internal/platform/metrics"
	"medication-schedule/internal/router"
)

const nurse = "nurse-1"

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(router.NewRouter(router.Options{
		AuthVerifier: nil,
		Metrics:      metrics.New(),
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestHTTP_EndToEnd_ConflictCheckAndAdjust(t *testing.T) {
	ts := newServer(t)

	// 1) Paciente en UTC con comidas por defecto
	patientID := createPatient(t, ts.URL, map[string]any{"name": "Ana", "timezone": "UTC"})

	// 2) Schedule existente: warfarina 08:00 diario
	{
		st, body := doReq(t, ts.URL, "POST", "/patients/"+patientID+"/schedules", nurse, fixedTime("warfarin", "08:00"))
		if st != http.StatusCreated {
			t.Fatalf("expected 201 create schedule, got %d body=%s", st, string(body))
		}
	}

	// 3) Candidato aspirina 08:05 => too_close con sugerencias
	var check struct {
		ResolutionID string `json:"resolution_id"`
		Conflicts    []struct {
			Type        string `json:"type"`
			Severity    string `json:"severity"`
			GapMinutes  int    `json:"gap_minutes"`
			Suggestions []struct {
				Type      string `json:"type"`
				Rank      int    `json:"rank"`
				Suggested struct {
					Time string `json:"time"`
				} `json:"suggested"`
				ShiftMinutes int `json:"shift_minutes"`
			} `json:"suggestions"`
		} `json:"conflicts"`
	}
	{
		st, body := doReq(t, ts.URL, "POST", "/patients/"+patientID+"/conflict-checks", nurse, map[string]any{
			"candidate": fixedTime("aspirin", "08:05"),
			"from":      "2025-03-03T00:00:00Z",
		})
		if st != http.StatusOK {
			t.Fatalf("expected 200 conflict check, got %d body=%s", st, string(body))
		}
		if err := json.Unmarshal(body, &check); err != nil {
			t.Fatalf("decode check: %v", err)
		}
	}
	if check.ResolutionID == "" || len(check.Conflicts) != 7 {
		t.Fatalf("expected pending resolution with 7 conflicts, got %+v", check)
	}
	first := check.Conflicts[0]
	if first.Type != "too_close" || first.Severity != "high" || first.GapMinutes != 5 {
		t.Fatalf("unexpected first conflict %+v", first)
	}
	if len(first.Suggestions) == 0 {
		t.Fatalf("expected suggestions")
	}
	best := first.Suggestions[0]
	if best.Rank != 1 || best.Type != "time_shift" || best.Suggested.Time != "09:00" || best.ShiftMinutes != 55 {
		t.Fatalf("unexpected best suggestion %+v", best)
	}

	// 4) Ajuste con la sugerencia 1
	{
		st, body := doReq(t, ts.URL, "POST", "/resolutions/"+check.ResolutionID+"/adjust", nurse, map[string]any{
			"finding": 0,
			"rank":    1,
		})
		if st != http.StatusOK {
			t.Fatalf("expected 200 adjust, got %d body=%s", st, string(body))
		}
		var res struct {
			State  string `json:"state"`
			Result struct {
				MedicationID string `json:"medication_id"`
				Status       string `json:"status"`
				Rule         struct {
					Times []string `json:"times"`
				} `json:"rule"`
			} `json:"result"`
		}
		if err := json.Unmarshal(body, &res); err != nil {
			t.Fatalf("decode resolution: %v", err)
		}
		if res.State != "adjusted" || res.Result.MedicationID != "aspirin" || res.Result.Status != "active" {
			t.Fatalf("unexpected resolution %s", string(body))
		}
		if len(res.Result.Rule.Times) != 1 || res.Result.Rule.Times[0] != "09:00" {
			t.Fatalf("expected adjusted time 09:00, got %v", res.Result.Rule.Times)
		}
	}

	// 5) Una resolución cerrada no se puede volver a decidir
	{
		st, _ := doReq(t, ts.URL, "POST", "/resolutions/"+check.ResolutionID+"/cancel", nurse, nil)
		if st != http.StatusConflict {
			t.Fatalf("expected 409 cancel after adjust, got %d", st)
		}
	}

	// 6) Ambos schedules quedan activos y ya no chocan
	{
		st, body := doReq(t, ts.URL, "GET", "/patients/"+patientID+"/schedules", nurse, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 list schedules, got %d", st)
		}
		var items []map[string]any
		if err := json.Unmarshal(body, &items); err != nil {
			t.Fatalf("decode schedules: %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("expected 2 active schedules, got %d", len(items))
		}
	}
	{
		st, body := doReq(t, ts.URL, "POST", "/patients/"+patientID+"/conflict-checks", nurse, map[string]any{
			"candidate": fixedTime("ibuprofen", "14:00"),
			"from":      "2025-03-03T00:00:00Z",
		})
		if st != http.StatusOK {
			t.Fatalf("expected 200 conflict check, got %d body=%s", st, string(body))
		}
		var clean struct {
			ResolutionID string            `json:"resolution_id"`
			Conflicts    []json.RawMessage `json:"conflicts"`
		}
		_ = json.Unmarshal(body, &clean)
		if clean.ResolutionID != "" || len(clean.Conflicts) != 0 {
			t.Fatalf("expected clean check, got %s", string(body))
		}
	}
}

func TestHTTP_Override_AcceptsCandidate(t *testing.T) {
	ts := newServer(t)
	patientID := createPatient(t, ts.URL, map[string]any{"name": "Luis", "timezone": "America/Lima"})

	st, body := doReq(t, ts.URL, "POST", "/patients/"+patientID+"/schedules", nurse, fixedTime("metformin", "08:00"))
	if st != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", st, string(body))
	}

	st, body = doReq(t, ts.URL, "POST", "/patients/"+patientID+"/conflict-checks", nurse, map[string]any{
		"candidate": fixedTime("lisinopril", "08:00"),
	})
	if st != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", st, string(body))
	}
	var check struct {
		ResolutionID string `json:"resolution_id"`
		Conflicts    []struct {
			Type string `json:"type"`
		} `json:"conflicts"`
	}
	_ = json.Unmarshal(body, &check)
	if check.ResolutionID == "" || check.Conflicts[0].Type != "overlap" {
		t.Fatalf("expected overlap, got %s", string(body))
	}

	st, body = doReq(t, ts.URL, "POST", "/resolutions/"+check.ResolutionID+"/override", nurse, nil)
	if st != http.StatusOK || !strings.Contains(string(body), `"state":"overridden"`) {
		t.Fatalf("expected overridden, got %d body=%s", st, string(body))
	}
}

func TestHTTP_ValidationAndAuth(t *testing.T) {
	ts := newServer(t)

	// sin usuario => 401
	if st, _ := doReq(t, ts.URL, "POST", "/patients", "", map[string]any{"name": "x"}); st != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", st)
	}

	patientID := createPatient(t, ts.URL, map[string]any{"name": "Eva"})

	// interval sin horas => 422 con el campo
	st, body := doReq(t, ts.URL, "POST", "/patients/"+patientID+"/schedules", nurse, map[string]any{
		"medication_id": "amoxicillin",
		"type":          "interval",
		"start_date":    "2025-03-01T08:00:00Z",
		"rule":          map[string]any{"dose": map[string]any{"amount": 500, "unit": "mg"}},
	})
	if st != http.StatusUnprocessableEntity || !strings.Contains(string(body), "hours") {
		t.Fatalf("expected 422 mentioning hours, got %d body=%s", st, string(body))
	}

	// paciente inexistente => 404
	st, _ = doReq(t, ts.URL, "POST", "/patients/missing/schedules", nurse, fixedTime("x", "08:00"))
	if st != http.StatusNotFound {
		t.Fatalf("expected 404 unknown patient, got %d", st)
	}

	if st, _ := doReq(t, ts.URL, "GET", "/resolutions/missing", nurse, nil); st != http.StatusNotFound {
		t.Fatalf("expected 404 unknown resolution, got %d", st)
	}
}

func TestHTTP_HealthAndMetrics(t *testing.T) {
	ts := newServer(t)

	if st, body := doReq(t, ts.URL, "GET", "/health", "", nil); st != http.StatusOK || string(body) != "ok" {
		t.Fatalf("unexpected health %d %s", st, string(body))
	}
	st, body := doReq(t, ts.URL, "GET", "/metrics", "", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 metrics, got %d", st)
	}
	for _, name := range []string{"medication_schedule_conflicts_detect_duration_seconds", "go_goroutines"} {
		if !strings.Contains(string(body), name) {
			t.Fatalf("expected %s in metrics output", name)
		}
	}
}

func fixedTime(medicationID, at string) map[string]any {
	return map[string]any{
		"medication_id": medicationID,
		"type":          "fixed_time",
		"start_date":    "2025-03-01T00:00:00Z",
		"rule": map[string]any{
			"times": []string{at},
			"dose":  map[string]any{"amount": 1, "unit": "tab"},
		},
	}
}

func createPatient(t *testing.T, baseURL string, payload map[string]any) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/patients", nurse, payload)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 create patient, got %d body=%s", st, string(body))
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.ID == "" {
		t.Fatalf("invalid patient response: %s", string(body))
	}
	return out.ID
}

func doReq(t *testing.T, baseURL, method, path, debugUserID string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if debugUserID != "" {
		req.Header.Set("X-Debug-User-ID", debugUserID)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, respBody
}

func TestHTTP_CaregiverLimitedToAssignedPatients(t *testing.T) {
	ts := newServer(t)
	mine := createPatient(t, ts.URL, map[string]any{"name": "Ana", "timezone": "UTC"})
	other := createPatient(t, ts.URL, map[string]any{"name": "Beto", "timezone": "UTC"})

	get := func(patientID string) int {
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/patients/"+patientID+"/schedules", nil)
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		req.Header.Set("X-Debug-User-ID", "cg-1")
		req.Header.Set("X-Debug-Role", "caregiver")
		req.Header.Set("X-Debug-Patient-IDs", mine)
		res, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("do request: %v", err)
		}
		defer res.Body.Close()
		return res.StatusCode
	}

	if st := get(mine); st != http.StatusOK {
		t.Fatalf("expected 200 for assigned patient, got %d", st)
	}
	if st := get(other); st != http.StatusForbidden {
		t.Fatalf("expected 403 for other patient, got %d", st)
	}
}
