package kb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"medication-schedule/internal/ports/interactions"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "k"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestCheckReportsInteraction(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/interactions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("a") != "warfarin" || r.URL.Query().Get("b") != "aspirin" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if r.Header.Get("X-Api-Key") != "k" {
			t.Errorf("missing api key")
		}
		_, _ = w.Write([]byte(`{"interacts":true,"severity":"major"}`))
	})

	res, err := c.Check(context.Background(), "warfarin", "aspirin")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !res.HasInteraction || res.Severity != "major" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestCheckUnknownMedicationIsNoInteraction(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	res, err := c.Check(context.Background(), "a", "b")
	if err != nil || res.HasInteraction {
		t.Fatalf("expected no interaction, got %+v %v", res, err)
	}
}

func TestCheckUpstreamFailureIsUnavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Check(context.Background(), "a", "b")
	if !errors.Is(err, interactions.ErrOracleUnavailable) {
		t.Fatalf("expected ErrOracleUnavailable, got %v", err)
	}
}

func TestCheckUnauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.Check(context.Background(), "a", "b")
	if !errors.Is(err, ErrUnauthorized) || !errors.Is(err, interactions.ErrOracleUnavailable) {
		t.Fatalf("expected unauthorized + unavailable, got %v", err)
	}
}

func TestNotConfigured(t *testing.T) {
	c, err := NewClient(Config{})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if c.IsConfigured() {
		t.Fatalf("expected not configured")
	}
	if _, err := c.Check(context.Background(), "a", "b"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
