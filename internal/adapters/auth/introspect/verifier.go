package introspect

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"medication-schedule/internal/platform/httpclient"
	"medication-schedule/internal/ports/auth"
)

var (
	ErrNotConfigured = errors.New("auth introspection not configured")
	ErrUnauthorized  = errors.New("token rejected")
	ErrUpstream      = errors.New("auth upstream error")
	ErrTokenEmpty    = errors.New("token is empty")
)

// Config del verificador. BaseURL y APIKey vienen de AUTH_BASE_URL / AUTH_API_KEY.
type Config struct {
	BaseURL string
	APIKey  string

	// Si está vacío, se usa "X-Api-Key".
	APIKeyHeader string

	Timeout   time.Duration
	Transport http.RoundTripper
}

// Verifier implementa auth.AuthVerifier contra un endpoint de introspección:
// POST /v1/tokens/verify {"token": "..."} ->
// {"user_id","email","tenant_id","role","patient_ids"}.
type Verifier struct {
	http       *httpclient.Client
	configured bool
}

func NewVerifier(cfg Config) (*Verifier, error) {
	h := strings.TrimSpace(cfg.APIKeyHeader)
	if h == "" {
		h = "X-Api-Key"
	}
	apiKey := strings.TrimSpace(cfg.APIKey)

	headers := map[string]string{}
	if apiKey != "" {
		headers[h] = apiKey
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	hc, err := httpclient.New(httpclient.Options{
		BaseURL:   cfg.BaseURL,
		Timeout:   timeout,
		Transport: cfg.Transport,
		Headers:   headers,
	})
	if err != nil {
		return nil, err
	}
	return &Verifier{http: hc, configured: hc.BaseURL != "" && apiKey != ""}, nil
}

func (v *Verifier) IsConfigured() bool {
	return v != nil && v.configured
}

type verifyResponse struct {
	UserID     string   `json:"user_id"`
	Email      string   `json:"email"`
	TenantID   string   `json:"tenant_id"`
	Role       string   `json:"role"`
	PatientIDs []string `json:"patient_ids"`
}

func (v *Verifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	if !v.IsConfigured() {
		return auth.Claims{}, ErrNotConfigured
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrTokenEmpty
	}

	var out verifyResponse
	err := v.http.DoJSON(ctx, http.MethodPost, "/v1/tokens/verify",
		map[string]string{"Authorization": "Bearer " + token},
		map[string]string{"token": token},
		&out,
	)
	if err != nil {
		switch httpclient.StatusCode(err) {
		case http.StatusUnauthorized, http.StatusForbidden:
			return auth.Claims{}, ErrUnauthorized
		}
		return auth.Claims{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	out.UserID = strings.TrimSpace(out.UserID)
	if out.UserID == "" {
		return auth.Claims{}, fmt.Errorf("%w: response missing user_id", ErrUpstream)
	}

	return auth.Claims{
		UserID:     out.UserID,
		Email:      strings.TrimSpace(out.Email),
		TenantID:   strings.TrimSpace(out.TenantID),
		Role:       auth.Role(strings.ToUpper(strings.TrimSpace(out.Role))),
		PatientIDs: out.PatientIDs,
	}, nil
}
