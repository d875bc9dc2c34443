package kb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"medication-schedule/internal/platform/httpclient"
	"medication-schedule/internal/ports/interactions"
)

var (
	ErrNotConfigured = errors.New("interactions kb not configured")
	ErrUnauthorized  = errors.New("interactions kb unauthorized")
)

type Config struct {
	BaseURL string
	APIKey  string

	APIKeyHeader string
	Timeout      time.Duration
	RatePerSec   float64
	Burst        int
	Transport    http.RoundTripper
}

// Client consulta una base externa de interacciones medicamentosas:
// GET /v1/interactions?a=<medA>&b=<medB>.
type Client struct {
	http       *httpclient.Client
	configured bool
}

func NewClient(cfg Config) (*Client, error) {
	h := strings.TrimSpace(cfg.APIKeyHeader)
	if h == "" {
		h = "X-Api-Key"
	}
	apiKey := strings.TrimSpace(cfg.APIKey)

	headers := map[string]string{}
	if apiKey != "" {
		headers[h] = apiKey
	}
	hc, err := httpclient.New(httpclient.Options{
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout,
		RatePerSec: cfg.RatePerSec,
		Burst:      cfg.Burst,
		Transport:  cfg.Transport,
		Headers:    headers,
	})
	if err != nil {
		return nil, err
	}
	return &Client{http: hc, configured: hc.BaseURL != ""}, nil
}

func (c *Client) IsConfigured() bool {
	return c != nil && c.configured
}

type interactionResponse struct {
	Interacts bool   `json:"interacts"`
	Severity  string `json:"severity"`
}

// Check implementa interactions.Oracle. Toda falla sale envuelta en
// ErrOracleUnavailable (401/403 además con ErrUnauthorized).
func (c *Client) Check(ctx context.Context, medA, medB string) (interactions.Result, error) {
	if !c.IsConfigured() {
		return interactions.Result{}, fmt.Errorf("%w: %w", interactions.ErrOracleUnavailable, ErrNotConfigured)
	}
	medA, medB = strings.TrimSpace(medA), strings.TrimSpace(medB)
	if medA == "" || medB == "" {
		return interactions.Result{}, errors.New("both medications required")
	}

	var out interactionResponse
	err := c.http.GetJSON(ctx, "/v1/interactions", url.Values{"a": {medA}, "b": {medB}}, nil, &out)
	if err != nil {
		switch httpclient.StatusCode(err) {
		case http.StatusUnauthorized, http.StatusForbidden:
			return interactions.Result{}, fmt.Errorf("%w: %w", interactions.ErrOracleUnavailable, ErrUnauthorized)
		case http.StatusNotFound:
			// medicamento desconocido para la base: sin interacción registrada
			return interactions.Result{}, nil
		}
		return interactions.Result{}, fmt.Errorf("%w: %v", interactions.ErrOracleUnavailable, err)
	}
	return interactions.Result{HasInteraction: out.Interacts, Severity: out.Severity}, nil
}
