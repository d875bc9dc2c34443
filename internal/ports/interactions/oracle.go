package interactions

import (
	"context"
	"errors"
)

// ErrOracleUnavailable envuelve cualquier falla de la base de interacciones
// (transporte, timeout, upstream). El detector la degrada a warning.
var ErrOracleUnavailable = errors.New("interaction oracle unavailable")

type Result struct {
	HasInteraction bool   `json:"has_interaction"`
	Severity       string `json:"severity,omitempty"`
}

// Oracle responde si dos medicamentos interactúan. Es la única dependencia
// del motor que puede hacer I/O.
type Oracle interface {
	Check(ctx context.Context, medA, medB string) (Result, error)
}

// OracleFunc adapta una función a Oracle (tests, wiring simple).
type OracleFunc func(ctx context.Context, medA, medB string) (Result, error)

func (f OracleFunc) Check(ctx context.Context, medA, medB string) (Result, error) {
	return f(ctx, medA, medB)
}
