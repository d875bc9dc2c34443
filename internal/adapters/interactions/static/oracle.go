package static

import (
	"context"
	"strings"

	"medication-schedule/internal/ports/interactions"
)

type Pair struct {
	A, B     string
	Severity string
}

// Oracle responde desde una tabla fija de pares. Sirve para desarrollo y tests.
type Oracle struct {
	pairs map[[2]string]string
}

func New(pairs []Pair) *Oracle {
	o := &Oracle{pairs: make(map[[2]string]string, len(pairs))}
	for _, p := range pairs {
		o.pairs[key(p.A, p.B)] = p.Severity
	}
	return o
}

func (o *Oracle) Check(_ context.Context, medA, medB string) (interactions.Result, error) {
	sev, ok := o.pairs[key(medA, medB)]
	if !ok {
		return interactions.Result{}, nil
	}
	return interactions.Result{HasInteraction: true, Severity: sev}, nil
}

func key(a, b string) [2]string {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}
