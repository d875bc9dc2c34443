package conflicts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"medication-schedule/internal/domain/schedules"
	"medication-schedule/internal/platform/logger"
	"medication-schedule/internal/ports/audit"
	"medication-schedule/internal/ports/interactions"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

// Observer recibe cada chequeo terminado (métricas).
type Observer interface {
	CheckCompleted(elapsed time.Duration, rep Report)
}

type Config struct {
	Options       Options
	Workers       int
	OracleTimeout time.Duration
}

type Deps struct {
	Repo      Repository
	Schedules ScheduleStore
	Oracle    interactions.Oracle
	Audit     audit.Recorder
	Log       logger.Logger
	Observer  Observer
}

type Service struct {
	repo      Repository
	schedules ScheduleStore
	oracle    interactions.Oracle
	audit     audit.Recorder
	log       logger.Logger
	obs       Observer
	cfg       Config
	now       func() time.Time
}

func NewService(d Deps, cfg Config) *Service {
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:      d.Repo,
		schedules: d.Schedules,
		oracle:    d.Oracle,
		audit:     d.Audit,
		log:       log.With(map[string]any{"component": "conflicts"}),
		obs:       d.Observer,
		cfg:       cfg,
		now:       time.Now,
	}
}

type CheckInput struct {
	PatientID string
	Candidate schedules.Schedule
	From      time.Time // zero = ahora
	ActorID   string
}

// CheckResult: ResolutionID vacío significa que no hubo conflictos y el
// candidato se puede persistir directamente.
type CheckResult struct {
	ResolutionID string    `json:"resolution_id,omitempty"`
	Findings     []Finding `json:"conflicts"`
	Warnings     []Warning `json:"warnings,omitempty"`
}

// Check detecta conflictos del candidato contra los schedules activos del
// paciente y arma las sugerencias. Si hay conflictos deja una Resolution pending.
func (s *Service) Check(ctx context.Context, in CheckInput) (CheckResult, error) {
	patientID := strings.TrimSpace(in.PatientID)
	if patientID == "" {
		return CheckResult{}, ErrInvalidInput
	}
	draft := in.Candidate
	draft.PatientID = patientID
	// Se chequea lo mismo que Create va a guardar.
	candidate, err := s.schedules.Normalize(ctx, draft)
	if err != nil {
		return CheckResult{}, err
	}
	if err := schedules.Check(candidate); err != nil {
		return CheckResult{}, err
	}

	existing, err := s.schedules.ListActive(ctx, patientID)
	if err != nil {
		return CheckResult{}, err
	}
	calc, err := s.schedules.Calculator(ctx, patientID)
	if err != nil {
		return CheckResult{}, err
	}

	now := s.now()
	from := in.From
	if from.IsZero() {
		from = now
	}

	det := Detector{
		Calculator:    calc,
		Oracle:        s.oracle,
		Workers:       s.cfg.Workers,
		OracleTimeout: s.cfg.OracleTimeout,
	}
	started := time.Now()
	rep, err := det.Detect(ctx, candidate, existing, from, s.cfg.Options)
	if err != nil {
		return CheckResult{}, err
	}
	if s.obs != nil {
		s.obs.CheckCompleted(time.Since(started), rep)
	}
	for _, w := range rep.Warnings {
		s.log.Warn("interaction check degraded", map[string]any{
			"patient_id":    patientID,
			"medication_id": w.MedicationID,
			"error":         w.Message,
		})
	}

	sug := Suggester{Calculator: calc}
	findings := make([]Finding, 0, len(rep.Conflicts))
	for _, c := range rep.Conflicts {
		findings = append(findings, Finding{
			Conflict:    c,
			Suggestions: sug.Suggest(candidate, existing, c, from, s.cfg.Options),
		})
	}

	out := CheckResult{Findings: findings, Warnings: rep.Warnings}
	if len(findings) == 0 {
		return out, nil
	}

	res := Resolution{
		ID:        uuid.NewString(),
		PatientID: patientID,
		Candidate: candidate,
		Findings:  findings,
		Warnings:  rep.Warnings,
		State:     StatePending,
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, res); err != nil {
		return CheckResult{}, err
	}
	out.ResolutionID = res.ID

	s.log.Info("conflicts detected", map[string]any{
		"patient_id":    patientID,
		"medication_id": candidate.MedicationID,
		"resolution_id": res.ID,
		"conflicts":     len(findings),
	})
	return out, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Resolution, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Resolution{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

// Selection apunta a una sugerencia: finding por índice, sugerencia por rank.
type Selection struct {
	Finding int
	Rank    int
}

// Adjust acepta la sugerencia elegida y persiste el schedule ajustado como
// versión nueva del medicamento.
func (s *Service) Adjust(ctx context.Context, id string, sel *Selection, actorID string) (Resolution, error) {
	res, err := s.GetByID(ctx, id)
	if err != nil {
		return Resolution{}, err
	}
	if !res.Pending() {
		return Resolution{}, ErrInvalidTransition
	}
	if sel == nil {
		return Resolution{}, ErrMissingSelection
	}
	sg, err := res.Suggestion(sel.Finding, sel.Rank)
	if err != nil {
		return Resolution{}, err
	}

	adjusted, err := res.Adjust(sg, actorID, s.now())
	if err != nil {
		return Resolution{}, err
	}
	created, err := s.schedules.Create(ctx, adjusted)
	if err != nil {
		return Resolution{}, err
	}
	return s.accept(ctx, res, created)
}

// Override acepta el candidato original. El schedule se crea antes de
// registrar la auditoría; si la auditoría o el Update fallan, se retira.
func (s *Service) Override(ctx context.Context, id, actorID string) (Resolution, error) {
	res, err := s.GetByID(ctx, id)
	if err != nil {
		return Resolution{}, err
	}
	if !res.Pending() {
		return Resolution{}, ErrInvalidTransition
	}
	if s.audit == nil {
		return Resolution{}, ErrAuditRequired
	}

	created, err := s.schedules.Create(ctx, res.Candidate)
	if err != nil {
		return Resolution{}, err
	}
	if _, err := res.Override(ctx, actorID, s.now(), s.audit); err != nil {
		s.withdraw(ctx, res, created)
		return Resolution{}, err
	}
	return s.accept(ctx, res, created)
}

func (s *Service) Cancel(ctx context.Context, id, actorID string) (Resolution, error) {
	res, err := s.GetByID(ctx, id)
	if err != nil {
		return Resolution{}, err
	}
	if err := res.Cancel(actorID, s.now()); err != nil {
		return Resolution{}, err
	}
	if err := s.repo.Update(ctx, res); err != nil {
		return Resolution{}, err
	}
	return res, nil
}

// accept guarda la decisión con el schedule ya creado. Update solo pisa una
// resolución pending: si otra decisión ganó, el schedule se retira.
func (s *Service) accept(ctx context.Context, res Resolution, created schedules.Schedule) (Resolution, error) {
	res.Result = &created
	if err := s.repo.Update(ctx, res); err != nil {
		s.withdraw(ctx, res, created)
		return Resolution{}, err
	}
	s.log.Info("resolution decided", map[string]any{
		"resolution_id": res.ID,
		"state":         string(res.State),
		"schedule_id":   created.ID,
		"actor_id":      res.DecidedBy,
	})
	return res, nil
}

func (s *Service) withdraw(ctx context.Context, res Resolution, created schedules.Schedule) {
	if _, err := s.schedules.Withdraw(ctx, created.ID); err != nil {
		s.log.Error("withdraw schedule failed", map[string]any{
			"resolution_id": res.ID,
			"schedule_id":   created.ID,
			"error":         err.Error(),
		})
	}
}
