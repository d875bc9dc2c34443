package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"medication-schedule/internal/adapters/interactions/static"
	mem "medication-schedule/internal/adapters/storage/memory"
	"medication-schedule/internal/domain/conflicts"
	"medication-schedule/internal/domain/patients"
	"medication-schedule/internal/domain/schedules"
	"medication-schedule/internal/platform/logger"
)

// plan es un archivo YAML con el estado de un paciente y un schedule candidato.
// Los schedules usan la misma forma que la API JSON.
type plan struct {
	Timezone     string               `json:"timezone"`
	MealTimes    schedules.MealTimes  `json:"meal_times"`
	From         time.Time            `json:"from"`
	WindowDays   int                  `json:"window_days"`
	MinGap       int                  `json:"min_gap_minutes"`
	Interactions []planInteraction    `json:"interactions"`
	Existing     []schedules.Schedule `json:"existing"`
	Candidate    schedules.Schedule   `json:"candidate"`
}

type planInteraction struct {
	A        string `json:"a"`
	B        string `json:"b"`
	Severity string `json:"severity"`
}

var checkFile string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a conflict check for a YAML plan file and print the result as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		if checkFile == "" {
			return errors.New("--file is required")
		}
		raw, err := os.ReadFile(checkFile)
		if err != nil {
			return err
		}
		p, err := parsePlan(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", checkFile, err)
		}
		res, err := runCheck(cmd.Context(), p)
		if err != nil {
			return err
		}
		return writeResult(cmd.OutOrStdout(), res)
	},
}

func init() {
	checkCmd.Flags().StringVarP(&checkFile, "file", "f", "", "plan file (YAML)")
}

// parsePlan pasa el YAML por JSON para reusar los decoders de schedules
// (discriminador "type" + "rule", horas HH:MM).
func parsePlan(raw []byte) (plan, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return plan{}, fmt.Errorf("invalid yaml: %w", err)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return plan{}, err
	}
	var p plan
	if err := json.Unmarshal(b, &p); err != nil {
		return plan{}, err
	}
	return p, nil
}

// runCheck levanta los servicios en memoria, carga el plan y corre el chequeo.
func runCheck(ctx context.Context, p plan) (conflicts.CheckResult, error) {
	const actor = "cli"

	patientsSvc := patients.NewService(mem.NewPatientRepo())
	schedulesSvc := schedules.NewService(mem.NewScheduleRepo(), patientsSvc)

	pt, err := patientsSvc.Create(ctx, actor, patients.CreateInput{
		Name:      "plan",
		Timezone:  p.Timezone,
		MealTimes: p.MealTimes,
	})
	if err != nil {
		return conflicts.CheckResult{}, fmt.Errorf("patient: %w", err)
	}

	for i, s := range p.Existing {
		s.PatientID = pt.ID
		if _, err := schedulesSvc.Create(ctx, s); err != nil {
			return conflicts.CheckResult{}, fmt.Errorf("existing[%d]: %w", i, err)
		}
	}

	pairs := make([]static.Pair, 0, len(p.Interactions))
	for _, in := range p.Interactions {
		pairs = append(pairs, static.Pair{A: in.A, B: in.B, Severity: in.Severity})
	}

	svc := conflicts.NewService(conflicts.Deps{
		Repo:      mem.NewResolutionRepo(),
		Schedules: schedulesSvc,
		Oracle:    static.New(pairs),
		Log:       logger.Nop(),
	}, conflicts.Config{
		Options: conflicts.Options{
			WindowDays: p.WindowDays,
			MinGap:     time.Duration(p.MinGap) * time.Minute,
		},
	})

	return svc.Check(ctx, conflicts.CheckInput{
		PatientID: pt.ID,
		Candidate: p.Candidate,
		From:      p.From,
		ActorID:   actor,
	})
}

func writeResult(w io.Writer, res conflicts.CheckResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
