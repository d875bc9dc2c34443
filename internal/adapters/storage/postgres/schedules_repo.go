package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"medication-schedule/internal/domain/schedules"
)

type SchedulesRepo struct {
	db *sql.DB
}

func NewSchedulesRepo(db *sql.DB) *SchedulesRepo {
	return &SchedulesRepo{db: db}
}

const scheduleColumns = `
	id, patient_id, medication_id,
	version, status, type,
	start_date, end_date, timezone,
	rule,
	created_at, superseded_at
`

func (r *SchedulesRepo) Create(ctx context.Context, s schedules.Schedule) error {
	rule, err := json.Marshal(s.Rule)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO medication_schedules (`+scheduleColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		s.ID,
		s.PatientID,
		s.MedicationID,
		s.Version,
		string(s.Status),
		string(s.Type()),
		s.StartDate,
		toNullTime(s.EndDate),
		s.Timezone,
		rule,
		s.CreatedAt,
		toNullTime(s.SupersededAt),
	)
	return err
}

// Update solo toca el ciclo de vida: una edición de la regla es una versión nueva.
func (r *SchedulesRepo) Update(ctx context.Context, s schedules.Schedule) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE medication_schedules
		SET
			status = $2,
			end_date = $3,
			superseded_at = $4
		WHERE id = $1
	`,
		s.ID,
		string(s.Status),
		toNullTime(s.EndDate),
		toNullTime(s.SupersededAt),
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return schedules.ErrNotFound
	}
	return nil
}

func (r *SchedulesRepo) GetByID(ctx context.Context, id string) (schedules.Schedule, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return schedules.Schedule{}, schedules.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+scheduleColumns+`
		FROM medication_schedules
		WHERE id = $1
	`, id)

	s, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return schedules.Schedule{}, schedules.ErrNotFound
	}
	return s, err
}

func (r *SchedulesRepo) ListByPatient(ctx context.Context, patientID string, filter schedules.ListFilter) ([]schedules.Schedule, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, nil
	}

	sb := strings.Builder{}
	sb.WriteString(`
		SELECT ` + scheduleColumns + `
		FROM medication_schedules
		WHERE patient_id = $1
	`)

	args := []any{patientID}
	argN := 2

	if filter.Status != "" {
		sb.WriteString(fmt.Sprintf(" AND status = $%d", argN))
		args = append(args, string(filter.Status))
		argN++
	}
	if filter.MedicationID != "" {
		sb.WriteString(fmt.Sprintf(" AND medication_id = $%d", argN))
		args = append(args, filter.MedicationID)
	}

	sb.WriteString(" ORDER BY created_at ASC, version ASC, id ASC")

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]schedules.Schedule, 0)
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}

	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (schedules.Schedule, error) {
	var s schedules.Schedule
	var status, typ string
	var rule []byte
	var end, superseded sql.NullTime

	if err := row.Scan(
		&s.ID,
		&s.PatientID,
		&s.MedicationID,
		&s.Version,
		&status,
		&typ,
		&s.StartDate,
		&end,
		&s.Timezone,
		&rule,
		&s.CreatedAt,
		&superseded,
	); err != nil {
		return schedules.Schedule{}, err
	}

	decoded, err := schedules.DecodeRule(schedules.Type(typ), rule)
	if err != nil {
		return schedules.Schedule{}, fmt.Errorf("schedule %s: %w", s.ID, err)
	}
	s.Rule = decoded
	s.Status = schedules.Status(status)
	s.EndDate = fromNullTime(end)
	s.SupersededAt = fromNullTime(superseded)

	return s, nil
}
