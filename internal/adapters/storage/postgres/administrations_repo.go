package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"medication-schedule/internal/domain/administrations"
)

type AdministrationsRepo struct {
	db *sql.DB
}

func NewAdministrationsRepo(db *sql.DB) *AdministrationsRepo {
	return &AdministrationsRepo{db: db}
}

const administrationColumns = `
	id, patient_id, schedule_id, medication_id,
	administered_at, recorded_at,
	dose_amount, dose_unit, reading,
	notes,
	actor_type, actor_id,
	source, status
`

func (r *AdministrationsRepo) Create(ctx context.Context, a administrations.Administration) error {
	var reading sql.NullFloat64
	if a.Reading != nil {
		reading = sql.NullFloat64{Float64: *a.Reading, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO administrations (`+administrationColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`,
		a.ID,
		a.PatientID,
		a.ScheduleID,
		a.MedicationID,
		a.AdministeredAt,
		a.RecordedAt,
		a.Dose.Amount,
		a.Dose.Unit,
		reading,
		a.Notes,
		string(a.Actor.Type),
		a.Actor.ID,
		string(a.Source),
		string(a.Status),
	)
	return err
}

func (r *AdministrationsRepo) GetByID(ctx context.Context, id string) (administrations.Administration, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return administrations.Administration{}, administrations.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+administrationColumns+`
		FROM administrations
		WHERE id = $1
	`, id)

	a, err := scanAdministration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return administrations.Administration{}, administrations.ErrNotFound
	}
	return a, err
}

func (r *AdministrationsRepo) ListByPatient(ctx context.Context, patientID string, filter administrations.ListFilter) ([]administrations.Administration, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, nil
	}

	sb := strings.Builder{}
	sb.WriteString(`
		SELECT ` + administrationColumns + `
		FROM administrations
		WHERE patient_id = $1
	`)

	args := []any{patientID}
	argN := 2

	if filter.ScheduleID != "" {
		sb.WriteString(fmt.Sprintf(" AND schedule_id = $%d", argN))
		args = append(args, filter.ScheduleID)
		argN++
	}
	if !filter.IncludeVoided {
		sb.WriteString(fmt.Sprintf(" AND status <> $%d", argN))
		args = append(args, string(administrations.StatusVoided))
		argN++
	}
	if filter.From != nil {
		sb.WriteString(fmt.Sprintf(" AND administered_at >= $%d", argN))
		args = append(args, *filter.From)
		argN++
	}
	if filter.To != nil {
		sb.WriteString(fmt.Sprintf(" AND administered_at <= $%d", argN))
		args = append(args, *filter.To)
		argN++
	}

	sb.WriteString(" ORDER BY administered_at DESC")
	if filter.Limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", argN))
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]administrations.Administration, 0)
	for rows.Next() {
		a, err := scanAdministration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}

	return out, rows.Err()
}

func (r *AdministrationsRepo) Void(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE administrations SET status = $2 WHERE id = $1
	`, id, string(administrations.StatusVoided))
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return administrations.ErrNotFound
	}
	return nil
}

func scanAdministration(row rowScanner) (administrations.Administration, error) {
	var a administrations.Administration
	var reading sql.NullFloat64
	var actorType, source, status string

	if err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.ScheduleID,
		&a.MedicationID,
		&a.AdministeredAt,
		&a.RecordedAt,
		&a.Dose.Amount,
		&a.Dose.Unit,
		&reading,
		&a.Notes,
		&actorType,
		&a.Actor.ID,
		&source,
		&status,
	); err != nil {
		return administrations.Administration{}, err
	}

	if reading.Valid {
		v := reading.Float64
		a.Reading = &v
	}
	a.Actor.Type = administrations.ActorType(actorType)
	a.Source = administrations.Source(source)
	a.Status = administrations.Status(status)

	return a, nil
}
