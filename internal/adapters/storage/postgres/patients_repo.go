package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"medication-schedule/internal/domain/patients"
	"medication-schedule/internal/domain/schedules"
)

type PatientsRepo struct {
	db *sql.DB
}

func NewPatientsRepo(db *sql.DB) *PatientsRepo {
	return &PatientsRepo{db: db}
}

func (r *PatientsRepo) Create(ctx context.Context, p patients.Patient) error {
	meals, err := json.Marshal(mealsOrEmpty(p.MealTimes))
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO patients (
			id, created_by_user_id,
			name, timezone, meal_times,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		p.ID,
		p.CreatedByUserID,
		p.Name,
		p.Timezone,
		meals,
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

func (r *PatientsRepo) Update(ctx context.Context, p patients.Patient) error {
	meals, err := json.Marshal(mealsOrEmpty(p.MealTimes))
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE patients
		SET
			name = $2,
			timezone = $3,
			meal_times = $4,
			updated_at = $5
		WHERE id = $1
	`,
		p.ID,
		p.Name,
		p.Timezone,
		meals,
		p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return patients.ErrNotFound
	}
	return nil
}

func (r *PatientsRepo) GetByID(ctx context.Context, id string) (patients.Patient, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return patients.Patient{}, patients.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT
			id, created_by_user_id,
			name, timezone, meal_times,
			created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)

	var p patients.Patient
	var meals []byte
	if err := row.Scan(
		&p.ID,
		&p.CreatedByUserID,
		&p.Name,
		&p.Timezone,
		&meals,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return patients.Patient{}, patients.ErrNotFound
		}
		return patients.Patient{}, err
	}

	if err := json.Unmarshal(meals, &p.MealTimes); err != nil {
		return patients.Patient{}, err
	}
	return p, nil
}

func mealsOrEmpty(m schedules.MealTimes) schedules.MealTimes {
	if m == nil {
		return schedules.MealTimes{}
	}
	return m
}
