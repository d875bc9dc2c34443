package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"medication-schedule/internal/domain/conflicts"
)

// ResolutionsRepo guarda la resolución completa (candidato, hallazgos,
// sugerencias) como JSONB; state y fechas van en columnas para filtrar.
type ResolutionsRepo struct {
	db *sql.DB
}

func NewResolutionsRepo(db *sql.DB) *ResolutionsRepo {
	return &ResolutionsRepo{db: db}
}

func (r *ResolutionsRepo) Create(ctx context.Context, res conflicts.Resolution) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO conflict_resolutions (
			id, patient_id, state, payload, created_at, decided_at
		) VALUES ($1,$2,$3,$4,$5,$6)
	`,
		res.ID,
		res.PatientID,
		string(res.State),
		payload,
		res.CreatedAt,
		toNullTime(res.DecidedAt),
	)
	return err
}

func (r *ResolutionsRepo) Update(ctx context.Context, res conflicts.Resolution) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return err
	}
	out, err := r.db.ExecContext(ctx, `
		UPDATE conflict_resolutions
		SET
			state = $2,
			payload = $3,
			decided_at = $4
		WHERE id = $1 AND state = $5
	`,
		res.ID,
		string(res.State),
		payload,
		toNullTime(res.DecidedAt),
		string(conflicts.StatePending),
	)
	if err != nil {
		return err
	}
	n, _ := out.RowsAffected()
	if n > 0 {
		return nil
	}
	// Nada actualizado: o no existe o ya se decidió.
	var exists bool
	if err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM conflict_resolutions WHERE id = $1)
	`, res.ID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return conflicts.ErrNotFound
	}
	return conflicts.ErrInvalidTransition
}

func (r *ResolutionsRepo) GetByID(ctx context.Context, id string) (conflicts.Resolution, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return conflicts.Resolution{}, conflicts.ErrNotFound
	}

	var payload []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT payload FROM conflict_resolutions WHERE id = $1
	`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return conflicts.Resolution{}, conflicts.ErrNotFound
		}
		return conflicts.Resolution{}, err
	}

	var res conflicts.Resolution
	if err := json.Unmarshal(payload, &res); err != nil {
		return conflicts.Resolution{}, err
	}
	return res, nil
}

func (r *ResolutionsRepo) ListByPatient(ctx context.Context, patientID string) ([]conflicts.Resolution, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT payload
		FROM conflict_resolutions
		WHERE patient_id = $1
		ORDER BY created_at DESC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]conflicts.Resolution, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var res conflicts.Resolution
		if err := json.Unmarshal(payload, &res); err != nil {
			return nil, err
		}
		out = append(out, res)
	}

	return out, rows.Err()
}
