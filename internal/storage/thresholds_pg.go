package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"incubator-alerts/internal/thresholds"
)

const (
	getActiveThresholdSQL = `SELECT
        id,
        paciente_id,
        parametro,
        valor_min,
        valor_max,
        valor_critico_min,
        valor_critico_max,
        activo,
        created_at,
        updated_at
    FROM umbrales_paciente
    WHERE paciente_id = $1
      AND parametro = $2
      AND activo;`

	listActiveThresholdsSQL = `SELECT
        id,
        paciente_id,
        parametro,
        valor_min,
        valor_max,
        valor_critico_min,
        valor_critico_max,
        activo,
        created_at,
        updated_at
    FROM umbrales_paciente
    WHERE paciente_id = $1
      AND activo
    ORDER BY parametro;`

	deactivateThresholdSQL = `UPDATE umbrales_paciente
    SET activo = FALSE, updated_at = $3
    WHERE paciente_id = $1
      AND parametro = $2
      AND activo;`

	insertThresholdSQL = `INSERT INTO umbrales_paciente (
        id,
        paciente_id,
        parametro,
        valor_min,
        valor_max,
        valor_critico_min,
        valor_critico_max,
        activo,
        created_at,
        updated_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,TRUE,$8,$9
    );`
)

// GetActiveThreshold returns the active threshold row for
// (patient, parameter), or nil when none is configured.
func (s *Store) GetActiveThreshold(ctx context.Context, patientID, parameter string) (*thresholds.Threshold, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	row := pool.QueryRow(ctx, getActiveThresholdSQL, patientID, parameter)
	t, scanErr := scanThreshold(row)
	if scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("get active threshold", scanErr)
	}
	return &t, nil
}

// UpsertThreshold deactivates any prior active row for the same
// (patient, parameter) and inserts the new one in a single transaction, so
// the one-active-row invariant holds even under concurrent writers.
func (s *Store) UpsertThreshold(ctx context.Context, t thresholds.Threshold) (thresholds.Threshold, error) {
	pool, err := s.getPool()
	if err != nil {
		return thresholds.Threshold{}, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return thresholds.Threshold{}, storeErr("begin threshold upsert", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, deactivateThresholdSQL, t.PatientID, t.Parameter, t.UpdatedAt); err != nil {
		return thresholds.Threshold{}, storeErr("deactivate prior threshold", err)
	}

	if _, err := tx.Exec(ctx, insertThresholdSQL,
		t.ID,
		t.PatientID,
		t.Parameter,
		t.Min,
		t.Max,
		t.CriticalMin,
		t.CriticalMax,
		t.CreatedAt,
		t.UpdatedAt,
	); err != nil {
		return thresholds.Threshold{}, storeErr("insert threshold", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return thresholds.Threshold{}, storeErr("commit threshold upsert", err)
	}
	return t, nil
}

// DeactivateThreshold retires the active row for (patient, parameter).
func (s *Store) DeactivateThreshold(ctx context.Context, patientID, parameter string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	if _, err := pool.Exec(ctx, deactivateThresholdSQL, patientID, parameter, time.Now().UTC()); err != nil {
		return storeErr("deactivate threshold", err)
	}
	return nil
}

// ListActiveThresholds returns every active threshold for a patient.
func (s *Store) ListActiveThresholds(ctx context.Context, patientID string) ([]thresholds.Threshold, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listActiveThresholdsSQL, patientID)
	if queryErr != nil {
		return nil, storeErr("list active thresholds", queryErr)
	}
	defer rows.Close()

	result := make([]thresholds.Threshold, 0)
	for rows.Next() {
		t, scanErr := scanThreshold(rows)
		if scanErr != nil {
			return nil, storeErr("scan threshold", scanErr)
		}
		result = append(result, t)
	}
	if rows.Err() != nil {
		return nil, storeErr("list active thresholds", rows.Err())
	}
	return result, nil
}

func scanThreshold(row pgx.Row) (thresholds.Threshold, error) {
	var (
		t  thresholds.Threshold
		id uuid.UUID
	)
	if err := row.Scan(
		&id,
		&t.PatientID,
		&t.Parameter,
		&t.Min,
		&t.Max,
		&t.CriticalMin,
		&t.CriticalMax,
		&t.Active,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return thresholds.Threshold{}, err
	}
	t.ID = id
	return t, nil
}

var _ thresholds.Store = (*Store)(nil)
