package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"incubator-alerts/internal/ledger"
	"incubator-alerts/internal/vitals"
)

const (
	alertColumns = `id,
        incubadora_id,
        paciente_id,
        tipo_alerta,
        severidad,
        valor_sensor,
        umbral_configurado,
        mensaje,
        estado,
        baja_confianza,
        usuario_reconocimiento,
        tiempo_reconocimiento,
        tiempo_resolucion,
        created_at,
        updated_at`

	getAlertSQL = `SELECT ` + alertColumns + `
    FROM alertas
    WHERE id = $1;`

	getActiveAlertByKeySQL = `SELECT ` + alertColumns + `
    FROM alertas
    WHERE incubadora_id = $1
      AND paciente_id = $2
      AND tipo_alerta = $3
      AND estado = 'activa';`

	insertAlertSQL = `INSERT INTO alertas (
        id,
        incubadora_id,
        paciente_id,
        tipo_alerta,
        severidad,
        valor_sensor,
        umbral_configurado,
        mensaje,
        estado,
        baja_confianza,
        usuario_reconocimiento,
        tiempo_reconocimiento,
        tiempo_resolucion,
        created_at,
        updated_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
    );`

	updateAlertSQL = `UPDATE alertas
    SET severidad = $2,
        valor_sensor = $3,
        umbral_configurado = $4,
        mensaje = $5,
        estado = $6,
        baja_confianza = $7,
        usuario_reconocimiento = $8,
        tiempo_reconocimiento = $9,
        tiempo_resolucion = $10,
        updated_at = $11
    WHERE id = $1;`
)

// GetAlert loads one alert by id, or nil when missing.
func (s *Store) GetAlert(ctx context.Context, id uuid.UUID) (*vitals.Alert, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	a, scanErr := scanAlert(pool.QueryRow(ctx, getAlertSQL, id))
	if scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("get alert", scanErr)
	}
	return &a, nil
}

// GetActiveAlertByKey returns the activa alert for the de-duplication key,
// or nil when none is open. The partial unique index on
// (incubadora_id, paciente_id, tipo_alerta) WHERE estado = 'activa'
// guarantees at most one row.
func (s *Store) GetActiveAlertByKey(ctx context.Context, incubatorID, patientID, alertType string) (*vitals.Alert, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	a, scanErr := scanAlert(pool.QueryRow(ctx, getActiveAlertByKeySQL, incubatorID, patientID, alertType))
	if scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("get active alert", scanErr)
	}
	return &a, nil
}

// InsertAlert persists a newly opened alert.
func (s *Store) InsertAlert(ctx context.Context, a vitals.Alert) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, insertAlertSQL,
		a.ID,
		a.IncubatorID,
		a.PatientID,
		a.Type,
		a.Severity,
		a.Value,
		a.Threshold,
		a.Message,
		a.State,
		a.LowConfidence,
		a.AckBy,
		a.AckAt,
		a.ResolvedAt,
		a.CreatedAt,
		a.UpdatedAt,
	)
	return storeErr("insert alert", execErr)
}

// UpdateAlert rewrites the mutable columns of an alert row.
func (s *Store) UpdateAlert(ctx context.Context, a vitals.Alert) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	tag, execErr := pool.Exec(ctx, updateAlertSQL,
		a.ID,
		a.Severity,
		a.Value,
		a.Threshold,
		a.Message,
		a.State,
		a.LowConfidence,
		a.AckBy,
		a.AckAt,
		a.ResolvedAt,
		a.UpdatedAt,
	)
	if execErr != nil {
		return storeErr("update alert", execErr)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update alert: %w", pgx.ErrNoRows)
	}
	return nil
}

// ListAlerts queries alerts by filter, newest first.
func (s *Store) ListAlerts(ctx context.Context, f ledger.Filter) ([]vitals.Alert, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.IncubatorID != "" {
		where = append(where, "incubadora_id = "+arg(f.IncubatorID))
	}
	if f.PatientID != "" {
		where = append(where, "paciente_id = "+arg(f.PatientID))
	}
	if len(f.States) > 0 {
		where = append(where, "estado = ANY("+arg(stateStrings(f.States))+")")
	}
	if len(f.Severities) > 0 {
		where = append(where, "severidad = ANY("+arg(severityStrings(f.Severities))+")")
	}

	query := "SELECT " + alertColumns + " FROM alertas"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit)
	}

	rows, queryErr := pool.Query(ctx, query, args...)
	if queryErr != nil {
		return nil, storeErr("list alerts", queryErr)
	}
	defer rows.Close()

	alerts := make([]vitals.Alert, 0)
	for rows.Next() {
		a, scanErr := scanAlert(rows)
		if scanErr != nil {
			return nil, storeErr("scan alert", scanErr)
		}
		alerts = append(alerts, a)
	}
	if rows.Err() != nil {
		return nil, storeErr("list alerts", rows.Err())
	}
	return alerts, nil
}

func scanAlert(row pgx.Row) (vitals.Alert, error) {
	var a vitals.Alert
	if err := row.Scan(
		&a.ID,
		&a.IncubatorID,
		&a.PatientID,
		&a.Type,
		&a.Severity,
		&a.Value,
		&a.Threshold,
		&a.Message,
		&a.State,
		&a.LowConfidence,
		&a.AckBy,
		&a.AckAt,
		&a.ResolvedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return vitals.Alert{}, err
	}
	return a, nil
}

func stateStrings(states []vitals.State) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}

func severityStrings(sevs []vitals.Severity) []string {
	out := make([]string, len(sevs))
	for i, s := range sevs {
		out[i] = string(s)
	}
	return out
}

var _ ledger.Store = (*Store)(nil)
