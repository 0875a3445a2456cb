package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"incubator-alerts/internal/vitals"
)

const (
	insertReadingSQL = `INSERT INTO lecturas (
        id,
        incubadora_id,
        paciente_id,
        ts,
        valores,
        calidad_datos
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    );`

	deleteReadingsBeforeSQL = `DELETE FROM lecturas WHERE ts < $1;`
)

// InsertReading persists one reading and returns its generated id.
func (s *Store) InsertReading(ctx context.Context, r vitals.Reading) (uuid.UUID, error) {
	pool, err := s.getPool()
	if err != nil {
		return uuid.Nil, err
	}

	id := uuid.New()
	payload, err := encodeValues(r.Values)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode reading values: %w", err)
	}

	_, execErr := pool.Exec(ctx, insertReadingSQL,
		id,
		r.IncubatorID,
		r.PatientID,
		r.Timestamp,
		payload,
		r.Quality,
	)
	if execErr != nil {
		return uuid.Nil, storeErr("insert reading", execErr)
	}
	return id, nil
}

// ListReadings returns stored readings matching the filter, oldest first.
func (s *Store) ListReadings(ctx context.Context, f ReadingFilter) ([]StoredReading, error) {
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
	if !f.From.IsZero() {
		where = append(where, "ts >= "+arg(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "ts < "+arg(f.To))
	}

	query := `SELECT id, incubadora_id, paciente_id, ts, valores, calidad_datos FROM lecturas`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY ts"
	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit)
	}

	rows, queryErr := pool.Query(ctx, query, args...)
	if queryErr != nil {
		return nil, storeErr("list readings", queryErr)
	}
	defer rows.Close()

	readings := make([]StoredReading, 0)
	for rows.Next() {
		var (
			sr      StoredReading
			payload []byte
		)
		if err := rows.Scan(
			&sr.ID,
			&sr.Reading.IncubatorID,
			&sr.Reading.PatientID,
			&sr.Reading.Timestamp,
			&payload,
			&sr.Reading.Quality,
		); err != nil {
			return nil, storeErr("scan reading", err)
		}
		values, err := decodeValues(payload)
		if err != nil {
			return nil, fmt.Errorf("decode reading values: %w", err)
		}
		sr.Reading.Values = values
		readings = append(readings, sr)
	}
	if rows.Err() != nil {
		return nil, storeErr("list readings", rows.Err())
	}
	return readings, nil
}

// DeleteReadingsBefore removes readings older than the cutoff and reports
// how many rows went away. Alerts are never touched by retention.
func (s *Store) DeleteReadingsBefore(ctx context.Context, olderThan time.Time) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}

	tag, execErr := pool.Exec(ctx, deleteReadingsBeforeSQL, olderThan)
	if execErr != nil {
		return 0, storeErr("delete readings", execErr)
	}
	return tag.RowsAffected(), nil
}

// encodeValues marshals parameter values for the jsonb column. JSON has no
// NaN/Inf, so invalid measurements round-trip as null.
func encodeValues(values map[string]float64) ([]byte, error) {
	out := make(map[string]any, len(values))
	for k, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[k] = nil
			continue
		}
		out[k] = v
	}
	return json.Marshal(out)
}

func decodeValues(payload []byte) (map[string]float64, error) {
	var raw map[string]*float64
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}
	values := make(map[string]float64, len(raw))
	for k, v := range raw {
		if v == nil {
			values[k] = math.NaN()
			continue
		}
		values[k] = *v
	}
	return values, nil
}
