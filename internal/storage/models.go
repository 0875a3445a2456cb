package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"incubator-alerts/internal/vitals"
)

// ReadingStore defines operations for sensor reading persistence.
type ReadingStore interface {
	InsertReading(ctx context.Context, r vitals.Reading) (uuid.UUID, error)
	ListReadings(ctx context.Context, f ReadingFilter) ([]StoredReading, error)
	DeleteReadingsBefore(ctx context.Context, olderThan time.Time) (int64, error)
}

// StoredReading is a persisted sensor reading with its generated identifier.
type StoredReading struct {
	ID      uuid.UUID
	Reading vitals.Reading
}

// ReadingFilter narrows reading queries to a window and optional scope.
type ReadingFilter struct {
	IncubatorID string
	PatientID   string
	From        time.Time
	To          time.Time
	Limit       int
}
