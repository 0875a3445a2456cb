package thresholds

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"incubator-alerts/internal/vitals"
)

// Store persists threshold rows. Implementations must deactivate any prior
// active row for the same (patient, parameter) atomically during Upsert.
type Store interface {
	GetActiveThreshold(ctx context.Context, patientID, parameter string) (*Threshold, error)
	UpsertThreshold(ctx context.Context, t Threshold) (Threshold, error)
	DeactivateThreshold(ctx context.Context, patientID, parameter string) error
	ListActiveThresholds(ctx context.Context, patientID string) ([]Threshold, error)
}

// Source tags where a resolved band came from.
type Source string

const (
	SourcePatient Source = "paciente"
	SourceDefault Source = "defecto"
)

// Resolved is the band configuration the rule engine evaluates against:
// either the patient's active threshold or the system default band.
type Resolved struct {
	Source      Source
	Parameter   string
	Min         *float64
	Max         *float64
	CriticalMin *float64
	CriticalMax *float64
}

// Service is the Threshold Store facade: validated writes, active-row reads,
// and default-band fallback for the rule engine.
type Service struct {
	store   Store
	timeout time.Duration
	logger  zerolog.Logger
}

// NewService wires a Service over a threshold store. timeout bounds every
// persistence call; zero means no bound.
func NewService(store Store, timeout time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		store:   store,
		timeout: timeout,
		logger:  logger.With().Str("component", "thresholds").Logger(),
	}
}

// Get returns the active threshold for (patient, parameter), or nil when
// none is configured.
func (s *Service) Get(ctx context.Context, patientID, parameter string) (*Threshold, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.store.GetActiveThreshold(ctx, patientID, parameter)
}

// Upsert validates and persists a threshold, deactivating any prior active
// row for the same (patient, parameter).
func (s *Service) Upsert(ctx context.Context, t Threshold) (Threshold, error) {
	if err := t.Validate(); err != nil {
		return Threshold{}, err
	}

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	t.Active = true

	ctx, cancel := s.bound(ctx)
	defer cancel()

	stored, err := s.store.UpsertThreshold(ctx, t)
	if err != nil {
		return Threshold{}, fmt.Errorf("upsert threshold: %w", err)
	}

	s.logger.Info().
		Str("paciente_id", stored.PatientID).
		Str("parametro", stored.Parameter).
		Msg("threshold upserted")
	return stored, nil
}

// Deactivate retires the active threshold for (patient, parameter). The row
// is kept for audit; only the active flag changes.
func (s *Service) Deactivate(ctx context.Context, patientID, parameter string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.store.DeactivateThreshold(ctx, patientID, parameter); err != nil {
		return fmt.Errorf("deactivate threshold: %w", err)
	}

	s.logger.Info().
		Str("paciente_id", patientID).
		Str("parametro", parameter).
		Msg("threshold deactivated")
	return nil
}

// ListActive returns every active threshold configured for a patient.
func (s *Service) ListActive(ctx context.Context, patientID string) ([]Threshold, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.store.ListActiveThresholds(ctx, patientID)
}

// Resolve returns the band the engine must evaluate a parameter against:
// the patient's active threshold if one exists, else the system default
// band. A nil result means the parameter is not monitored at all.
//
// A store failure falls back to the default band rather than skipping the
// parameter: evaluation must keep going even when configuration reads fail.
func (s *Service) Resolve(ctx context.Context, patientID, parameter string) (*Resolved, error) {
	if patientID != "" {
		t, err := s.Get(ctx, patientID, parameter)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("paciente_id", patientID).
				Str("parametro", parameter).
				Msg("threshold lookup failed; falling back to default band")
		} else if t != nil {
			return &Resolved{
				Source:      SourcePatient,
				Parameter:   parameter,
				Min:         t.Min,
				Max:         t.Max,
				CriticalMin: t.CriticalMin,
				CriticalMax: t.CriticalMax,
			}, nil
		}
	}

	band, ok := vitals.DefaultBand(parameter)
	if !ok {
		return nil, nil
	}
	return &Resolved{
		Source:    SourceDefault,
		Parameter: parameter,
		Min:       Float(band.Min),
		Max:       Float(band.Max),
	}, nil
}

func (s *Service) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}
