package thresholds

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidThresholdRange is returned when a threshold's band ordering
// invariant is violated. Bad configuration is rejected, never clamped.
var ErrInvalidThresholdRange = errors.New("invalid threshold range")

// Threshold is the per-(patient, parameter) band configuration. A nil bound
// means unbounded on that side. At most one active row exists per
// (patient, parameter); superseded rows are deactivated, not deleted.
type Threshold struct {
	ID          uuid.UUID
	PatientID   string
	Parameter   string
	Min         *float64
	Max         *float64
	CriticalMin *float64
	CriticalMax *float64
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate enforces the ordering invariant
// critico_min <= min <= max <= critico_max across every pair of set bounds.
func (t *Threshold) Validate() error {
	if t.PatientID == "" {
		return fmt.Errorf("%w: paciente_id is required", ErrInvalidThresholdRange)
	}
	if t.Parameter == "" {
		return fmt.Errorf("%w: parametro is required", ErrInvalidThresholdRange)
	}
	if t.Min == nil && t.Max == nil && t.CriticalMin == nil && t.CriticalMax == nil {
		return fmt.Errorf("%w: at least one bound must be set", ErrInvalidThresholdRange)
	}

	pairs := []struct {
		lo, hi *float64
		label  string
	}{
		{t.Min, t.Max, "valor_min > valor_max"},
		{t.CriticalMin, t.Min, "valor_critico_min > valor_min"},
		{t.Max, t.CriticalMax, "valor_max > valor_critico_max"},
		{t.CriticalMin, t.CriticalMax, "valor_critico_min > valor_critico_max"},
		{t.CriticalMin, t.Max, "valor_critico_min > valor_max"},
		{t.Min, t.CriticalMax, "valor_min > valor_critico_max"},
	}
	for _, p := range pairs {
		if p.lo != nil && p.hi != nil && *p.lo > *p.hi {
			return fmt.Errorf("%w: %s", ErrInvalidThresholdRange, p.label)
		}
	}
	return nil
}

// Float returns a pointer to v, for building threshold bounds inline.
func Float(v float64) *float64 {
	return &v
}
