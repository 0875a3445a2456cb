package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"incubator-alerts/internal/thresholds"
	"incubator-alerts/internal/vitals"
)

// Resolver supplies the band a parameter must be evaluated against.
type Resolver interface {
	Resolve(ctx context.Context, patientID, parameter string) (*thresholds.Resolved, error)
}

// Options tune evaluation behaviour.
type Options struct {
	// AltaMargin is the fraction of the gap between a normal bound and its
	// critical bound, measured inward from the critical bound, within which
	// a media breach is upgraded to alta.
	AltaMargin float64
	// QualityFloor is the reading quality below which candidates are tagged
	// low-confidence. They are still emitted: suppressing alerts on noisy
	// sensors would hide genuine emergencies.
	QualityFloor float64
}

const (
	DefaultAltaMargin   = 0.25
	DefaultQualityFloor = 0.5
)

// Engine evaluates readings against resolved thresholds. It is stateless:
// evaluations for distinct readings may run fully in parallel.
type Engine struct {
	resolver Resolver
	opts     Options
	logger   zerolog.Logger
}

// New constructs an Engine. Zero option fields take the package defaults.
func New(resolver Resolver, opts Options, logger zerolog.Logger) *Engine {
	if opts.AltaMargin <= 0 {
		opts.AltaMargin = DefaultAltaMargin
	}
	if opts.QualityFloor <= 0 {
		opts.QualityFloor = DefaultQualityFloor
	}
	return &Engine{
		resolver: resolver,
		opts:     opts,
		logger:   logger.With().Str("component", "engine").Logger(),
	}
}

// Evaluate maps one reading to zero or more candidate alerts. Failures are
// scoped per parameter: one malformed field never suppresses alerts
// derivable from the reading's other fields.
func (e *Engine) Evaluate(ctx context.Context, reading vitals.Reading) ([]vitals.Candidate, error) {
	if err := reading.Validate(); err != nil {
		return nil, err
	}

	lowConfidence := reading.Quality < e.opts.QualityFloor

	params := make([]string, 0, len(reading.Values))
	for p := range reading.Values {
		params = append(params, p)
	}
	sort.Strings(params)

	var candidates []vitals.Candidate
	for _, param := range params {
		value := reading.Values[param]

		if math.IsNaN(value) || math.IsInf(value, 0) {
			candidates = append(candidates, dataQualityCandidate(reading, param, value, lowConfidence))
			continue
		}

		resolved, err := e.resolver.Resolve(ctx, reading.PatientID, param)
		if err != nil {
			e.logger.Warn().Err(err).
				Str("incubadora_id", reading.IncubatorID).
				Str("parametro", param).
				Msg("threshold resolution failed; parameter skipped")
			continue
		}
		if resolved == nil {
			// Not a monitored parameter (e.g. peso_actual).
			continue
		}

		if c, breached := e.evaluateBand(reading, resolved, param, value, lowConfidence); breached {
			candidates = append(candidates, c)
		}
	}
	return candidates, nil
}

func (e *Engine) evaluateBand(reading vitals.Reading, res *thresholds.Resolved, param string, value float64, lowConfidence bool) (vitals.Candidate, bool) {
	var (
		dir       vitals.Direction
		sev       vitals.Severity
		bound     float64
		deviation float64
	)

	switch {
	case res.CriticalMin != nil && value < *res.CriticalMin:
		dir, sev = vitals.DirectionBajo, vitals.SeverityCritica
		bound, deviation = *res.CriticalMin, *res.CriticalMin-value
	case res.CriticalMax != nil && value > *res.CriticalMax:
		dir, sev = vitals.DirectionAlto, vitals.SeverityCritica
		bound, deviation = *res.CriticalMax, value-*res.CriticalMax
	case res.Min != nil && value < *res.Min:
		dir = vitals.DirectionBajo
		bound, deviation = *res.Min, *res.Min-value
		sev = e.outOfBandSeverity(value, *res.Min, res.CriticalMin)
	case res.Max != nil && value > *res.Max:
		dir = vitals.DirectionAlto
		bound, deviation = *res.Max, value-*res.Max
		sev = e.outOfBandSeverity(value, *res.Max, res.CriticalMax)
	default:
		return vitals.Candidate{}, false
	}

	return vitals.Candidate{
		IncubatorID:   reading.IncubatorID,
		PatientID:     reading.PatientID,
		Parameter:     param,
		Type:          alertType(param, dir),
		Direction:     dir,
		Severity:      sev,
		Value:         value,
		Bound:         bound,
		Deviation:     deviation,
		Message:       vitals.FormatAlertMessage(sev, param, dir, value, res.Min, res.Max, deviation),
		LowConfidence: lowConfidence,
		Timestamp:     reading.Timestamp,
	}, true
}

// outOfBandSeverity grades a normal-band breach that is still inside the
// critical band. Without a critical bound on the crossed side the engine
// falls back to the simplified two-tier policy and reports alta.
func (e *Engine) outOfBandSeverity(value, normalBound float64, criticalBound *float64) vitals.Severity {
	if criticalBound == nil {
		return vitals.SeverityAlta
	}
	gap := math.Abs(*criticalBound - normalBound)
	if gap > 0 && math.Abs(value-*criticalBound) <= e.opts.AltaMargin*gap {
		return vitals.SeverityAlta
	}
	return vitals.SeverityMedia
}

func dataQualityCandidate(reading vitals.Reading, param string, value float64, lowConfidence bool) vitals.Candidate {
	return vitals.Candidate{
		IncubatorID:   reading.IncubatorID,
		PatientID:     reading.PatientID,
		Parameter:     param,
		Type:          param + "_datos_invalidos",
		Severity:      vitals.SeverityBaja,
		Value:         value,
		Message:       fmt.Sprintf("ALERTA %s: %s - valor no numérico", vitals.SeverityBaja, strings.ToUpper(param)),
		LowConfidence: lowConfidence,
		Timestamp:     reading.Timestamp,
	}
}

func alertType(param string, dir vitals.Direction) string {
	if dir == vitals.DirectionBajo {
		return param + "_baja"
	}
	return param + "_alta"
}

var _ Resolver = (*thresholds.Service)(nil)
