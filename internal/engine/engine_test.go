package engine

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"incubator-alerts/internal/thresholds"
	"incubator-alerts/internal/vitals"
)

// mapResolver serves canned bands per parameter; a nil entry means the
// parameter is not monitored.
type mapResolver struct {
	bands map[string]*thresholds.Resolved
	errs  map[string]error
}

func (r *mapResolver) Resolve(_ context.Context, _, parameter string) (*thresholds.Resolved, error) {
	if err, ok := r.errs[parameter]; ok {
		return nil, err
	}
	return r.bands[parameter], nil
}

func testReading(values map[string]float64) vitals.Reading {
	return vitals.Reading{
		IncubatorID: "INC-001",
		PatientID:   "PAC-007",
		Timestamp:   time.Now().UTC(),
		Values:      values,
		Quality:     1,
	}
}

func band(min, max float64) *thresholds.Resolved {
	return &thresholds.Resolved{
		Source: thresholds.SourcePatient,
		Min:    thresholds.Float(min),
		Max:    thresholds.Float(max),
	}
}

func bandWithCritical(min, max, critMin, critMax float64) *thresholds.Resolved {
	r := band(min, max)
	r.CriticalMin = thresholds.Float(critMin)
	r.CriticalMax = thresholds.Float(critMax)
	return r
}

func newTestEngine(resolver Resolver) *Engine {
	return New(resolver, Options{}, zerolog.Nop())
}

func TestEvaluateInBandProducesNoCandidates(t *testing.T) {
	resolver := &mapResolver{bands: map[string]*thresholds.Resolved{
		vitals.ParamTemperaturaCorporal: band(36, 37.5),
	}}
	eng := newTestEngine(resolver)

	candidates, err := eng.Evaluate(context.Background(), testReading(map[string]float64{
		vitals.ParamTemperaturaCorporal: 36.8,
	}))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("in-band value should produce no candidates, got %d", len(candidates))
	}
}

func TestEvaluateBelowCriticalIsCritica(t *testing.T) {
	resolver := &mapResolver{bands: map[string]*thresholds.Resolved{
		vitals.ParamFrecuenciaCardiaca: bandWithCritical(100, 180, 80, 200),
	}}
	eng := newTestEngine(resolver)

	candidates, err := eng.Evaluate(context.Background(), testReading(map[string]float64{
		vitals.ParamFrecuenciaCardiaca: 70,
	}))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}

	c := candidates[0]
	if c.Severity != vitals.SeverityCritica {
		t.Fatalf("expected critica, got %s", c.Severity)
	}
	if c.Type != "frecuencia_cardiaca_baja" {
		t.Fatalf("unexpected alert type %q", c.Type)
	}
	if c.Direction != vitals.DirectionBajo {
		t.Fatalf("unexpected direction %q", c.Direction)
	}
	if c.Bound != 80 || c.Deviation != 10 {
		t.Fatalf("unexpected bound/deviation: %v/%v", c.Bound, c.Deviation)
	}
}

func TestEvaluateTwoTierWithoutCriticalBoundIsAlta(t *testing.T) {
	resolver := &mapResolver{bands: map[string]*thresholds.Resolved{
		vitals.ParamTemperaturaCorporal: band(36, 37.5),
	}}
	eng := newTestEngine(resolver)

	candidates, err := eng.Evaluate(context.Background(), testReading(map[string]float64{
		vitals.ParamTemperaturaCorporal: 38.2,
	}))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}

	c := candidates[0]
	if c.Severity != vitals.SeverityAlta {
		t.Fatalf("without a critical bound the breach should be alta, got %s", c.Severity)
	}
	want := "ALERTA alta: TEMPERATURA_CORPORAL ALTO - Valor: 38.20, Rango normal: 36-37.5, Desviación: 0.70"
	if c.Message != want {
		t.Fatalf("unexpected message:\n got %q\nwant %q", c.Message, want)
	}
}

func TestEvaluateGradesMediaAndAltaNearCritical(t *testing.T) {
	resolver := &mapResolver{bands: map[string]*thresholds.Resolved{
		vitals.ParamTemperaturaCorporal: bandWithCritical(36, 37.5, 35, 38.5),
	}}
	eng := newTestEngine(resolver)

	cases := []struct {
		value float64
		want  vitals.Severity
	}{
		{38.0, vitals.SeverityMedia},   // well inside the critical band
		{38.3, vitals.SeverityAlta},    // within 25% of the gap to critical
		{38.6, vitals.SeverityCritica}, // past the critical bound
	}
	for _, tc := range cases {
		candidates, err := eng.Evaluate(context.Background(), testReading(map[string]float64{
			vitals.ParamTemperaturaCorporal: tc.value,
		}))
		if err != nil {
			t.Fatalf("Evaluate(%v): %v", tc.value, err)
		}
		if len(candidates) != 1 {
			t.Fatalf("Evaluate(%v): expected 1 candidate, got %d", tc.value, len(candidates))
		}
		if got := candidates[0].Severity; got != tc.want {
			t.Fatalf("Evaluate(%v): expected %s, got %s", tc.value, tc.want, got)
		}
	}
}

func TestEvaluateNaNBecomesDataQualityAlert(t *testing.T) {
	resolver := &mapResolver{bands: map[string]*thresholds.Resolved{}}
	eng := newTestEngine(resolver)

	candidates, err := eng.Evaluate(context.Background(), testReading(map[string]float64{
		vitals.ParamSaturacionOxigeno: math.NaN(),
	}))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}

	c := candidates[0]
	if c.Type != "saturacion_oxigeno_datos_invalidos" {
		t.Fatalf("unexpected alert type %q", c.Type)
	}
	if c.Severity != vitals.SeverityBaja {
		t.Fatalf("data-quality alerts carry severity baja, got %s", c.Severity)
	}
}

func TestEvaluateLowQualityTagsButNeverSuppresses(t *testing.T) {
	resolver := &mapResolver{bands: map[string]*thresholds.Resolved{
		vitals.ParamTemperaturaCorporal: band(36, 37.5),
	}}
	eng := newTestEngine(resolver)

	reading := testReading(map[string]float64{vitals.ParamTemperaturaCorporal: 39})
	reading.Quality = 0.2

	candidates, err := eng.Evaluate(context.Background(), reading)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("low quality must not suppress alerts, got %d candidates", len(candidates))
	}
	if !candidates[0].LowConfidence {
		t.Fatal("candidate should be tagged low-confidence")
	}
}

func TestEvaluateFailuresAreScopedPerParameter(t *testing.T) {
	resolver := &mapResolver{
		bands: map[string]*thresholds.Resolved{
			vitals.ParamFrecuenciaCardiaca: band(100, 180),
		},
		errs: map[string]error{
			vitals.ParamTemperaturaCorporal: errors.New("store down"),
		},
	}
	eng := newTestEngine(resolver)

	candidates, err := eng.Evaluate(context.Background(), testReading(map[string]float64{
		vitals.ParamTemperaturaCorporal: 39,
		vitals.ParamFrecuenciaCardiaca:  200,
	}))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected the healthy parameter to still alert, got %d candidates", len(candidates))
	}
	if candidates[0].Parameter != vitals.ParamFrecuenciaCardiaca {
		t.Fatalf("unexpected parameter %q", candidates[0].Parameter)
	}
}

func TestEvaluateSkipsUnmonitoredParameters(t *testing.T) {
	resolver := &mapResolver{bands: map[string]*thresholds.Resolved{}}
	eng := newTestEngine(resolver)

	candidates, err := eng.Evaluate(context.Background(), testReading(map[string]float64{
		"peso_actual": 2.4,
	}))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("unmonitored parameters must not alert, got %d candidates", len(candidates))
	}
}

func TestEvaluateRejectsInvalidReading(t *testing.T) {
	eng := newTestEngine(&mapResolver{})

	reading := testReading(map[string]float64{vitals.ParamTemperaturaCorporal: 36.8})
	reading.IncubatorID = ""

	if _, err := eng.Evaluate(context.Background(), reading); !errors.Is(err, vitals.ErrEmptyIncubatorID) {
		t.Fatalf("expected ErrEmptyIncubatorID, got %v", err)
	}
}
