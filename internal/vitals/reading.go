package vitals

import (
	"errors"
	"time"
)

// Monitored parameters. Names match the sensor payload keys and the
// umbrales_paciente.parametro column.
const (
	ParamTemperaturaCorporal    = "temperatura_corporal"
	ParamFrecuenciaCardiaca     = "frecuencia_cardiaca"
	ParamFrecuenciaRespiratoria = "frecuencia_respiratoria"
	ParamSaturacionOxigeno      = "saturacion_oxigeno"
	ParamPresionSistolica       = "presion_arterial_sistolica"
	ParamPresionDiastolica      = "presion_arterial_diastolica"
	ParamTemperaturaIncubadora  = "temperatura_incubadora"
	ParamHumedadIncubadora      = "humedad_incubadora"
	ParamConcentracionOxigeno   = "concentracion_oxigeno"
)

// Validation errors for incoming readings.
var (
	ErrEmptyIncubatorID = errors.New("reading incubator id cannot be empty")
	ErrZeroTimestamp    = errors.New("reading timestamp cannot be zero")
	ErrNoValues         = errors.New("reading carries no parameter values")
	ErrInvalidQuality   = errors.New("reading quality factor must be within [0,1]")
)

// Reading is one timestamped measurement set for an incubator/patient pair.
// Immutable once ingested.
type Reading struct {
	IncubatorID string             `json:"incubadora_id"`
	PatientID   string             `json:"paciente_id,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
	Values      map[string]float64 `json:"valores"`
	Quality     float64            `json:"calidad_datos"`
}

// Validate checks the reading envelope. Individual parameter values are not
// range-checked here; that is the rule engine's job.
func (r *Reading) Validate() error {
	if r.IncubatorID == "" {
		return ErrEmptyIncubatorID
	}
	if r.Timestamp.IsZero() {
		return ErrZeroTimestamp
	}
	if len(r.Values) == 0 {
		return ErrNoValues
	}
	if r.Quality < 0 || r.Quality > 1 {
		return ErrInvalidQuality
	}
	return nil
}
