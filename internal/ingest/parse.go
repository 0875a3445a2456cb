package ingest

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"incubator-alerts/internal/vitals"
)

// wireReading is the telemetry payload published by incubator firmware.
// Values arrive untyped because firmware occasionally emits strings like
// "ERR" or null when a probe fails; those become NaN so the engine can
// raise a data-quality alert instead of the reading being dropped.
type wireReading struct {
	IncubatorID string         `json:"incubadora_id"`
	PatientID   string         `json:"paciente_id"`
	Timestamp   time.Time      `json:"timestamp"`
	Values      map[string]any `json:"valores"`
	Quality     *float64       `json:"calidad_datos"`
}

// ParseReading decodes a telemetry payload. The incubator id falls back
// to the second topic segment (incubadora/<id>/lecturas) when the
// payload omits it; a zero timestamp falls back to the current time.
func ParseReading(topic string, payload []byte) (vitals.Reading, error) {
	var wire wireReading
	if err := json.Unmarshal(payload, &wire); err != nil {
		return vitals.Reading{}, fmt.Errorf("decode reading payload: %w", err)
	}

	reading := vitals.Reading{
		IncubatorID: wire.IncubatorID,
		PatientID:   wire.PatientID,
		Timestamp:   wire.Timestamp,
		Quality:     1,
	}
	if wire.Quality != nil {
		reading.Quality = *wire.Quality
	}
	if reading.IncubatorID == "" {
		reading.IncubatorID = incubatorFromTopic(topic)
	}
	if reading.Timestamp.IsZero() {
		reading.Timestamp = time.Now().UTC()
	}

	reading.Values = make(map[string]float64, len(wire.Values))
	for param, raw := range wire.Values {
		reading.Values[param] = coerceValue(raw)
	}

	if err := reading.Validate(); err != nil {
		return vitals.Reading{}, err
	}
	return reading, nil
}

func coerceValue(raw any) float64 {
	switch v := raw.(type) {
	case float64:
		return v
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func incubatorFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 2 {
		return parts[1]
	}
	return ""
}
