package ingest

import (
	"math"
	"testing"
	"time"

	"incubator-alerts/internal/vitals"
)

func TestParseReadingFullPayload(t *testing.T) {
	payload := []byte(`{
		"incubadora_id": "INC-001",
		"paciente_id": "PAC-007",
		"timestamp": "2026-08-29T10:15:00Z",
		"valores": {"temperatura_corporal": 36.8, "frecuencia_cardiaca": 142},
		"calidad_datos": 0.92
	}`)

	reading, err := ParseReading("incubadora/INC-001/lecturas", payload)
	if err != nil {
		t.Fatalf("ParseReading: %v", err)
	}

	if reading.IncubatorID != "INC-001" || reading.PatientID != "PAC-007" {
		t.Fatalf("unexpected identity: %q/%q", reading.IncubatorID, reading.PatientID)
	}
	want := time.Date(2026, 8, 29, 10, 15, 0, 0, time.UTC)
	if !reading.Timestamp.Equal(want) {
		t.Fatalf("unexpected timestamp %v", reading.Timestamp)
	}
	if reading.Quality != 0.92 {
		t.Fatalf("unexpected quality %v", reading.Quality)
	}
	if reading.Values[vitals.ParamTemperaturaCorporal] != 36.8 {
		t.Fatalf("unexpected value map: %#v", reading.Values)
	}
}

func TestParseReadingFallsBackToTopicAndNow(t *testing.T) {
	payload := []byte(`{"valores": {"frecuencia_cardiaca": 142}}`)

	before := time.Now().UTC()
	reading, err := ParseReading("incubadora/INC-042/lecturas", payload)
	if err != nil {
		t.Fatalf("ParseReading: %v", err)
	}

	if reading.IncubatorID != "INC-042" {
		t.Fatalf("incubator id should come from the topic, got %q", reading.IncubatorID)
	}
	if reading.Timestamp.Before(before) {
		t.Fatalf("timestamp should default to now, got %v", reading.Timestamp)
	}
	if reading.Quality != 1 {
		t.Fatalf("quality should default to 1, got %v", reading.Quality)
	}
}

func TestParseReadingCoercesNonNumericToNaN(t *testing.T) {
	payload := []byte(`{
		"incubadora_id": "INC-001",
		"valores": {"saturacion_oxigeno": "ERR", "frecuencia_cardiaca": null, "humedad_incubadora": 60}
	}`)

	reading, err := ParseReading("incubadora/INC-001/lecturas", payload)
	if err != nil {
		t.Fatalf("ParseReading: %v", err)
	}

	if !math.IsNaN(reading.Values[vitals.ParamSaturacionOxigeno]) {
		t.Fatalf("string value should coerce to NaN, got %v", reading.Values[vitals.ParamSaturacionOxigeno])
	}
	if !math.IsNaN(reading.Values[vitals.ParamFrecuenciaCardiaca]) {
		t.Fatalf("null value should coerce to NaN, got %v", reading.Values[vitals.ParamFrecuenciaCardiaca])
	}
	if reading.Values[vitals.ParamHumedadIncubadora] != 60 {
		t.Fatalf("numeric value should pass through, got %v", reading.Values[vitals.ParamHumedadIncubadora])
	}
}

func TestParseReadingRejectsEmptyPayload(t *testing.T) {
	if _, err := ParseReading("incubadora/INC-001/lecturas", []byte(`{}`)); err == nil {
		t.Fatal("payload without values should be rejected")
	}
	if _, err := ParseReading("lecturas", []byte(`{"valores": {"frecuencia_cardiaca": 142}}`)); err == nil {
		t.Fatal("payload without a derivable incubator id should be rejected")
	}
	if _, err := ParseReading("incubadora/INC-001/lecturas", []byte(`not-json`)); err == nil {
		t.Fatal("malformed payload should be rejected")
	}
}
