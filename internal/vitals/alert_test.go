package vitals

import (
	"testing"
	"time"
)

func TestFormatAlertMessage(t *testing.T) {
	min, max := 36.0, 37.5
	got := FormatAlertMessage(SeverityMedia, ParamTemperaturaCorporal, DirectionAlto, 38.2, &min, &max, 0.7)
	want := "ALERTA media: TEMPERATURA_CORPORAL ALTO - Valor: 38.20, Rango normal: 36-37.5, Desviación: 0.70"
	if got != want {
		t.Fatalf("unexpected message:\n got %q\nwant %q", got, want)
	}
}

func TestFormatAlertMessageOpenBound(t *testing.T) {
	max := 100.0
	got := FormatAlertMessage(SeverityAlta, ParamSaturacionOxigeno, DirectionAlto, 101, nil, &max, 1)
	want := "ALERTA alta: SATURACION_OXIGENO ALTO - Valor: 101.00, Rango normal: --100, Desviación: 1.00"
	if got != want {
		t.Fatalf("unexpected message:\n got %q\nwant %q", got, want)
	}
}

func TestSeverityRankOrdering(t *testing.T) {
	order := []Severity{SeverityBaja, SeverityMedia, SeverityAlta, SeverityCritica}
	for i := 1; i < len(order); i++ {
		if order[i-1].Rank() >= order[i].Rank() {
			t.Fatalf("%s should rank below %s", order[i-1], order[i])
		}
	}
}

func TestReadingValidate(t *testing.T) {
	valid := Reading{
		IncubatorID: "INC-001",
		Timestamp:   time.Now().UTC(),
		Values:      map[string]float64{ParamTemperaturaCorporal: 36.8},
		Quality:     1,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid reading rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Reading)
		want   error
	}{
		{"empty incubator", func(r *Reading) { r.IncubatorID = "" }, ErrEmptyIncubatorID},
		{"zero timestamp", func(r *Reading) { r.Timestamp = time.Time{} }, ErrZeroTimestamp},
		{"no values", func(r *Reading) { r.Values = nil }, ErrNoValues},
		{"bad quality", func(r *Reading) { r.Quality = 1.2 }, ErrInvalidQuality},
	}
	for _, tc := range cases {
		r := valid
		tc.mutate(&r)
		if err := r.Validate(); err != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}
