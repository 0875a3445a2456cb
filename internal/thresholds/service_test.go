package thresholds

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"incubator-alerts/internal/vitals"
)

type fakeStore struct {
	active map[string]*Threshold
	err    error
	upsert []Threshold
}

func key(patientID, parameter string) string { return patientID + "|" + parameter }

func (s *fakeStore) GetActiveThreshold(_ context.Context, patientID, parameter string) (*Threshold, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.active[key(patientID, parameter)], nil
}

func (s *fakeStore) UpsertThreshold(_ context.Context, t Threshold) (Threshold, error) {
	if s.err != nil {
		return Threshold{}, s.err
	}
	if s.active == nil {
		s.active = make(map[string]*Threshold)
	}
	stored := t
	s.active[key(t.PatientID, t.Parameter)] = &stored
	s.upsert = append(s.upsert, t)
	return t, nil
}

func (s *fakeStore) DeactivateThreshold(_ context.Context, patientID, parameter string) error {
	if s.err != nil {
		return s.err
	}
	delete(s.active, key(patientID, parameter))
	return nil
}

func (s *fakeStore) ListActiveThresholds(_ context.Context, patientID string) ([]Threshold, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []Threshold
	for _, t := range s.active {
		if t.PatientID == patientID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func TestThresholdValidateRejectsInvertedBounds(t *testing.T) {
	bad := Threshold{
		PatientID: "PAC-007",
		Parameter: vitals.ParamTemperaturaCorporal,
		Min:       Float(38),
		Max:       Float(36),
	}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidThresholdRange) {
		t.Fatalf("expected ErrInvalidThresholdRange, got %v", err)
	}
}

func TestThresholdValidateRejectsCriticalInsideNormal(t *testing.T) {
	bad := Threshold{
		PatientID:   "PAC-007",
		Parameter:   vitals.ParamTemperaturaCorporal,
		Min:         Float(36),
		Max:         Float(37.5),
		CriticalMax: Float(37),
	}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidThresholdRange) {
		t.Fatalf("expected ErrInvalidThresholdRange, got %v", err)
	}
}

func TestUpsertAssignsIdentityAndActivates(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, 0, zerolog.Nop())

	saved, err := svc.Upsert(context.Background(), Threshold{
		PatientID: "PAC-007",
		Parameter: vitals.ParamTemperaturaCorporal,
		Min:       Float(36.2),
		Max:       Float(37.2),
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if saved.ID == uuid.Nil {
		t.Fatal("Upsert should assign an id")
	}
	if !saved.Active {
		t.Fatal("Upsert should activate the threshold")
	}
	if saved.CreatedAt.IsZero() || saved.UpdatedAt.IsZero() {
		t.Fatal("Upsert should stamp timestamps")
	}
}

func TestUpsertRejectsInvalidThreshold(t *testing.T) {
	svc := NewService(&fakeStore{}, 0, zerolog.Nop())

	_, err := svc.Upsert(context.Background(), Threshold{
		PatientID: "PAC-007",
		Parameter: vitals.ParamTemperaturaCorporal,
		Min:       Float(38),
		Max:       Float(36),
	})
	if !errors.Is(err, ErrInvalidThresholdRange) {
		t.Fatalf("expected ErrInvalidThresholdRange, got %v", err)
	}
}

func TestResolvePrefersPatientThreshold(t *testing.T) {
	store := &fakeStore{active: map[string]*Threshold{
		key("PAC-007", vitals.ParamTemperaturaCorporal): {
			PatientID: "PAC-007",
			Parameter: vitals.ParamTemperaturaCorporal,
			Min:       Float(36.2),
			Max:       Float(37.2),
			Active:    true,
		},
	}}
	svc := NewService(store, 0, zerolog.Nop())

	res, err := svc.Resolve(context.Background(), "PAC-007", vitals.ParamTemperaturaCorporal)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res == nil || res.Source != SourcePatient {
		t.Fatalf("expected patient threshold, got %#v", res)
	}
	if *res.Min != 36.2 || *res.Max != 37.2 {
		t.Fatalf("unexpected band: %v-%v", *res.Min, *res.Max)
	}
}

func TestResolveFallsBackToDefaultBand(t *testing.T) {
	svc := NewService(&fakeStore{}, 0, zerolog.Nop())

	res, err := svc.Resolve(context.Background(), "PAC-007", vitals.ParamFrecuenciaCardiaca)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res == nil || res.Source != SourceDefault {
		t.Fatalf("expected default band, got %#v", res)
	}
	if *res.Min != 50 || *res.Max != 250 {
		t.Fatalf("unexpected default band: %v-%v", *res.Min, *res.Max)
	}
}

func TestResolveSurvivesStoreFailure(t *testing.T) {
	svc := NewService(&fakeStore{err: errors.New("store down")}, 0, zerolog.Nop())

	res, err := svc.Resolve(context.Background(), "PAC-007", vitals.ParamFrecuenciaCardiaca)
	if err != nil {
		t.Fatalf("Resolve should fall back, not fail: %v", err)
	}
	if res == nil || res.Source != SourceDefault {
		t.Fatalf("expected default band fallback, got %#v", res)
	}
}

func TestResolveUnknownParameterIsUnmonitored(t *testing.T) {
	svc := NewService(&fakeStore{}, 0, zerolog.Nop())

	res, err := svc.Resolve(context.Background(), "PAC-007", "peso_actual")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res != nil {
		t.Fatalf("unknown parameters should be unmonitored, got %#v", res)
	}
}
