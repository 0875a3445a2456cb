package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"incubator-alerts/internal/ledger"
	"incubator-alerts/internal/thresholds"
	"incubator-alerts/internal/vitals"
)

// Memory is an in-process store implementing the threshold, alert, and
// reading contracts. It backs tests and broker-only deployments without a
// database; nothing is retained across restarts.
type Memory struct {
	mu          sync.RWMutex
	thresholds  []thresholds.Threshold
	alerts      map[uuid.UUID]vitals.Alert
	activeByKey map[string]uuid.UUID
	readings    []StoredReading
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		alerts:      make(map[uuid.UUID]vitals.Alert),
		activeByKey: make(map[string]uuid.UUID),
	}
}

// GetActiveThreshold returns the active threshold for (patient, parameter).
func (m *Memory) GetActiveThreshold(_ context.Context, patientID, parameter string) (*thresholds.Threshold, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.thresholds {
		t := m.thresholds[i]
		if t.Active && t.PatientID == patientID && t.Parameter == parameter {
			return &t, nil
		}
	}
	return nil, nil
}

// UpsertThreshold deactivates any prior active row for the key and appends
// the new one. Superseded rows are kept, mirroring the relational schema.
func (m *Memory) UpsertThreshold(_ context.Context, t thresholds.Threshold) (thresholds.Threshold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.thresholds {
		if m.thresholds[i].Active && m.thresholds[i].PatientID == t.PatientID && m.thresholds[i].Parameter == t.Parameter {
			m.thresholds[i].Active = false
			m.thresholds[i].UpdatedAt = t.UpdatedAt
		}
	}
	m.thresholds = append(m.thresholds, t)
	return t, nil
}

// DeactivateThreshold retires the active row for (patient, parameter).
func (m *Memory) DeactivateThreshold(_ context.Context, patientID, parameter string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	for i := range m.thresholds {
		if m.thresholds[i].Active && m.thresholds[i].PatientID == patientID && m.thresholds[i].Parameter == parameter {
			m.thresholds[i].Active = false
			m.thresholds[i].UpdatedAt = now
		}
	}
	return nil
}

// ListActiveThresholds returns every active threshold for a patient.
func (m *Memory) ListActiveThresholds(_ context.Context, patientID string) ([]thresholds.Threshold, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]thresholds.Threshold, 0)
	for _, t := range m.thresholds {
		if t.Active && t.PatientID == patientID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Parameter < out[j].Parameter })
	return out, nil
}

// GetAlert loads one alert by id, or nil when missing.
func (m *Memory) GetAlert(_ context.Context, id uuid.UUID) (*vitals.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.alerts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// GetActiveAlertByKey returns the activa alert for the de-duplication key.
func (m *Memory) GetActiveAlertByKey(_ context.Context, incubatorID, patientID, alertType string) (*vitals.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	key := incubatorID + "|" + patientID + "|" + alertType
	id, ok := m.activeByKey[key]
	if !ok {
		return nil, nil
	}
	a := m.alerts[id]
	return &a, nil
}

// InsertAlert stores a newly opened alert.
func (m *Memory) InsertAlert(_ context.Context, a vitals.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts[a.ID] = a
	if a.State == vitals.StateActiva {
		m.activeByKey[a.DedupKey()] = a.ID
	}
	return nil
}

// UpdateAlert rewrites an alert row and maintains the active-key index.
func (m *Memory) UpdateAlert(_ context.Context, a vitals.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.alerts[a.ID]; !ok {
		return ledger.ErrNotFound
	}
	m.alerts[a.ID] = a
	if a.State == vitals.StateActiva {
		m.activeByKey[a.DedupKey()] = a.ID
	} else if m.activeByKey[a.DedupKey()] == a.ID {
		delete(m.activeByKey, a.DedupKey())
	}
	return nil
}

// ListAlerts queries alerts by filter, newest first.
func (m *Memory) ListAlerts(_ context.Context, f ledger.Filter) ([]vitals.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]vitals.Alert, 0)
	for _, a := range m.alerts {
		if f.IncubatorID != "" && a.IncubatorID != f.IncubatorID {
			continue
		}
		if f.PatientID != "" && a.PatientID != f.PatientID {
			continue
		}
		if len(f.States) > 0 && !containsState(f.States, a.State) {
			continue
		}
		if len(f.Severities) > 0 && !containsSeverity(f.Severities, a.Severity) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// InsertReading appends a reading and returns its generated id.
func (m *Memory) InsertReading(_ context.Context, r vitals.Reading) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.readings = append(m.readings, StoredReading{ID: id, Reading: r})
	return id, nil
}

// ListReadings returns stored readings matching the filter, oldest first.
func (m *Memory) ListReadings(_ context.Context, f ReadingFilter) ([]StoredReading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]StoredReading, 0)
	for _, sr := range m.readings {
		r := sr.Reading
		if f.IncubatorID != "" && r.IncubatorID != f.IncubatorID {
			continue
		}
		if f.PatientID != "" && r.PatientID != f.PatientID {
			continue
		}
		if !f.From.IsZero() && r.Timestamp.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !r.Timestamp.Before(f.To) {
			continue
		}
		out = append(out, sr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Reading.Timestamp.Before(out[j].Reading.Timestamp) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// DeleteReadingsBefore removes readings older than the cutoff.
func (m *Memory) DeleteReadingsBefore(_ context.Context, olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.readings[:0]
	var removed int64
	for _, sr := range m.readings {
		if sr.Reading.Timestamp.Before(olderThan) {
			removed++
			continue
		}
		kept = append(kept, sr)
	}
	m.readings = kept
	return removed, nil
}

func containsState(states []vitals.State, s vitals.State) bool {
	for _, v := range states {
		if v == s {
			return true
		}
	}
	return false
}

func containsSeverity(sevs []vitals.Severity, s vitals.Severity) bool {
	for _, v := range sevs {
		if v == s {
			return true
		}
	}
	return false
}

var (
	_ thresholds.Store = (*Memory)(nil)
	_ ledger.Store     = (*Memory)(nil)
	_ ReadingStore     = (*Memory)(nil)
)
