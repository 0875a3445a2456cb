package vitals

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Candidate is an unpersisted alert proposal produced by the rule engine.
type Candidate struct {
	IncubatorID   string
	PatientID     string
	Parameter     string
	Type          string
	Direction     Direction // empty for data-quality candidates
	Severity      Severity
	Value         float64
	Bound         float64 // configured bound that was crossed
	Deviation     float64
	Message       string
	LowConfidence bool
	Timestamp     time.Time
}

// DedupKey identifies the active-alert merge key (incubator, patient, type).
func (c Candidate) DedupKey() string {
	return c.IncubatorID + "|" + c.PatientID + "|" + c.Type
}

// Alert is a persisted, lifecycle-tracked record of a detected abnormal
// condition. Alerts are never hard-deleted; they are retained for audit.
type Alert struct {
	ID            uuid.UUID
	IncubatorID   string
	PatientID     string
	Type          string
	Severity      Severity
	Value         float64
	Threshold     float64
	Message       string
	State         State
	LowConfidence bool
	AckBy         string
	AckAt         *time.Time
	ResolvedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DedupKey identifies the active-alert merge key (incubator, patient, type).
func (a Alert) DedupKey() string {
	return a.IncubatorID + "|" + a.PatientID + "|" + a.Type
}

// FormatAlertMessage renders the canonical Spanish alert text, for example:
//
//	ALERTA media: TEMPERATURA_CORPORAL ALTO - Valor: 38.20, Rango normal: 36-37.5, Desviación: 0.70
func FormatAlertMessage(sev Severity, parameter string, dir Direction, value float64, min, max *float64, deviation float64) string {
	return fmt.Sprintf("ALERTA %s: %s %s - Valor: %.2f, Rango normal: %s-%s, Desviación: %.2f",
		sev, strings.ToUpper(parameter), dir, value, formatBound(min), formatBound(max), deviation)
}

func formatBound(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
