package ledger

import (
	"time"

	"github.com/google/uuid"

	"incubator-alerts/internal/vitals"
)

// Transition names a lifecycle change for event consumers.
type Transition string

const (
	TransitionCreated      Transition = "creada"
	TransitionUpdated      Transition = "actualizada"
	TransitionAcknowledged Transition = "reconocida"
	TransitionResolved     Transition = "resuelta"
)

// Event is emitted on every alert lifecycle change. Delivery downstream is
// at-least-once; consumers de-duplicate on (AlertID, Transition).
type Event struct {
	AlertID    uuid.UUID
	Transition Transition
	Alert      vitals.Alert
	At         time.Time
}
