package vitals

// Severity grades how far a reading strayed from its configured bands.
type Severity string

const (
	SeverityBaja    Severity = "baja"
	SeverityMedia   Severity = "media"
	SeverityAlta    Severity = "alta"
	SeverityCritica Severity = "critica"
)

// Rank orders severities for sorting; higher means more urgent.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritica:
		return 4
	case SeverityAlta:
		return 3
	case SeverityMedia:
		return 2
	case SeverityBaja:
		return 1
	default:
		return 0
	}
}

// IsValid reports whether the severity is one of the four known tiers.
func (s Severity) IsValid() bool {
	return s.Rank() > 0
}

// State tracks an alert through its lifecycle.
type State string

const (
	StateActiva     State = "activa"
	StateReconocida State = "reconocida"
	StateResuelta   State = "resuelta"
)

// IsValid reports whether the state is a known lifecycle state.
func (s State) IsValid() bool {
	switch s {
	case StateActiva, StateReconocida, StateResuelta:
		return true
	default:
		return false
	}
}

// Direction indicates which side of the band a value crossed.
type Direction string

const (
	DirectionBajo Direction = "BAJO"
	DirectionAlto Direction = "ALTO"
)
