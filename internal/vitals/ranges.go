package vitals

// Band is a closed numeric interval.
type Band struct {
	Min float64
	Max float64
}

// Contains reports whether v lies inside the band, bounds included.
func (b Band) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// defaultBands holds the system-wide acceptable ranges used when a patient
// has no configured threshold for a parameter. Wider than clinical normal
// bands on purpose: they only catch grossly abnormal values.
var defaultBands = map[string]Band{
	ParamTemperaturaCorporal:    {Min: 30.0, Max: 45.0},
	ParamTemperaturaIncubadora:  {Min: 30.0, Max: 45.0},
	ParamHumedadIncubadora:      {Min: 0.0, Max: 100.0},
	ParamSaturacionOxigeno:      {Min: 15.0, Max: 100.0},
	ParamConcentracionOxigeno:   {Min: 15.0, Max: 100.0},
	ParamFrecuenciaCardiaca:     {Min: 50, Max: 250},
	ParamFrecuenciaRespiratoria: {Min: 10, Max: 100},
	ParamPresionSistolica:       {Min: 30, Max: 150},
	ParamPresionDiastolica:      {Min: 15, Max: 100},
}

// DefaultBand returns the system-wide band for a parameter, if one exists.
func DefaultBand(parameter string) (Band, bool) {
	b, ok := defaultBands[parameter]
	return b, ok
}

// KnownParameters lists every parameter with a system default band.
func KnownParameters() []string {
	params := make([]string, 0, len(defaultBands))
	for p := range defaultBands {
		params = append(params, p)
	}
	return params
}
