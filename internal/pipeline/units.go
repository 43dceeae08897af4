package pipeline

import "strings"

// conversion maps one recognized unit token to its SI target. Convert is
// linear for most units and affine for temperatures.
type conversion struct {
	siUnit  string
	convert func(float64) float64
}

func scale(factor float64) func(float64) float64 {
	return func(v float64) float64 { return v * factor }
}

func celsiusToKelvin(c float64) float64 { return c + 273.15 }

func fahrenheitToKelvin(f float64) float64 { return (f-32)*5/9 + 273.15 }

var unitTable = map[string]conversion{
	// pressure and stress, to pascals
	"mpa": {"Pa", scale(1e6)},
	"gpa": {"Pa", scale(1e9)},
	"kpa": {"Pa", scale(1e3)},
	"psi": {"Pa", scale(6894.76)},
	"ksi": {"Pa", scale(6.89476e6)},

	// temperature, to kelvin
	"°c":      {"K", celsiusToKelvin},
	"celsius": {"K", celsiusToKelvin},
	"°f":      {"K", fahrenheitToKelvin},

	// density, to kg/m³
	"g/cm³":  {"kg/m³", scale(1000)},
	"g/cm^3": {"kg/m³", scale(1000)},

	// length, to meters
	"mm": {"m", scale(0.001)},
	"cm": {"m", scale(0.01)},
	"in": {"m", scale(0.0254)},
	"ft": {"m", scale(0.3048)},
}

// siUnits fixes one target unit per canonical property. Percent stands in
// for elongation, which has no true SI unit.
var siUnits = map[string]string{
	PropTensileStrength:   "Pa",
	PropElasticModulus:    "Pa",
	PropFlexuralStrength:  "Pa",
	PropImpactStrength:    "J/m",
	PropDensity:           "kg/m³",
	PropElongationAtBreak: "%",
	PropGlassTransition:   "K",
}

// RecognizedUnit reports whether a token has a conversion entry.
func RecognizedUnit(unit string) bool {
	_, ok := unitTable[strings.ToLower(strings.TrimSpace(unit))]
	return ok
}

// SIUnitFor returns the fixed SI unit for a canonical property, empty when
// the property has none.
func SIUnitFor(property string) string {
	return siUnits[property]
}

// ConvertToSI converts a magnitude into SI units. Recognized tokens convert
// deterministically; the returned unit is the property's SI unit when one
// is defined, else the token's own target. Unrecognized tokens pass the
// magnitude through unchanged with the original unit.
func ConvertToSI(value float64, unit, property string) (float64, string) {
	token := strings.ToLower(strings.TrimSpace(unit))
	conv, ok := unitTable[token]
	if !ok {
		return value, unit
	}

	converted := conv.convert(value)
	if si := SIUnitFor(property); si != "" {
		return converted, si
	}
	return converted, conv.siUnit
}
