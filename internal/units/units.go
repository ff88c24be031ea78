// Package units provides shared constants and validation for length units
package units

// Unit constants
const (
	CM = "cm"
	IN = "in"
	M  = "m"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{CM, IN, M}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "cm, in, m"
}

// ConvertLength converts a length from centimetres to the target units.
// Database stores lengths in cm.
func ConvertLength(lengthCm float64, targetUnits string) float64 {
	switch targetUnits {
	case IN:
		return lengthCm / 2.54
	case M:
		return lengthCm / 100
	case CM:
		return lengthCm
	default:
		return lengthCm // default to cm if unknown unit
	}
}
