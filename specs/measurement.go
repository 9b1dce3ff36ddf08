package specs

import (
	"encoding/json"
	"fmt"
)

// MeasurementSpec represents an indicator value that may be missing.
//
// Indicator tables carry gaps: a country may have no GDP figure for a year
// while still reporting fertility. The gap is kept as an explicit null rather
// than dropped so that every record of the source query lands somewhere in
// the grouped output.
//
// On the wire a measurement is a bare JSON number or null, never a string:
//
//	{"GDP per capita (current US$)": 512.3, "Urban population": null}
type MeasurementSpec struct {
	// Numeric value as a decimal string.
	//
	// Stored as string to preserve the precision reported by the source
	// (population counts exceed float64's exact integer range once summed,
	// GDP figures carry many decimal places). Must be a valid JSON number
	// when Valid is true. Examples: "500", "6.2", "12345678.125".
	Quantity string

	// Valid is false when the source reported no value (SQL NULL).
	Valid bool
}

// NewMeasurement creates a present measurement from a decimal string.
func NewMeasurement(quantity string) MeasurementSpec {
	return MeasurementSpec{Quantity: quantity, Valid: true}
}

// NullMeasurement creates a missing measurement.
func NullMeasurement() MeasurementSpec {
	return MeasurementSpec{}
}

// MarshalJSON writes the quantity as a JSON number, or null.
func (m MeasurementSpec) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	if !isJSONNumber(m.Quantity) {
		return nil, fmt.Errorf("measurement %q is not a JSON number", m.Quantity)
	}
	return []byte(m.Quantity), nil
}

// UnmarshalJSON accepts a JSON number or null.
func (m *MeasurementSpec) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = NullMeasurement()
		return nil
	}
	if !isJSONNumber(string(data)) {
		return fmt.Errorf("invalid measurement: %s is not a number", data)
	}
	*m = NewMeasurement(string(data))
	return nil
}

func isJSONNumber(s string) bool {
	if s == "" || s == "null" || s[0] == '"' {
		return false
	}
	var n json.Number
	return json.Unmarshal([]byte(s), &n) == nil
}
