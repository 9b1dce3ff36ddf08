package internal

import (
	"fmt"
	"math"

	"github.com/cockroachdb/apd/v3"
)

type Decimal struct {
	value apd.Decimal
}

// NewDecimal parses a finite decimal string. NaN and infinities are rejected
// because they have no JSON representation.
func NewDecimal(s string) (Decimal, error) {
	var d apd.Decimal
	_, _, err := d.SetString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("invalid decimal: %w", err)
	}
	if d.Form != apd.Finite {
		return Decimal{}, fmt.Errorf("invalid decimal: %q is not finite", s)
	}
	return Decimal{value: d}, nil
}

// NewDecimalFromFloat64 converts a float using its shortest exact representation.
func NewDecimalFromFloat64(f float64) (Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Decimal{}, fmt.Errorf("invalid decimal: %v is not finite", f)
	}
	var d apd.Decimal
	if _, err := d.SetFloat64(f); err != nil {
		return Decimal{}, fmt.Errorf("invalid decimal: %w", err)
	}
	return Decimal{value: d}, nil
}

// String renders the decimal in plain notation ("5500000", never "5.5E+6"),
// which is always a valid JSON number.
func (d Decimal) String() string {
	return d.value.Text('f')
}

// Float64 returns the nearest float64, for charting.
func (d Decimal) Float64() float64 {
	f, err := d.value.Float64()
	if err != nil {
		return math.NaN()
	}
	return f
}

func (d Decimal) Cmp(other Decimal) int {
	return d.value.Cmp(&other.value)
}
