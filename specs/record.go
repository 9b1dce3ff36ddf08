package specs

// RecordSpec represents one flat row of an indicator query.
//
// The upstream query returns rows shaped (year, country, indicator, value).
// A record names each column instead of relying on positional access, and
// is consumed exactly once by the grouper, in query order.
type RecordSpec struct {
	// Ordinal time bucket of the observation, typically a calendar year.
	//
	// Outermost grouping key. Rendered as a string key in the grouped JSON
	// document ("2020").
	Period int `json:"period"`

	// Country or region the indicator value belongs to.
	//
	// Second-level grouping key. World Bank tables use display names such as
	// "Chad" or "Sub-Saharan Africa"; ISO codes work equally well as long as
	// the same identifier is used throughout one dataset.
	Entity string `json:"entity"`

	// Indicator name, e.g. "GDP per capita (current US$)".
	//
	// Innermost key of the grouped output.
	Metric string `json:"metric"`

	// Indicator value, or null when the source has no figure.
	Measurement MeasurementSpec `json:"measurement"`
}

// NewRecord is a convenience constructor for a record with a present value.
func NewRecord(period int, entity, metric, quantity string) RecordSpec {
	return RecordSpec{
		Period:      period,
		Entity:      entity,
		Metric:      metric,
		Measurement: NewMeasurement(quantity),
	}
}
