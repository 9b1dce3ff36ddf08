package internal

import (
	"fmt"
	"indicator-spec/specs"
)

type Record struct {
	Period      RecordPeriod
	Entity      RecordEntity
	Metric      RecordMetric
	Measurement Measurement
}

func NewRecord(spec specs.RecordSpec) (Record, error) {
	period, err := NewRecordPeriod(spec.Period)
	if err != nil {
		return Record{}, fmt.Errorf("invalid period: %w", err)
	}

	entity, err := NewRecordEntity(spec.Entity)
	if err != nil {
		return Record{}, fmt.Errorf("invalid entity: %w", err)
	}

	metric, err := NewRecordMetric(spec.Metric)
	if err != nil {
		return Record{}, fmt.Errorf("invalid metric: %w", err)
	}

	measurement, err := NewMeasurement(spec.Measurement)
	if err != nil {
		return Record{}, fmt.Errorf("invalid measurement: %w", err)
	}

	return Record{
		Period:      period,
		Entity:      entity,
		Metric:      metric,
		Measurement: measurement,
	}, nil
}

func (r Record) ToSpec() specs.RecordSpec {
	return specs.RecordSpec{
		Period:      r.Period.ToInt(),
		Entity:      r.Entity.ToString(),
		Metric:      r.Metric.ToString(),
		Measurement: r.Measurement.ToSpec(),
	}
}

type RecordPeriod struct {
	value int
}

// NewRecordPeriod accepts positive periods only. Zero is reserved by
// selections to mean the latest period.
func NewRecordPeriod(value int) (RecordPeriod, error) {
	if value <= 0 {
		return RecordPeriod{}, fmt.Errorf("period must be positive, got %d", value)
	}
	return RecordPeriod{value: value}, nil
}

func (p RecordPeriod) ToInt() int {
	return p.value
}

type RecordEntity struct {
	value string
}

func NewRecordEntity(value string) (RecordEntity, error) {
	if value == "" {
		return RecordEntity{}, fmt.Errorf("entity is required")
	}
	return RecordEntity{value: value}, nil
}

func (e RecordEntity) ToString() string {
	return e.value
}

type RecordMetric struct {
	value string
}

func NewRecordMetric(value string) (RecordMetric, error) {
	if value == "" {
		return RecordMetric{}, fmt.Errorf("metric is required")
	}
	return RecordMetric{value: value}, nil
}

func (m RecordMetric) ToString() string {
	return m.value
}

// Measurement is an indicator value that may be missing in the source.
type Measurement struct {
	quantity Decimal
	valid    bool
}

func NewMeasurement(spec specs.MeasurementSpec) (Measurement, error) {
	if !spec.Valid {
		return NullMeasurement(), nil
	}
	quantity, err := NewDecimal(spec.Quantity)
	if err != nil {
		return Measurement{}, err
	}
	return Measurement{quantity: quantity, valid: true}, nil
}

func NullMeasurement() Measurement {
	return Measurement{}
}

func (m Measurement) IsNull() bool {
	return !m.valid
}

// Quantity returns the value and whether it is present.
func (m Measurement) Quantity() (Decimal, bool) {
	return m.quantity, m.valid
}

func (m Measurement) ToSpec() specs.MeasurementSpec {
	if !m.valid {
		return specs.NullMeasurement()
	}
	return specs.NewMeasurement(m.quantity.String())
}
