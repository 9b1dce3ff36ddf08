package internal

import (
	"indicator-spec/specs"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord(t *testing.T) {
	t.Run("creates record with all fields", func(t *testing.T) {
		record, err := NewRecord(specs.NewRecord(2014, "Niger", "Fertility rate, total (births per woman)", "7.29"))

		require.NoError(t, err)
		assert.Equal(t, 2014, record.Period.ToInt())
		assert.Equal(t, "Niger", record.Entity.ToString())
		assert.Equal(t, "Fertility rate, total (births per woman)", record.Metric.ToString())
		quantity, ok := record.Measurement.Quantity()
		require.True(t, ok)
		assert.Equal(t, "7.29", quantity.String())
	})

	t.Run("null measurement is accepted", func(t *testing.T) {
		record, err := NewRecord(specs.RecordSpec{Period: 2014, Entity: "Niger", Metric: "GDP"})

		require.NoError(t, err)
		assert.True(t, record.Measurement.IsNull())
		assert.Equal(t, specs.NullMeasurement(), record.Measurement.ToSpec())
	})

	t.Run("with empty metric returns error", func(t *testing.T) {
		_, err := NewRecord(specs.NewRecord(2014, "Niger", "", "1"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid metric")
	})

	t.Run("with infinite measurement returns error", func(t *testing.T) {
		_, err := NewRecord(specs.NewRecord(2014, "Niger", "GDP", "Infinity"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "not finite")
	})

	t.Run("round trips through spec", func(t *testing.T) {
		spec := specs.NewRecord(2014, "Niger", "GDP", "412.5")

		record, err := NewRecord(spec)

		require.NoError(t, err)
		assert.Equal(t, spec, record.ToSpec())
	})
}

func TestDecimal(t *testing.T) {
	t.Run("large float renders without exponent", func(t *testing.T) {
		d, err := NewDecimalFromFloat64(5.5e6)

		require.NoError(t, err)
		assert.Equal(t, "5500000", d.String())
		assert.Equal(t, 5.5e6, d.Float64())
	})

	t.Run("fraction keeps shortest digits", func(t *testing.T) {
		d, err := NewDecimalFromFloat64(6.2)

		require.NoError(t, err)
		assert.Equal(t, "6.2", d.String())
	})

	t.Run("compares numerically", func(t *testing.T) {
		a, err := NewDecimal("10")
		require.NoError(t, err)
		b, err := NewDecimal("9.99")
		require.NoError(t, err)

		assert.Equal(t, 1, a.Cmp(b))
		assert.Equal(t, -1, b.Cmp(a))
	})

	t.Run("with NaN float returns error", func(t *testing.T) {
		_, err := NewDecimalFromFloat64(math.NaN())

		require.Error(t, err)
	})
}

func TestNewGrouped(t *testing.T) {
	t.Run("with period zero returns error", func(t *testing.T) {
		_, err := NewGrouped(specs.GroupedSpec{Periods: []specs.PeriodGroupSpec{
			{Period: 0, Entries: []specs.EntityEntrySpec{
				{Country: "Chad", Metrics: specs.MetricSetSpec{"GDP": specs.NewMeasurement("1")}},
			}},
		}})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid period 0")
	})
}
