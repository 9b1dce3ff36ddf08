package specs

import (
	"context"
	"slices"
)

// DefaultIndicators are the World Bank indicators the dashboards are built around.
var DefaultIndicators = []string{
	"GDP per capita (current US$)",
	"Fertility rate, total (births per woman)",
	"Urban population",
	"Rural population",
}

// QuerySpec describes which indicator rows to fetch from a tabular source.
//
// Sources always order rows by (year, country, indicator), which keeps every
// (period, entity) pair contiguous for the grouper.
type QuerySpec struct {
	// Table holding the indicator rows.
	//
	// Empty means the source's default table. For BigQuery this is a fully
	// qualified name such as "bigquery-public-data.world_bank_wdi.indicators_data".
	Table string `json:"table,omitempty" yaml:"table,omitempty"`

	// Indicator names to select. Empty means DefaultIndicators.
	Indicators []string `json:"indicators,omitempty" yaml:"indicators,omitempty"`

	// Inclusive period range. Zero leaves that side unbounded.
	FromPeriod int `json:"fromPeriod,omitempty" yaml:"from,omitempty"`
	ToPeriod   int `json:"toPeriod,omitempty" yaml:"to,omitempty"`

	// Entity names to restrict the query to. Empty selects every entity.
	Entities []string `json:"entities,omitempty" yaml:"entities,omitempty"`

	// Descending orders periods newest first, as the published documents do.
	Descending bool `json:"descending" yaml:"descending"`

	// Limit caps the number of rows. Zero means no limit.
	Limit int `json:"limit,omitempty" yaml:"limit,omitempty"`
}

// IndicatorsOrDefault returns the configured indicators or DefaultIndicators.
func (q QuerySpec) IndicatorsOrDefault() []string {
	if len(q.Indicators) == 0 {
		return slices.Clone(DefaultIndicators)
	}
	return q.Indicators
}

// Query executes a QuerySpec against a tabular source.
//
// Returns records ordered by period (direction per QuerySpec.Descending),
// then entity, then metric. Measurements missing in the source come back as
// null measurements, not as absent records.
type Query func(ctx context.Context, query QuerySpec) ([]RecordSpec, error)
