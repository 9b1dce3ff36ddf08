// Package dashboard projects the grouped indicator document into tables,
// charts, choropleth maps and spreadsheets.
package dashboard

import (
	"errors"
	"fmt"
	"sort"

	"indicator-spec/internal"
	"indicator-spec/specs"
)

// DefaultTop is the number of bars drawn when no limit is given.
const DefaultTop = 10

var (
	ErrUnknownChart = errors.New("unknown chart kind")
	ErrNoData       = errors.New("no data for selection")
)

// Row is one present measurement in tabular form.
type Row struct {
	Period int                   `json:"period"`
	Entity string                `json:"entity"`
	Metric string                `json:"metric"`
	Value  specs.MeasurementSpec `json:"value"`
}

// Table flattens the selected part of the document, skipping null values.
func Table(g internal.Grouped, sel internal.Selection) []Row {
	var rows []Row
	for _, r := range sel.Apply(g).Records() {
		if r.Measurement.IsNull() {
			continue
		}
		rows = append(rows, Row{
			Period: r.Period.ToInt(),
			Entity: r.Entity.ToString(),
			Metric: r.Metric.ToString(),
			Value:  r.Measurement.ToSpec(),
		})
	}
	return rows
}

// Point is one entity on a scatter chart.
type Point struct {
	Entity string  `json:"entity"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// ScatterChart plots one metric against another for a single period.
type ScatterChart struct {
	Period  int     `json:"period"`
	XMetric string  `json:"xMetric"`
	YMetric string  `json:"yMetric"`
	Points  []Point `json:"points"`
}

// Scatter pairs the x metric and metric of each selected entity in the
// selected (or latest) period. Entities missing either value are skipped.
func Scatter(g internal.Grouped, sel internal.Selection) (*ScatterChart, error) {
	if sel.Metric() == "" || sel.XMetric() == "" {
		return nil, fmt.Errorf("scatter chart requires a metric and an x metric")
	}
	group, err := selectedPeriod(g, sel)
	if err != nil {
		return nil, err
	}

	c := &ScatterChart{Period: group.Period().ToInt(), XMetric: sel.XMetric(), YMetric: sel.Metric()}
	for _, e := range group.Entries() {
		if !sel.MatchesEntity(e.Entity().ToString()) {
			continue
		}
		x, okX := value(e, sel.XMetric())
		y, okY := value(e, sel.Metric())
		if !okX || !okY {
			continue
		}
		c.Points = append(c.Points, Point{Entity: e.Entity().ToString(), X: x, Y: y})
	}
	if len(c.Points) == 0 {
		return nil, fmt.Errorf("%w: %s vs %s in %d", ErrNoData, sel.Metric(), sel.XMetric(), c.Period)
	}
	return c, nil
}

// Series is one entity's metric over time.
type Series struct {
	Entity  string    `json:"entity"`
	Periods []int     `json:"periods"`
	Values  []float64 `json:"values"`
}

// AverageEntity names the series holding the per-period mean.
const AverageEntity = "Global Average"

// LineChart plots a metric over every period in the document.
type LineChart struct {
	Metric  string   `json:"metric"`
	Average Series   `json:"average"`
	Series  []Series `json:"series"`
}

// Line builds one series per selected entity with periods ascending.
// Series keep the order in which entities first appear in the document.
// Average is the mean over every entity with a value in each period,
// regardless of the entity filters.
func Line(g internal.Grouped, sel internal.Selection) (*LineChart, error) {
	if sel.Metric() == "" {
		return nil, fmt.Errorf("line chart requires a metric")
	}

	periods := g.Periods()
	order := make([]int, len(periods))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return periods[order[a]].Period().ToInt() < periods[order[b]].Period().ToInt()
	})

	average := Series{Entity: AverageEntity}
	index := make(map[string]int)
	var series []Series
	for _, entity := range g.Entities() {
		if sel.MatchesEntity(entity) {
			index[entity] = len(series)
			series = append(series, Series{Entity: entity})
		}
	}
	for _, i := range order {
		p := periods[i]
		sum, count := 0.0, 0
		for _, e := range p.Entries() {
			v, ok := value(e, sel.Metric())
			if !ok {
				continue
			}
			sum += v
			count++
			j, ok := index[e.Entity().ToString()]
			if !ok {
				continue
			}
			series[j].Periods = append(series[j].Periods, p.Period().ToInt())
			series[j].Values = append(series[j].Values, v)
		}
		if count > 0 {
			average.Periods = append(average.Periods, p.Period().ToInt())
			average.Values = append(average.Values, sum/float64(count))
		}
	}

	c := &LineChart{Metric: sel.Metric(), Average: average}
	for _, s := range series {
		if len(s.Values) > 0 {
			c.Series = append(c.Series, s)
		}
	}
	if len(average.Values) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, sel.Metric())
	}
	return c, nil
}

// BarValue is one ranked entity.
type BarValue struct {
	Entity string  `json:"entity"`
	Value  float64 `json:"value"`
}

// BarChart ranks entities by a metric in one period.
type BarChart struct {
	Period int        `json:"period"`
	Metric string     `json:"metric"`
	Bars   []BarValue `json:"bars"`
}

// Bar ranks the selected entities by metric, highest first, keeping the top
// n (DefaultTop when n is not positive). Ties are ordered by name.
func Bar(g internal.Grouped, sel internal.Selection, top int) (*BarChart, error) {
	if sel.Metric() == "" {
		return nil, fmt.Errorf("bar chart requires a metric")
	}
	if top <= 0 {
		top = DefaultTop
	}
	group, err := selectedPeriod(g, sel)
	if err != nil {
		return nil, err
	}

	c := &BarChart{Period: group.Period().ToInt(), Metric: sel.Metric()}
	for _, e := range group.Entries() {
		if !sel.MatchesEntity(e.Entity().ToString()) {
			continue
		}
		if v, ok := value(e, sel.Metric()); ok {
			c.Bars = append(c.Bars, BarValue{Entity: e.Entity().ToString(), Value: v})
		}
	}
	if len(c.Bars) == 0 {
		return nil, fmt.Errorf("%w: %s in %d", ErrNoData, sel.Metric(), c.Period)
	}

	sort.Slice(c.Bars, func(i, j int) bool {
		if c.Bars[i].Value != c.Bars[j].Value {
			return c.Bars[i].Value > c.Bars[j].Value
		}
		return c.Bars[i].Entity < c.Bars[j].Entity
	})
	if len(c.Bars) > top {
		c.Bars = c.Bars[:top]
	}
	return c, nil
}

func selectedPeriod(g internal.Grouped, sel internal.Selection) (internal.PeriodGroup, error) {
	period, ok := sel.ResolvePeriod(g)
	if !ok {
		return internal.PeriodGroup{}, fmt.Errorf("%w: empty document", ErrNoData)
	}
	group, ok := g.Period(period)
	if !ok {
		return internal.PeriodGroup{}, fmt.Errorf("%w: period %d", ErrNoData, period)
	}
	return group, nil
}

// value returns a present measurement as a float.
func value(e internal.EntityEntry, metric string) (float64, bool) {
	m, ok := e.Metrics().Get(metric)
	if !ok {
		return 0, false
	}
	q, ok := m.Quantity()
	if !ok {
		return 0, false
	}
	return q.Float64(), true
}
