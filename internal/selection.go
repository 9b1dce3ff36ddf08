package internal

import (
	"fmt"
	"indicator-spec/specs"
	"strings"

	"golang.org/x/text/cases"
)

// Selection is the validated form of the dashboard controls.
type Selection struct {
	metric   string
	xMetric  string
	period   int
	entities map[string]bool
	search   string
}

func NewSelection(spec specs.SelectionSpec) (Selection, error) {
	if spec.Period < 0 {
		return Selection{}, fmt.Errorf("invalid period: period cannot be negative")
	}
	if spec.XMetric != "" && spec.Metric == "" {
		return Selection{}, fmt.Errorf("invalid metric: x metric requires a metric")
	}

	var entities map[string]bool
	for _, name := range spec.Entities {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if entities == nil {
			entities = make(map[string]bool)
		}
		entities[fold(name)] = true
	}

	return Selection{
		metric:   spec.Metric,
		xMetric:  spec.XMetric,
		period:   spec.Period,
		entities: entities,
		search:   fold(strings.TrimSpace(spec.Search)),
	}, nil
}

func (s Selection) Metric() string {
	return s.metric
}

func (s Selection) XMetric() string {
	return s.xMetric
}

// Period returns the explicitly selected period.
func (s Selection) Period() (int, bool) {
	return s.period, s.period != 0
}

// ResolvePeriod returns the selected period, or the latest one in the document.
func (s Selection) ResolvePeriod(g Grouped) (int, bool) {
	if s.period != 0 {
		return s.period, true
	}
	return g.LatestPeriod()
}

// MatchesEntity reports whether an entity passes the country and search filters.
func (s Selection) MatchesEntity(name string) bool {
	folded := fold(name)
	if s.entities != nil && !s.entities[folded] {
		return false
	}
	if s.search != "" && !strings.Contains(folded, s.search) {
		return false
	}
	return true
}

// Apply returns the part of the document the selection covers. An explicit
// period keeps only that period; a metric keeps only that metric (and the
// x metric), dropping entries left without metrics.
func (s Selection) Apply(g Grouped) Grouped {
	out := NewGroupedEmpty()
	for _, p := range g.periods {
		if s.period != 0 && p.period.ToInt() != s.period {
			continue
		}
		group := NewPeriodGroup(p.period)
		for _, e := range p.entries {
			if !s.MatchesEntity(e.entity.ToString()) {
				continue
			}
			metrics := s.keepMetrics(e.metrics)
			if metrics.Len() == 0 {
				continue
			}
			group.add(NewEntityEntry(e.entity, metrics))
		}
		if group.Len() > 0 {
			out.attach(group)
		}
	}
	return out
}

func (s Selection) keepMetrics(metrics MetricSet) MetricSet {
	kept := NewMetricSet()
	if s.metric == "" {
		kept.merge(metrics)
		return kept
	}
	for _, name := range []string{s.metric, s.xMetric} {
		if name == "" {
			continue
		}
		if value, ok := metrics.Get(name); ok {
			kept.values[name] = value
		}
	}
	return kept
}

func fold(s string) string {
	return cases.Fold().String(s)
}
