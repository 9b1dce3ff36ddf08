package internal

import (
	"fmt"
	"indicator-spec/specs"
	"sort"
)

// MetricSet maps metric names to measurements for one (period, entity) pair.
type MetricSet struct {
	values map[string]Measurement
}

func NewMetricSet() MetricSet {
	return MetricSet{values: make(map[string]Measurement)}
}

// Set records a measurement. A metric seen twice keeps the last value.
func (m MetricSet) Set(metric RecordMetric, measurement Measurement) {
	m.values[metric.ToString()] = measurement
}

func (m MetricSet) Get(metric string) (Measurement, bool) {
	val, ok := m.values[metric]
	return val, ok
}

func (m MetricSet) Len() int {
	return len(m.values)
}

// Names returns the metric names in sorted order.
func (m MetricSet) Names() []string {
	names := make([]string, 0, len(m.values))
	for name := range m.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m MetricSet) merge(other MetricSet) {
	for name, value := range other.values {
		m.values[name] = value
	}
}

func (m MetricSet) ToSpec() specs.MetricSetSpec {
	out := make(specs.MetricSetSpec, len(m.values))
	for name, value := range m.values {
		out[name] = value.ToSpec()
	}
	return out
}

// EntityEntry is one entity's metric set within a period.
type EntityEntry struct {
	entity  RecordEntity
	metrics MetricSet
}

func NewEntityEntry(entity RecordEntity, metrics MetricSet) EntityEntry {
	return EntityEntry{entity: entity, metrics: metrics}
}

func (e EntityEntry) Entity() RecordEntity {
	return e.entity
}

func (e EntityEntry) Metrics() MetricSet {
	return e.metrics
}

func (e EntityEntry) ToSpec() specs.EntityEntrySpec {
	return specs.EntityEntrySpec{
		Country: e.entity.ToString(),
		Metrics: e.metrics.ToSpec(),
	}
}

// PeriodGroup is the ordered list of entity entries for one period.
// Each entity appears at most once; adding an entity again merges metrics.
type PeriodGroup struct {
	period  RecordPeriod
	entries []EntityEntry
	index   map[string]int
}

func NewPeriodGroup(period RecordPeriod) PeriodGroup {
	return PeriodGroup{period: period, index: make(map[string]int)}
}

func (p PeriodGroup) Period() RecordPeriod {
	return p.period
}

func (p PeriodGroup) Entries() []EntityEntry {
	return p.entries
}

func (p PeriodGroup) Len() int {
	return len(p.entries)
}

func (p PeriodGroup) Entry(entity string) (EntityEntry, bool) {
	i, ok := p.index[entity]
	if !ok {
		return EntityEntry{}, false
	}
	return p.entries[i], true
}

func (p *PeriodGroup) add(entry EntityEntry) {
	key := entry.entity.ToString()
	if i, ok := p.index[key]; ok {
		p.entries[i].metrics.merge(entry.metrics)
		return
	}
	p.index[key] = len(p.entries)
	p.entries = append(p.entries, entry)
}

func (p PeriodGroup) ToSpec() specs.PeriodGroupSpec {
	entries := make([]specs.EntityEntrySpec, len(p.entries))
	for i, e := range p.entries {
		entries[i] = e.ToSpec()
	}
	return specs.PeriodGroupSpec{Period: p.period.ToInt(), Entries: entries}
}

// Grouped is the nested indicator document: period groups in first-seen order.
type Grouped struct {
	periods []PeriodGroup
	index   map[int]int
}

func NewGroupedEmpty() Grouped {
	return Grouped{index: make(map[int]int)}
}

// NewGrouped validates a decoded document and converts it to domain objects.
func NewGrouped(spec specs.GroupedSpec) (Grouped, error) {
	g := NewGroupedEmpty()
	for _, p := range spec.Periods {
		period, err := NewRecordPeriod(p.Period)
		if err != nil {
			return Grouped{}, fmt.Errorf("invalid period %d: %w", p.Period, err)
		}
		group := NewPeriodGroup(period)
		for i, e := range p.Entries {
			entity, err := NewRecordEntity(e.Country)
			if err != nil {
				return Grouped{}, fmt.Errorf("invalid period %d entry %d: %w", p.Period, i, err)
			}
			metrics := NewMetricSet()
			for name, value := range e.Metrics {
				metric, err := NewRecordMetric(name)
				if err != nil {
					return Grouped{}, fmt.Errorf("invalid period %d entry %q: %w", p.Period, e.Country, err)
				}
				measurement, err := NewMeasurement(value)
				if err != nil {
					return Grouped{}, fmt.Errorf("invalid period %d entry %q metric %q: %w", p.Period, e.Country, name, err)
				}
				metrics.Set(metric, measurement)
			}
			group.add(NewEntityEntry(entity, metrics))
		}
		g.attach(group)
	}
	return g, nil
}

func (g Grouped) Periods() []PeriodGroup {
	return g.periods
}

func (g Grouped) Len() int {
	return len(g.periods)
}

func (g Grouped) Period(period int) (PeriodGroup, bool) {
	i, ok := g.index[period]
	if !ok {
		return PeriodGroup{}, false
	}
	return g.periods[i], true
}

// attach adds a finished period group, merging into an earlier group for
// the same period when one exists.
func (g *Grouped) attach(group PeriodGroup) {
	key := group.period.ToInt()
	i, ok := g.index[key]
	if !ok {
		g.index[key] = len(g.periods)
		g.periods = append(g.periods, group)
		return
	}
	for _, entry := range group.entries {
		g.periods[i].add(entry)
	}
}

func (g Grouped) ToSpec() specs.GroupedSpec {
	if len(g.periods) == 0 {
		return specs.GroupedSpec{}
	}
	periods := make([]specs.PeriodGroupSpec, len(g.periods))
	for i, p := range g.periods {
		periods[i] = p.ToSpec()
	}
	return specs.GroupedSpec{Periods: periods}
}
