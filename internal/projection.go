package internal

import "indicator-spec/specs"

// Records flattens the document back into records: periods in document
// order, entities in entry order, metrics sorted by name.
func (g Grouped) Records() []Record {
	var records []Record
	for _, p := range g.periods {
		for _, e := range p.entries {
			for _, name := range e.metrics.Names() {
				value, _ := e.metrics.Get(name)
				records = append(records, Record{
					Period:      p.period,
					Entity:      e.entity,
					Metric:      RecordMetric{value: name},
					Measurement: value,
				})
			}
		}
	}
	return records
}

// Flatten converts a grouped document into flat records, the tabular form
// used by spreadsheet and table consumers.
func Flatten(spec specs.GroupedSpec) ([]specs.RecordSpec, error) {
	g, err := NewGrouped(spec)
	if err != nil {
		return nil, err
	}
	records := g.Records()
	out := make([]specs.RecordSpec, len(records))
	for i, r := range records {
		out[i] = r.ToSpec()
	}
	return out, nil
}

// Metrics returns every metric name present in the document, sorted.
func (g Grouped) Metrics() []string {
	seen := NewMetricSet()
	for _, p := range g.periods {
		for _, e := range p.entries {
			seen.merge(e.metrics)
		}
	}
	return seen.Names()
}

// Entities returns every entity name in first-seen order.
func (g Grouped) Entities() []string {
	seen := make(map[string]bool)
	var names []string
	for _, p := range g.periods {
		for _, e := range p.entries {
			name := e.entity.ToString()
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

// LatestPeriod returns the highest period in the document.
func (g Grouped) LatestPeriod() (int, bool) {
	if len(g.periods) == 0 {
		return 0, false
	}
	latest := g.periods[0].period.ToInt()
	for _, p := range g.periods[1:] {
		if p.period.ToInt() > latest {
			latest = p.period.ToInt()
		}
	}
	return latest, true
}
