package specs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// MetricSetSpec maps indicator names to their values for one (period, entity) pair.
type MetricSetSpec map[string]MeasurementSpec

// EntityEntrySpec holds every metric reported for one entity in one period.
//
// The JSON field names match the document consumed by the dashboards:
//
//	{"country": "Chad", "Metrics": {"GDP per capita (current US$)": 500}}
type EntityEntrySpec struct {
	// Entity identifier (country or region name).
	Country string `json:"country"`

	// Metrics reported for the entity in the enclosing period.
	//
	// Never empty: an entry only exists because at least one record named it.
	Metrics MetricSetSpec `json:"Metrics"`
}

// PeriodGroupSpec is the ordered list of entity entries for one period.
type PeriodGroupSpec struct {
	// Period shared by every entry in the group.
	Period int

	// Entries in the order their entities first appeared in the input.
	Entries []EntityEntrySpec
}

// GroupedSpec is the nested indicator document produced by Group.
//
// Periods keep the order in which they first appeared in the input, so a
// query ordered by year descending produces a document whose newest year
// comes first. On the wire the document is a single JSON object keyed by
// the period rendered as a decimal string:
//
//	{
//	  "2021": [{"country": "Chad", "Metrics": {"GDP": 550}}],
//	  "2020": [{"country": "Chad", "Metrics": {"GDP": 500}}]
//	}
//
// An empty document encodes as {}.
type GroupedSpec struct {
	Periods []PeriodGroupSpec
}

// Lookup returns the group for a period.
func (g GroupedSpec) Lookup(period int) (PeriodGroupSpec, bool) {
	for _, p := range g.Periods {
		if p.Period == period {
			return p, true
		}
	}
	return PeriodGroupSpec{}, false
}

// Len returns the number of periods.
func (g GroupedSpec) Len() int {
	return len(g.Periods)
}

// RecordCount returns the number of (entity, metric) pairs in the document.
func (g GroupedSpec) RecordCount() int {
	count := 0
	for _, p := range g.Periods {
		for _, e := range p.Entries {
			count += len(e.Metrics)
		}
	}
	return count
}

// MarshalJSON writes the document as an object whose keys keep period order.
func (g GroupedSpec) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range g.Periods {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(strconv.Itoa(p.Period)))
		buf.WriteByte(':')

		entries := p.Entries
		if entries == nil {
			entries = []EntityEntrySpec{}
		}
		b, err := json.Marshal(entries)
		if err != nil {
			return nil, fmt.Errorf("period %d: %w", p.Period, err)
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a document written by MarshalJSON, preserving key order.
func (g *GroupedSpec) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("invalid document: %w", err)
	}
	if tok == nil {
		*g = GroupedSpec{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("invalid document: expected object, got %v", tok)
	}

	var periods []PeriodGroupSpec
	seen := make(map[int]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("invalid document: %w", err)
		}
		key, _ := tok.(string)
		period, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("invalid period key %q: %w", key, err)
		}
		if seen[period] {
			return fmt.Errorf("duplicate period key %q", key)
		}
		seen[period] = true

		var entries []EntityEntrySpec
		if err := dec.Decode(&entries); err != nil {
			return fmt.Errorf("invalid period %q: %w", key, err)
		}
		periods = append(periods, PeriodGroupSpec{Period: period, Entries: entries})
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("invalid document: %w", err)
	}

	g.Periods = periods
	return nil
}
