package internal

import (
	"fmt"
	"indicator-spec/specs"
)

// Group implements specs.Group.
// Converts specs to domain objects, transforms, and converts back to specs.
func Group(recordSpecs []specs.RecordSpec) (specs.GroupedSpec, error) {
	records := make([]Record, len(recordSpecs))
	for i, spec := range recordSpecs {
		record, err := NewRecord(spec)
		if err != nil {
			return specs.GroupedSpec{}, fmt.Errorf("invalid record at index %d: %w", i, err)
		}
		records[i] = record
	}

	return group(records).ToSpec(), nil
}

// group folds records into a Grouped document with a fresh Grouper.
func group(records []Record) Grouped {
	g := NewGrouper()
	for _, r := range records {
		g.Add(r)
	}
	return g.Finish()
}

// Grouper folds an ordered stream of records into a Grouped document in a
// single forward pass.
//
// The grouper tracks the (period, entity) pair of the previous record. A
// change of entity closes the metric set being built; a change of period
// also closes the period group being built and attaches it to the output.
// Finish flushes whatever is still open.
//
// A Grouper belongs to one invocation and must not be shared between
// goroutines. Independent datasets can be grouped concurrently with one
// Grouper each.
type Grouper struct {
	started       bool
	currentPeriod RecordPeriod
	currentEntity RecordEntity
	metrics       MetricSet
	group         PeriodGroup
	out           Grouped
	records       int
}

func NewGrouper() *Grouper {
	return &Grouper{
		metrics: NewMetricSet(),
		out:     NewGroupedEmpty(),
	}
}

// Add consumes the next record.
func (g *Grouper) Add(r Record) {
	switch {
	case !g.started:
		g.group = NewPeriodGroup(r.Period)
	case r.Period != g.currentPeriod:
		g.closePeriod()
		g.group = NewPeriodGroup(r.Period)
	case r.Entity != g.currentEntity:
		g.closeEntry()
	}

	g.metrics.Set(r.Metric, r.Measurement)
	g.currentPeriod = r.Period
	g.currentEntity = r.Entity
	g.started = true
	g.records++
}

// Records returns how many records have been consumed.
func (g *Grouper) Records() int {
	return g.records
}

// Finish flushes the open entry and period group and returns the document.
func (g *Grouper) Finish() Grouped {
	if g.started {
		g.closePeriod()
	}
	return g.out
}

// closeEntry moves the in-progress metric set into the in-progress period group.
func (g *Grouper) closeEntry() {
	if g.metrics.Len() == 0 {
		return
	}
	g.group.add(NewEntityEntry(g.currentEntity, g.metrics))
	g.metrics = NewMetricSet()
}

// closePeriod closes the open entry and attaches the period group to the output.
func (g *Grouper) closePeriod() {
	g.closeEntry()
	if g.group.Len() == 0 {
		return
	}
	g.out.attach(g.group)
	g.group = NewPeriodGroup(g.currentPeriod)
}
