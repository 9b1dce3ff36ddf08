package specs

// Group folds flat indicator records into the nested per-period,
// per-entity document.
//
// Process:
//  1. Walk the records once, in order
//  2. Collect metrics for the current (period, entity) pair
//  3. Close the entity entry when the entity or period changes
//  4. Close the period group when the period changes
//  5. Flush whatever is still open once input is exhausted
//
// Records sharing a (period, entity) pair are expected to arrive together, as
// they do from a query ordered by (year, country, indicator). Pairs that
// reappear later are merged into the entry already emitted for them, so
// ordering only affects the order of the output, never its content.
//
// Returns error when a record fails validation (empty entity or metric,
// non-numeric measurement, period not positive).
//
// This is the spec-level interface using only primitive types.
// See internal.Group for the reference implementation.
type Group func(records []RecordSpec) (GroupedSpec, error)
