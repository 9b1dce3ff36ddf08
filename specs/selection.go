package specs

// SelectionSpec captures the dashboard controls: a metric dropdown, a period
// dropdown, a country multi-select and a free-text search box.
type SelectionSpec struct {
	// Metric plotted on the value axis, or used to color the map.
	Metric string `json:"metric,omitempty"`

	// XMetric is the horizontal axis of a scatter chart.
	XMetric string `json:"xMetric,omitempty"`

	// Period to show. Zero means every period (line charts) or the most
	// recent period in the document (everything else).
	Period int `json:"period,omitempty"`

	// Entities restricts the view to these names, matched case-insensitively.
	Entities []string `json:"entities,omitempty"`

	// Search keeps entities whose name contains this text, ignoring case.
	Search string `json:"search,omitempty"`
}
