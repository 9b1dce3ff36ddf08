package dashboard

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"indicator-spec/internal"
)

const maxSheetName = 31

// ExportXLSX writes one sheet per metric: a row per entity in first-seen
// order and a column per period, ascending. Null measurements leave the
// cell empty.
func ExportXLSX(w io.Writer, g internal.Grouped) error {
	metrics := g.Metrics()
	if len(metrics) == 0 {
		return fmt.Errorf("%w: empty document", ErrNoData)
	}

	periods := make([]int, 0, g.Len())
	for _, p := range g.Periods() {
		periods = append(periods, p.Period().ToInt())
	}
	sort.Ints(periods)
	entities := g.Entities()

	f := excelize.NewFile()
	defer f.Close()

	used := make(map[string]bool)
	for i, metric := range metrics {
		sheet := sheetName(metric, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return fmt.Errorf("sheet %q: %w", sheet, err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("sheet %q: %w", sheet, err)
		}
		if err := writeMetricSheet(f, sheet, metric, g, periods, entities); err != nil {
			return fmt.Errorf("sheet %q: %w", sheet, err)
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func writeMetricSheet(f *excelize.File, sheet, metric string, g internal.Grouped, periods []int, entities []string) error {
	header := make([]interface{}, 0, len(periods)+1)
	header = append(header, "Country")
	for _, p := range periods {
		header = append(header, p)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", "A", 32); err != nil {
		return err
	}

	for i, entity := range entities {
		row := make([]interface{}, len(periods)+1)
		row[0] = entity
		for j, p := range periods {
			group, _ := g.Period(p)
			e, ok := group.Entry(entity)
			if !ok {
				continue
			}
			if v, ok := value(e, metric); ok {
				row[j+1] = v
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// sheetName shortens a metric name to a unique valid worksheet name.
func sheetName(metric string, used map[string]bool) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, metric)
	name = truncate(strings.TrimSpace(name), maxSheetName)
	if name == "" {
		name = "Metric"
	}

	candidate := name
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		candidate = truncate(name, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
