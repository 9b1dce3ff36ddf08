package benchmarks

import (
	"fmt"

	"indicator-spec/specs"
)

var metrics = []string{
	"Fertility rate, total (births per woman)",
	"GDP per capita (current US$)",
	"Rural population",
	"Urban population",
}

// dataset builds records in query order (year descending, country, indicator)
// for the given number of countries and years.
func dataset(countries, years int) []specs.RecordSpec {
	records := make([]specs.RecordSpec, 0, countries*years*len(metrics))
	for y := 0; y < years; y++ {
		year := 2023 - y
		for c := 0; c < countries; c++ {
			country := fmt.Sprintf("Country %03d", c)
			for m, metric := range metrics {
				if (c+y+m)%11 == 0 {
					records = append(records, specs.RecordSpec{Period: year, Entity: country, Metric: metric, Measurement: specs.NullMeasurement()})
					continue
				}
				records = append(records, specs.NewRecord(year, country, metric, fmt.Sprintf("%d.%02d", 1000+c*year%977, m*7)))
			}
		}
	}
	return records
}

// WDI publishes 217 economies and 49 regional aggregates.
var scales = []struct {
	name      string
	countries int
	years     int
}{
	{"Single year", 266, 1},
	{"Decade", 266, 10},
	{"Full history", 266, 64},
}
