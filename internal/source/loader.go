package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// WDI exports mark missing values with an empty cell or "..".
const missingValue = ".."

var requiredColumns = []string{"countryname", "indicatorname"}

// yearColumn is one period column of the wide WDI layout.
type yearColumn struct {
	year  int
	index int
}

// Load imports a WDI CSV export into the source table, creating it if
// needed. Both layouts are accepted: long rows with Year and Value columns,
// and the bulk export with one column per year, which is unpivoted into one
// row per year. All rows are inserted in one transaction. Returns the row
// count.
func (s *SQLSource) Load(ctx context.Context, r io.Reader) (int, error) {
	if err := validateTable(s.table); err != nil {
		return 0, err
	}

	reader := csv.NewReader(r)
	reader.ReuseRecord = true
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("empty csv")
		}
		return 0, fmt.Errorf("read header: %w", err)
	}
	cols := columnIndex(header)
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return 0, fmt.Errorf("missing column %q", c)
		}
	}
	years, err := layout(header, cols)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, ddl := range s.schema() {
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return 0, fmt.Errorf("create table: %w", err)
		}
	}

	insert, err := tx.PrepareContext(ctx, s.insertStatement())
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer insert.Close()

	n := 0
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read line %d: %w", line, err)
		}

		cells := years
		if cells == nil {
			year, err := strconv.Atoi(strings.TrimSpace(field(row, cols, "year")))
			if err != nil {
				return 0, fmt.Errorf("line %d: invalid year: %w", line, err)
			}
			cells = []yearColumn{{year: year, index: cols["value"]}}
		}

		for _, c := range cells {
			raw := ""
			if c.index < len(row) {
				raw = row[c.index]
			}
			value, err := parseValue(raw)
			if err != nil {
				return 0, fmt.Errorf("line %d: invalid value: %w", line, err)
			}
			if _, err := insert.ExecContext(ctx,
				c.year,
				field(row, cols, "countryname"),
				field(row, cols, "countrycode"),
				field(row, cols, "indicatorname"),
				field(row, cols, "indicatorcode"),
				value,
			); err != nil {
				return 0, fmt.Errorf("line %d: insert: %w", line, err)
			}
			n++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	s.logger.Info("loaded indicator rows", zap.String("table", s.table), zap.Int("rows", n))
	return n, nil
}

// layout returns the year columns of a wide export, or nil when the header
// has Year and Value columns.
func layout(header []string, cols map[string]int) ([]yearColumn, error) {
	_, hasYear := cols["year"]
	_, hasValue := cols["value"]
	if hasYear && hasValue {
		return nil, nil
	}

	var years []yearColumn
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if len(h) != 4 {
			continue
		}
		year, err := strconv.Atoi(h)
		if err != nil || year < 0 {
			continue
		}
		years = append(years, yearColumn{year: year, index: i})
	}
	if len(years) == 0 {
		if !hasYear {
			return nil, fmt.Errorf("missing column %q", "year")
		}
		return nil, fmt.Errorf("missing column %q", "value")
	}
	return years, nil
}

// parseValue maps empty and ".." cells to NULL.
func parseValue(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == missingValue {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *SQLSource) schema() []string {
	index := strings.ReplaceAll(s.table, ".", "_") + "_lookup_idx"
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	year INTEGER NOT NULL,
	country_name TEXT NOT NULL,
	country_code TEXT,
	indicator_name TEXT NOT NULL,
	indicator_code TEXT,
	value %s
)`, s.table, s.dialect.realType),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (indicator_name, year, country_name)", index, s.table),
	}
}

func (s *SQLSource) insertStatement() string {
	marks := make([]string, 6)
	for i := range marks {
		marks[i] = s.dialect.placeholder(i + 1)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (year, country_name, country_code, indicator_name, indicator_code, value) VALUES (%s)",
		s.table, strings.Join(marks, ", "))
}

// columnIndex maps normalized header names ("Country Name", "country_name",
// "CountryName" all become "countryname") to positions.
func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		h = strings.ToLower(strings.NewReplacer(" ", "", "_", "").Replace(strings.TrimSpace(h)))
		cols[h] = i
	}
	return cols
}

func field(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}
