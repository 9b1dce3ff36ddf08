// Package source executes indicator queries against tabular stores and
// returns flat records ordered for grouping.
package source

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"indicator-spec/internal"
	"indicator-spec/internal/config"
	"indicator-spec/internal/logging"
	"indicator-spec/specs"
)

// ErrUnknownDriver is returned by Open for an unsupported driver name.
var ErrUnknownDriver = errors.New("unknown source driver")

const DefaultTable = "indicators_data"

// Source is an upstream indicator query executor.
type Source interface {
	// Records runs the query and returns rows ordered by period, entity, metric.
	Records(ctx context.Context, query specs.QuerySpec) ([]specs.RecordSpec, error)
	Close() error
}

// Open connects to the source named by cfg.Driver.
func Open(ctx context.Context, cfg config.SourceConfig, logger *zap.Logger) (Source, error) {
	logger = logging.OrNop(logger)
	switch cfg.Driver {
	case "sqlite", "postgres":
		return OpenSQL(ctx, cfg.Driver, cfg.DSN, cfg.Table, logger)
	case "bigquery":
		return NewBigQuerySource(ctx, cfg.Project, cfg.CredentialsFile, cfg.Table, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

var tablePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+(\.[A-Za-z0-9_-]+){0,2}$`)

func validateTable(table string) error {
	if !tablePattern.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	return nil
}

// dialect captures the differences between query languages.
type dialect struct {
	name        string
	placeholder func(n int) string
	// expandLists binds each list element separately; otherwise a list is
	// one array parameter matched with UNNEST.
	expandLists bool
	quoteTable  func(table string) string
	realType    string
}

var (
	sqliteDialect = dialect{
		name:        "sqlite",
		placeholder: func(int) string { return "?" },
		expandLists: true,
		quoteTable:  func(t string) string { return t },
		realType:    "REAL",
	}
	postgresDialect = dialect{
		name:        "postgres",
		placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
		expandLists: true,
		quoteTable:  func(t string) string { return t },
		realType:    "DOUBLE PRECISION",
	}
	bigqueryDialect = dialect{
		name:        "bigquery",
		placeholder: func(n int) string { return fmt.Sprintf("@p%d", n) },
		expandLists: false,
		quoteTable:  func(t string) string { return "`" + t + "`" },
	}
)

// queryBuilder accumulates a WHERE clause and its bound arguments.
type queryBuilder struct {
	d     dialect
	conds []string
	args  []any
}

func (b *queryBuilder) bind(v any) string {
	b.args = append(b.args, v)
	return b.d.placeholder(len(b.args))
}

func (b *queryBuilder) in(column string, values []string) {
	if !b.d.expandLists {
		b.conds = append(b.conds, fmt.Sprintf("%s IN UNNEST(%s)", column, b.bind(values)))
		return
	}
	marks := make([]string, len(values))
	for i, v := range values {
		marks[i] = b.bind(v)
	}
	b.conds = append(b.conds, fmt.Sprintf("%s IN (%s)", column, strings.Join(marks, ", ")))
}

// buildQuery renders the indicator query for a dialect.
func buildQuery(d dialect, table string, q specs.QuerySpec) (string, []any, error) {
	if table == "" {
		table = DefaultTable
	}
	if q.Table != "" {
		table = q.Table
	}
	if err := validateTable(table); err != nil {
		return "", nil, err
	}
	if q.Limit < 0 {
		return "", nil, fmt.Errorf("invalid limit %d", q.Limit)
	}
	if q.FromPeriod != 0 && q.ToPeriod != 0 && q.FromPeriod > q.ToPeriod {
		return "", nil, fmt.Errorf("invalid period range %d-%d", q.FromPeriod, q.ToPeriod)
	}

	b := &queryBuilder{d: d}
	b.in("indicator_name", q.IndicatorsOrDefault())
	if q.FromPeriod != 0 {
		b.conds = append(b.conds, "year >= "+b.bind(q.FromPeriod))
	}
	if q.ToPeriod != 0 {
		b.conds = append(b.conds, "year <= "+b.bind(q.ToPeriod))
	}
	if len(q.Entities) > 0 {
		b.in("country_name", q.Entities)
	}

	direction := "ASC"
	if q.Descending {
		direction = "DESC"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT year, country_name, indicator_name, value FROM %s", d.quoteTable(table))
	fmt.Fprintf(&sb, " WHERE %s", strings.Join(b.conds, " AND "))
	fmt.Fprintf(&sb, " ORDER BY year %s, country_name, indicator_name", direction)
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}
	return sb.String(), b.args, nil
}

// measurementFrom normalizes a raw numeric column into a measurement.
func measurementFrom(raw string, valid bool) (specs.MeasurementSpec, error) {
	if !valid {
		return specs.NullMeasurement(), nil
	}
	d, err := internal.NewDecimal(raw)
	if err != nil {
		return specs.MeasurementSpec{}, err
	}
	return specs.NewMeasurement(d.String()), nil
}
