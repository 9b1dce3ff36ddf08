package source

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"indicator-spec/internal/logging"
	"indicator-spec/specs"
)

// SQLSource runs indicator queries over database/sql.
type SQLSource struct {
	db      *sql.DB
	dialect dialect
	table   string
	logger  *zap.Logger
}

// OpenSQL opens a sqlite or postgres source and checks the connection.
func OpenSQL(ctx context.Context, driver, dsn, table string, logger *zap.Logger) (*SQLSource, error) {
	var (
		d          dialect
		driverName string
	)
	switch driver {
	case "sqlite":
		d, driverName = sqliteDialect, "sqlite"
	case "postgres":
		d, driverName = postgresDialect, "pgx"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// sqlite allows one writer.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	return NewSQLSource(db, d, table, logger), nil
}

func NewSQLSource(db *sql.DB, d dialect, table string, logger *zap.Logger) *SQLSource {
	if table == "" {
		table = DefaultTable
	}
	return &SQLSource{db: db, dialect: d, table: table, logger: logging.OrNop(logger)}
}

// DB exposes the underlying handle.
func (s *SQLSource) DB() *sql.DB {
	return s.db
}

func (s *SQLSource) Records(ctx context.Context, query specs.QuerySpec) ([]specs.RecordSpec, error) {
	stmt, args, err := buildQuery(s.dialect, s.table, query)
	if err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.dialect.name, err)
	}
	defer rows.Close()

	var records []specs.RecordSpec
	for rows.Next() {
		var (
			year    int
			country string
			metric  string
			value   sql.NullString
		)
		if err := rows.Scan(&year, &country, &metric, &value); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(records), err)
		}
		m, err := measurementFrom(value.String, value.Valid)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid value %q: %w", len(records), value.String, err)
		}
		records = append(records, specs.RecordSpec{Period: year, Entity: country, Metric: metric, Measurement: m})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	s.logger.Debug("indicator query finished",
		zap.String("dialect", s.dialect.name),
		zap.Int("records", len(records)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return records, nil
}

func (s *SQLSource) Close() error {
	return s.db.Close()
}
