package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"indicator-spec/internal"
	"indicator-spec/internal/logging"
	"indicator-spec/specs"
)

// DefaultBigQueryTable is the public World Development Indicators dataset.
const DefaultBigQueryTable = "bigquery-public-data.world_bank_wdi.indicators_data"

// BigQuerySource runs indicator queries against BigQuery.
type BigQuerySource struct {
	client *bigquery.Client
	table  string
	logger *zap.Logger
}

type bigQueryRow struct {
	Year          int64                `bigquery:"year"`
	CountryName   string               `bigquery:"country_name"`
	IndicatorName string               `bigquery:"indicator_name"`
	Value         bigquery.NullFloat64 `bigquery:"value"`
}

// NewBigQuerySource creates a client billed to project. An empty
// credentialsFile uses application default credentials.
func NewBigQuerySource(ctx context.Context, project, credentialsFile, table string, logger *zap.Logger) (*BigQuerySource, error) {
	if project == "" {
		return nil, errors.New("bigquery project is required")
	}
	if table == "" || table == DefaultTable {
		table = DefaultBigQueryTable
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := bigquery.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("bigquery client: %w", err)
	}
	return &BigQuerySource{client: client, table: table, logger: logging.OrNop(logger)}, nil
}

func (s *BigQuerySource) Records(ctx context.Context, query specs.QuerySpec) ([]specs.RecordSpec, error) {
	stmt, args, err := buildQuery(bigqueryDialect, s.table, query)
	if err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	q := s.client.Query(stmt)
	q.Parameters = make([]bigquery.QueryParameter, len(args))
	for i, a := range args {
		q.Parameters[i] = bigquery.QueryParameter{Name: fmt.Sprintf("p%d", i+1), Value: a}
	}

	start := time.Now()
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("query bigquery: %w", err)
	}

	var records []specs.RecordSpec
	for {
		var row bigQueryRow
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(records), err)
		}

		m, err := floatMeasurement(row.Value)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid value: %w", len(records), err)
		}
		records = append(records, specs.RecordSpec{
			Period:      int(row.Year),
			Entity:      row.CountryName,
			Metric:      row.IndicatorName,
			Measurement: m,
		})
	}

	s.logger.Debug("indicator query finished",
		zap.String("dialect", bigqueryDialect.name),
		zap.Int("records", len(records)),
		zap.Uint64("total_rows", it.TotalRows),
		zap.Duration("elapsed", time.Since(start)),
	)
	return records, nil
}

func (s *BigQuerySource) Close() error {
	return s.client.Close()
}

func floatMeasurement(v bigquery.NullFloat64) (specs.MeasurementSpec, error) {
	if !v.Valid {
		return specs.NullMeasurement(), nil
	}
	d, err := internal.NewDecimalFromFloat64(v.Float64)
	if err != nil {
		return specs.MeasurementSpec{}, err
	}
	return specs.NewMeasurement(d.String()), nil
}
