package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indicator-spec/specs"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wdi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

		require.NoError(t, err)
		assert.Equal(t, "sqlite", cfg.Source.Driver)
		assert.Equal(t, "indicators_data", cfg.Source.Table)
		require.Len(t, cfg.Datasets, 1)
		assert.Equal(t, specs.DefaultIndicators, cfg.Datasets[0].Query.Indicators)
		assert.True(t, cfg.Datasets[0].Query.Descending)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := writeConfig(t, `
source:
  driver: postgres
  dsn: postgres://wdi@localhost/wdi
  query_timeout: 30s
datasets:
  - name: fertility
    output: out/fertility.json
    query:
      indicators: ["Fertility rate, total (births per woman)"]
      from: 2014
      to: 2024
      descending: true
extract:
  concurrency: 2
`)

		cfg, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, "postgres", cfg.Source.Driver)
		assert.Equal(t, 30*time.Second, cfg.GetQueryTimeout())
		require.Len(t, cfg.Datasets, 1)
		d, ok := cfg.Dataset("fertility")
		require.True(t, ok)
		assert.Equal(t, 2014, d.Query.FromPeriod)
		assert.Equal(t, 2024, d.Query.ToPeriod)
		assert.Equal(t, 2, cfg.Extract.Concurrency)
		assert.Equal(t, ":8080", cfg.Server.Addr)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("WDI_SOURCE_DRIVER", "bigquery")
		t.Setenv("WDI_BIGQUERY_PROJECT", "wdi-dashboards")
		t.Setenv("WDI_LOG_LEVEL", "debug")
		path := writeConfig(t, "source:\n  driver: sqlite\n")

		cfg, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, "bigquery", cfg.Source.Driver)
		assert.Equal(t, "wdi-dashboards", cfg.Source.Project)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("with malformed yaml returns error", func(t *testing.T) {
		path := writeConfig(t, "source: [")

		_, err := Load(path)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config")
	})
}

func TestDefaultConfig(t *testing.T) {
	t.Run("indicators do not alias the package defaults", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Datasets[0].Query.Indicators[0] = "CO2 emissions (kt)"

		assert.Equal(t, "GDP per capita (current US$)", specs.DefaultIndicators[0])
		assert.Equal(t, specs.DefaultIndicators, DefaultConfig().Datasets[0].Query.Indicators)
	})
}

func TestSave(t *testing.T) {
	t.Run("saved config loads back", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "wdi.yaml")
		cfg := DefaultConfig()
		cfg.Server.GeoJSON = "countries.geojson"

		require.NoError(t, cfg.Save(path))
		loaded, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, cfg, loaded)
	})
}

func TestValidate(t *testing.T) {
	t.Run("with unknown driver returns error", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Source.Driver = "oracle"

		err := cfg.Validate()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid source driver")
	})

	t.Run("with bigquery and no project returns error", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Source.Driver = "bigquery"

		err := cfg.Validate()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "bigquery project")
	})

	t.Run("with duplicate dataset names returns error", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Datasets = append(cfg.Datasets, DatasetConfig{Name: "indicators", Output: "other.json"})

		err := cfg.Validate()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate name")
	})

	t.Run("with shared output returns error", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Datasets = append(cfg.Datasets, DatasetConfig{Name: "other", Output: "data.json"})

		err := cfg.Validate()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "already used")
	})

	t.Run("with zero concurrency returns error", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Extract.Concurrency = 0

		err := cfg.Validate()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "concurrency")
	})

	t.Run("unparseable timeout falls back to default", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Source.QueryTimeout = "soon"

		assert.Equal(t, 5*time.Minute, cfg.GetQueryTimeout())
	})
}
