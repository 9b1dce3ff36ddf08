package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"indicator-spec/internal/dashboard"
	"indicator-spec/internal/document"
)

const wdiCSV = `Country Name,Country Code,Indicator Name,Indicator Code,Year,Value
Chad,TCD,GDP per capita (current US$),NY.GDP.PCAP.CD,2021,685.7
Chad,TCD,"Fertility rate, total (births per woman)",SP.DYN.TFRT.IN,2021,6.2
Mali,MLI,GDP per capita (current US$),NY.GDP.PCAP.CD,2021,873.8
Mali,MLI,"Fertility rate, total (births per woman)",SP.DYN.TFRT.IN,2021,5.7
Chad,TCD,GDP per capita (current US$),NY.GDP.PCAP.CD,2020,659.5
Mali,MLI,Urban population,SP.URB.TOTL,2020,
Mali,MLI,CO2 emissions (kt),EN.ATM.CO2E.KT,2020,3420
`

const boundaries = `{"type":"FeatureCollection","features":[
{"type":"Feature","properties":{"ADMIN":"Chad"},"geometry":null},
{"type":"Feature","properties":{"ADMIN":"Mali"},"geometry":null}]}`

// workspace writes a config pointing every path into a temp dir.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	config := strings.NewReplacer("DIR", dir).Replace(`
source:
  driver: sqlite
  dsn: DIR/mirror/wdi.db
datasets:
  - name: indicators
    output: DIR/data.json
    query:
      descending: true
  - name: co2
    output: DIR/co2.json
    query:
      indicators: ["CO2 emissions (kt)"]
extract:
  concurrency: 2
  indent: true
server:
  document: DIR/data.json
logging:
  level: error
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wdi.yaml"), []byte(config), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wdi.csv"), []byte(wdiCSV), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "countries.geojson"), []byte(boundaries), 0644))
	return dir
}

// runCLI executes the root command with fresh flag values.
func runCLI(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	extractDataset, extractOut, loadCSV = "", "", ""
	inPath, outPath, metric, xMetric, search, format, geojson, mapKey = "", "", "", "", "", "", "", ""
	period, top, kind, countries = 0, dashboard.DefaultTop, "scatter", nil

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(dir, "wdi.yaml")}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestPipeline(t *testing.T) {
	dir := workspace(t)

	out, err := runCLI(t, dir, "load", "--csv", filepath.Join(dir, "wdi.csv"))
	require.NoError(t, err)
	assert.Contains(t, out, "loaded 7 rows")

	t.Run("extract writes every dataset", func(t *testing.T) {
		out, err := runCLI(t, dir, "extract")

		require.NoError(t, err)
		assert.Contains(t, out, "indicators -> ")
		assert.Contains(t, out, "co2 -> ")

		doc, err := document.ReadFile(filepath.Join(dir, "data.json"))
		require.NoError(t, err)
		require.Equal(t, 2, doc.Len())
		assert.Equal(t, 2021, doc.Periods[0].Period)
		assert.Equal(t, 6, doc.RecordCount())

		co2, err := document.ReadFile(filepath.Join(dir, "co2.json"))
		require.NoError(t, err)
		assert.Equal(t, 1, co2.RecordCount())
	})

	t.Run("extract honours --dataset and --out", func(t *testing.T) {
		target := filepath.Join(dir, "only.json")

		_, err := runCLI(t, dir, "extract", "--dataset", "co2", "--out", target)

		require.NoError(t, err)
		assert.FileExists(t, target)
	})

	t.Run("extract with unknown dataset returns error", func(t *testing.T) {
		_, err := runCLI(t, dir, "extract", "--dataset", "missing")

		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown dataset "missing"`)
	})

	t.Run("render writes an svg chart", func(t *testing.T) {
		target := filepath.Join(dir, "bar.svg")

		_, err := runCLI(t, dir, "render", "--kind", "bar", "--metric", "GDP per capita (current US$)", "--out", target)

		require.NoError(t, err)
		data, err := os.ReadFile(target)
		require.NoError(t, err)
		assert.Contains(t, string(data), "<svg")
	})

	t.Run("render with unknown kind returns error", func(t *testing.T) {
		_, err := runCLI(t, dir, "render", "--kind", "pie", "--metric", "x", "--out", filepath.Join(dir, "pie.svg"))

		require.ErrorIs(t, err, dashboard.ErrUnknownChart)
	})

	t.Run("map writes styled geojson and prints the legend", func(t *testing.T) {
		target := filepath.Join(dir, "map.geojson")

		out, err := runCLI(t, dir, "map",
			"--geojson", filepath.Join(dir, "countries.geojson"),
			"--metric", "Fertility rate, total (births per woman)",
			"--period", "2021",
			"--out", target)

		require.NoError(t, err)
		assert.Contains(t, out, `"matched": 2`)
		data, err := os.ReadFile(target)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"fill"`)
	})

	t.Run("export writes a workbook", func(t *testing.T) {
		target := filepath.Join(dir, "data.xlsx")

		_, err := runCLI(t, dir, "export", "--out", target)

		require.NoError(t, err)
		f, err := excelize.OpenFile(target)
		require.NoError(t, err)
		defer f.Close()
		assert.Len(t, f.GetSheetList(), 3)
	})
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, workspace(t), "version")

	require.NoError(t, err)
	assert.Equal(t, "wdi dev\n", out)
}

func TestSelectDatasets(t *testing.T) {
	dir := workspace(t)
	_, err := runCLI(t, dir, "version")
	require.NoError(t, err)

	t.Run("--out with several datasets returns error", func(t *testing.T) {
		_, err := selectDatasets(cfg, "", "x.json")

		require.Error(t, err)
	})

	t.Run("--out does not change the config", func(t *testing.T) {
		datasets, err := selectDatasets(cfg, "co2", "x.json")

		require.NoError(t, err)
		assert.Equal(t, "x.json", datasets[0].Output)
		d, _ := cfg.Dataset("co2")
		assert.Equal(t, filepath.Join(dir, "co2.json"), d.Output)
	})
}
