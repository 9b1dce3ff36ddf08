package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"indicator-spec/internal"
	"indicator-spec/internal/dashboard"
	"indicator-spec/internal/document"
	"indicator-spec/specs"
)

// Dashboard flags shared by render, map and export
var (
	inPath    string
	outPath   string
	metric    string
	xMetric   string
	period    int
	countries []string
	search    string
	top       int
	format    string
	kind      string
	geojson   string
	mapKey    string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a scatter, line or bar chart from a document",
	Example: `  wdi render --kind scatter --metric "Fertility rate, total (births per woman)" \
    --x "GDP per capita (current US$)" --out fertility.svg
  wdi render --kind line --metric "Population, total" --country Chad --country Mali --out pop.png`,
	Args: cobra.NoArgs,
	RunE: runRender,
}

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Style country boundaries by a metric",
	Long: `Joins a GeoJSON FeatureCollection of country boundaries with one metric
of the document and writes the features with "value" and "fill" properties
on a Greens scale. The legend is printed as JSON.`,
	Args: cobra.NoArgs,
	RunE: runMap,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a document as an xlsx workbook, one sheet per metric",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	for _, c := range []*cobra.Command{renderCmd, mapCmd, exportCmd} {
		c.Flags().StringVarP(&inPath, "in", "i", "", "Document to read (default server.document)")
		c.Flags().StringVarP(&outPath, "out", "o", "", "File to write (required)")
		c.MarkFlagRequired("out")
	}
	for _, c := range []*cobra.Command{renderCmd, mapCmd} {
		c.Flags().StringVarP(&metric, "metric", "m", "", "Metric to plot (required)")
		c.Flags().IntVarP(&period, "period", "p", 0, "Year (default: latest)")
		c.Flags().StringArrayVar(&countries, "country", nil, "Restrict to a country (repeatable)")
		c.Flags().StringVarP(&search, "search", "s", "", "Keep countries whose name contains this text")
		c.MarkFlagRequired("metric")
	}

	renderCmd.Flags().StringVarP(&kind, "kind", "k", "scatter", "Chart kind: scatter, line or bar")
	renderCmd.Flags().StringVarP(&xMetric, "x", "x", "", "Horizontal metric of a scatter chart")
	renderCmd.Flags().IntVar(&top, "top", dashboard.DefaultTop, "Bars drawn by a bar chart")
	renderCmd.Flags().StringVarP(&format, "format", "f", "", "svg or png (default: from --out extension)")

	mapCmd.Flags().StringVarP(&geojson, "geojson", "g", "", "Country boundaries (default server.geojson)")
	mapCmd.Flags().StringVar(&mapKey, "key", "", "Feature property holding the country name (default server.map_key)")
}

// loadDocument reads and validates the document named by --in.
func loadDocument() (internal.Grouped, error) {
	path := inPath
	if path == "" {
		path = cfg.Server.Document
	}
	spec, err := document.ReadFile(path)
	if err != nil {
		return internal.Grouped{}, err
	}
	g, err := internal.NewGrouped(spec)
	if err != nil {
		return internal.Grouped{}, fmt.Errorf("invalid document %s: %w", path, err)
	}
	logger.Debug("document loaded", zap.String("path", path), zap.Int("periods", g.Len()))
	return g, nil
}

func selectionFromFlags() (internal.Selection, error) {
	return internal.NewSelection(specs.SelectionSpec{
		Metric:   metric,
		XMetric:  xMetric,
		Period:   period,
		Entities: countries,
		Search:   search,
	})
}

func runRender(cmd *cobra.Command, args []string) error {
	k, err := dashboard.ParseChartKind(kind)
	if err != nil {
		return err
	}
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(outPath), ".")
	}
	f, err := dashboard.ParseFormat(format)
	if err != nil {
		return err
	}
	g, err := loadDocument()
	if err != nil {
		return err
	}
	sel, err := selectionFromFlags()
	if err != nil {
		return err
	}

	chart, err := dashboard.BuildChart(k, g, sel, top)
	if err != nil {
		return err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	if err := dashboard.RenderChart(out, chart, f); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s chart -> %s\n", k, outPath)
	return nil
}

func runMap(cmd *cobra.Command, args []string) error {
	path := geojson
	if path == "" {
		path = cfg.Server.GeoJSON
	}
	if path == "" {
		return fmt.Errorf("no boundaries file: pass --geojson or set server.geojson")
	}
	boundaries, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read geojson: %w", err)
	}
	key := mapKey
	if key == "" {
		key = cfg.Server.MapKey
	}

	g, err := loadDocument()
	if err != nil {
		return err
	}
	sel, err := selectionFromFlags()
	if err != nil {
		return err
	}
	styled, legend, err := dashboard.Choropleth(boundaries, g, sel, key)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, styled, 0644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(legend)
}

func runExport(cmd *cobra.Command, args []string) error {
	g, err := loadDocument()
	if err != nil {
		return err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	if err := dashboard.ExportXLSX(out, g); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d metrics -> %s\n", len(g.Metrics()), outPath)
	return nil
}
