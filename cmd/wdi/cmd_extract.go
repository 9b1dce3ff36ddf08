package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"indicator-spec/internal/config"
	"indicator-spec/internal/infra"
	"indicator-spec/internal/pipeline"
	"indicator-spec/internal/source"
)

var (
	extractDataset string
	extractOut     string
)

// extractCmd writes the grouped document for each configured dataset
var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Query the source and write grouped documents",
	Long: `Runs the indicator query of every configured dataset (or only --dataset),
groups the rows by year and country, and writes each document to its output.
Datasets run concurrently up to extract.concurrency.`,
	Args: cobra.NoArgs,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractDataset, "dataset", "d", "", "Extract only this dataset")
	extractCmd.Flags().StringVarP(&extractOut, "out", "o", "", "Override the output path (single dataset only)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	datasets, err := selectDatasets(cfg, extractDataset, extractOut)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Source.Driver == "sqlite" {
		if _, err := os.Stat(cfg.Source.DSN); err != nil {
			return fmt.Errorf("sqlite mirror %s not found (run wdi load first): %w", cfg.Source.DSN, err)
		}
	}
	src, err := source.Open(ctx, cfg.Source, logger)
	if err != nil {
		return err
	}
	defer src.Close()

	bus := infra.NewBus()
	pipeline.LogEvents(bus, logger)
	p := pipeline.New(src, bus, pipeline.Options{
		Indent:  cfg.Extract.Indent,
		Timeout: cfg.GetQueryTimeout(),
	})
	if err := p.RunAll(ctx, datasets, cfg.Extract.Concurrency); err != nil {
		return err
	}

	for _, ds := range datasets {
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", ds.Name, ds.Output)
	}
	return nil
}

// selectDatasets applies the --dataset and --out flags to the configured datasets.
func selectDatasets(c *config.Config, name, out string) ([]config.DatasetConfig, error) {
	datasets := append([]config.DatasetConfig(nil), c.Datasets...)
	if name != "" {
		d, ok := c.Dataset(name)
		if !ok {
			return nil, fmt.Errorf("unknown dataset %q", name)
		}
		datasets = []config.DatasetConfig{d}
	}
	if out != "" {
		if len(datasets) != 1 {
			return nil, fmt.Errorf("--out needs a single dataset; use --dataset")
		}
		datasets[0].Output = filepath.Clean(out)
	}
	return datasets, nil
}
