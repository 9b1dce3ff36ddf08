package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"indicator-spec/internal/source"
)

var loadCSV string

// loadCmd imports a WDI CSV export into the SQL mirror
var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load a WDI CSV export into the SQL mirror",
	Long: `Imports a World Development Indicators CSV (Country Name, Country Code,
Indicator Name, Indicator Code, Year, Value) into the configured sqlite or
postgres table, creating it if needed. Empty and ".." values load as NULL.`,
	Args: cobra.NoArgs,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().StringVar(&loadCSV, "csv", "", "CSV file to import (required)")
	loadCmd.MarkFlagRequired("csv")
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if cfg.Source.Driver == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.Source.DSN), 0755); err != nil {
			return fmt.Errorf("create mirror directory: %w", err)
		}
	}

	src, err := source.OpenSQL(ctx, cfg.Source.Driver, cfg.Source.DSN, cfg.Source.Table, logger)
	if err != nil {
		return err
	}
	defer src.Close()

	f, err := os.Open(loadCSV)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	n, err := src.Load(ctx, f)
	if err != nil {
		return fmt.Errorf("load %s: %w", loadCSV, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "loaded %d rows into %s\n", n, cfg.Source.DSN)
	return nil
}
