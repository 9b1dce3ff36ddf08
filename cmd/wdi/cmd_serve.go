package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"indicator-spec/internal/document"
	"indicator-spec/internal/server"
)

var (
	serveAddr    string
	serveGeoJSON string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a document, its charts and maps over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&inPath, "in", "i", "", "Document to serve (default server.document)")
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "Listen address (default server.addr)")
	serveCmd.Flags().StringVarP(&serveGeoJSON, "geojson", "g", "", "Country boundaries for /map (default server.geojson)")
}

func runServe(cmd *cobra.Command, args []string) error {
	path := inPath
	if path == "" {
		path = cfg.Server.Document
	}
	doc, err := document.ReadFile(path)
	if err != nil {
		return err
	}

	var boundaries []byte
	if p := firstNonEmpty(serveGeoJSON, cfg.Server.GeoJSON); p != "" {
		if boundaries, err = os.ReadFile(p); err != nil {
			return fmt.Errorf("read geojson: %w", err)
		}
	}

	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	s, err := server.New(doc, server.Options{
		GeoJSON: boundaries,
		MapKey:  cfg.Server.MapKey,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx, firstNonEmpty(serveAddr, cfg.Server.Addr))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
