package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"vkgeo/internal/server"
	"vkgeo/pkg/ui"
)

var (
	// Serve command flags
	host string
	port int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve locations over HTTP",
	Long: `Start an HTTP server exposing the locate pipeline.

Routes:
  GET /health
  GET /metrics
  GET /api/v1/profiles/{id}/locations[?refresh=true]
  GET /api/v1/profiles/{id}/locations/{index}
  GET /api/v1/profiles/{id}/locations.geojson`,
	Example: `  vkgeo serve --port 8050`,
	Args:    cobra.NoArgs,
	RunE:    runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&host, "host", "", "listen host")
	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "listen port")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(map[string]interface{}{"host": host, "port": port})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.NewServer(cfg.Server, a.pipeline, a.metrics, a.log)

	ctx, cancel := signalContext()
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	ui.PrintInfo("Listening on", "http://"+srv.Addr())

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	ui.PrintSuccess("Server stopped")
	return nil
}
