package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vkgeo/pkg/export"
	"vkgeo/pkg/ui"
)

var (
	// Export command flags
	exportOutput string
	exportFormat string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <profile-id>",
	Short: "Write a profile's locations to a file",
	Long: `Write the locations of a profile to a GeoJSON, JSON or CSV file.

The format is taken from --format or guessed from the file extension.
GeoJSON features keep the order of the records and carry the photo detail
as properties.`,
	Example: `  # GeoJSON for a web map
  vkgeo export 1 -o 1.geojson

  # The cache file format
  vkgeo export 1 -o 1.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (required)")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "geojson, json or csv")
	exportCmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cache and fetch from VK")
	exportCmd.MarkFlagRequired("output")
}

func runExport(cmd *cobra.Command, args []string) error {
	profileID := strings.TrimSpace(args[0])

	cfg, err := loadConfig(nil)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	out := a.locate(ctx, profileID, refresh)
	if err := checkOutcome(out); err != nil {
		return err
	}

	format := exportFormat
	if format == "" {
		format = export.FormatFromPath(exportOutput)
	}

	if err := export.SaveFile(exportOutput, format, out.Records); err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Exported %d locations to %s", len(out.Records), exportOutput))
	return nil
}
