package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"vkgeo/pkg/export"
	"vkgeo/pkg/pipeline"
	"vkgeo/pkg/ui"
)

var (
	// Locate command flags
	refresh    bool
	index      int
	jsonOutput bool
	pageSize   int
)

// locateCmd represents the locate command
var locateCmd = &cobra.Command{
	Use:   "locate <profile-id>",
	Short: "List the locations of a profile's geotagged photos",
	Long: `List every geotagged photo of a VK profile as a location record.

The first lookup lists all photos through photos.getAll, resolves the
geotagged ones with photos.getById and caches the result. Later lookups are
served from the cache unless --refresh is given.`,
	Example: `  # Print the locations of profile 1
  vkgeo locate 1

  # Show the detail of the third location
  vkgeo locate 1 --index 2

  # Ignore the cache and print JSON
  vkgeo locate 1 --refresh --json`,
	Args: cobra.ExactArgs(1),
	RunE: runLocate,
}

func init() {
	rootCmd.AddCommand(locateCmd)

	locateCmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cache and fetch from VK")
	locateCmd.Flags().IntVar(&index, "index", -1, "show the detail of the location at this index")
	locateCmd.Flags().BoolVar(&jsonOutput, "json", false, "print records as JSON")
	locateCmd.Flags().IntVar(&pageSize, "page-size", 0, "photos per photos.getAll page (max 200)")
}

func runLocate(cmd *cobra.Command, args []string) error {
	profileID := strings.TrimSpace(args[0])

	cfg, err := loadConfig(map[string]interface{}{"page-size": pageSize})
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

	if index >= 0 {
		rec, err := out.At(index)
		if err != nil {
			return err
		}
		ui.PrintRecordDetail(os.Stdout, index, rec)
		return nil
	}

	if jsonOutput {
		return export.Write(os.Stdout, export.FormatJSON, out.Records)
	}

	if out.Status == pipeline.NotFound {
		ui.PrintWarning("No geotagged photos found for profile " + profileID)
		return nil
	}

	ui.PrintRecords(os.Stdout, out.Records)
	lat, long := out.Center()
	fmt.Println()
	ui.PrintInfo("Locations", fmt.Sprintf("%d", len(out.Records)))
	ui.PrintInfo("Map center", fmt.Sprintf("%.6f, %.6f", lat, long))
	if out.FromCache {
		fmt.Println(ui.Dim("served from cache; use --refresh to fetch again"))
	}
	return nil
}

// checkOutcome turns an upstream failure into an error and warns about
// partial results
func checkOutcome(out *pipeline.Outcome) error {
	if out.Status == pipeline.UpstreamError {
		return fmt.Errorf("locate %s failed: %w", out.ProfileID, out.Err)
	}
	if out.Partial {
		ui.PrintWarning("Photo listing stopped early, results are incomplete and were not cached", out.Err)
	}
	return nil
}
