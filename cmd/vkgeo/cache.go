package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"vkgeo/pkg/cache"
	"vkgeo/pkg/ui"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage cached locations",
}

// clearCmd represents the cache clear command
var clearCmd = &cobra.Command{
	Use:     "clear <profile-id...>",
	Short:   "Remove cached locations of profiles",
	Example: `  vkgeo cache clear 1 2`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(clearCmd)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := cache.New(cfg.Cache, nil)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	ctx, cancel := signalContext()
	defer cancel()

	for _, id := range args {
		if err := store.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to clear %s: %w", id, err)
		}
		ui.PrintSuccess("Cleared " + id)
	}
	return nil
}
