package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"vkgeo/pkg/config"
	"vkgeo/pkg/logger"
	"vkgeo/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile   string
	logLevel     string
	noColor      bool
	quiet        bool
	verbose      bool
	accountName  string
	accessToken  string
	cacheBackend string
	cacheDir     string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vkgeo",
	Short: "Find where a VK user's photos were taken",
	Long: `vkgeo lists every photo of a VK profile, keeps the geotagged ones and
turns them into location records you can print, export or serve over HTTP.

Results are cached per profile (CSV, SQLite or in memory) so repeated
lookups do not hit the VK API. Use --refresh to bypass the cache.

An access token is required for API calls. Store one with 'vkgeo auth login'
or set VKGEO_ACCESS_TOKEN.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			ui.SetColor(false)
		}
		if verbose && cmd.Name() != "version" && cmd.Name() != "help" {
			ui.PrintLogo()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .vkgeo.yaml or ~/.config/vkgeo/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress logs except errors")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show logo and per-profile output")
	rootCmd.PersistentFlags().StringVarP(&accountName, "account", "a", "", "use a specific stored account")
	rootCmd.PersistentFlags().StringVar(&accessToken, "access-token", "", "VK access token (overrides stored credentials)")
	rootCmd.PersistentFlags().StringVar(&cacheBackend, "cache-backend", "", "cache backend (csv, sqlite, memory)")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "directory for the csv cache")

	rootCmd.SetVersionTemplate(`vkgeo {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig merges global and command flags over file and environment
// settings and initializes the global logger
func loadConfig(extra map[string]interface{}) (*config.Config, error) {
	flags := map[string]interface{}{
		"access-token":  accessToken,
		"cache-backend": cacheBackend,
		"cache-dir":     cacheDir,
		"log-level":     logLevel,
	}
	if quiet {
		flags["log-level"] = "error"
	}
	for k, v := range extra {
		flags[k] = v
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
