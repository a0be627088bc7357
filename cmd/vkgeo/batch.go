package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vkgeo/internal/batch"
	"vkgeo/pkg/pipeline"
	"vkgeo/pkg/ui"
)

var (
	// Batch command flags
	idsFile string
	workers int
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch [profile-id...]",
	Short: "Locate many profiles concurrently",
	Long: `Locate several profiles with a pool of workers.

Each profile gets its own outcome: one failing profile does not affect the
others. All workers share the configured VK rate limit.`,
	Example: `  # Three profiles with the default worker count
  vkgeo batch 1 2 3

  # Profiles from a file, one per line
  vkgeo batch --file ids.txt --workers 4`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVarP(&idsFile, "file", "f", "", "file with one profile id per line ('-' for stdin)")
	batchCmd.Flags().IntVarP(&workers, "workers", "w", 0, "number of concurrent workers")
	batchCmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cache and fetch from VK")
}

func runBatch(cmd *cobra.Command, args []string) error {
	var src io.Reader
	switch idsFile {
	case "":
	case "-":
		src = os.Stdin
	default:
		f, err := os.Open(idsFile)
		if err != nil {
			return fmt.Errorf("failed to open id file: %w", err)
		}
		defer f.Close()
		src = f
	}

	ids, err := readProfileIDs(args, src)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("no profile ids given")
	}

	cfg, err := loadConfig(map[string]interface{}{"workers": workers})
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

	progress := ui.NewProgressDisplay(os.Stderr, len(ids), verbose)
	results := batch.Run(ctx, cfg.Batch.Workers, a.pipeline, progress, ids, refresh, a.log)
	progress.Finish()

	fmt.Println()
	failed := printBatchSummary(os.Stdout, results)
	if failed > 0 {
		return fmt.Errorf("%d of %d profiles failed", failed, len(results))
	}
	return nil
}

// readProfileIDs merges ids from args and src, dropping blanks, comments and
// duplicates while keeping first-seen order
func readProfileIDs(args []string, src io.Reader) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || strings.HasPrefix(s, "#") || seen[s] {
			return
		}
		seen[s] = true
		ids = append(ids, s)
	}

	for _, a := range args {
		add(a)
	}
	if src != nil {
		scanner := bufio.NewScanner(src)
		for scanner.Scan() {
			add(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read profile ids: %w", err)
		}
	}
	return ids, nil
}

// printBatchSummary writes one line per profile and returns the failure count
func printBatchSummary(w io.Writer, results []batch.Result) int {
	failed := 0
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROFILE\tSTATUS\tLOCATIONS\tSOURCE\tDETAIL")
	for _, r := range results {
		out := r.Outcome
		source := "vk"
		if out.FromCache {
			source = "cache"
		}
		detail := ""
		if out.Err != nil {
			detail = out.Err.Error()
		}
		if out.Status == pipeline.UpstreamError {
			failed++
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", r.Job.ProfileID, out.Status, len(out.Records), source, detail)
	}
	tw.Flush()
	return failed
}
