package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vkgeo/pkg/friends"
	"vkgeo/pkg/ui"
	"vkgeo/pkg/vk"
)

var activeOnly bool

// friendsCmd represents the friends command
var friendsCmd = &cobra.Command{
	Use:   "friends <user-id>",
	Short: "List a user's friends",
	Long: `List the friends of a VK user through friends.get.

Friend ids can be passed to 'vkgeo batch' to locate their photos.`,
	Example: `  # All friends
  vkgeo friends 1

  # Only active accounts, as ids for batch
  vkgeo friends 1 --active --json`,
	Args: cobra.ExactArgs(1),
	RunE: runFriends,
}

func init() {
	rootCmd.AddCommand(friendsCmd)

	friendsCmd.Flags().BoolVar(&activeOnly, "active", false, "skip deleted and banned accounts")
	friendsCmd.Flags().BoolVar(&jsonOutput, "json", false, "print friends as JSON")
}

func runFriends(cmd *cobra.Command, args []string) error {
	userID := strings.TrimSpace(args[0])

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

	list, err := a.friends.List(ctx, userID)
	if err != nil {
		if len(list) == 0 {
			return fmt.Errorf("failed to list friends of %s: %w", userID, err)
		}
		ui.PrintWarning("Friend listing stopped early", err)
	}
	if activeOnly {
		list = friends.Active(list)
	}

	if jsonOutput {
		return writeJSON(os.Stdout, list)
	}

	printFriends(list)
	return nil
}

func printFriends(list []vk.Friend) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSEX\tSTATE")
	for _, f := range list {
		state := f.Deactivated
		if state == "" {
			state = "active"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", f.ID, f.FullName(), sexLabel(f.Sex), state)
	}
	tw.Flush()

	counts := friends.CountBySex(list)
	fmt.Println()
	ui.PrintInfo("Friends", fmt.Sprintf("%d (female %d, male %d, unknown %d)",
		len(list), counts[friends.SexFemale], counts[friends.SexMale], counts[friends.SexUnknown]))
}

func sexLabel(sex int) string {
	switch sex {
	case friends.SexFemale:
		return "female"
	case friends.SexMale:
		return "male"
	default:
		return "-"
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
