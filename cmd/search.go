package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntP("limit", "n", 10, "Maximum number of results to print")
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search for tracks and print cross-validated candidates",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := newSearchDeps()
		if err != nil {
			return err
		}
		defer deps.close()

		limit, _ := cmd.Flags().GetInt("limit")

		tracks, err := deps.pipeline.Resolve(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		if len(tracks) == 0 {
			fmt.Println("no results")
			return nil
		}

		for i, t := range tracks {
			if i >= limit {
				break
			}
			fmt.Printf("%2d. %s - %s  [%s]\n", i+1, t.Artist, t.Title, formatDuration(t.Duration))
		}
		return nil
	},
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "?:??"
	}
	total := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
