package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ducnote/ducnote/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List past install runs, or show one run in detail",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		store, err := history.OpenStore(d.config.HistoryPath())
		if err != nil {
			return err
		}
		defer store.Close()

		if keep, _ := cmd.Flags().GetInt("prune"); keep > 0 {
			n, err := store.Prune(keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Pruned %d runs\n", n)
			return nil
		}

		if len(args) == 1 {
			entry, err := store.Get(args[0])
			if err != nil {
				return err
			}
			printEntry(entry)
			return nil
		}

		limit, _ := cmd.Flags().GetInt("limit")
		entries, err := store.List(limit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(os.Stdout, "No runs recorded yet.")
			return nil
		}
		printHistory(entries)
		return nil
	},
}

func printEntry(e history.Entry) {
	fmt.Fprintf(os.Stdout, "Run %s: %s\n", e.ID, e.Outcome)
	fmt.Fprintf(os.Stdout, "  Destination: %s\n", e.Destination)
	fmt.Fprintf(os.Stdout, "  Started: %s (%s)\n", e.StartedAt.Local().Format("2006-01-02 15:04:05"), e.Duration())
	if e.PublicURL != "" {
		fmt.Fprintf(os.Stdout, "  Public URL: %s\n", e.PublicURL)
	}
	if e.Error != "" {
		fmt.Fprintf(os.Stdout, "  Error: %s\n", errorFmt("%s", e.Error))
	}
	fmt.Fprintln(os.Stdout)

	tbl := newTable(os.Stdout, "Category", "Locator", "Kind", "Outcome", "Error")
	for _, r := range e.Records {
		tbl.AddRow(r.Category, r.Locator, r.Kind, r.Outcome, r.Error)
	}
	tbl.Print()
	for _, w := range e.Warnings {
		fmt.Fprintf(os.Stdout, "Warning: %s\n", w)
	}
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Maximum number of runs to list (0 for all)")
	historyCmd.Flags().Int("prune", 0, "Keep only the newest N runs")
	rootCmd.AddCommand(historyCmd)
}
