package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ducnote/ducnote/internal/core"
)

var listCmd = &cobra.Command{
	Use:   "list [category]",
	Short: "List catalog categories and their locators",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}

		categories := d.catalog.Categories()
		if len(args) == 1 {
			cat, ok := d.catalog.Category(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", core.ErrUnknownCategory, args[0])
			}
			categories = []core.Category{cat}
		}

		for _, cat := range categories {
			entries := d.catalog.List(cat.Key)
			fmt.Fprintf(os.Stdout, "%s (%s) -> %s [%d]\n", cat.Label, cat.Key, cat.Dir, len(entries))
			for _, l := range entries {
				origin := "added"
				if d.catalog.IsDefault(cat.Key, l) {
					origin = "built-in"
				}
				fmt.Fprintf(os.Stdout, "  %-9s %s\n", origin, l)
			}
		}
		fmt.Fprintf(os.Stdout, "\n%d locators in %d categories\n", d.catalog.Len(), len(d.catalog.Categories()))
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the built-in catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		d.catalog.Reset()
		fmt.Fprintf(os.Stdout, "Catalog reset to %d built-in locators\n", d.catalog.Len())
		return finishCatalogEdit(d)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(resetCmd)
}
