package cmd

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ducnote/ducnote/internal/core"
)

var removeCmd = &cobra.Command{
	Use:   "remove <category> <locator>",
	Short: "Remove a locator from a catalog category",
	Long: `Remove deletes a locator from the catalog. Files already on storage are
kept unless --purge is given.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		category, locator := args[0], args[1]
		purge, _ := cmd.Flags().GetBool("purge")

		d, err := newDeps()
		if err != nil {
			return err
		}
		if _, ok := d.catalog.Category(category); !ok {
			return fmt.Errorf("%w: %s", core.ErrUnknownCategory, category)
		}
		if !d.catalog.Remove(category, locator) {
			fmt.Fprintf(os.Stdout, "%s is not in %s; nothing to remove\n", locator, category)
			return nil
		}
		fmt.Fprintf(os.Stdout, "Removed %s from %s\n", locator, category)
		if err := finishCatalogEdit(d); err != nil {
			return err
		}

		if purge {
			r, err := d.resolver()
			if err != nil {
				return err
			}
			res, err := core.NewRemover(r).Purge(category, locator)
			if err != nil {
				return fmt.Errorf("purging files: %w", err)
			}
			fmt.Fprintf(os.Stdout, "Deleted %s (%s)\n", res.Path, humanize.IBytes(uint64(res.Bytes)))
		}
		return nil
	},
}

func init() {
	removeCmd.Flags().Bool("purge", false, "Also delete the installed files from storage")
	rootCmd.AddCommand(removeCmd)
}
