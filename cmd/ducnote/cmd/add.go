package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ducnote/ducnote/internal/core"
)

var addCmd = &cobra.Command{
	Use:   "add <category> <locator>",
	Short: "Add a link or local path to a catalog category",
	Long: `Add appends a locator to a catalog category.

URLs are checked with a HEAD request first and unreachable links are
rejected. Use --no-check to skip the check. Run 'ducnote list' to see the
category keys.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		category, locator := args[0], args[1]
		noCheck, _ := cmd.Flags().GetBool("no-check")

		d, err := newDeps()
		if err != nil {
			return err
		}

		var probe core.LinkProbe
		if !noCheck {
			probe = core.HeadProbe{Fetcher: core.NewHTTPFetcher()}
		}
		if err := d.catalog.Add(cmd.Context(), category, locator, probe); err != nil {
			return err
		}

		cat, _ := d.catalog.Category(category)
		fmt.Fprintf(os.Stdout, "Added %s to %s\n", locator, cat.Label)
		reportPresence(d, category, locator)

		return finishCatalogEdit(d)
	},
}

// reportPresence tells the user when the new locator is already on storage.
func reportPresence(d *deps, category, locator string) {
	r, err := d.resolver()
	if err != nil {
		return
	}
	if path, ok, err := r.Installed(category, locator); err == nil && ok {
		fmt.Fprintf(os.Stdout, "%s is already present on storage and will be skipped on install\n", filepath.Base(path))
	}
}

// finishCatalogEdit saves the catalog when remember is on, or says why it did not.
func finishCatalogEdit(d *deps) error {
	saved, err := d.saveSession()
	if err != nil {
		return err
	}
	if !saved {
		fmt.Fprintln(os.Stdout, "Not saved: remember is off. Enable it with 'ducnote config set remember true'.")
	}
	return nil
}

func init() {
	addCmd.Flags().Bool("no-check", false, "Skip the reachability check")
	rootCmd.AddCommand(addCmd)
}
