package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ducnote/ducnote/internal/core"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which catalog artifacts are already on storage",
	Long: `Status compares the catalog with the destination folder without any
network access. Entries in category folders that no locator covers are
listed as untracked.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		r, err := d.resolver()
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Destination: %s\n\n", r.Root())
		res, err := core.NewScanner(r).Scan(d.catalog.Snapshot())
		if err != nil {
			return err
		}

		tbl := newTable(os.Stdout, "Category", "Name", "Kind", "Status", "Size")
		for _, a := range res.Artifacts {
			status, size := "missing", ""
			switch {
			case a.Err != nil:
				status = "error: " + a.Err.Error()
			case a.Present:
				status, size = "present", humanize.IBytes(uint64(a.Size))
			}
			name := core.Basename(a.Locator)
			if a.Path != "" {
				name = filepath.Base(a.Path)
			}
			tbl.AddRow(a.Category, name, a.Kind, status, size)
		}
		tbl.Print()

		if len(res.Untracked) > 0 {
			fmt.Fprintln(os.Stdout, "\nUntracked:")
			for _, u := range res.Untracked {
				fmt.Fprintf(os.Stdout, "  %s/%s\n", u.Category, u.Name)
			}
		}

		fmt.Fprintf(os.Stdout, "\n%d of %d present, %d missing\n",
			len(res.Artifacts)-res.Missing(), len(res.Artifacts), res.Missing())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
