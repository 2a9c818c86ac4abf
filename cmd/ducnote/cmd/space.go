package cmd

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ducnote/ducnote/internal/core"
)

var spaceCmd = &cobra.Command{
	Use:   "space",
	Short: "Show free space on the storage root",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		root := core.StorageRootOf(d.cfg)
		if err := core.EnsureStorage(cmd.Context(), root, d.cfg.Settings.MountCommand); err != nil {
			return err
		}
		free, err := core.FreeSpace(root)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%s free on %s\n", humanize.IBytes(free), root)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(spaceCmd)
}
