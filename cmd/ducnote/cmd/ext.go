package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ducnote/ducnote/internal/core"
)

var extCmd = &cobra.Command{
	Use:   "ext",
	Short: "Manage extensions installed from local archives or folders",
}

var extAddCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Install an extension from a local .zip or folder",
	Long: `Add unpacks a .zip archive or copies a folder into the extensions
directory of the destination, installs its requirements.txt, and adds the
path to the catalog so later installs keep it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		noDeps, _ := cmd.Flags().GetBool("no-deps")

		src, err := filepath.Abs(core.ExpandPath(args[0]))
		if err != nil {
			return fmt.Errorf("resolving %s: %w", args[0], err)
		}

		d, err := newDeps()
		if err != nil {
			return err
		}
		r, err := d.resolver()
		if err != nil {
			return err
		}

		probe := core.HeadProbe{}
		if err := d.catalog.Add(cmd.Context(), core.ExtensionsCategory, src, probe); err != nil {
			return err
		}

		sink := core.MultiSink{
			core.NewWriterSink(os.Stdout, os.Stderr, errorFmt),
			core.NewLogSink(logger),
		}
		in := core.NewInstaller(r, core.InstallerOptions{Sink: sink, Logger: logger})
		rec := in.InstallOne(cmd.Context(), core.ExtensionsCategory, src)
		if rec.Err != nil {
			return rec.Err
		}

		if !noDeps && rec.Outcome == core.OutcomeInstalled {
			pip := core.NewPipInstaller(d.cfg.Settings.Python)
			for _, w := range core.InstallDependencies(cmd.Context(), pip, nil, filepath.Join(rec.Path, "requirements.txt")) {
				fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
			}
		}

		return finishCatalogEdit(d)
	},
}

func init() {
	extAddCmd.Flags().Bool("no-deps", false, "Skip installing the extension's requirements.txt")
	extCmd.AddCommand(extAddCmd)
	rootCmd.AddCommand(extCmd)
}
