package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ducnote/ducnote/internal/core"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the stored configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Show prints the configuration with flag and DUCNOTE_* environment
overrides applied. The catalog is listed by 'ducnote list'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		shown := *d.cfg
		shown.Catalog = nil
		data, err := json.MarshalIndent(&shown, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}
		fmt.Fprintf(os.Stdout, "# %s\n%s\n", d.config.ConfigPath(), data)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one stored value, e.g. settings.port",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cm, err := core.NewConfigManager()
		if err != nil {
			return fmt.Errorf("initializing config: %w", err)
		}
		value, err := cm.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one stored value, e.g. settings.storageRoot /mnt/drive",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cm, err := core.NewConfigManager()
		if err != nil {
			return fmt.Errorf("initializing config: %w", err)
		}
		if err := cm.Set(args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Set %s = %s\n", args[0], args[1])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
