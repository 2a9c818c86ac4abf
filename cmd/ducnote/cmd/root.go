package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ducnote/ducnote/internal/core"
	"github.com/ducnote/ducnote/internal/logging"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// envPrefix namespaces environment overrides, e.g. DUCNOTE_STORAGE_ROOT.
const envPrefix = "DUCNOTE"

var (
	// v resolves persistent flags against DUCNOTE_* environment variables.
	v = viper.New()

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "ducnote",
	Short: "Provision ComfyUI and its models onto mounted storage",
	Long: `DucNote installs ComfyUI, its extensions and model files onto a mounted
storage folder, launches it, and exposes it through a tunnel.

Run without arguments to open the interactive catalog editor.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogger()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd.Context())
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("storage-root", "", "Storage root to install under (overrides settings.storageRoot)")
	flags.String("folder", "", "Application folder name under the storage root (overrides folderName)")
	flags.Int("concurrency", 0, fmt.Sprintf("Parallel downloads per category, %d-%d (overrides concurrency)", core.MinConcurrency, core.MaxConcurrency))
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("log-file", "", "Log file path (default ~/.ducnote/ducnote.log)")
	flags.String("metrics-file", "", "Write Prometheus metrics to this file after a run")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	flags.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
	})
}

// setupLogger opens the file logger. Failing to open the log file is not
// fatal; commands then run without a log.
func setupLogger() error {
	level := v.GetString("log-level")
	if _, err := zapcore.ParseLevel(level); err != nil {
		return fmt.Errorf("invalid --log-level %q", level)
	}
	path := v.GetString("log-file")
	if path == "" {
		cm, err := core.NewConfigManager()
		if err != nil {
			return fmt.Errorf("initializing config: %w", err)
		}
		path = cm.LogPath()
	}
	l, err := logging.New(path, level)
	if err != nil {
		return nil
	}
	logger = l
	return nil
}

// applyOverrides copies flag and environment overrides onto cfg.
func applyOverrides(cfg *core.Config) {
	if v.IsSet("storage-root") && v.GetString("storage-root") != "" {
		cfg.Settings.StorageRoot = v.GetString("storage-root")
	}
	if v.IsSet("folder") && v.GetString("folder") != "" {
		cfg.FolderName = v.GetString("folder")
	}
	if v.IsSet("concurrency") && v.GetInt("concurrency") > 0 {
		cfg.Concurrency = v.GetInt("concurrency")
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
