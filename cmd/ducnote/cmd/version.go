package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ducnote/ducnote/internal/release"
)

// selfRepo is where ducnote releases are published.
const selfRepo = "https://github.com/ducnote/ducnote"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("ducnote %s (commit: %s, built: %s)\n", Version, Commit, Date)

		check, _ := cmd.Flags().GetBool("check")
		if !check {
			return nil
		}
		checker, err := release.NewChecker(cmd.Context(), selfRepo, os.Getenv("GITHUB_TOKEN"), logger)
		if err != nil {
			return err
		}
		latest, err := checker.LatestRelease(cmd.Context())
		if err != nil {
			return fmt.Errorf("checking for updates: %w", err)
		}
		newer, err := release.IsNewer(Version, latest)
		if err != nil {
			fmt.Printf("Latest release is %s\n", latest)
			return nil
		}
		if newer {
			fmt.Printf("A newer release is available: %s\n", latest)
		} else {
			fmt.Println("You are on the latest release.")
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().Bool("check", false, "Check GitHub for a newer release")
	rootCmd.AddCommand(versionCmd)
}
