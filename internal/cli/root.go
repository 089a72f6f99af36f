package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version, Commit, and Date are set at build time via ldflags
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// configPath overrides the configuration file location (--config).
var configPath string

var rootCmd = &cobra.Command{
	Use:   "envsync",
	Short: "envsync - Keep deployment environments identical",
	Long: `envsync - Keep deployment environments identical.

Compares environment trees, plans the file operations needed to make a
target match a source, and applies them with a pre-sync checkpoint so
every sync can be rolled back.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GetRootCmd returns the root command for documentation generation.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	if os.Getenv("ENVSYNC_DEBUG") == "" {
		log.SetOutput(os.Stderr)
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("envsync version %s\ncommit: %s\ndate: %s\n", Version, Commit, Date))
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file (default ~/.envsync/config.toml)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(envsCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(checkpointsCmd)
	rootCmd.AddCommand(cleanupCmd)
}
