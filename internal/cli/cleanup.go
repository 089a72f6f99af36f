package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var cleanupKeep int

var cleanupCmd = &cobra.Command{
	Use:   "cleanup <env>",
	Short: "Remove old checkpoints of an environment",
	Long: `Remove an environment's oldest checkpoints, keeping the N most recent
(--keep, default from settings.checkpoint_keep).`,
	Args: cobra.ExactArgs(1),
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().IntVar(&cleanupKeep, "keep", 0, "Number of checkpoints to retain (default from config)")
}

// effectiveKeep resolves the retention count. An explicit --keep wins even
// when invalid, so the manager rejects it instead of silently using the
// config default.
func effectiveKeep(cmd *cobra.Command, flag, fallback int) int {
	if cmd.Flags().Changed("keep") {
		return flag
	}
	return fallback
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	env, err := cfg.Env(args[0])
	if err != nil {
		return err
	}
	keep := effectiveKeep(cmd, cleanupKeep, cfg.Keep())

	ctx := cmd.Context()
	mgr := newManager(cfg)
	defer mgr.Close()
	checkpoints := newCheckpointManager(cfg, newEngine(mgr))

	ch, err := mgr.Acquire(ctx, env)
	if err != nil {
		return err
	}
	removed, err := checkpoints.Cleanup(ctx, ch, keep)
	if err != nil {
		return err
	}

	if removed == 0 {
		progressDone(os.Stdout, "Nothing to remove; %q has at most %d checkpoint(s)\n", env.Name, keep)
		return nil
	}
	progressDone(os.Stdout, "Removed %d checkpoint(s) from %q, kept the %d most recent\n", removed, env.Name, keep)
	return nil
}
