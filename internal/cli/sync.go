package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"envsync/internal/plan"
	"envsync/internal/syncer"
	"envsync/internal/util"
)

var (
	syncStrategy     string
	syncNoBackup     bool
	syncNoVerify     bool
	syncAllowDirty   bool
	syncNoAutoCommit bool
	syncYes          bool
)

var syncCmd = &cobra.Command{
	Use:   "sync <source> <target>",
	Short: "Make the target environment match the source",
	Long: `Make the target environment's tree match the source environment's tree.

A checkpoint of the target is captured before the first change, so a failed
sync rolls back automatically and a regretted one can be rolled back with
'envsync rollback'. The safe strategy (default) never deletes target files;
the force strategy also removes files the source does not have and requires
confirmation.`,
	Args: cobra.ExactArgs(2),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncStrategy, "strategy", string(plan.StrategySafe), "Sync strategy: safe or force")
	syncCmd.Flags().BoolVar(&syncNoBackup, "no-backup", false, "Skip the pre-sync checkpoint (disables rollback)")
	syncCmd.Flags().BoolVar(&syncNoVerify, "no-verify", false, "Skip post-sync verification")
	syncCmd.Flags().BoolVar(&syncAllowDirty, "allow-dirty", false, "Sync into a git-managed target with uncommitted changes")
	syncCmd.Flags().BoolVar(&syncNoAutoCommit, "no-auto-commit", false, "Skip the post-sync git commit in the target")
	syncCmd.Flags().BoolVar(&syncYes, "yes", false, "Confirm destructive operations without prompting")
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	source, target, err := resolveEnvPair(cfg, args[0], args[1])
	if err != nil {
		return err
	}
	strategy, err := plan.ParseStrategy(syncStrategy)
	if err != nil {
		return err
	}

	confirmed := syncYes
	if strategy == plan.StrategyForce && !confirmed {
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Force sync deletes files from %q that %q does not have. Continue?", target.Name, source.Name)).
			Value(&confirmed).
			Run()
		if err != nil {
			return fmt.Errorf("confirmation cancelled: %w", err)
		}
		if !confirmed {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	ctx := cmd.Context()
	mgr := newManager(cfg)
	defer mgr.Close()
	engine := newEngine(mgr)
	checkpoints := newCheckpointManager(cfg, engine)
	runner := util.NewCommandRunner().WithContext(ctx)
	executor := syncer.NewExecutor(mgr, engine, checkpoints, runner)

	opts := syncer.Options{
		Strategy:   strategy,
		Backup:     !syncNoBackup,
		Verify:     !syncNoVerify,
		Confirmed:  confirmed,
		AllowDirty: syncAllowDirty,
		AutoCommit: !syncNoAutoCommit,
		OnEvent:    printSyncEvent,
	}

	result, syncErr := executor.Sync(ctx, source, target, opts)

	if result != nil {
		if store, err := newReportStore(cfg); err == nil {
			if path, err := store.SaveSync(result, result.StartedAt); err == nil {
				progress(os.Stdout, "Report written to %s\n", path)
			}
		}
	}

	if syncErr != nil {
		if result != nil && result.Outcome == syncer.OutcomeRolledBack {
			progressDone(os.Stdout, "Target %s restored from checkpoint %s\n", target.Name, result.CheckpointID)
		}
		var dirty *syncer.DirtyTargetError
		if errors.As(syncErr, &dirty) {
			return fmt.Errorf("%w (pass --allow-dirty to proceed anyway)", syncErr)
		}
		return syncErr
	}

	if result.Plan != nil && result.Plan.Empty() {
		progressDone(os.Stdout, "Environments %s and %s are already identical\n", source.Name, target.Name)
		return nil
	}

	progressDone(os.Stdout, "Synced %s -> %s (%d operations)\n", source.Name, target.Name, result.Applied)
	if result.Plan != nil && len(result.Plan.Orphans) > 0 {
		fmt.Printf("Left %d file(s) only present in %s (use --strategy force to remove):\n", len(result.Plan.Orphans), target.Name)
		for _, p := range result.Plan.Orphans {
			fmt.Printf("  %s\n", p)
		}
	}
	return nil
}

func printSyncEvent(ev syncer.Event) {
	switch ev.Kind {
	case syncer.EventOperation:
		progress(os.Stdout, "  [%d/%d] %s\n", ev.Index+1, ev.Total, ev.Message)
	default:
		progressStep(os.Stdout, "%s\n", ev.Message)
	}
}
