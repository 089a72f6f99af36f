package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"envsync/internal/exclude"
)

var (
	rollbackCheckpoint string
	rollbackYes        bool
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback <env>",
	Short: "Restore an environment from a checkpoint",
	Long: `Restore an environment's tree from one of its checkpoints. Without
--checkpoint the most recent checkpoint is used. Files created since the
checkpoint are removed; excluded paths are left untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: runRollback,
}

func init() {
	rollbackCmd.Flags().StringVar(&rollbackCheckpoint, "checkpoint", "", "Checkpoint id (default: most recent)")
	rollbackCmd.Flags().BoolVar(&rollbackYes, "yes", false, "Restore without prompting")
}

func runRollback(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	env, err := cfg.Env(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	mgr := newManager(cfg)
	defer mgr.Close()
	engine := newEngine(mgr)
	checkpoints := newCheckpointManager(cfg, engine)

	ch, err := mgr.Acquire(ctx, env)
	if err != nil {
		return err
	}

	cp, err := checkpoints.Find(ctx, ch, rollbackCheckpoint)
	if err != nil {
		return err
	}

	if !rollbackYes {
		var confirmed bool
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Restore %q to checkpoint %s (%s)? Changes made since then are lost.",
				env.Name, cp.ID, cp.CreatedAt.Local().Format("2006-01-02 15:04:05"))).
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

	progressStep(os.Stdout, "Restoring %s from checkpoint %s... ", env.Name, cp.ID)
	if err := checkpoints.Rollback(ctx, ch, cp.ID, exclude.Default()); err != nil {
		progress(os.Stdout, "failed\n")
		return err
	}
	progress(os.Stdout, "done\n")
	progressDone(os.Stdout, "Restored %s to checkpoint %s\n", env.Name, cp.ID)
	return nil
}
