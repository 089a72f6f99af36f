package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var checkpointsCmd = &cobra.Command{
	Use:   "checkpoints <env>",
	Short: "List an environment's checkpoints",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckpoints,
}

func runCheckpoints(cmd *cobra.Command, args []string) error {
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
	checkpoints := newCheckpointManager(cfg, newEngine(mgr))

	ch, err := mgr.Acquire(ctx, env)
	if err != nil {
		return err
	}
	cps, err := checkpoints.List(ctx, ch)
	if err != nil {
		return err
	}
	if len(cps) == 0 {
		fmt.Printf("Environment %q has no checkpoints.\n", env.Name)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tENTRIES")
	for _, cp := range cps {
		fmt.Fprintf(w, "%s\t%s\t%d\n", cp.ID, cp.CreatedAt.Local().Format("2006-01-02 15:04:05"), len(cp.Manifest))
	}
	return w.Flush()
}
