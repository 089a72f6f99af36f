package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"envsync/internal/diff"
)

var diffNoReport bool

var diffCmd = &cobra.Command{
	Use:   "diff <source> <target>",
	Short: "Compare two environments",
	Long: `Compare the trees of two environments and show what a sync from source to
target would change. Neither environment is modified.`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().BoolVar(&diffNoReport, "no-report", false, "Do not write a report file")
}

func runDiff(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	source, target, err := resolveEnvPair(cfg, args[0], args[1])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	mgr := newManager(cfg)
	defer mgr.Close()
	engine := newEngine(mgr)

	srcCh, err := mgr.Acquire(ctx, source)
	if err != nil {
		return err
	}
	policy, err := diff.PolicyFor(ctx, srcCh, nil)
	if err != nil {
		return err
	}

	progressStep(os.Stdout, "Comparing %s and %s... ", source.Name, target.Name)
	report, err := engine.Compare(ctx, source, target, policy)
	if err != nil {
		progress(os.Stdout, "failed\n")
		return err
	}
	progress(os.Stdout, "done\n")

	printDiffReport(os.Stdout, report)

	if !diffNoReport {
		store, err := newReportStore(cfg)
		if err != nil {
			return err
		}
		path, err := store.SaveDiff(report, report.CreatedAt)
		if err != nil {
			return err
		}
		progressDone(os.Stdout, "Report written to %s\n", path)
	}
	return nil
}

func printDiffReport(w io.Writer, report *diff.DiffReport) {
	if report.Empty() {
		fmt.Fprintf(w, "Environments %s and %s are identical.\n", report.Source, report.Target)
		return
	}

	printPaths(w, "To add", report.ToAdd)
	printPaths(w, "To update", report.ToUpdate)
	printPaths(w, "Only in target", report.ToDelete)
	fmt.Fprintln(w, report.Summary())
}

func printPaths(w io.Writer, title string, paths []string) {
	if len(paths) == 0 {
		return
	}
	fmt.Fprintf(w, "%s (%d):\n", title, len(paths))
	for _, p := range paths {
		fmt.Fprintf(w, "  %s\n", p)
	}
}
