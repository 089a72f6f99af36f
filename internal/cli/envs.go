package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var envsCmd = &cobra.Command{
	Use:   "envs",
	Short: "List configured environments",
	RunE:  runEnvs,
}

func runEnvs(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTRANSPORT\tLOCATION")
	for _, name := range cfg.EnvironmentNames() {
		env := cfg.Environments[name]
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, env.Transport, env.Display())
	}
	return w.Flush()
}
