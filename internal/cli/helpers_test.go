package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"envsync/internal/config"
	"envsync/internal/diff"
)

func testConfig() *config.Config {
	return &config.Config{Environments: map[string]config.Environment{
		"local": {Name: "local", Transport: config.TransportLocal, Path: "/work"},
		"prod":  {Name: "prod", Transport: config.TransportRemote, Host: "prod.internal", Path: "/data"},
	}}
}

func TestResolveEnvPair(t *testing.T) {
	cfg := testConfig()

	source, target, err := resolveEnvPair(cfg, "local", "prod")
	if err != nil {
		t.Fatal(err)
	}
	if source.Name != "local" || target.Name != "prod" {
		t.Errorf("resolved %q -> %q", source.Name, target.Name)
	}
}

func TestResolveEnvPairSameName(t *testing.T) {
	if _, _, err := resolveEnvPair(testConfig(), "local", "local"); err == nil {
		t.Fatal("expected error for identical names")
	}
}

func TestResolveEnvPairUnknown(t *testing.T) {
	if _, _, err := resolveEnvPair(testConfig(), "local", "qa"); err == nil {
		t.Fatal("expected error for unknown environment")
	}
}

func TestEffectiveKeepExplicitZeroWins(t *testing.T) {
	cmd := &cobra.Command{}
	var flag int
	cmd.Flags().IntVar(&flag, "keep", 0, "")
	if err := cmd.Flags().Parse([]string{"--keep", "0"}); err != nil {
		t.Fatal(err)
	}

	if got := effectiveKeep(cmd, flag, 5); got != 0 {
		t.Errorf("keep = %d, want the explicit 0 passed through", got)
	}
}

func TestEffectiveKeepDefaultsToConfig(t *testing.T) {
	cmd := &cobra.Command{}
	var flag int
	cmd.Flags().IntVar(&flag, "keep", 0, "")

	if got := effectiveKeep(cmd, flag, 5); got != 5 {
		t.Errorf("keep = %d, want the config value 5", got)
	}
}

func TestPrintDiffReportEmpty(t *testing.T) {
	var buf bytes.Buffer
	printDiffReport(&buf, &diff.DiffReport{Source: "a", Target: "b"})
	if !strings.Contains(buf.String(), "identical") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestPrintDiffReportSections(t *testing.T) {
	var buf bytes.Buffer
	printDiffReport(&buf, &diff.DiffReport{
		Source:   "a",
		Target:   "b",
		ToAdd:    []string{"new.txt"},
		ToUpdate: []string{"changed.txt"},
		ToDelete: []string{"orphan.txt"},
	})

	out := buf.String()
	for _, want := range []string{"To add (1):", "new.txt", "To update (1):", "changed.txt", "Only in target (1):", "orphan.txt", "1 to add, 1 to update, 1 to delete"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
