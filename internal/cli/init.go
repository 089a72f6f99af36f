// Package cli implements the envsync command-line interface.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"envsync/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter configuration file",
	Long:  `Create ~/.envsync/config.toml (or the --config path) with a commented starter configuration listing example environments.`,
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}

	appFs := afero.NewOsFs()

	if _, err := appFs.Stat(path); err == nil {
		var overwrite bool
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Configuration %s already exists. Overwrite it?", path)).
			Value(&overwrite).
			Run()
		if err != nil {
			return fmt.Errorf("confirmation cancelled: %w", err)
		}
		if !overwrite {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	if err := appFs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := afero.WriteFile(appFs, path, []byte(config.Template), 0600); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}

	progressDone(os.Stdout, "Created %s\n", path)
	fmt.Println("Edit this file to describe your environments.")
	return nil
}
