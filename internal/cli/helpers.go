package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/afero"

	"envsync/internal/checkpoint"
	"envsync/internal/config"
	"envsync/internal/connect"
	"envsync/internal/diff"
	"envsync/internal/report"
	"envsync/internal/util"
)

// Common error messages for CLI commands.
const (
	ErrMsgConfigNotFound = "configuration not found: run 'envsync init' first"
)

// resolveConfigPath returns the --config override or the default location.
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.DefaultPath()
}

// loadConfig loads and validates the configuration file.
// Returns the config and its path, or an error with a user-friendly message.
func loadConfig() (*config.Config, string, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(afero.NewOsFs(), path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, path, errors.New(ErrMsgConfigNotFound)
		}
		return nil, path, err
	}
	return cfg, path, nil
}

// resolveEnvPair resolves two distinct environment names from the config.
func resolveEnvPair(cfg *config.Config, srcName, dstName string) (config.Environment, config.Environment, error) {
	if srcName == dstName {
		return config.Environment{}, config.Environment{}, fmt.Errorf("source and target must differ, got %q twice", srcName)
	}
	source, err := cfg.Env(srcName)
	if err != nil {
		return config.Environment{}, config.Environment{}, err
	}
	target, err := cfg.Env(dstName)
	if err != nil {
		return config.Environment{}, config.Environment{}, err
	}
	return source, target, nil
}

// newManager creates the connection manager configured from settings.
func newManager(cfg *config.Config) *connect.Manager {
	var opts []connect.Option
	if cfg.Settings.AutoTrustHosts {
		opts = append(opts, connect.WithAutoTrust(true))
	}
	return connect.NewManager(opts...)
}

// newEngine creates the diff engine over real filesystems.
func newEngine(mgr *connect.Manager) *diff.Engine {
	return diff.NewEngine(mgr, afero.NewOsFs())
}

// newCheckpointManager creates the checkpoint manager configured from settings.
func newCheckpointManager(cfg *config.Config, engine *diff.Engine) *checkpoint.Manager {
	var opts []checkpoint.ManagerOption
	if cfg.Settings.CheckpointDir != "" {
		opts = append(opts, checkpoint.WithBaseDir(cfg.Settings.CheckpointDir))
	}
	return checkpoint.NewManager(engine, opts...)
}

// newReportStore creates the report store configured from settings.
func newReportStore(cfg *config.Config) (*report.Store, error) {
	dir := cfg.Settings.ReportDir
	if dir == "" {
		var err error
		dir, err = report.DefaultDir()
		if err != nil {
			return nil, err
		}
	}
	return report.NewStore(afero.NewOsFs(), dir), nil
}

// progress writes a progress message if not in quiet mode.
// Delegates to util.Progress for shared implementation.
var progress = util.Progress

// progressStep writes a progress message with → prefix (step in progress).
// Delegates to util.ProgressStep for shared implementation.
var progressStep = util.ProgressStep

// progressDone writes a progress message with ✓ prefix (step completed).
// Delegates to util.ProgressDone for shared implementation.
var progressDone = util.ProgressDone
