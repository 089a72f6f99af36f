// Package config handles parsing and validation of envsync configuration
// files (~/.envsync/config.toml). Credentials referenced by environments are
// opaque handles resolved by an external collaborator; this package never
// stores or decrypts secrets.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
)

const (
	// ConfigDirName is the envsync directory under the user home.
	ConfigDirName = ".envsync"
	// ConfigFilename is the name of the configuration file.
	ConfigFilename = "config.toml"
)

// Transport selects how an environment is reached.
type Transport string

const (
	// TransportLocal runs operations on the operator machine.
	TransportLocal Transport = "local"
	// TransportRemote runs operations over SSH.
	TransportRemote Transport = "remote"
)

// Environment describes one managed host/tree. Immutable once loaded for the
// duration of an operation.
type Environment struct {
	// Name is the environment identifier (map key), filled in by Load.
	Name string `toml:"-" json:"-"`

	Transport Transport `toml:"transport,omitempty" json:"transport,omitempty" jsonschema:"enum=local,enum=remote,description=How the environment is reached (default local)"`
	Host      string    `toml:"host,omitempty" json:"host,omitempty" jsonschema:"description=SSH host for remote environments"`
	User      string    `toml:"user,omitempty" json:"user,omitempty" jsonschema:"description=SSH user for remote environments"`
	Port      int       `toml:"port,omitempty" json:"port,omitempty" jsonschema:"description=SSH port (default 22)"`
	Path      string    `toml:"path" json:"path" jsonschema:"required,description=Absolute root path of the managed tree"`

	// CredentialRef is an opaque handle resolved by the external
	// credential collaborator (e.g. an ssh-agent key or keychain entry).
	CredentialRef string `toml:"credential_ref,omitempty" json:"credential_ref,omitempty" jsonschema:"description=Opaque credential handle resolved externally"`
}

// IsRemote reports whether operations run over SSH.
func (e Environment) IsRemote() bool {
	return e.Transport == TransportRemote
}

// Display returns a human-readable identifier, user@host:path for remote
// environments and the bare path for local ones.
func (e Environment) Display() string {
	if !e.IsRemote() {
		return e.Path
	}
	user := ""
	if e.User != "" {
		user = e.User + "@"
	}
	return fmt.Sprintf("%s%s:%s", user, e.Host, e.Path)
}

// Validate checks the environment definition. Returned errors name the
// environment so callers can aggregate them.
func (e Environment) Validate() []error {
	var issues []error
	switch e.Transport {
	case TransportLocal, TransportRemote:
	default:
		issues = append(issues, fmt.Errorf("%s: transport must be %q or %q, got %q", e.Name, TransportLocal, TransportRemote, e.Transport))
	}
	if e.Path == "" {
		issues = append(issues, fmt.Errorf("%s: path must not be empty", e.Name))
	}
	if e.Transport == TransportRemote && e.Host == "" {
		issues = append(issues, fmt.Errorf("%s: remote environment requires a host", e.Name))
	}
	if e.Transport == TransportLocal && e.Host != "" {
		issues = append(issues, fmt.Errorf("%s: local environment must not set a host", e.Name))
	}
	return issues
}

// Settings holds engine-wide options.
type Settings struct {
	// AutoTrustHosts permits connecting to SSH hosts missing from
	// known_hosts, recording their keys on first use. Off by default:
	// unknown hosts fail with an untrusted-host error.
	AutoTrustHosts bool `toml:"auto_trust_hosts,omitempty" json:"auto_trust_hosts,omitempty" jsonschema:"description=Trust and record unknown SSH host keys on first connect"`

	// CheckpointKeep is the default retention count for cleanup.
	CheckpointKeep int `toml:"checkpoint_keep,omitempty" json:"checkpoint_keep,omitempty" jsonschema:"description=Default number of checkpoints retained by cleanup"`

	// ReportDir overrides the directory diff/sync reports are written to.
	ReportDir string `toml:"report_dir,omitempty" json:"report_dir,omitempty" jsonschema:"description=Directory for diff and sync reports"`

	// CheckpointDir overrides the checkpoint base directory on each
	// environment's host. Default: $HOME/.envsync/checkpoints there.
	CheckpointDir string `toml:"checkpoint_dir,omitempty" json:"checkpoint_dir,omitempty" jsonschema:"description=Checkpoint base directory on the environment host"`
}

// DefaultCheckpointKeep is used when settings.checkpoint_keep is unset.
const DefaultCheckpointKeep = 5

// Config represents the envsync configuration.
type Config struct {
	Environments map[string]Environment `toml:"environments" json:"environments" jsonschema:"required,description=Managed environments keyed by name"`
	Settings     Settings               `toml:"settings,omitempty" json:"settings,omitempty" jsonschema:"description=Engine-wide options"`
}

// DefaultPath returns ~/.envsync/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ConfigDirName, ConfigFilename), nil
}

// Load reads and validates a configuration file. Unknown fields are rejected
// so typos fail at load time instead of deep inside an operation.
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	for name, env := range cfg.Environments {
		env.Name = name
		if env.Transport == "" {
			env.Transport = TransportLocal
		}
		cfg.Environments[name] = env
	}

	if issues := cfg.Validate(); len(issues) > 0 {
		return nil, fmt.Errorf("invalid config %s: %v", path, issues)
	}
	return &cfg, nil
}

// Validate checks every environment definition.
func (c *Config) Validate() []error {
	var issues []error
	if len(c.Environments) == 0 {
		issues = append(issues, fmt.Errorf("at least one environment must be configured"))
	}
	for _, name := range c.EnvironmentNames() {
		issues = append(issues, c.Environments[name].Validate()...)
	}
	if c.Settings.CheckpointKeep < 0 {
		issues = append(issues, fmt.Errorf("settings.checkpoint_keep must not be negative"))
	}
	return issues
}

// Env returns the named environment or an error listing what is configured.
func (c *Config) Env(name string) (Environment, error) {
	env, ok := c.Environments[name]
	if !ok {
		return Environment{}, fmt.Errorf("environment %q is not configured (have: %v)", name, c.EnvironmentNames())
	}
	return env, nil
}

// EnvironmentNames returns configured environment names, sorted.
func (c *Config) EnvironmentNames() []string {
	names := make([]string, 0, len(c.Environments))
	for name := range c.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Keep returns the effective checkpoint retention count.
func (c *Config) Keep() int {
	if c.Settings.CheckpointKeep > 0 {
		return c.Settings.CheckpointKeep
	}
	return DefaultCheckpointKeep
}
