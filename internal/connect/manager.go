package connect

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"envsync/internal/config"
)

// Manager owns one channel per environment identifier. Channels are created
// on first Acquire and reused for the rest of the process; Close tears down
// every SSH connection at shutdown. Not a global: construct one Manager and
// pass it to the engine components that need it.
type Manager struct {
	mu             sync.Mutex
	channels       map[string]Channel
	clients        []interface{ Close() error }
	autoTrust      bool
	knownHostsPath string
}

// Option configures a Manager.
type Option func(*Manager)

// WithAutoTrust permits connecting to hosts missing from the trusted set,
// recording their keys on first use. Key mismatches still fail.
func WithAutoTrust(enabled bool) Option {
	return func(m *Manager) { m.autoTrust = enabled }
}

// WithKnownHostsPath overrides the trusted host set location
// (default ~/.ssh/known_hosts).
func WithKnownHostsPath(path string) Option {
	return func(m *Manager) { m.knownHostsPath = path }
}

// NewManager creates a connection manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{channels: make(map[string]Channel)}
	if home, err := os.UserHomeDir(); err == nil {
		m.knownHostsPath = filepath.Join(home, ".ssh", "known_hosts")
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire returns the channel for the environment, creating it on first use.
// Repeated calls for the same environment name return the same channel.
func (m *Manager) Acquire(ctx context.Context, env config.Environment) (Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if ch, ok := m.channels[env.Name]; ok {
		return ch, nil
	}

	if !env.IsRemote() {
		ch := newLocalChannel(env.Name, env.Path)
		m.channels[env.Name] = ch
		return ch, nil
	}

	client, err := dialSSH(env, m.autoTrust, m.knownHostsPath)
	if err != nil {
		return nil, err
	}
	ch := &sshChannel{
		name:   env.Name,
		root:   env.Path,
		host:   env.Host,
		user:   env.User,
		client: client,
	}
	m.channels[env.Name] = ch
	m.clients = append(m.clients, client)
	return ch, nil
}

// Close tears down all SSH connections. Safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, c := range m.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	m.clients = nil
	m.channels = make(map[string]Channel)
	return errors.Join(errs...)
}
