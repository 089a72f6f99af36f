// Package connect owns one reusable execution/transfer channel per
// environment. Channels are created on first acquire, reused for every
// subsequent operation in the process, and torn down at shutdown. Remote
// host identity is verified against the trusted host set before first use.
package connect

import (
	"context"
	"fmt"
	"strings"
)

// CommandResult holds the outcome of one command run through a channel.
// A non-zero Code is a command failure, not a transport failure.
type CommandResult struct {
	Code   int
	Stdout string
	Stderr string
}

// Check returns an error when the command exited non-zero, labelled with
// what was being attempted.
func (r CommandResult) Check(what string) error {
	if r.Code == 0 {
		return nil
	}
	detail := strings.TrimSpace(r.Stderr)
	if detail == "" {
		detail = strings.TrimSpace(r.Stdout)
	}
	return fmt.Errorf("%s: exit status %d: %s", what, r.Code, detail)
}

// Channel is a reusable execution/transfer channel bound to one environment.
// Implementations are safe for concurrent read-only commands; mutating
// operations against one environment are serialized by the sync executor.
type Channel interface {
	// Name returns the environment identifier the channel is bound to.
	Name() string

	// Root returns the environment's tree root path.
	Root() string

	// IsRemote reports whether commands run over SSH.
	IsRemote() bool

	// Run executes a shell command on the environment's host. Commands run
	// from the default directory; use absolute paths or an explicit cd.
	// Transport failures return an error; command failures return a
	// CommandResult with a non-zero Code.
	Run(ctx context.Context, cmd string) (CommandResult, error)

	// RsyncSpec returns the rsync path spec for a path relative to the
	// root ("" means the root's contents, with trailing slash).
	RsyncSpec(rel string) string
}
