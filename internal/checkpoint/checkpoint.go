// Package checkpoint creates, lists, prunes, and restores point-in-time
// snapshots of an environment's tree. Checkpoints are stored on the
// environment's own host and are immutable after creation; only explicit
// cleanup or rollback touches them.
package checkpoint

import (
	"fmt"
	"time"

	"envsync/internal/diff"
)

// IDFormat is the timestamp layout used for checkpoint ids. Ids are
// monotonically increasing per environment; same-second collisions are
// disambiguated with a numeric suffix.
const IDFormat = "20060102-150405"

// Checkpoint is an immutable, restorable snapshot of one environment's tree.
type Checkpoint struct {
	ID        string    `json:"id"`
	Env       string    `json:"env"`
	CreatedAt time.Time `json:"created_at"`

	// Location is the checkpoint directory on the environment's host.
	Location string `json:"location"`

	// GitCommit is the target tree's HEAD at capture time, empty when the
	// tree is not a git repository. Checkpoints never copy .git itself, so
	// this is what rollback uses to restore the repository state.
	GitCommit string `json:"git_commit,omitempty"`

	// Manifest lists every captured entry, sorted by path.
	Manifest []diff.FileEntry `json:"manifest"`
}

// NotFoundError reports a rollback or lookup against a checkpoint id that
// does not exist. Fatal; there is no fallback guess.
type NotFoundError struct {
	Env string
	ID  string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("environment %q has no checkpoints", e.Env)
	}
	return fmt.Sprintf("checkpoint %q does not exist for environment %q", e.ID, e.Env)
}

// InvalidRetentionError reports a cleanup keep-count below 1.
type InvalidRetentionError struct {
	Keep int
}

func (e *InvalidRetentionError) Error() string {
	return fmt.Sprintf("retention count must be at least 1, got %d", e.Keep)
}
