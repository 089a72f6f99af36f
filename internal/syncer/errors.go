package syncer

import (
	"errors"
	"fmt"
)

// ErrConfirmationRequired rejects a force sync that was not explicitly
// confirmed by the caller.
var ErrConfirmationRequired = errors.New("force strategy requires explicit confirmation")

// ErrBothRemote rejects a sync where neither side is the operator machine.
// rsync transfers always pass through the local host.
var ErrBothRemote = errors.New("source and target cannot both be remote; one side must be local")

// ErrCheckpointRequired rejects a safe sync that would overwrite target
// files without a checkpoint to roll back to.
var ErrCheckpointRequired = errors.New("safe strategy cannot overwrite target files without a checkpoint; re-enable backup or use force")

// EnvironmentBusyError reports a sync attempted against an environment that
// is already the target of a running sync in this process.
type EnvironmentBusyError struct {
	Env string
}

func (e *EnvironmentBusyError) Error() string {
	return fmt.Sprintf("environment %q is busy with another sync", e.Env)
}

// DirtyTargetError reports uncommitted changes in the target tree under the
// safe strategy. The operator either commits/stashes them or passes
// allow-dirty.
type DirtyTargetError struct {
	Env string
}

func (e *DirtyTargetError) Error() string {
	return fmt.Sprintf("target %q has uncommitted changes; commit or stash them, or allow dirty targets explicitly", e.Env)
}

// ExecutionError reports a failed plan operation, with how far the plan got.
type ExecutionError struct {
	Op    string
	Path  string
	Index int
	Total int
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s %s failed (operation %d of %d): %v", e.Op, e.Path, e.Index+1, e.Total, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// VerificationMismatchError reports a post-sync comparison that still found
// differences. The sync is rolled back when a checkpoint exists.
type VerificationMismatchError struct {
	Source  string
	Target  string
	Summary string
}

func (e *VerificationMismatchError) Error() string {
	return fmt.Sprintf("post-sync verification of %s -> %s found remaining differences: %s", e.Source, e.Target, e.Summary)
}
