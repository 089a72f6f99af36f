// Package syncer executes sync plans: checkpoint, ordered transfer,
// verification, and rollback on failure. One executor serializes syncs per
// target environment.
package syncer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"envsync/internal/checkpoint"
	"envsync/internal/config"
	"envsync/internal/connect"
	"envsync/internal/diff"
	"envsync/internal/exclude"
	"envsync/internal/plan"
	"envsync/internal/util"
)

// Outcome classifies how a sync ended.
type Outcome string

const (
	// OutcomeSucceeded means every operation applied and, when verification
	// ran, the trees matched afterwards.
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeRolledBack means the sync failed partway and the target was
	// restored from the pre-sync checkpoint.
	OutcomeRolledBack Outcome = "rolled_back"
	// OutcomeFailed means the sync failed and the target could not be
	// restored (no checkpoint, or the rollback itself failed).
	OutcomeFailed Outcome = "failed"
)

// EventKind classifies progress events emitted during a sync.
type EventKind string

const (
	EventCompare    EventKind = "compare"
	EventCheckpoint EventKind = "checkpoint"
	EventOperation  EventKind = "operation"
	EventVerify     EventKind = "verify"
	EventRollback   EventKind = "rollback"
)

// Event is one progress notification. Index/Total are set for operation
// events only.
type Event struct {
	Kind    EventKind
	Message string
	Index   int
	Total   int
}

// Options controls one sync run.
type Options struct {
	Strategy plan.Strategy

	// Backup captures a checkpoint of the target before the first mutation.
	// Disabling it removes the ability to roll back.
	Backup bool

	// Verify re-compares the trees after the plan applies.
	Verify bool

	// Confirmed acknowledges the force strategy's deletions. Force syncs
	// without it are rejected before any mutation.
	Confirmed bool

	// AllowDirty skips the uncommitted-changes check on git-managed targets.
	AllowDirty bool

	// AutoCommit records the applied changes as a git commit in the target
	// tree after a successful sync. Targets that are not git repositories
	// are unaffected.
	AutoCommit bool

	// OnEvent, when set, receives progress events. Called synchronously.
	OnEvent func(Event)
}

// DefaultOptions returns the safe defaults: safe strategy, backup,
// verification, and target auto-commit on.
func DefaultOptions() Options {
	return Options{Strategy: plan.StrategySafe, Backup: true, Verify: true, AutoCommit: true}
}

// SyncResult records one sync run end to end.
type SyncResult struct {
	ID       uuid.UUID `json:"id"`
	Source   string    `json:"source"`
	Target   string    `json:"target"`
	Strategy string    `json:"strategy"`
	Outcome  Outcome   `json:"outcome"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Plan         *plan.SyncPlan `json:"plan,omitempty"`
	Applied      int            `json:"applied"`
	CheckpointID string         `json:"checkpoint_id,omitempty"`
	Verified     bool           `json:"verified"`

	// Verification is the post-sync comparison, when verification ran.
	Verification *diff.DiffReport `json:"verification,omitempty"`

	Error string `json:"error,omitempty"`
}

// DiffService computes tree comparisons. *diff.Engine implements it.
type DiffService interface {
	Compare(ctx context.Context, source, target config.Environment, policy *exclude.Policy) (*diff.DiffReport, error)
}

// CheckpointService captures and restores target checkpoints.
// *checkpoint.Manager implements it.
type CheckpointService interface {
	Create(ctx context.Context, ch connect.Channel, policy *exclude.Policy) (*checkpoint.Checkpoint, error)
	Rollback(ctx context.Context, ch connect.Channel, id string, policy *exclude.Policy) error
}

// ChannelProvider acquires the reusable channel for an environment.
// *connect.Manager implements it.
type ChannelProvider interface {
	Acquire(ctx context.Context, env config.Environment) (connect.Channel, error)
}

// Executor runs syncs. Safe for concurrent use; concurrent syncs against the
// same target environment are rejected, not queued.
type Executor struct {
	channels    ChannelProvider
	differ      DiffService
	checkpoints CheckpointService
	runner      util.CommandRunner

	mu   sync.Mutex
	busy map[string]bool
}

// NewExecutor creates a sync executor. runner executes rsync on the operator
// machine.
func NewExecutor(channels ChannelProvider, differ DiffService, checkpoints CheckpointService, runner util.CommandRunner) *Executor {
	return &Executor{
		channels:    channels,
		differ:      differ,
		checkpoints: checkpoints,
		runner:      runner,
		busy:        make(map[string]bool),
	}
}

// Sync makes target identical to source (up to strategy and exclusions).
// The source tree is never mutated. The returned SyncResult is non-nil
// whenever a run started, including failed and rolled-back runs.
func (e *Executor) Sync(ctx context.Context, source, target config.Environment, opts Options) (*SyncResult, error) {
	if opts.Strategy == "" {
		opts.Strategy = plan.StrategySafe
	}
	if _, err := plan.ParseStrategy(string(opts.Strategy)); err != nil {
		return nil, err
	}
	if opts.Strategy == plan.StrategyForce && !opts.Confirmed {
		return nil, ErrConfirmationRequired
	}
	if source.IsRemote() && target.IsRemote() {
		return nil, ErrBothRemote
	}

	if err := e.lock(target.Name); err != nil {
		return nil, err
	}
	defer e.unlock(target.Name)

	result := &SyncResult{
		ID:        uuid.New(),
		Source:    source.Name,
		Target:    target.Name,
		Strategy:  string(opts.Strategy),
		StartedAt: time.Now().UTC(),
	}

	err := e.run(ctx, source, target, opts, result)
	result.FinishedAt = time.Now().UTC()
	if err != nil {
		result.Error = err.Error()
		if result.Outcome == "" {
			result.Outcome = OutcomeFailed
		}
		return result, err
	}
	result.Outcome = OutcomeSucceeded
	return result, nil
}

func (e *Executor) run(ctx context.Context, source, target config.Environment, opts Options, result *SyncResult) error {
	srcCh, err := e.channels.Acquire(ctx, source)
	if err != nil {
		return err
	}
	dstCh, err := e.channels.Acquire(ctx, target)
	if err != nil {
		return err
	}

	policy, err := diff.PolicyFor(ctx, srcCh, nil)
	if err != nil {
		return err
	}

	if opts.Strategy == plan.StrategySafe && !opts.AllowDirty {
		if err := e.checkCleanTarget(ctx, dstCh); err != nil {
			return err
		}
	}

	e.emit(opts, Event{Kind: EventCompare, Message: fmt.Sprintf("comparing %s -> %s", source.Name, target.Name)})
	report, err := e.differ.Compare(ctx, source, target, policy)
	if err != nil {
		return err
	}

	p, err := plan.Build(report, opts.Strategy)
	if err != nil {
		return err
	}
	result.Plan = p
	if p.Empty() {
		result.Verified = true
		return nil
	}

	// Safe syncs may not overwrite existing target files unless the
	// overwrite is covered by a checkpoint.
	if opts.Strategy == plan.StrategySafe && !opts.Backup && len(report.ToUpdate) > 0 {
		return ErrCheckpointRequired
	}

	if opts.Backup {
		e.emit(opts, Event{Kind: EventCheckpoint, Message: "creating checkpoint of " + target.Name})
		cp, err := e.checkpoints.Create(ctx, dstCh, policy)
		if err != nil {
			return fmt.Errorf("failed to checkpoint %s before sync: %w", target.Name, err)
		}
		p.CheckpointID = cp.ID
		result.CheckpointID = cp.ID
	}

	if err := e.apply(ctx, srcCh, dstCh, p, policy, opts, result); err != nil {
		return e.recover(ctx, dstCh, p, policy, opts, result, err)
	}

	if opts.Verify {
		e.emit(opts, Event{Kind: EventVerify, Message: "verifying trees match"})
		after, err := e.differ.Compare(ctx, source, target, policy)
		if err != nil {
			return e.recover(ctx, dstCh, p, policy, opts, result, err)
		}
		result.Verification = after
		if !e.converged(after, opts.Strategy) {
			mismatch := &VerificationMismatchError{
				Source:  source.Name,
				Target:  target.Name,
				Summary: after.Summary(),
			}
			return e.recover(ctx, dstCh, p, policy, opts, result, mismatch)
		}
		result.Verified = true
	}

	if opts.AutoCommit {
		e.autoCommit(ctx, dstCh, source.Name)
	}
	return nil
}

// apply executes plan operations in order, re-checking the context between
// operations so cancellation stops at an operation boundary.
func (e *Executor) apply(ctx context.Context, srcCh, dstCh connect.Channel, p *plan.SyncPlan, policy *exclude.Policy, opts Options, result *SyncResult) error {
	total := len(p.Operations)
	for i, op := range p.Operations {
		if err := ctx.Err(); err != nil {
			return &ExecutionError{Op: string(op.Kind), Path: op.Path, Index: i, Total: total, Err: err}
		}
		e.emit(opts, Event{
			Kind:    EventOperation,
			Message: fmt.Sprintf("%s %s", op.Kind, op.Path),
			Index:   i,
			Total:   total,
		})

		var err error
		switch op.Kind {
		case plan.OpCopy:
			err = e.copy(srcCh, dstCh, op.Path, policy)
		case plan.OpDelete:
			err = e.delete(ctx, dstCh, op.Path)
		default:
			err = fmt.Errorf("unknown operation kind %q", op.Kind)
		}
		if err != nil {
			return &ExecutionError{Op: string(op.Kind), Path: op.Path, Index: i, Total: total, Err: err}
		}
		result.Applied++
	}
	return nil
}

// copy transfers one path from source to target with rsync --relative, so
// parent directories are created as needed.
func (e *Executor) copy(srcCh, dstCh connect.Channel, rel string, policy *exclude.Policy) error {
	args := []string{"-a", "--relative"}
	if policy != nil {
		args = append(args, policy.RsyncArgs()...)
	}
	args = append(args, srcCh.RsyncSpec("")+"./"+rel, dstCh.RsyncSpec(""))

	if out, err := e.runner.RunQuiet("rsync", args...); err != nil {
		return fmt.Errorf("rsync: %w: %s", err, strings.TrimSpace(out))
	}
	return nil
}

// delete removes one path from the target tree through its channel.
func (e *Executor) delete(ctx context.Context, dstCh connect.Channel, rel string) error {
	full := strings.TrimSuffix(dstCh.Root(), "/") + "/" + rel
	res, err := dstCh.Run(ctx, "rm -rf -- "+util.ShellQuote(full))
	if err != nil {
		return err
	}
	return res.Check("removing " + rel)
}

// autoCommit records the applied changes in the target's git history. Best
// effort: the files are already in place, and non-git targets exit at the
// test -d guard.
func (e *Executor) autoCommit(ctx context.Context, dstCh connect.Channel, source string) {
	root := util.ShellQuote(dstCh.Root())
	msg := util.ShellQuote("Synced from " + source)
	_, _ = dstCh.Run(ctx, fmt.Sprintf("cd %s && test -d .git && git add -A && git commit -m %s", root, msg))
}

// recover rolls the target back to the pre-sync checkpoint when one exists.
// The returned error is the original failure; a rollback failure is attached.
func (e *Executor) recover(ctx context.Context, dstCh connect.Channel, p *plan.SyncPlan, policy *exclude.Policy, opts Options, result *SyncResult, cause error) error {
	if p.CheckpointID == "" {
		result.Outcome = OutcomeFailed
		return cause
	}

	e.emit(opts, Event{Kind: EventRollback, Message: "restoring checkpoint " + p.CheckpointID})
	// Rollback must proceed even when the failure was a cancellation.
	rbCtx := context.WithoutCancel(ctx)
	if err := e.checkpoints.Rollback(rbCtx, dstCh, p.CheckpointID, policy); err != nil {
		result.Outcome = OutcomeFailed
		return fmt.Errorf("%w (rollback to checkpoint %s also failed: %v)", cause, p.CheckpointID, err)
	}
	result.Outcome = OutcomeRolledBack
	return cause
}

// checkCleanTarget rejects a safe sync into a git-managed target tree with
// uncommitted changes. Targets that are not git repositories pass.
func (e *Executor) checkCleanTarget(ctx context.Context, dstCh connect.Channel) error {
	root := util.ShellQuote(dstCh.Root())
	cmd := fmt.Sprintf("cd %s && test -d .git && git status --porcelain", root)
	res, err := dstCh.Run(ctx, cmd)
	if err != nil {
		return err
	}
	if res.Code == 0 && strings.TrimSpace(res.Stdout) != "" {
		return &DirtyTargetError{Env: dstCh.Name()}
	}
	return nil
}

// converged reports whether a post-sync comparison is clean for the
// strategy. Safe syncs leave target-only files behind on purpose, so only
// additions and updates count against it.
func (e *Executor) converged(report *diff.DiffReport, strategy plan.Strategy) bool {
	if strategy == plan.StrategyForce {
		return report.Empty()
	}
	return len(report.ToAdd) == 0 && len(report.ToUpdate) == 0
}

func (e *Executor) emit(opts Options, ev Event) {
	if opts.OnEvent != nil {
		opts.OnEvent(ev)
	}
}

func (e *Executor) lock(env string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy[env] {
		return &EnvironmentBusyError{Env: env}
	}
	e.busy[env] = true
	return nil
}

func (e *Executor) unlock(env string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.busy, env)
}
