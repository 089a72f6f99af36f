// Package plan converts a DiffReport plus a strategy into an ordered,
// strategy-filtered list of file operations.
package plan

import (
	"fmt"

	"envsync/internal/diff"
)

// Strategy selects the consistency policy for a sync.
type Strategy string

const (
	// StrategySafe only adds and updates at the target; target-only files
	// are reported as orphans, never removed.
	StrategySafe Strategy = "safe"
	// StrategyForce also deletes target-only files to match the source
	// exactly. Requires explicit confirmation by the caller.
	StrategyForce Strategy = "force"
)

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategySafe, StrategyForce:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown strategy %q (want %q or %q)", s, StrategySafe, StrategyForce)
	}
}

// OpKind is the kind of a planned file operation.
type OpKind string

const (
	OpCopy   OpKind = "copy"
	OpDelete OpKind = "delete"
)

// Operation is one planned step against the target tree.
type Operation struct {
	Kind OpKind `json:"kind"`
	Path string `json:"path"`

	// TypeChange marks the delete half of a delete-then-copy pair emitted
	// when an entry's type changed; such deletes are required under every
	// strategy because a content overwrite cannot change entry type.
	TypeChange bool `json:"type_change,omitempty"`
}

// SyncPlan is an ordered operation list derived from one DiffReport.
// Ordering invariant: plain deletes come after all copies; a type-change
// pair keeps its delete immediately before its copy.
type SyncPlan struct {
	Strategy   Strategy         `json:"strategy"`
	Operations []Operation      `json:"operations"`
	Report     *diff.DiffReport `json:"report"`

	// Orphans lists target-only paths that the safe strategy reports but
	// does not plan, so callers can surface them without auto-removal.
	Orphans []string `json:"orphans,omitempty"`

	// CheckpointID is attached by the executor once a pre-sync checkpoint
	// exists; under safe it must be set before any overwriting copy runs.
	CheckpointID string `json:"checkpoint_id,omitempty"`
}

// Empty reports whether the plan has nothing to execute.
func (p *SyncPlan) Empty() bool { return len(p.Operations) == 0 }

// Build derives the execution plan for a report under the given strategy.
func Build(report *diff.DiffReport, strategy Strategy) (*SyncPlan, error) {
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return nil, err
	}

	p := &SyncPlan{Strategy: strategy, Report: report}

	for _, path := range report.ToAdd {
		p.Operations = append(p.Operations, Operation{Kind: OpCopy, Path: path})
	}
	for _, path := range report.ToUpdate {
		if report.IsTypeChanged(path) {
			continue // paired below, after plain copies
		}
		p.Operations = append(p.Operations, Operation{Kind: OpCopy, Path: path})
	}

	// Type changes need a delete-then-copy pair regardless of strategy.
	for _, path := range report.TypeChanged {
		p.Operations = append(p.Operations,
			Operation{Kind: OpDelete, Path: path, TypeChange: true},
			Operation{Kind: OpCopy, Path: path, TypeChange: true},
		)
	}

	switch strategy {
	case StrategySafe:
		p.Orphans = append(p.Orphans, report.ToDelete...)
	case StrategyForce:
		for _, path := range report.ToDelete {
			p.Operations = append(p.Operations, Operation{Kind: OpDelete, Path: path})
		}
	}

	return p, nil
}
