package diff

import (
	"fmt"
	"slices"
	"time"
)

// DiffReport is the three-way partition of the symmetric difference between
// a source and a target tree. The three sequences are pairwise disjoint and
// sorted lexicographically by path, so reports are reproducible across runs
// given unchanged inputs. Immutable once produced.
type DiffReport struct {
	Source    string    `json:"source"`
	Target    string    `json:"target"`
	CreatedAt time.Time `json:"created_at"`

	// ToAdd: present in source, absent in target.
	ToAdd []string `json:"to_add"`
	// ToUpdate: present in both, content or type differs.
	ToUpdate []string `json:"to_update"`
	// ToDelete: present in target, absent in source.
	ToDelete []string `json:"to_delete"`

	// TypeChanged is the subset of ToUpdate whose entry type changed
	// (file↔dir↔symlink); a content overwrite cannot fix those.
	TypeChanged []string `json:"type_changed,omitempty"`
}

// Empty reports whether the two trees are identical under the policy the
// report was computed with.
func (r *DiffReport) Empty() bool {
	return len(r.ToAdd) == 0 && len(r.ToUpdate) == 0 && len(r.ToDelete) == 0
}

// IsTypeChanged reports whether the path's entry type differs between trees.
func (r *DiffReport) IsTypeChanged(path string) bool {
	return slices.Contains(r.TypeChanged, path)
}

// Summary returns a one-line human-readable overview.
func (r *DiffReport) Summary() string {
	return fmt.Sprintf("[%s] vs [%s]: %d to add, %d to update, %d to delete",
		r.Source, r.Target, len(r.ToAdd), len(r.ToUpdate), len(r.ToDelete))
}

// ComparisonError reports an unreadable tree during compare; the invoking
// operation is fatal and no partial result is returned.
type ComparisonError struct {
	Env string
	Err error
}

func (e *ComparisonError) Error() string {
	return fmt.Sprintf("comparison of environment %q failed: %v", e.Env, e.Err)
}

func (e *ComparisonError) Unwrap() error { return e.Err }
