// Package diff computes ordered, deterministic file-level deltas between two
// environment trees using checksum comparison. Comparison is read-only and
// either completes fully or fails; partial reports are never produced.
package diff

import "time"

// EntryType classifies a tree entry.
type EntryType string

const (
	TypeFile    EntryType = "file"
	TypeDir     EntryType = "dir"
	TypeSymlink EntryType = "symlink"
)

// FileEntry describes one entry of a tree snapshot. Identity is the relative
// path; uniqueness per snapshot is guaranteed by the map key.
type FileEntry struct {
	Path    string    `json:"path"`
	Type    EntryType `json:"type"`
	Size    int64     `json:"size,omitempty"`
	ModTime time.Time `json:"mod_time,omitzero"`

	// Checksum is the sha256 hex digest of file content. Empty for
	// directories and symlinks.
	Checksum string `json:"checksum,omitempty"`

	// LinkTarget is the symlink target string. Symlinks are compared by
	// target, never by dereferenced content.
	LinkTarget string `json:"link_target,omitempty"`
}

// sameAs reports whether two entries with the same path are equivalent for
// diff purposes.
func (e FileEntry) sameAs(other FileEntry) bool {
	if e.Type != other.Type {
		return false
	}
	switch e.Type {
	case TypeFile:
		return e.Checksum == other.Checksum
	case TypeSymlink:
		return e.LinkTarget == other.LinkTarget
	default: // directories carry no content
		return true
	}
}
