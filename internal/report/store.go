// Package report persists diff reports and sync results as JSON documents
// under the operator's report directory, so runs can be audited after the
// fact.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// DefaultDirName is the reports directory under ~/.envsync.
const DefaultDirName = "reports"

// Store writes report documents to one directory.
type Store struct {
	fs  afero.Fs
	dir string
}

// DefaultDir returns ~/.envsync/reports.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".envsync", DefaultDirName), nil
}

// NewStore creates a report store rooted at dir.
func NewStore(fs afero.Fs, dir string) *Store {
	return &Store{fs: fs, dir: dir}
}

// SaveDiff persists a diff report document and returns its path.
func (s *Store) SaveDiff(doc any, createdAt time.Time) (string, error) {
	return s.save("diff", doc, createdAt)
}

// SaveSync persists a sync result document and returns its path.
func (s *Store) SaveSync(doc any, createdAt time.Time) (string, error) {
	return s.save("sync", doc, createdAt)
}

func (s *Store) save(kind string, doc any, createdAt time.Time) (string, error) {
	if err := s.fs.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory %s: %w", s.dir, err)
	}

	name := fmt.Sprintf("%s-%s-%s.json",
		kind,
		createdAt.UTC().Format("20060102-150405"),
		uuid.NewString()[:8])
	path := filepath.Join(s.dir, name)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode %s report: %w", kind, err)
	}
	if err := afero.WriteFile(s.fs, path, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return path, nil
}

// List returns stored report filenames, newest first by name.
func (s *Store) List() ([]string, error) {
	infos, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read report directory %s: %w", s.dir, err)
	}

	var names []string
	for _, info := range infos {
		if !info.IsDir() && strings.HasSuffix(info.Name(), ".json") {
			names = append(names, info.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}
