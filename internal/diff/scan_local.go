package diff

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"envsync/internal/exclude"
)

// localSnapshot walks a local tree and returns its entries keyed by relative
// path. File checksums are computed in parallel; the merged result is
// deterministic regardless of completion order.
func localSnapshot(ctx context.Context, fs afero.Fs, root string, policy *exclude.Policy) (map[string]FileEntry, error) {
	if _, err := fs.Stat(root); err != nil {
		return nil, err
	}

	entries := make(map[string]FileEntry)
	var files []string
	if err := walkTree(fs, root, "", policy, entries, &files); err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	sums := make([]string, len(files))
	for i, rel := range files {
		i, rel := i, rel
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sum, err := checksumFile(fs, filepath.Join(root, filepath.FromSlash(rel)))
			if err != nil {
				return fmt.Errorf("failed to checksum %s: %w", rel, err)
			}
			sums[i] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, rel := range files {
		e := entries[rel]
		e.Checksum = sums[i]
		entries[rel] = e
	}
	return entries, nil
}

// walkTree collects entries under dir (relative to root), pruning excluded
// paths. Directory reads use lstat semantics, so symlinks are never followed.
func walkTree(fs afero.Fs, root, rel string, policy *exclude.Policy, entries map[string]FileEntry, files *[]string) error {
	dir := root
	if rel != "" {
		dir = filepath.Join(root, filepath.FromSlash(rel))
	}
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return err
	}

	for _, info := range infos {
		childRel := path.Join(rel, info.Name())
		isDir := info.IsDir()
		if policy != nil && policy.Match(childRel, isDir) {
			continue
		}

		switch {
		case isDir:
			entries[childRel] = FileEntry{Path: childRel, Type: TypeDir, ModTime: info.ModTime()}
			if err := walkTree(fs, root, childRel, policy, entries, files); err != nil {
				return err
			}
		case info.Mode()&os.ModeSymlink != 0:
			target := ""
			if lr, ok := fs.(afero.LinkReader); ok {
				target, _ = lr.ReadlinkIfPossible(filepath.Join(root, filepath.FromSlash(childRel)))
			}
			entries[childRel] = FileEntry{Path: childRel, Type: TypeSymlink, ModTime: info.ModTime(), LinkTarget: target}
		default:
			entries[childRel] = FileEntry{Path: childRel, Type: TypeFile, Size: info.Size(), ModTime: info.ModTime()}
			*files = append(*files, childRel)
		}
	}
	return nil
}

func checksumFile(fs afero.Fs, path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
