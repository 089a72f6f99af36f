package diff

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"envsync/internal/connect"
	"envsync/internal/exclude"
	"envsync/internal/util"
)

// remoteSnapshot captures a tree over the channel with two commands: a GNU
// find listing for entry metadata and a sha256sum batch for file checksums.
// Gitignore rules cannot be pushed into find, so they are applied while
// parsing the listing.
func remoteSnapshot(ctx context.Context, ch connect.Channel, policy *exclude.Policy) (map[string]FileEntry, error) {
	root := util.ShellQuote(ch.Root())
	prune := ""
	if policy != nil {
		prune = policy.FindPruneExpr() + " "
	}

	listCmd := fmt.Sprintf(
		`cd %s && find . %s\( -type f -o -type d -o -type l \) -printf '%%y\t%%s\t%%T@\t%%P\t%%l\n'`,
		root, prune)
	res, err := ch.Run(ctx, listCmd)
	if err != nil {
		return nil, err
	}
	if err := res.Check("listing tree"); err != nil {
		return nil, err
	}

	entries, err := parseFindListing(res.Stdout, policy)
	if err != nil {
		return nil, err
	}

	sumCmd := fmt.Sprintf(
		`cd %s && find . %s-type f -print0 | xargs -0 -r sha256sum --`,
		root, prune)
	res, err = ch.Run(ctx, sumCmd)
	if err != nil {
		return nil, err
	}
	if err := res.Check("checksumming tree"); err != nil {
		return nil, err
	}

	if err := mergeChecksums(res.Stdout, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// parseFindListing parses `find -printf '%y\t%s\t%T@\t%P\t%l\n'` output.
func parseFindListing(out string, policy *exclude.Policy) (map[string]FileEntry, error) {
	entries := make(map[string]FileEntry)
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 5)
		if len(fields) != 5 {
			return nil, fmt.Errorf("malformed find output line: %q", line)
		}
		kind, sizeStr, mtimeStr, rel, linkTarget := fields[0], fields[1], fields[2], fields[3], fields[4]
		if rel == "" { // %P of the root itself
			continue
		}
		isDir := kind == "d"
		if policy != nil && policy.Match(rel, isDir) {
			continue
		}

		entry := FileEntry{Path: rel}
		if ts, err := strconv.ParseFloat(mtimeStr, 64); err == nil {
			sec, frac := math.Modf(ts)
			entry.ModTime = time.Unix(int64(sec), int64(frac*1e9))
		}

		switch kind {
		case "d":
			entry.Type = TypeDir
		case "l":
			entry.Type = TypeSymlink
			entry.LinkTarget = linkTarget
		case "f":
			entry.Type = TypeFile
			size, err := strconv.ParseInt(sizeStr, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("malformed size in find output: %q", line)
			}
			entry.Size = size
		default:
			continue
		}
		entries[rel] = entry
	}
	return entries, nil
}

// mergeChecksums parses `sha256sum` output ("<hex>  ./path") into entries.
func mergeChecksums(out string, entries map[string]FileEntry) error {
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "  ", 2)
		if len(fields) != 2 || len(fields[0]) != 64 {
			return fmt.Errorf("malformed sha256sum output line: %q", line)
		}
		rel := strings.TrimPrefix(fields[1], "./")
		if e, ok := entries[rel]; ok {
			e.Checksum = fields[0]
			entries[rel] = e
		}
	}
	return nil
}
