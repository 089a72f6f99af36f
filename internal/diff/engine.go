package diff

import (
	"context"
	"sort"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"envsync/internal/config"
	"envsync/internal/connect"
	"envsync/internal/exclude"
)

// ChannelProvider acquires the reusable channel for an environment.
// *connect.Manager implements it.
type ChannelProvider interface {
	Acquire(ctx context.Context, env config.Environment) (connect.Channel, error)
}

// Engine computes DiffReports between environment trees.
type Engine struct {
	channels ChannelProvider
	fs       afero.Fs
}

// NewEngine creates a diff engine. fs backs local tree scans (afero.NewOsFs
// in production, MemMapFs in tests).
func NewEngine(channels ChannelProvider, fs afero.Fs) *Engine {
	return &Engine{channels: channels, fs: fs}
}

// Snapshot captures the current entries of the environment behind the
// channel, keyed by relative path. Read-only.
func (e *Engine) Snapshot(ctx context.Context, ch connect.Channel, policy *exclude.Policy) (map[string]FileEntry, error) {
	if ch.IsRemote() {
		return remoteSnapshot(ctx, ch, policy)
	}
	return localSnapshot(ctx, e.fs, ch.Root(), policy)
}

// Compare computes the three-way partition between source and target. The
// two tree walks run concurrently; neither tree is mutated. Any unreadable
// root fails the whole comparison with a ComparisonError.
func (e *Engine) Compare(ctx context.Context, source, target config.Environment, policy *exclude.Policy) (*DiffReport, error) {
	srcCh, err := e.channels.Acquire(ctx, source)
	if err != nil {
		return nil, err
	}
	dstCh, err := e.channels.Acquire(ctx, target)
	if err != nil {
		return nil, err
	}

	var srcEntries, dstEntries map[string]FileEntry
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		srcEntries, err = e.Snapshot(gctx, srcCh, policy)
		if err != nil {
			return &ComparisonError{Env: source.Name, Err: err}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		dstEntries, err = e.Snapshot(gctx, dstCh, policy)
		if err != nil {
			return &ComparisonError{Env: target.Name, Err: err}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return buildReport(source.Name, target.Name, srcEntries, dstEntries), nil
}

// buildReport partitions the symmetric difference of two snapshots. Entries
// present in both trees with identical type and content appear nowhere.
func buildReport(source, target string, src, dst map[string]FileEntry) *DiffReport {
	report := &DiffReport{
		Source:    source,
		Target:    target,
		CreatedAt: time.Now().UTC(),
	}

	for path, srcEntry := range src {
		dstEntry, ok := dst[path]
		if !ok {
			report.ToAdd = append(report.ToAdd, path)
			continue
		}
		if srcEntry.sameAs(dstEntry) {
			continue
		}
		report.ToUpdate = append(report.ToUpdate, path)
		if srcEntry.Type != dstEntry.Type {
			report.TypeChanged = append(report.TypeChanged, path)
		}
	}
	for path := range dst {
		if _, ok := src[path]; !ok {
			report.ToDelete = append(report.ToDelete, path)
		}
	}

	sort.Strings(report.ToAdd)
	sort.Strings(report.ToUpdate)
	sort.Strings(report.ToDelete)
	sort.Strings(report.TypeChanged)
	return report
}
