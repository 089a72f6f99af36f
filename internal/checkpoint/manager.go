package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"envsync/internal/connect"
	"envsync/internal/diff"
	"envsync/internal/exclude"
	"envsync/internal/util"
)

// Snapshotter captures the current entries of the environment behind a
// channel. *diff.Engine implements it.
type Snapshotter interface {
	Snapshot(ctx context.Context, ch connect.Channel, policy *exclude.Policy) (map[string]diff.FileEntry, error)
}

// Manager operates checkpoints through an environment's channel, so local
// and remote environments are handled uniformly.
type Manager struct {
	snap Snapshotter

	// baseDir is a shell fragment for the checkpoint base directory on the
	// environment host; $HOME is expanded by the remote shell. basePath is
	// the same directory unquoted, recorded in checkpoint metadata.
	baseDir  string
	basePath string

	now func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithBaseDir overrides the checkpoint base directory (an absolute path on
// the environment host).
func WithBaseDir(dir string) ManagerOption {
	return func(m *Manager) {
		m.baseDir = util.ShellQuote(dir)
		m.basePath = dir
	}
}

// WithClock overrides the id clock, for tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a checkpoint manager.
func NewManager(snap Snapshotter, opts ...ManagerOption) *Manager {
	m := &Manager{
		snap:     snap,
		baseDir:  `"$HOME"/.envsync/checkpoints`,
		basePath: "$HOME/.envsync/checkpoints",
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// envDir returns the shell fragment for the environment's checkpoint dir.
func (m *Manager) envDir(ch connect.Channel) string {
	return m.baseDir + "/" + util.ShellQuote(ch.Name())
}

// Create captures the full current manifest and stores a restorable copy of
// the tree. Succeed-or-fail atomic: the copy lands in a .partial directory
// and is renamed into place last, so a partially captured checkpoint is
// never listed.
func (m *Manager) Create(ctx context.Context, ch connect.Channel, policy *exclude.Policy) (*Checkpoint, error) {
	entries, err := m.snap.Snapshot(ctx, ch, policy)
	if err != nil {
		return nil, fmt.Errorf("failed to capture manifest for %s: %w", ch.Name(), err)
	}

	createdAt := m.now()
	id, err := m.reserveID(ctx, ch, createdAt)
	if err != nil {
		return nil, err
	}

	dir := m.envDir(ch)
	partial := dir + "/" + util.ShellQuote(".partial-"+id)
	final := dir + "/" + util.ShellQuote(id)

	cp := &Checkpoint{
		ID:        id,
		Env:       ch.Name(),
		CreatedAt: createdAt.UTC(),
		Location:  path.Join(m.basePath, ch.Name(), id),
		GitCommit: m.headCommit(ctx, ch),
		Manifest:  sortedManifest(entries),
	}
	meta, err := json.Marshal(cp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode checkpoint metadata: %w", err)
	}

	copyCmd := fmt.Sprintf("mkdir -p %s/data && rsync -a %s %s/ %s/data/",
		partial,
		strings.Join(policyArgs(policy), " "),
		util.ShellQuote(strings.TrimSuffix(ch.Root(), "/")),
		partial)
	res, err := ch.Run(ctx, copyCmd)
	if err != nil {
		return nil, err
	}
	if err := res.Check("checkpoint copy"); err != nil {
		m.discardPartial(ctx, ch, partial)
		return nil, err
	}

	metaCmd := fmt.Sprintf("cat > %s/checkpoint.json <<'ENVSYNC_MANIFEST'\n%s\nENVSYNC_MANIFEST", partial, meta)
	res, err = ch.Run(ctx, metaCmd)
	if err != nil {
		return nil, err
	}
	if err := res.Check("checkpoint metadata write"); err != nil {
		m.discardPartial(ctx, ch, partial)
		return nil, err
	}

	res, err = ch.Run(ctx, fmt.Sprintf("mv %s %s", partial, final))
	if err != nil {
		return nil, err
	}
	if err := res.Check("checkpoint publish"); err != nil {
		m.discardPartial(ctx, ch, partial)
		return nil, err
	}
	return cp, nil
}

// headCommit returns the tree's git HEAD, or empty when the tree is not a
// git repository.
func (m *Manager) headCommit(ctx context.Context, ch connect.Channel) string {
	root := util.ShellQuote(strings.TrimSuffix(ch.Root(), "/"))
	res, err := ch.Run(ctx, fmt.Sprintf("cd %s && git rev-parse HEAD", root))
	if err != nil || res.Code != 0 {
		return ""
	}
	return strings.TrimSpace(res.Stdout)
}

// reserveID picks a timestamp id, suffixing -2, -3, ... if a checkpoint for
// the same second already exists.
func (m *Manager) reserveID(ctx context.Context, ch connect.Channel, createdAt time.Time) (string, error) {
	base := createdAt.Format(IDFormat)
	dir := m.envDir(ch)

	id := base
	for n := 2; ; n++ {
		res, err := ch.Run(ctx, fmt.Sprintf("test -e %s/%s", dir, util.ShellQuote(id)))
		if err != nil {
			return "", err
		}
		if res.Code != 0 {
			return id, nil
		}
		id = fmt.Sprintf("%s-%d", base, n)
	}
}

func (m *Manager) discardPartial(ctx context.Context, ch connect.Channel, partial string) {
	_, _ = ch.Run(ctx, "rm -rf -- "+partial)
}

// List returns the environment's checkpoints, newest first. An environment
// with no checkpoint directory yields an empty list.
func (m *Manager) List(ctx context.Context, ch connect.Channel) ([]Checkpoint, error) {
	res, err := ch.Run(ctx, fmt.Sprintf("cat %s/*/checkpoint.json 2>/dev/null", m.envDir(ch)))
	if err != nil {
		return nil, err
	}
	// A non-zero exit with no output just means no checkpoints yet.
	if res.Code != 0 && strings.TrimSpace(res.Stdout) == "" {
		return nil, nil
	}

	var cps []Checkpoint
	dec := json.NewDecoder(strings.NewReader(res.Stdout))
	for dec.More() {
		var cp Checkpoint
		if err := dec.Decode(&cp); err != nil {
			return nil, fmt.Errorf("failed to parse checkpoint metadata for %s: %w", ch.Name(), err)
		}
		cps = append(cps, cp)
	}

	sort.Slice(cps, func(i, j int) bool { return newerID(cps[i].ID, cps[j].ID) })
	return cps, nil
}

// newerID orders ids newest first. Same-second collision suffixes compare
// numerically, so -10 is newer than -9.
func newerID(a, b string) bool {
	abase, an := splitID(a)
	bbase, bn := splitID(b)
	if abase != bbase {
		return abase > bbase
	}
	return an > bn
}

func splitID(id string) (base string, n int) {
	if len(id) <= len(IDFormat)+1 {
		return id, 1
	}
	n, err := strconv.Atoi(id[len(IDFormat)+1:])
	if err != nil {
		return id, 1
	}
	return id[:len(IDFormat)], n
}

// Find returns the checkpoint with the given id, or the most recent one when
// id is empty.
func (m *Manager) Find(ctx context.Context, ch connect.Channel, id string) (*Checkpoint, error) {
	cps, err := m.List(ctx, ch)
	if err != nil {
		return nil, err
	}
	if len(cps) == 0 {
		return nil, &NotFoundError{Env: ch.Name(), ID: id}
	}
	if id == "" {
		return &cps[0], nil
	}
	for i := range cps {
		if cps[i].ID == id {
			return &cps[i], nil
		}
	}
	return nil, &NotFoundError{Env: ch.Name(), ID: id}
}

// Rollback restores the environment's tree to the checkpoint's manifest.
// Paths present in the current tree but absent from the manifest are removed
// (rsync --delete); excluded paths are left untouched.
func (m *Manager) Rollback(ctx context.Context, ch connect.Channel, id string, policy *exclude.Policy) error {
	cp, err := m.Find(ctx, ch, id)
	if err != nil {
		return err
	}

	root := util.ShellQuote(strings.TrimSuffix(ch.Root(), "/"))
	cmd := fmt.Sprintf("mkdir -p %s && rsync -a --delete %s %s/%s/data/ %s/",
		root,
		strings.Join(policyArgs(policy), " "),
		m.envDir(ch), util.ShellQuote(cp.ID),
		root)
	res, err := ch.Run(ctx, cmd)
	if err != nil {
		return err
	}
	if err := res.Check(fmt.Sprintf("rollback of %s to checkpoint %s", ch.Name(), cp.ID)); err != nil {
		return err
	}

	// Restore the repository pointer too. Best effort: the file restore
	// above is authoritative, and the tree may have stopped being a git
	// repository since the capture.
	if cp.GitCommit != "" {
		_, _ = ch.Run(ctx, fmt.Sprintf("cd %s && git reset --hard %s", root, util.ShellQuote(cp.GitCommit)))
	}
	return nil
}

// Cleanup retains the keep most recent checkpoints and deletes the rest.
// Returns how many were removed.
func (m *Manager) Cleanup(ctx context.Context, ch connect.Channel, keep int) (int, error) {
	if keep < 1 {
		return 0, &InvalidRetentionError{Keep: keep}
	}

	cps, err := m.List(ctx, ch)
	if err != nil {
		return 0, err
	}
	if len(cps) <= keep {
		return 0, nil
	}

	removed := 0
	for _, cp := range cps[keep:] {
		res, err := ch.Run(ctx, fmt.Sprintf("rm -rf -- %s/%s", m.envDir(ch), util.ShellQuote(cp.ID)))
		if err != nil {
			return removed, err
		}
		if err := res.Check("checkpoint removal " + cp.ID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func sortedManifest(entries map[string]diff.FileEntry) []diff.FileEntry {
	manifest := make([]diff.FileEntry, 0, len(entries))
	for _, e := range entries {
		manifest = append(manifest, e)
	}
	sort.Slice(manifest, func(i, j int) bool { return manifest[i].Path < manifest[j].Path })
	return manifest
}

func policyArgs(policy *exclude.Policy) []string {
	if policy == nil {
		return nil
	}
	return policy.RsyncArgs()
}
