package diff

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"

	"envsync/internal/config"
	"envsync/internal/connect"
	"envsync/internal/exclude"
)

// fakeChannel implements connect.Channel against an in-memory handler.
type fakeChannel struct {
	name    string
	root    string
	remote  bool
	handler func(cmd string) (connect.CommandResult, error)
	calls   []string
}

var _ connect.Channel = (*fakeChannel)(nil)

func (c *fakeChannel) Name() string   { return c.name }
func (c *fakeChannel) Root() string   { return c.root }
func (c *fakeChannel) IsRemote() bool { return c.remote }

func (c *fakeChannel) Run(_ context.Context, cmd string) (connect.CommandResult, error) {
	c.calls = append(c.calls, cmd)
	if c.handler != nil {
		return c.handler(cmd)
	}
	return connect.CommandResult{}, nil
}

func (c *fakeChannel) RsyncSpec(rel string) string {
	if rel == "" {
		return c.root + "/"
	}
	return c.root + "/" + rel
}

// fakeProvider hands out pre-built channels by environment name.
type fakeProvider struct {
	channels map[string]connect.Channel
}

func (p *fakeProvider) Acquire(_ context.Context, env config.Environment) (connect.Channel, error) {
	ch, ok := p.channels[env.Name]
	if !ok {
		return nil, fmt.Errorf("no channel for %q", env.Name)
	}
	return ch, nil
}

func localEnv(name, path string) config.Environment {
	return config.Environment{Name: name, Transport: config.TransportLocal, Path: path}
}

func newLocalEngine(fs afero.Fs, roots map[string]string) *Engine {
	provider := &fakeProvider{channels: make(map[string]connect.Channel)}
	for name, root := range roots {
		provider.channels[name] = &fakeChannel{name: name, root: root}
	}
	return NewEngine(provider, fs)
}

func writeFiles(t *testing.T, fs afero.Fs, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, rel)
		if err := fs.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatal(err)
		}
		if err := afero.WriteFile(fs, full, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCompareIdenticalTrees(t *testing.T) {
	fs := afero.NewMemMapFs()
	files := map[string]string{"a.txt": "alpha", "dir/b.txt": "beta"}
	writeFiles(t, fs, "/src", files)
	writeFiles(t, fs, "/dst", files)

	engine := newLocalEngine(fs, map[string]string{"src": "/src", "dst": "/dst"})
	report, err := engine.Compare(context.Background(), localEnv("src", "/src"), localEnv("dst", "/dst"), exclude.Default())
	if err != nil {
		t.Fatal(err)
	}
	if !report.Empty() {
		t.Errorf("identical trees should produce an empty report, got %s", report.Summary())
	}
}

func TestComparePartition(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/src", map[string]string{
		"only-src.txt": "x",
		"same.txt":     "same",
		"differs.txt":  "source version",
		"z.txt":        "zz",
		"a.txt":        "aa",
	})
	writeFiles(t, fs, "/dst", map[string]string{
		"only-dst.txt": "y",
		"same.txt":     "same",
		"differs.txt":  "target version",
	})

	engine := newLocalEngine(fs, map[string]string{"src": "/src", "dst": "/dst"})
	report, err := engine.Compare(context.Background(), localEnv("src", "/src"), localEnv("dst", "/dst"), exclude.Default())
	if err != nil {
		t.Fatal(err)
	}

	assertPaths(t, "ToAdd", report.ToAdd, []string{"a.txt", "only-src.txt", "z.txt"})
	assertPaths(t, "ToUpdate", report.ToUpdate, []string{"differs.txt"})
	assertPaths(t, "ToDelete", report.ToDelete, []string{"only-dst.txt"})

	// Pairwise disjoint.
	seen := make(map[string]string)
	for label, paths := range map[string][]string{"add": report.ToAdd, "update": report.ToUpdate, "delete": report.ToDelete} {
		for _, p := range paths {
			if prev, ok := seen[p]; ok {
				t.Errorf("path %q in both %s and %s", p, prev, label)
			}
			seen[p] = label
		}
	}
}

func TestCompareSameContentDifferentMtime(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/src", map[string]string{"f.txt": "content"})
	writeFiles(t, fs, "/dst", map[string]string{"f.txt": "content"})
	if err := fs.Chtimes("/dst/f.txt", time0(), time0()); err != nil {
		t.Fatal(err)
	}

	engine := newLocalEngine(fs, map[string]string{"src": "/src", "dst": "/dst"})
	report, err := engine.Compare(context.Background(), localEnv("src", "/src"), localEnv("dst", "/dst"), exclude.Default())
	if err != nil {
		t.Fatal(err)
	}
	if !report.Empty() {
		t.Errorf("comparison is by checksum, not mtime; got %s", report.Summary())
	}
}

func TestCompareAppliesExclusions(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/src", map[string]string{
		"app.go":              "code",
		".git/HEAD":           "ref",
		"node_modules/x/y.js": "dep",
		"__pycache__/m.pyc":   "bytecode",
		"sub/.DS_Store":       "junk",
		"logs/app.log":        "log line",
	})
	writeFiles(t, fs, "/dst", map[string]string{})
	if err := fs.MkdirAll("/dst", 0755); err != nil {
		t.Fatal(err)
	}

	policy := exclude.Default().WithIgnoreRules("*.log\n")
	engine := newLocalEngine(fs, map[string]string{"src": "/src", "dst": "/dst"})
	report, err := engine.Compare(context.Background(), localEnv("src", "/src"), localEnv("dst", "/dst"), policy)
	if err != nil {
		t.Fatal(err)
	}

	assertPaths(t, "ToAdd", report.ToAdd, []string{"app.go", "logs", "sub"})
}

func TestLocalSnapshotSymlinks(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "target"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("target", filepath.Join(dir, "link")); err != nil {
		t.Skipf("symlinks unsupported here: %v", err)
	}

	entries, err := localSnapshot(context.Background(), afero.NewOsFs(), dir, exclude.Default())
	if err != nil {
		t.Fatal(err)
	}

	link, ok := entries["link"]
	if !ok {
		t.Fatal("symlink entry missing")
	}
	if link.Type != TypeSymlink {
		t.Errorf("type = %q, want symlink", link.Type)
	}
	if link.LinkTarget != "target" {
		t.Errorf("link target = %q, want %q", link.LinkTarget, "target")
	}
}

func TestBuildReportSymlinkComparedByTarget(t *testing.T) {
	src := map[string]FileEntry{
		"same": {Path: "same", Type: TypeSymlink, LinkTarget: "a"},
		"diff": {Path: "diff", Type: TypeSymlink, LinkTarget: "a"},
	}
	dst := map[string]FileEntry{
		"same": {Path: "same", Type: TypeSymlink, LinkTarget: "a"},
		"diff": {Path: "diff", Type: TypeSymlink, LinkTarget: "b"},
	}

	report := buildReport("src", "dst", src, dst)
	assertPaths(t, "ToUpdate", report.ToUpdate, []string{"diff"})
	if len(report.TypeChanged) != 0 {
		t.Errorf("no type change expected, got %v", report.TypeChanged)
	}
}

func TestBuildReportTypeChange(t *testing.T) {
	src := map[string]FileEntry{
		"path": {Path: "path", Type: TypeFile, Checksum: "aa"},
	}
	dst := map[string]FileEntry{
		"path": {Path: "path", Type: TypeDir},
	}

	report := buildReport("src", "dst", src, dst)
	assertPaths(t, "ToUpdate", report.ToUpdate, []string{"path"})
	assertPaths(t, "TypeChanged", report.TypeChanged, []string{"path"})
	if !report.IsTypeChanged("path") {
		t.Error("IsTypeChanged should report path")
	}
}

func TestPolicyForReadsGitignore(t *testing.T) {
	ch := &fakeChannel{name: "src", root: "/src", handler: func(cmd string) (connect.CommandResult, error) {
		return connect.CommandResult{Stdout: "dist/\n"}, nil
	}}

	policy, err := PolicyFor(context.Background(), ch, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !policy.Match("dist", true) {
		t.Error("gitignore rule from tree should apply")
	}
}

func TestPolicyForMissingGitignore(t *testing.T) {
	ch := &fakeChannel{name: "src", root: "/src", handler: func(cmd string) (connect.CommandResult, error) {
		return connect.CommandResult{Code: 1, Stderr: "cat: /src/.gitignore: No such file or directory"}, nil
	}}

	policy, err := PolicyFor(context.Background(), ch, nil)
	if err != nil {
		t.Fatal(err)
	}
	if policy.Match("dist", true) {
		t.Error("no rules should apply beyond the fixed set")
	}
	if !policy.Match(".git", true) {
		t.Error("fixed patterns should still apply")
	}
}

func time0() time.Time { return time.Unix(0, 0) }

func assertPaths(t *testing.T, label string, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s = %v, want %v", label, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s[%d] = %q, want %q", label, i, got[i], want[i])
		}
	}
}
