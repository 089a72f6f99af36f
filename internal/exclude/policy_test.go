package exclude

import (
	"strings"
	"testing"
)

func TestDefaultMatchesFixedPatterns(t *testing.T) {
	policy := Default()

	excluded := []struct {
		rel   string
		isDir bool
	}{
		{".git", true},
		{"sub/.git", true},
		{".git/config", false},
		{"node_modules", true},
		{"app/node_modules/pkg/index.js", false},
		{"__pycache__", true},
		{"mod.pyc", false},
		{"deep/path/cache.pyo", false},
		{".DS_Store", false},
		{"notes.swp", false},
		{".venv", true},
		{"venv", true},
		{".envsync", true},
	}
	for _, tt := range excluded {
		if !policy.Match(tt.rel, tt.isDir) {
			t.Errorf("Match(%q) = false, want true", tt.rel)
		}
	}

	included := []string{"main.go", "src/app.py", "venvs/readme", "gitstuff/file"}
	for _, rel := range included {
		if policy.Match(rel, false) {
			t.Errorf("Match(%q) = true, want false", rel)
		}
	}
}

func TestWithIgnoreRules(t *testing.T) {
	policy := Default().WithIgnoreRules("# build output\ndist/\n*.log\n\n")

	if !policy.Match("dist", true) {
		t.Error("dist/ should be excluded by ignore rule")
	}
	if !policy.Match("app.log", false) {
		t.Error("*.log should be excluded by ignore rule")
	}
	if policy.Match("src/main.go", false) {
		t.Error("src/main.go should not be excluded")
	}
	// Fixed patterns still apply after extension.
	if !policy.Match(".git", true) {
		t.Error(".git should still be excluded")
	}
}

func TestMatchRootIsNeverExcluded(t *testing.T) {
	policy := Default()
	if policy.Match("", true) || policy.Match(".", true) {
		t.Error("tree root must never match")
	}
}

func TestRsyncArgs(t *testing.T) {
	args := Default().RsyncArgs()
	if len(args) != len(fixedPatterns) {
		t.Fatalf("got %d args, want %d", len(args), len(fixedPatterns))
	}
	for i, pattern := range fixedPatterns {
		want := "--exclude=" + pattern
		if args[i] != want {
			t.Errorf("args[%d] = %q, want %q", i, args[i], want)
		}
	}
}

func TestFindPruneExpr(t *testing.T) {
	expr := Default().FindPruneExpr()
	if !strings.HasPrefix(expr, `\( `) || !strings.HasSuffix(expr, `\) -prune -o`) {
		t.Errorf("unexpected expression shape: %q", expr)
	}
	if !strings.Contains(expr, "-name '.git'") {
		t.Errorf("expression missing .git: %q", expr)
	}

	empty := &Policy{}
	if got := empty.FindPruneExpr(); got != "" {
		t.Errorf("zero-value policy should produce no prune expression, got %q", got)
	}
}
