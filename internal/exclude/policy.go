// Package exclude supplies the path exclusion policy applied to every
// comparison and transfer: fixed infrastructure patterns (VCS metadata,
// dependency caches, build artifacts) merged with the target tree's own
// gitignore rules.
package exclude

import (
	"path"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// fixedPatterns are always excluded, matched against every path segment.
// Glob syntax per path.Match.
var fixedPatterns = []string{
	".git",
	".envsync",
	"node_modules",
	"__pycache__",
	"*.pyc",
	"*.pyo",
	".DS_Store",
	"*.swp",
	".venv",
	"venv",
}

// Policy is an immutable set of exclusion rules. The zero value excludes
// nothing; use Default for the standard infrastructure set.
type Policy struct {
	patterns []string
	matcher  gitignore.Matcher
}

// Default returns the policy with the fixed infrastructure patterns and no
// ignore-file rules.
func Default() *Policy {
	return &Policy{patterns: fixedPatterns}
}

// WithIgnoreRules returns a copy of the policy extended with gitignore-style
// rules (one pattern per line, # comments and blank lines skipped).
func (p *Policy) WithIgnoreRules(content string) *Policy {
	var ps []gitignore.Pattern
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ps = append(ps, gitignore.ParsePattern(line, nil))
	}
	next := &Policy{patterns: p.patterns}
	if len(ps) > 0 {
		next.matcher = gitignore.NewMatcher(ps)
	}
	return next
}

// Match reports whether the relative path is excluded. Matching a directory
// excludes its whole subtree; scanners must prune accordingly.
func (p *Policy) Match(rel string, isDir bool) bool {
	if rel == "" || rel == "." {
		return false
	}
	rel = strings.TrimPrefix(rel, "./")
	segments := strings.Split(rel, "/")

	for _, seg := range segments {
		for _, pattern := range p.patterns {
			if ok, _ := path.Match(pattern, seg); ok {
				return true
			}
		}
	}

	if p.matcher != nil && p.matcher.Match(segments, isDir) {
		return true
	}
	return false
}

// RsyncArgs returns --exclude arguments for the fixed patterns, for use on
// rsync invocations (transfers, checkpoint copies, restores).
func (p *Policy) RsyncArgs() []string {
	args := make([]string, 0, len(p.patterns))
	for _, pattern := range p.patterns {
		args = append(args, "--exclude="+pattern)
	}
	return args
}

// FindPruneExpr returns a POSIX find expression pruning the fixed patterns,
// e.g. `\( -name '.git' -o -name 'node_modules' \) -prune -o`. Gitignore
// rules are not translatable to find and are applied when parsing results.
func (p *Policy) FindPruneExpr() string {
	if len(p.patterns) == 0 {
		return ""
	}
	names := make([]string, 0, len(p.patterns))
	for _, pattern := range p.patterns {
		names = append(names, "-name '"+pattern+"'")
	}
	return `\( ` + strings.Join(names, " -o ") + ` \) -prune -o`
}
