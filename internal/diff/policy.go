package diff

import (
	"context"
	"strings"

	"envsync/internal/connect"
	"envsync/internal/exclude"
	"envsync/internal/util"
)

// PolicyFor returns the exclusion policy for the tree behind the channel:
// base (or the default fixed patterns when nil) extended with the tree's own
// .gitignore rules when present.
func PolicyFor(ctx context.Context, ch connect.Channel, base *exclude.Policy) (*exclude.Policy, error) {
	if base == nil {
		base = exclude.Default()
	}

	ignorePath := strings.TrimSuffix(ch.Root(), "/") + "/.gitignore"
	res, err := ch.Run(ctx, "cat "+util.ShellQuote(ignorePath))
	if err != nil {
		return nil, err
	}
	// A missing .gitignore exits non-zero; that just means no extra rules.
	if res.Code == 0 && res.Stdout != "" {
		return base.WithIgnoreRules(res.Stdout), nil
	}
	return base, nil
}
