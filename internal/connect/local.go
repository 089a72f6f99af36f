package connect

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
)

// localChannel executes commands in a local subshell.
type localChannel struct {
	name string
	root string
}

func newLocalChannel(name, root string) *localChannel {
	return &localChannel{name: name, root: root}
}

func (c *localChannel) Name() string   { return c.name }
func (c *localChannel) Root() string   { return c.root }
func (c *localChannel) IsRemote() bool { return false }

func (c *localChannel) Run(ctx context.Context, command string) (CommandResult, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := CommandResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.Code = exitErr.ExitCode()
			return res, nil
		}
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		return res, &ConnectionError{Env: c.name, Host: "localhost", Err: err}
	}
	return res, nil
}

func (c *localChannel) RsyncSpec(rel string) string {
	base := strings.TrimSuffix(c.root, "/")
	if rel == "" {
		return base + "/"
	}
	return base + "/" + rel
}
