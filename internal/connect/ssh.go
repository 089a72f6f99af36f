package connect

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"envsync/internal/config"
)

// sshChannel executes commands over one reused SSH client connection.
// Each Run opens a new session on the shared connection, so there is no
// per-command handshake.
type sshChannel struct {
	name   string
	root   string
	host   string
	user   string
	client *ssh.Client
}

func (c *sshChannel) Name() string   { return c.name }
func (c *sshChannel) Root() string   { return c.root }
func (c *sshChannel) IsRemote() bool { return true }

func (c *sshChannel) Run(ctx context.Context, command string) (CommandResult, error) {
	sess, err := c.client.NewSession()
	if err != nil {
		return CommandResult{}, &ConnectionError{Env: c.name, Host: c.host, Err: err}
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr

	if err := sess.Start(command); err != nil {
		return CommandResult{}, &ConnectionError{Env: c.name, Host: c.host, Err: err}
	}

	done := make(chan error, 1)
	go func() { done <- sess.Wait() }()

	select {
	case <-ctx.Done():
		_ = sess.Signal(ssh.SIGKILL)
		return CommandResult{Stdout: stdout.String(), Stderr: stderr.String()}, ctx.Err()
	case err := <-done:
		res := CommandResult{Stdout: stdout.String(), Stderr: stderr.String()}
		if err != nil {
			var exitErr *ssh.ExitError
			if errors.As(err, &exitErr) {
				res.Code = exitErr.ExitStatus()
				return res, nil
			}
			return res, &ConnectionError{Env: c.name, Host: c.host, Err: err}
		}
		return res, nil
	}
}

func (c *sshChannel) RsyncSpec(rel string) string {
	base := strings.TrimSuffix(c.root, "/")
	user := ""
	if c.user != "" {
		user = c.user + "@"
	}
	if rel == "" {
		return fmt.Sprintf("%s%s:%s/", user, c.host, base)
	}
	return fmt.Sprintf("%s%s:%s/%s", user, c.host, base, rel)
}

// dialSSH establishes the reusable SSH client for a remote environment,
// verifying the host identity before any command runs.
func dialSSH(env config.Environment, autoTrust bool, knownHostsPath string) (*ssh.Client, error) {
	port := env.Port
	if port == 0 {
		port = 22
	}
	addr := net.JoinHostPort(env.Host, fmt.Sprintf("%d", port))

	hostKeyCallback, err := hostVerifier(knownHostsPath, autoTrust)
	if err != nil {
		return nil, &ConnectionError{Env: env.Name, Host: env.Host, Err: err}
	}

	cfg := &ssh.ClientConfig{
		User:            env.User,
		Auth:            authMethods(env.CredentialRef),
		HostKeyCallback: hostKeyCallback,
	}

	client, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		var untrusted *UntrustedHostError
		if errors.As(err, &untrusted) {
			return nil, untrusted
		}
		return nil, &ConnectionError{Env: env.Name, Host: env.Host, Err: err}
	}
	return client, nil
}

// hostVerifier builds the host key callback: trusted hosts pass, unknown
// hosts fail with UntrustedHostError unless auto-trust records them, and a
// key mismatch always fails.
func hostVerifier(path string, autoTrust bool) (ssh.HostKeyCallback, error) {
	var verify ssh.HostKeyCallback
	if _, err := os.Stat(path); err == nil {
		verify, err = knownhosts.New(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read known hosts %s: %w", path, err)
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		fingerprint := ssh.FingerprintSHA256(key)

		if verify != nil {
			err := verify(hostname, remote, key)
			if err == nil {
				return nil
			}
			var keyErr *knownhosts.KeyError
			if !errors.As(err, &keyErr) {
				return err
			}
			if len(keyErr.Want) > 0 {
				// The host is known but presented a different key.
				return &UntrustedHostError{Host: hostname, Fingerprint: fingerprint, Mismatch: true}
			}
		}

		if !autoTrust {
			return &UntrustedHostError{Host: hostname, Fingerprint: fingerprint}
		}
		return appendKnownHost(path, hostname, key)
	}, nil
}

// appendKnownHost records a newly trusted host key.
func appendKnownHost(path, hostname string, key ssh.PublicKey) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open known hosts %s: %w", path, err)
	}
	defer f.Close()

	line := knownhosts.Line([]string{knownhosts.Normalize(hostname)}, key)
	if _, err := fmt.Fprintln(f, line); err != nil {
		return fmt.Errorf("failed to record host key: %w", err)
	}
	return nil
}

// authMethods assembles SSH authentication: the environment's credential
// handle (a private key path supplied by the external credential
// collaborator) first, then the ssh-agent, then default key files.
func authMethods(credentialRef string) []ssh.AuthMethod {
	var methods []ssh.AuthMethod

	keyPaths := []string{}
	if credentialRef != "" {
		keyPaths = append(keyPaths, credentialRef)
	}
	if home, err := os.UserHomeDir(); err == nil {
		keyPaths = append(keyPaths,
			filepath.Join(home, ".ssh", "id_ed25519"),
			filepath.Join(home, ".ssh", "id_rsa"),
		)
	}

	var signers []ssh.Signer
	for _, p := range keyPaths {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		signer, err := ssh.ParsePrivateKey(data)
		if err != nil {
			continue
		}
		signers = append(signers, signer)
	}
	if len(signers) > 0 {
		methods = append(methods, ssh.PublicKeys(signers...))
	}

	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		}
	}

	return methods
}
