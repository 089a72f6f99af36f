package connect

import "fmt"

// ConnectionError reports an unreachable host or failed authentication.
// It is always surfaced to the caller, never retried at this layer.
type ConnectionError struct {
	Env  string
	Host string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to environment %q (%s) failed: %v", e.Env, e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// UntrustedHostError reports a remote host whose identity could not be
// verified against the trusted host set. Fatal unless auto-trust is enabled.
type UntrustedHostError struct {
	Host        string
	Fingerprint string
	// Mismatch is true when the host presented a key different from the
	// recorded one, which auto-trust never overrides.
	Mismatch bool
}

func (e *UntrustedHostError) Error() string {
	if e.Mismatch {
		return fmt.Sprintf("host key for %s does not match the recorded key (fingerprint %s); refusing to connect", e.Host, e.Fingerprint)
	}
	return fmt.Sprintf("host %s is not in the trusted host set (fingerprint %s); verify and add it, or enable auto_trust_hosts", e.Host, e.Fingerprint)
}
