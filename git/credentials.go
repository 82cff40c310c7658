package git

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strings"

	"golang.org/x/crypto/ssh/agent"
)

// CredentialProvider supplies the environment a transport command runs
// with. Implementations must never cause git to prompt interactively.
type CredentialProvider interface {
	TransportEnv(ctx context.Context, remoteURL string) ([]string, error)
}

// nonInteractive disables every git credential prompt.
var nonInteractive = []string{"GIT_TERMINAL_PROMPT=0"}

// StaticCredentials is a CredentialProvider that returns a fixed
// environment, for transports that need no identity (local paths, tests).
type StaticCredentials []string

// TransportEnv returns the fixed environment.
func (s StaticCredentials) TransportEnv(context.Context, string) ([]string, error) {
	return append(append([]string{}, nonInteractive...), s...), nil
}

// AgentCredentials delegates SSH identities to the local SSH agent. No
// password or token is ever stored or requested.
type AgentCredentials struct {
	// Socket is the agent socket. Empty uses $SSH_AUTH_SOCK.
	Socket string

	log *slog.Logger
}

// NewAgentCredentials creates an agent-backed provider.
func NewAgentCredentials(log *slog.Logger) *AgentCredentials {
	return &AgentCredentials{log: log.With("component", "credentials")}
}

// TransportEnv checks that the agent holds at least one identity and
// returns an environment forcing ssh into batch mode against it. Non-SSH
// URLs only get prompts disabled.
func (a *AgentCredentials) TransportEnv(ctx context.Context, remoteURL string) ([]string, error) {
	env := append([]string{}, nonInteractive...)
	if !IsSSHURL(remoteURL) {
		return env, nil
	}

	socket := a.Socket
	if socket == "" {
		socket = os.Getenv("SSH_AUTH_SOCK")
	}
	if socket == "" {
		return nil, ErrNoAgent
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socket)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoAgent, err)
	}
	defer conn.Close()

	keys, err := agent.NewClient(conn).List()
	if err != nil {
		return nil, fmt.Errorf("failed to list SSH agent identities: %w", err)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("SSH agent at %s holds no identities", socket)
	}

	user := SSHUser(remoteURL)
	a.log.Debug("using SSH agent", "user", user, "identities", len(keys), "socket", socket)

	env = append(env, "SSH_AUTH_SOCK="+socket)
	if os.Getenv("GIT_SSH_COMMAND") == "" {
		env = append(env, "GIT_SSH_COMMAND=ssh -o BatchMode=yes")
	}
	return env, nil
}

// IsSSHURL reports whether a remote URL is reached over SSH, either as an
// ssh:// URL or in scp-like user@host:path form.
func IsSSHURL(remoteURL string) bool {
	if scheme, _, ok := strings.Cut(remoteURL, "://"); ok {
		switch scheme {
		case "ssh", "git+ssh", "ssh+git":
			return true
		}
		return false
	}

	colon := strings.Index(remoteURL, ":")
	if colon <= 0 {
		return false
	}
	// A slash before the colon makes it a local path.
	return !strings.Contains(remoteURL[:colon], "/")
}

// SSHUser returns the user name embedded in an SSH remote URL, or "" when
// none is given.
func SSHUser(remoteURL string) string {
	if strings.Contains(remoteURL, "://") {
		u, err := url.Parse(remoteURL)
		if err != nil || u.User == nil {
			return ""
		}
		return u.User.Username()
	}
	host, _, _ := strings.Cut(remoteURL, ":")
	if user, _, ok := strings.Cut(host, "@"); ok {
		return user
	}
	return ""
}
