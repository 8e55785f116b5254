package sftp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	hverrors "github.com/hibernate/hvrelease/errors"
	"github.com/hibernate/hvrelease/remote"
)

// DefaultPort is used when a target host carries no port.
const DefaultPort = "22"

// Config holds SSH connection settings.
type Config struct {
	// KeyFile is a PEM private key used in addition to the agent.
	KeyFile string

	// AgentSocket is the ssh-agent socket. Defaults to $SSH_AUTH_SOCK.
	AgentSocket string

	// KnownHostsFile verifies host keys. Required unless
	// InsecureIgnoreHostKey is set.
	KnownHostsFile string

	// InsecureIgnoreHostKey disables host key verification.
	InsecureIgnoreHostKey bool

	// Timeout bounds the TCP connect and SSH handshake. Zero means no limit.
	Timeout time.Duration
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.KnownHostsFile == "" && !c.InsecureIgnoreHostKey {
		return hverrors.New(hverrors.CodeInvalidConfig,
			"a known_hosts file is required unless host key checking is disabled")
	}
	if c.Timeout < 0 {
		return hverrors.New(hverrors.CodeInvalidConfig, "timeout cannot be negative")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.AgentSocket == "" {
		c.AgentSocket = os.Getenv("SSH_AUTH_SOCK")
	}
}

// Option configures a Dialer.
type Option func(*Dialer)

// WithLogger sets the logger. If logger is nil, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dialer) {
		d.logger = logger
	}
}

// Dialer opens SFTP sessions over SSH.
type Dialer struct {
	cfg    Config
	logger *slog.Logger
}

var _ remote.Dialer = (*Dialer)(nil)

// NewDialer creates a Dialer from cfg.
func NewDialer(cfg Config, opts ...Option) (*Dialer, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Dialer{cfg: cfg}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dial connects to target and starts an SFTP session on it.
//
//nolint:ireturn // matches remote.Dialer
func (d *Dialer) Dial(ctx context.Context, target remote.Target) (remote.Session, error) {
	if target.Scheme != remote.SchemeSFTP {
		return nil, hverrors.Newf(hverrors.CodeInvalidConfig, "sftp dialer cannot serve scheme %q", target.Scheme)
	}
	if target.User == "" {
		return nil, hverrors.New(hverrors.CodeInvalidConfig, "remote user is required").
			WithContext("target", target.String())
	}

	auth, agentConn, err := d.authMethods()
	if err != nil {
		return nil, err
	}
	closeAgent := func() {
		if agentConn != nil {
			_ = agentConn.Close()
		}
	}

	hostKey, err := d.hostKeyCallback()
	if err != nil {
		closeAgent()
		return nil, err
	}

	addr := hostPort(target.Host)
	if d.logger != nil {
		d.logger.Debug("dialing", "addr", addr, "user", target.User)
	}

	dialCtx := ctx
	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}

	var nd net.Dialer
	conn, err := nd.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		closeAgent()
		return nil, hverrors.WrapWithContext(err, hverrors.CodeTransferFailed,
			"failed to connect", map[string]interface{}{"addr": addr})
	}
	if deadline, ok := dialCtx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, &ssh.ClientConfig{
		User:            target.User,
		Auth:            auth,
		HostKeyCallback: hostKey,
	})
	if err != nil {
		_ = conn.Close()
		closeAgent()
		return nil, hverrors.WrapWithContext(err, hverrors.CodeTransferFailed,
			"ssh handshake failed", map[string]interface{}{"addr": addr, "user": target.User})
	}
	_ = conn.SetDeadline(time.Time{})
	client := ssh.NewClient(sshConn, chans, reqs)

	sc, err := sftp.NewClient(client)
	if err != nil {
		_ = client.Close()
		closeAgent()
		return nil, hverrors.WrapWithContext(err, hverrors.CodeTransferFailed,
			"failed to start sftp subsystem", map[string]interface{}{"addr": addr})
	}

	closers := []io.Closer{client}
	if agentConn != nil {
		closers = append([]io.Closer{agentConn}, closers...)
	}
	return NewSession(sc, closers...), nil
}

// authMethods collects the agent and key file signers. The returned
// connection to the agent, if any, must be closed by the caller.
func (d *Dialer) authMethods() ([]ssh.AuthMethod, net.Conn, error) {
	var (
		methods   []ssh.AuthMethod
		agentConn net.Conn
	)

	if d.cfg.AgentSocket != "" {
		conn, err := net.Dial("unix", d.cfg.AgentSocket)
		if err == nil {
			agentConn = conn
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		} else if d.logger != nil {
			d.logger.Warn("ssh agent unavailable", "socket", d.cfg.AgentSocket, "error", err)
		}
	}

	if d.cfg.KeyFile != "" {
		signer, err := loadSigner(d.cfg.KeyFile)
		if err != nil {
			if agentConn != nil {
				_ = agentConn.Close()
			}
			return nil, nil, err
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if len(methods) == 0 {
		return nil, nil, hverrors.New(hverrors.CodeInvalidConfig,
			"no SSH authentication method available (tried agent and key file)")
	}

	return methods, agentConn, nil
}

func (d *Dialer) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if d.cfg.InsecureIgnoreHostKey {
		if d.logger != nil {
			d.logger.Warn("host key verification disabled")
		}
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // explicitly requested by configuration
	}
	cb, err := knownhosts.New(d.cfg.KnownHostsFile)
	if err != nil {
		return nil, hverrors.WrapWithContext(err, hverrors.CodeInvalidConfig,
			"failed to load known_hosts", map[string]interface{}{"path": d.cfg.KnownHostsFile})
	}
	return cb, nil
}

func loadSigner(path string) (ssh.Signer, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		code := hverrors.CodeInvalidConfig
		if os.IsNotExist(err) {
			code = hverrors.CodeNotFound
		}
		return nil, hverrors.WrapWithContext(err, code, "failed to read SSH key", map[string]interface{}{"path": path})
	}
	signer, err := ssh.ParsePrivateKey(pem)
	if err != nil {
		return nil, hverrors.WrapWithContext(err, hverrors.CodeInvalidConfig,
			"failed to parse SSH key", map[string]interface{}{"path": path})
	}
	return signer, nil
}

func hostPort(host string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, DefaultPort)
}

// String describes the dialer configuration for logs.
func (d *Dialer) String() string {
	return fmt.Sprintf("sftp(agent=%t, key=%q, insecure=%t)",
		d.cfg.AgentSocket != "", d.cfg.KeyFile, d.cfg.InsecureIgnoreHostKey)
}
