// pkg/transport/ssh/client.go

// Package ssh opens interactive CLI sessions on network devices over SSH.
package ssh

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/bmcdonald3/fwreconcile/pkg/logger"
	"github.com/bmcdonald3/fwreconcile/pkg/transport"
)

// Config holds the SSH settings shared by every device.
type Config struct {
	Port int
	// KnownHostsFile enables host key checking. Empty accepts any key.
	KnownHostsFile string
	// PagingOff is sent once after login. Empty sends nothing.
	PagingOff      string
	CommandTimeout time.Duration
	TerminalWidth  int
}

// DefaultConfig matches Huawei VRP devices.
func DefaultConfig() Config {
	return Config{
		Port:          22,
		PagingOff:     "screen-length 0 temporary",
		TerminalWidth: 511,
	}
}

// Dialer implements transport.Dialer.
type Dialer struct {
	*logger.Logger

	cfg Config
}

// NewDialer returns a Dialer for cfg.
func NewDialer(cfg Config, log *logger.Logger) *Dialer {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.TerminalWidth == 0 {
		cfg.TerminalWidth = DefaultConfig().TerminalWidth
	}
	return &Dialer{Logger: log, cfg: cfg}
}

// Open dials addr, authenticates and starts a shell. The whole setup, including
// the first prompt, must finish within timeout.
func (d *Dialer) Open(ctx context.Context, addr string, creds transport.Credentials, timeout time.Duration) (transport.Session, error) {
	hostKeys, err := d.hostKeyCallback()
	if err != nil {
		return nil, err
	}

	address := d.address(addr)
	clientCfg := &ssh.ClientConfig{
		User: creds.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(creds.Password),
			ssh.KeyboardInteractive(passwordChallenge(creds.Password)),
		},
		HostKeyCallback: hostKeys,
		Timeout:         timeout,
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var nd net.Dialer
	conn, err := nd.DialContext(dialCtx, "tcp", address)
	if err != nil {
		return nil, classifyError(err, "dial %s", address)
	}
	_ = conn.SetDeadline(time.Now().Add(timeout))

	c, chans, reqs, err := ssh.NewClientConn(conn, address, clientCfg)
	if err != nil {
		_ = conn.Close()
		return nil, classifyError(err, "handshake with %s", address)
	}
	client := ssh.NewClient(c, chans, reqs)

	sess, err := startShell(dialCtx, client, d.cfg)
	if err != nil {
		_ = client.Close()
		return nil, classifyError(err, "start shell on %s", address)
	}
	_ = conn.SetDeadline(time.Time{})

	d.Debugf("session to %s ready, prompt %q", address, sess.prompt)
	return sess, nil
}

func (d *Dialer) address(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, strconv.Itoa(d.cfg.Port))
}

func (d *Dialer) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if d.cfg.KnownHostsFile == "" {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(d.cfg.KnownHostsFile)
	if err != nil {
		return nil, errors.Wrapf(err, "load known hosts %s", d.cfg.KnownHostsFile)
	}
	return cb, nil
}

func passwordChallenge(password string) ssh.KeyboardInteractiveChallenge {
	return func(user, instruction string, questions []string, echos []bool) ([]string, error) {
		answers := make([]string, len(questions))
		for i := range answers {
			answers[i] = password
		}
		return answers, nil
	}
}

// classifyError maps dial and handshake failures onto the transport errors.
func classifyError(err error, format string, args ...any) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return errors.Wrapf(transport.ErrTimeout, format+": %v", append(args, err)...)
	case strings.Contains(err.Error(), "unable to authenticate"),
		strings.Contains(err.Error(), "no supported methods remain"):
		return errors.Wrapf(transport.ErrAuthentication, format+": %v", append(args, err)...)
	default:
		return errors.Wrapf(err, format, args...)
	}
}
