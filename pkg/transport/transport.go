// Package transport defines the remote CLI session used to talk to a device.
package transport

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrAuthentication means the device rejected the credentials.
	ErrAuthentication = errors.New("authentication failed")
	// ErrTimeout means the session could not be established in time.
	ErrTimeout = errors.New("connection timed out")
)

// Credentials are captured once per run and shared read-only by every host.
type Credentials struct {
	Username string
	Password string
}

// Dialer opens CLI sessions. A failed Open leaves nothing to close.
type Dialer interface {
	Open(ctx context.Context, addr string, creds Credentials, timeout time.Duration) (Session, error)
}

// Session is one interactive CLI session. Commands must be issued one at a time.
type Session interface {
	// Run sends a command and returns its full output, without the echoed
	// command line and the trailing prompt.
	Run(ctx context.Context, command string) (string, error)
	Close() error
}
