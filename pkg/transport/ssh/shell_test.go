package ssh

import (
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmcdonald3/fwreconcile/pkg/transport"
)

func TestSession_Run(t *testing.T) {
	tests := map[string]struct {
		transcript string
		command    string
		wantOut    string
		wantStdin  string
		wantErr    error
	}{
		"plain output": {
			transcript: "display startup\r\n MainBoard:\r\n  Startup paf file:   default\r\n<CE-01>",
			command:    "display startup",
			wantOut:    " MainBoard:\n  Startup paf file:   default",
			wantStdin:  "display startup\n",
		},
		"paged output": {
			transcript: "dir\r\n  6  -rw-  CE5855EI-V200R001SPH009.PAT\r\n  ---- More ----\x1b[42D" +
				"  7  -rw-  CE5855EI-V200R002C50SPC800.cc\r\n\r\n<CE-01>",
			command:   "dir",
			wantOut:   "  6  -rw-  CE5855EI-V200R001SPH009.PAT\n    7  -rw-  CE5855EI-V200R002C50SPC800.cc",
			wantStdin: "dir\n ",
		},
		"system view prompt": {
			transcript: "delete /unreserved /quiet a.PAT\r\nError: File can't be found.\r\n[~CE-01]  ",
			command:    "delete /unreserved /quiet a.PAT",
			wantOut:    "Error: File can't be found.",
			wantStdin:  "delete /unreserved /quiet a.PAT\n",
		},
		"connection lost before prompt": {
			transcript: "dir\r\n  6  -rw-  CE5855EI",
			command:    "dir",
			wantStdin:  "dir\n",
			wantErr:    errSessionClosed,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			var stdin bytes.Buffer
			s := newSession(&stdin, strings.NewReader(test.transcript), nil)

			out, err := s.Run(context.Background(), test.command)

			if test.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, test.wantErr))
			} else {
				require.NoError(t, err)
				assert.Equal(t, test.wantOut, out)
			}
			assert.Equal(t, test.wantStdin, stdin.String())
		})
	}
}

func TestSession_RunCanceled(t *testing.T) {
	pr, pw := io.Pipe()
	closed := 0
	s := newSession(io.Discard, pr, func() error {
		closed++
		return pw.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Run(ctx, "dir")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	assert.NoError(t, s.Close())
	assert.Equal(t, 1, closed)
}

func TestSession_CommandTimeout(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	s := newSession(io.Discard, pr, pw.Close)
	s.commandTimeout = 10 * time.Millisecond

	_, err := s.Run(context.Background(), "dir")

	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestLastPrompt(t *testing.T) {
	tests := map[string]struct {
		input string
		want  string
	}{
		"user view":   {input: "Info: The max number of VTY users is 21.\r\n<CE-01>", want: "<CE-01>"},
		"system view": {input: "\n[~CE-01-GE1/0/1]", want: "[~CE-01-GE1/0/1]"},
		"no prompt":   {input: "Password:", want: ""},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.want, lastPrompt(test.input))
		})
	}
}

func TestClassifyError(t *testing.T) {
	tests := map[string]struct {
		err  error
		want error
	}{
		"deadline": {
			err:  context.DeadlineExceeded,
			want: transport.ErrTimeout,
		},
		"net timeout": {
			err:  &net.OpError{Op: "dial", Err: timeoutErr{}},
			want: transport.ErrTimeout,
		},
		"auth": {
			err:  errors.New("ssh: handshake failed: ssh: unable to authenticate, attempted methods [none password], no supported methods remain"),
			want: transport.ErrAuthentication,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			err := classifyError(test.err, "dial %s", "10.0.0.1:22")

			assert.True(t, errors.Is(err, test.want))
			assert.Contains(t, err.Error(), "10.0.0.1:22")
		})
	}

	refused := errors.New("connect: connection refused")
	err := classifyError(refused, "dial %s", "10.0.0.1:22")
	assert.False(t, errors.Is(err, transport.ErrTimeout))
	assert.False(t, errors.Is(err, transport.ErrAuthentication))
	assert.True(t, errors.Is(err, refused))
}

func TestDialer_address(t *testing.T) {
	d := NewDialer(Config{Port: 2222}, nil)

	assert.Equal(t, "10.0.0.1:2222", d.address("10.0.0.1"))
	assert.Equal(t, "10.0.0.1:22", d.address("10.0.0.1:22"))
	assert.Equal(t, "[fe80::1]:2222", d.address("fe80::1"))
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }
