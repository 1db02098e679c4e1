package ssh

import (
	"bytes"
	"context"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
)

var (
	// <HUAWEI>, [HUAWEI], [~HUAWEI-GE1/0/1]
	rePrompt = regexp.MustCompile(`(?:^|\n)[ \t]*([<\[][^<>\[\]\r\n]+[>\]])[ \t]*$`)
	reANSI   = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)
)

const moreMarker = "---- More ----"

var errSessionClosed = errors.New("session closed")

// session is an interactive shell. Output is read by a single goroutine and
// handed over in chunks so that reads can be abandoned on context cancel.
type session struct {
	stdin   io.Writer
	chunks  <-chan []byte
	readErr *error
	closer  func() error
	done    chan struct{}

	buf            bytes.Buffer
	prompt         string
	commandTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

func startShell(ctx context.Context, client *ssh.Client, cfg Config) (*session, error) {
	sess, err := client.NewSession()
	if err != nil {
		return nil, errors.Wrap(err, "new session")
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := sess.RequestPty("vt100", 200, cfg.TerminalWidth, modes); err != nil {
		_ = sess.Close()
		return nil, errors.Wrap(err, "request pty")
	}
	stdin, err := sess.StdinPipe()
	if err != nil {
		_ = sess.Close()
		return nil, errors.Wrap(err, "stdin pipe")
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		_ = sess.Close()
		return nil, errors.Wrap(err, "stdout pipe")
	}
	if err := sess.Shell(); err != nil {
		_ = sess.Close()
		return nil, errors.Wrap(err, "shell")
	}

	s := newSession(stdin, stdout, func() error {
		_ = sess.Close()
		return client.Close()
	})
	s.commandTimeout = cfg.CommandTimeout

	banner, err := s.readUntilPrompt(ctx)
	if err != nil {
		_ = s.Close()
		return nil, errors.Wrap(err, "wait for prompt")
	}
	s.prompt = lastPrompt(banner)

	if cfg.PagingOff != "" {
		if _, err := s.Run(ctx, cfg.PagingOff); err != nil {
			_ = s.Close()
			return nil, errors.Wrap(err, "disable paging")
		}
	}
	return s, nil
}

func newSession(stdin io.Writer, stdout io.Reader, closer func() error) *session {
	chunks := make(chan []byte, 16)
	done := make(chan struct{})
	var readErr error

	go func() {
		defer close(chunks)
		p := make([]byte, 4096)
		for {
			n, err := stdout.Read(p)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, p[:n])
				select {
				case chunks <- chunk:
				case <-done:
					return
				}
			}
			if err != nil {
				readErr = err
				return
			}
		}
	}()

	return &session{
		stdin:   stdin,
		chunks:  chunks,
		readErr: &readErr,
		closer:  closer,
		done:    done,
	}
}

// Run sends command and waits for the next prompt.
func (s *session) Run(ctx context.Context, command string) (string, error) {
	if s.commandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.commandTimeout)
		defer cancel()
	}

	if _, err := io.WriteString(s.stdin, command+"\n"); err != nil {
		return "", errors.Wrapf(err, "send %q", command)
	}
	raw, err := s.readUntilPrompt(ctx)
	if err != nil {
		return "", errors.Wrapf(err, "read output of %q", command)
	}
	return cleanOutput(raw, command), nil
}

func (s *session) readUntilPrompt(ctx context.Context) (string, error) {
	for {
		text := s.buf.String()
		if idx := strings.Index(text, moreMarker); idx >= 0 {
			s.buf.Reset()
			s.buf.WriteString(text[:idx] + text[idx+len(moreMarker):])
			if _, err := io.WriteString(s.stdin, " "); err != nil {
				return "", errors.Wrap(err, "continue paged output")
			}
			continue
		}
		if rePrompt.MatchString(strings.TrimRight(text, "\r")) {
			s.buf.Reset()
			return text, nil
		}

		select {
		case <-ctx.Done():
			_ = s.Close()
			return "", ctx.Err()
		case chunk, ok := <-s.chunks:
			if !ok {
				if *s.readErr != nil && *s.readErr != io.EOF {
					return "", *s.readErr
				}
				return "", errSessionClosed
			}
			s.buf.Write(chunk)
		}
	}
}

// Close ends the shell. It is safe to call more than once.
func (s *session) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.closer != nil {
			s.closeErr = s.closer()
			if errors.Is(s.closeErr, io.EOF) {
				s.closeErr = nil
			}
		}
	})
	return s.closeErr
}

// cleanOutput strips terminal noise, the echoed command and the trailing prompt.
func cleanOutput(raw, command string) string {
	text := reANSI.ReplaceAllString(raw, "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "")

	if loc := rePrompt.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}

	lines := strings.Split(text, "\n")
	if len(lines) > 0 && strings.HasSuffix(strings.TrimSpace(lines[0]), strings.TrimSpace(command)) {
		lines = lines[1:]
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}

func lastPrompt(text string) string {
	m := rePrompt.FindStringSubmatch(strings.TrimRight(text, "\r"))
	if m == nil {
		return ""
	}
	return m[1]
}
