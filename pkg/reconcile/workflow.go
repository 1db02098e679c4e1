// pkg/reconcile/workflow.go

package reconcile

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/bmcdonald3/fwreconcile/pkg/firmware"
	"github.com/bmcdonald3/fwreconcile/pkg/logger"
	"github.com/bmcdonald3/fwreconcile/pkg/transport"
)

// FilePlaceholder is replaced by the file name in Commands.Delete.
const FilePlaceholder = "{file}"

// Commands are the device commands issued by the workflow.
type Commands struct {
	Dir     string
	Startup string
	// Cleanup runs after both reports are read. Empty disables it.
	Cleanup string
	// Delete must contain FilePlaceholder.
	Delete string
	// ErrorMarkers are output fragments that mark a command as failed.
	ErrorMarkers []string
}

// DefaultCommands are the Huawei VRP commands.
func DefaultCommands() Commands {
	return Commands{
		Dir:          "dir | include PAT|cc",
		Startup:      "display startup",
		Cleanup:      "delete /unreserved /quiet flash:/logfile/*",
		Delete:       "delete /unreserved /quiet " + FilePlaceholder,
		ErrorMarkers: []string{"Error:", "Unrecognized command"},
	}
}

// DeleteCommand returns the delete command for file.
func (c Commands) DeleteCommand(file string) string {
	return strings.ReplaceAll(c.Delete, FilePlaceholder, file)
}

func (c Commands) failed(output string) bool {
	lower := strings.ToLower(output)
	for _, m := range c.ErrorMarkers {
		if m != "" && strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

// Workflow reconciles firmware on one host per Run call. A Workflow holds
// only read-only settings and may be shared by concurrent runs.
type Workflow struct {
	*logger.Logger

	Dialer         transport.Dialer
	Credentials    transport.Credentials
	Commands       Commands
	ConnectTimeout time.Duration
	// DryRun classifies but records orphaned files as skipped instead of
	// deleting them.
	DryRun bool

	now func() time.Time
}

// Run drives one host from Connecting to Done or Errored. Failures are
// reported in the outcome, never returned or propagated. The session is closed
// exactly once on every path.
func (w *Workflow) Run(ctx context.Context, host string) (out HostOutcome) {
	log := w.With(slog.String("host", host))
	out = HostOutcome{Host: host, State: StateConnecting, Started: w.clock()}

	defer func() {
		if r := recover(); r != nil {
			out.fail(FailureInternal, errors.Errorf("panic: %v", r))
			log.Errorf("workflow panic: %v", r)
		}
		out.Finished = w.clock()
	}()

	sess, err := w.Dialer.Open(ctx, host, w.Credentials, w.ConnectTimeout)
	if err != nil {
		out.ConnStatus, out.Failure = connectFailure(err)
		out.State, out.Err = StateErrored, err
		log.Warningf("connect failed (%s): %v", out.ConnStatus, err)
		return out
	}
	out.ConnStatus = ConnSuccess
	defer func() {
		if err := sess.Close(); err != nil {
			log.Debugf("close session: %v", err)
		}
	}()

	out.transition(log, StateInspecting)
	inv, refs, err := w.inspect(ctx, sess, &out, log)
	if err != nil {
		kind := FailureTransport
		if errors.Is(err, firmware.ErrMalformedReport) {
			kind = FailureMalformedReport
		}
		out.fail(kind, err)
		log.Warningf("inspect failed: %v", err)
		return out
	}

	out.transition(log, StateClassifying)
	c := firmware.Classify(inv, refs)
	out.Classification = &c
	for _, f := range c.Referenced {
		log.Debugf("file %s is referenced by the boot configuration", f)
	}
	for _, f := range c.Orphaned {
		log.Infof("file %s is unused", f)
	}

	out.transition(log, StateDeleting)
	out.Deletions = w.deleteOrphans(ctx, sess, c.Orphaned, log)

	out.transition(log, StateDone)
	log.Infof("done: %d referenced, %d orphaned, %d deleted, %d failed",
		len(c.Referenced), len(c.Orphaned), out.CountDeletions(DeletionOK), out.CountDeletions(DeletionFailed))
	return out
}

func (w *Workflow) inspect(ctx context.Context, sess transport.Session, out *HostOutcome, log *logger.Logger) (firmware.Inventory, firmware.BootReferences, error) {
	dir, err := exec(ctx, sess, log, w.Commands.Dir)
	if err != nil {
		return nil, firmware.BootReferences{}, errors.Wrap(err, "directory listing")
	}
	startup, err := exec(ctx, sess, log, w.Commands.Startup)
	if err != nil {
		return nil, firmware.BootReferences{}, errors.Wrap(err, "boot configuration")
	}

	if w.Commands.Cleanup != "" {
		out.Cleanup = w.cleanup(ctx, sess, log)
	}

	refs, err := firmware.ParseBootReferences(startup)
	if err != nil {
		return nil, firmware.BootReferences{}, errors.Wrap(err, "boot configuration")
	}
	inv := firmware.ParseInventory(dir)
	if len(inv) == 0 {
		log.Info("no firmware files found on storage")
	}
	return inv, refs, nil
}

func (w *Workflow) cleanup(ctx context.Context, sess transport.Session, log *logger.Logger) *CommandResult {
	res := &CommandResult{Command: w.Commands.Cleanup}
	res.Output, res.Err = exec(ctx, sess, log, w.Commands.Cleanup)
	if res.Err == nil && w.Commands.failed(res.Output) {
		res.Err = errors.Errorf("device rejected cleanup: %s", strings.TrimSpace(res.Output))
	}
	if res.Err != nil {
		log.Warningf("log cleanup failed: %v", res.Err)
	}
	return res
}

func (w *Workflow) deleteOrphans(ctx context.Context, sess transport.Session, orphaned []firmware.Filename, log *logger.Logger) []DeletionAttempt {
	attempts := make([]DeletionAttempt, 0, len(orphaned))
	for _, f := range orphaned {
		a := DeletionAttempt{File: f.Name, Command: w.Commands.DeleteCommand(f.Name)}

		if w.DryRun {
			a.Status = DeletionSkipped
			log.Infof("dry run: would run %q", a.Command)
			attempts = append(attempts, a)
			continue
		}

		a.Output, a.Err = exec(ctx, sess, log, a.Command)
		if a.Err == nil && w.Commands.failed(a.Output) {
			a.Err = errors.Errorf("device rejected delete: %s", strings.TrimSpace(a.Output))
		}
		if a.Err != nil {
			a.Status = DeletionFailed
			log.Warningf("delete %s failed: %v", f, a.Err)
		} else {
			a.Status = DeletionOK
			log.Infof("deleted %s", f)
		}
		attempts = append(attempts, a)
	}
	return attempts
}

// exec runs command on sess and records the exchange at debug level.
func exec(ctx context.Context, sess transport.Session, log *logger.Logger, command string) (string, error) {
	log.Debugf("> %s", command)
	out, err := sess.Run(ctx, command)
	if err != nil {
		log.Debugf("< %q failed: %v", command, err)
		return out, err
	}
	log.Debugf("< %s", out)
	return out, nil
}

func (w *Workflow) clock() time.Time {
	if w.now != nil {
		return w.now()
	}
	return time.Now()
}

func (o *HostOutcome) transition(log *logger.Logger, to State) {
	log.Debugf("%s -> %s", o.State, to)
	o.State = to
}

func (o *HostOutcome) fail(kind FailureKind, err error) {
	o.State, o.Failure, o.Err = StateErrored, kind, err
}

func connectFailure(err error) (ConnStatus, FailureKind) {
	switch {
	case errors.Is(err, transport.ErrTimeout):
		return ConnTimeout, FailureConnectionTimeout
	case errors.Is(err, transport.ErrAuthentication):
		return ConnAuthFailure, FailureAuthentication
	default:
		return ConnOtherError, FailureTransport
	}
}
