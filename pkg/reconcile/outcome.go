package reconcile

import (
	"time"

	"github.com/bmcdonald3/fwreconcile/pkg/firmware"
)

// State is a step of the per-host workflow.
type State string

const (
	StateConnecting  State = "connecting"
	StateInspecting  State = "inspecting"
	StateClassifying State = "classifying"
	StateDeleting    State = "deleting"
	StateDone        State = "done"
	StateErrored     State = "errored"
)

// ConnStatus is how session establishment ended.
type ConnStatus string

const (
	ConnSuccess     ConnStatus = "success"
	ConnTimeout     ConnStatus = "timeout"
	ConnAuthFailure ConnStatus = "auth-failure"
	ConnOtherError  ConnStatus = "other-error"
)

// FailureKind says why a host ended in StateErrored.
type FailureKind string

const (
	FailureNone              FailureKind = ""
	FailureConnectionTimeout FailureKind = "connection-timeout"
	FailureAuthentication    FailureKind = "authentication-failure"
	FailureMalformedReport   FailureKind = "malformed-report"
	FailureTransport         FailureKind = "transport-failure"
	FailureInternal          FailureKind = "internal-error"
)

// DeletionStatus is the result of one delete command.
type DeletionStatus string

const (
	DeletionOK      DeletionStatus = "deleted"
	DeletionFailed  DeletionStatus = "failed"
	DeletionSkipped DeletionStatus = "skipped"
)

// DeletionAttempt records the delete command for one orphaned file.
type DeletionAttempt struct {
	File    string
	Command string
	Status  DeletionStatus
	Output  string
	Err     error
}

// CommandResult records a best-effort command such as the log cleanup.
type CommandResult struct {
	Command string
	Output  string
	Err     error
}

// OK reports whether the command was sent and the device did not complain.
func (r CommandResult) OK() bool { return r.Err == nil }

// HostOutcome is the result of one workflow run. It is not modified after Run
// returns it.
type HostOutcome struct {
	Host       string
	ConnStatus ConnStatus
	State      State
	Failure    FailureKind
	Err        error

	// Classification is nil unless the host reached StateClassifying.
	Classification *firmware.Classification
	Cleanup        *CommandResult
	Deletions      []DeletionAttempt

	Started  time.Time
	Finished time.Time
}

// Succeeded reports whether the workflow reached StateDone.
func (o HostOutcome) Succeeded() bool { return o.State == StateDone }

// CountDeletions returns the number of attempts with status st.
func (o HostOutcome) CountDeletions(st DeletionStatus) int {
	n := 0
	for _, d := range o.Deletions {
		if d.Status == st {
			n++
		}
	}
	return n
}

// Duration is the wall time of the run.
func (o HostOutcome) Duration() time.Duration { return o.Finished.Sub(o.Started) }
