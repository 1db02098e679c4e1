// Package report renders fleet outcomes for operators and scrapers.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/bmcdonald3/fwreconcile/pkg/firmware"
	"github.com/bmcdonald3/fwreconcile/pkg/reconcile"
)

// Run is the serialized result of one fleet pass.
type Run struct {
	ID       string       `json:"id"`
	Started  time.Time    `json:"started"`
	Finished time.Time    `json:"finished"`
	DryRun   bool         `json:"dry_run"`
	Summary  Summary      `json:"summary"`
	Hosts    []HostReport `json:"hosts"`
}

// Summary aggregates all hosts of a run.
type Summary struct {
	Hosts      int `json:"hosts"`
	Succeeded  int `json:"succeeded"`
	Errored    int `json:"errored"`
	Referenced int `json:"referenced_files"`
	Orphaned   int `json:"orphaned_files"`
	Deleted    int `json:"deleted_files"`
	Failed     int `json:"failed_deletions"`
	Skipped    int `json:"skipped_deletions"`
}

// HostReport is the serialized form of reconcile.HostOutcome.
type HostReport struct {
	Host       string           `json:"host"`
	ConnStatus string           `json:"conn_status"`
	State      string           `json:"state"`
	Failure    string           `json:"failure,omitempty"`
	Error      string           `json:"error,omitempty"`
	Referenced []string         `json:"referenced,omitempty"`
	Orphaned   []string         `json:"orphaned,omitempty"`
	Cleanup    *CommandReport   `json:"cleanup,omitempty"`
	Deletions  []DeletionReport `json:"deletions,omitempty"`
	Started    time.Time        `json:"started"`
	Finished   time.Time        `json:"finished"`
	DurationMS int64            `json:"duration_ms"`
}

// CommandReport is the serialized form of reconcile.CommandResult.
type CommandReport struct {
	Command string `json:"command"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

// DeletionReport is the serialized form of reconcile.DeletionAttempt.
type DeletionReport struct {
	File    string `json:"file"`
	Command string `json:"command"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// New builds a Run with a fresh ID. Hosts are sorted by address; outcomes for
// the same address keep their relative order.
func New(outcomes []reconcile.HostOutcome, started, finished time.Time, dryRun bool) *Run {
	r := &Run{
		ID:       uuid.NewString(),
		Started:  started,
		Finished: finished,
		DryRun:   dryRun,
		Hosts:    make([]HostReport, 0, len(outcomes)),
	}
	for _, o := range outcomes {
		r.Hosts = append(r.Hosts, newHostReport(o))
		r.Summary.add(o)
	}
	sort.SliceStable(r.Hosts, func(i, j int) bool { return r.Hosts[i].Host < r.Hosts[j].Host })
	return r
}

func newHostReport(o reconcile.HostOutcome) HostReport {
	h := HostReport{
		Host:       o.Host,
		ConnStatus: string(o.ConnStatus),
		State:      string(o.State),
		Failure:    string(o.Failure),
		Error:      errString(o.Err),
		Started:    o.Started,
		Finished:   o.Finished,
		DurationMS: o.Duration().Milliseconds(),
	}
	if c := o.Classification; c != nil {
		h.Referenced = names(c.Referenced)
		h.Orphaned = names(c.Orphaned)
	}
	if o.Cleanup != nil {
		h.Cleanup = &CommandReport{Command: o.Cleanup.Command, OK: o.Cleanup.OK(), Error: errString(o.Cleanup.Err)}
	}
	for _, d := range o.Deletions {
		h.Deletions = append(h.Deletions, DeletionReport{
			File:    d.File,
			Command: d.Command,
			Status:  string(d.Status),
			Error:   errString(d.Err),
		})
	}
	return h
}

func (s *Summary) add(o reconcile.HostOutcome) {
	s.Hosts++
	if o.Succeeded() {
		s.Succeeded++
	} else {
		s.Errored++
	}
	if c := o.Classification; c != nil {
		s.Referenced += len(c.Referenced)
		s.Orphaned += len(c.Orphaned)
	}
	s.Deleted += o.CountDeletions(reconcile.DeletionOK)
	s.Failed += o.CountDeletions(reconcile.DeletionFailed)
	s.Skipped += o.CountDeletions(reconcile.DeletionSkipped)
}

// WriteJSON writes the run as indented JSON.
func (r *Run) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteJSONFile writes the run to path.
func (r *Run) WriteJSONFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create report")
	}
	if err := r.WriteJSON(f); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "write report %s", path)
	}
	return f.Close()
}

// WriteText writes a host table followed by the file actions of every host
// that has any.
func (r *Run) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "HOST\tCONN\tSTATE\tREFERENCED\tORPHANED\tDELETED\tFAILED\tDURATION\tERROR")
	for _, h := range r.Hosts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
			h.Host, h.ConnStatus, h.State,
			len(h.Referenced), len(h.Orphaned), countStatus(h.Deletions, reconcile.DeletionOK), countStatus(h.Deletions, reconcile.DeletionFailed),
			(time.Duration(h.DurationMS) * time.Millisecond).String(), hostError(h))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, h := range r.Hosts {
		if len(h.Referenced) == 0 && len(h.Deletions) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", h.Host)
		for _, f := range h.Referenced {
			fmt.Fprintf(w, "  keep    %s\n", f)
		}
		for _, d := range h.Deletions {
			line := fmt.Sprintf("  %-7s %s", d.Status, d.File)
			if d.Error != "" {
				line += ": " + d.Error
			}
			fmt.Fprintln(w, line)
		}
	}

	s := r.Summary
	_, err := fmt.Fprintf(w, "\nrun %s: %d hosts, %d succeeded, %d errored, %d orphaned files, %d deleted, %d failed, %d skipped\n",
		r.ID, s.Hosts, s.Succeeded, s.Errored, s.Orphaned, s.Deleted, s.Failed, s.Skipped)
	return err
}

func hostError(h HostReport) string {
	if h.Error == "" {
		return "-"
	}
	msg := h.Error
	if h.Failure != "" {
		msg = h.Failure + ": " + msg
	}
	return strings.ReplaceAll(msg, "\n", " ")
}

func countStatus(ds []DeletionReport, st reconcile.DeletionStatus) int {
	n := 0
	for _, d := range ds {
		if d.Status == string(st) {
			n++
		}
	}
	return n
}

func names(files []firmware.Filename) []string {
	if len(files) == 0 {
		return nil
	}
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name
	}
	return out
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
