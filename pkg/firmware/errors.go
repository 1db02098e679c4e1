package firmware

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrMalformedReport is the cause of every MalformedReportError.
var ErrMalformedReport = errors.New("malformed report")

// MalformedReportError reports a device report that does not have the expected
// labels or file names.
type MalformedReportError struct {
	Label  string
	Reason string
}

func (e *MalformedReportError) Error() string {
	if e.Label == "" {
		return fmt.Sprintf("malformed report: %s", e.Reason)
	}
	return fmt.Sprintf("malformed report: %q: %s", e.Label, e.Reason)
}

func (e *MalformedReportError) Unwrap() error { return ErrMalformedReport }

func malformed(label, format string, args ...any) error {
	return &MalformedReportError{Label: label, Reason: fmt.Sprintf(format, args...)}
}
