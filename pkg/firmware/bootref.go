package firmware

import (
	"bufio"
	"strings"
)

// Labels of the display startup report. Matching is case-sensitive and anchored
// at the start of a line, so "Configured startup system software:" never
// matches LabelCurrentSystem.
const (
	LabelCurrentSystem = "Startup system software:"
	LabelNextSystem    = "Next startup system software:"
	LabelCurrentPatch  = "Startup patch package:"
	LabelNextPatch     = "Next startup patch package:"
)

// storagePrefixes are the device storage names a boot path may start with.
var storagePrefixes = []string{"flash:", "sdcard:", "sd1:", "sd:"}

// absenceSentinels mean that no patch is configured for the slot.
var absenceSentinels = []string{"NONE", "NULL"}

// ParseBootReferences extracts the four boot slots from the output of a
// "display startup" command. Only the first board in the report is consulted.
//
// A missing or unparsable system software line is an error. A patch slot set
// to NONE or NULL is absent. A patch line missing from the report is treated
// the same way.
func ParseBootReferences(report string) (BootReferences, error) {
	values := startupValues(report)

	var refs BootReferences
	var err error

	if refs.CurrentSystem, err = systemRef(values, LabelCurrentSystem); err != nil {
		return BootReferences{}, err
	}
	if refs.NextSystem, err = systemRef(values, LabelNextSystem); err != nil {
		return BootReferences{}, err
	}
	if refs.CurrentPatch, err = patchRef(values, LabelCurrentPatch); err != nil {
		return BootReferences{}, err
	}
	if refs.NextPatch, err = patchRef(values, LabelNextPatch); err != nil {
		return BootReferences{}, err
	}
	return refs, nil
}

// startupValues maps each known label to the value of its first occurrence.
func startupValues(report string) map[string]string {
	labels := []string{LabelCurrentSystem, LabelNextSystem, LabelCurrentPatch, LabelNextPatch}
	values := make(map[string]string, len(labels))

	boards := 0
	sc := bufio.NewScanner(strings.NewReader(report))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if label, v, ok := cutLabel(line, labels); ok {
			if _, seen := values[label]; !seen {
				values[label] = v
			}
			continue
		}
		if isBoardHeader(line) {
			if boards++; boards > 1 {
				break
			}
		}
	}
	return values
}

func cutLabel(line string, labels []string) (string, string, bool) {
	for _, label := range labels {
		if v, ok := strings.CutPrefix(line, label); ok {
			return label, strings.TrimSpace(v), true
		}
	}
	return "", "", false
}

// isBoardHeader matches lines such as "MainBoard:" or "SlaveBoard:" that open a
// per-board block. Value-less "key:" lines inside a block are not headers.
func isBoardHeader(line string) bool {
	name, ok := strings.CutSuffix(line, ":")
	if !ok || strings.ContainsAny(name, ": \t") {
		return false
	}
	return strings.HasSuffix(strings.ToLower(name), "board")
}

func systemRef(values map[string]string, label string) (Reference, error) {
	v, ok := values[label]
	if !ok {
		return Reference{}, malformed(label, "line not found")
	}
	f, ok := fileAt(stripStorage(v))
	if !ok || f.Kind != KindSystem {
		return Reference{}, malformed(label, "no system image file name in %q", v)
	}
	return present(f), nil
}

func patchRef(values map[string]string, label string) (Reference, error) {
	v, ok := values[label]
	if !ok || isAbsenceSentinel(v) {
		return Reference{}, nil
	}
	f, ok := fileAt(stripStorage(v))
	if !ok || f.Kind != KindPatch {
		return Reference{}, malformed(label, "neither a patch file name nor NONE/NULL: %q", v)
	}
	return present(f), nil
}

// fileAt matches a file name at the start of s. Trailing text is ignored.
func fileAt(s string) (Filename, bool) {
	f, _, ok := MatchAt(s, 0)
	return f, ok
}

func stripStorage(v string) string {
	lower := strings.ToLower(v)
	for _, p := range storagePrefixes {
		if strings.HasPrefix(lower, p) {
			return strings.TrimLeft(v[len(p):], "/")
		}
	}
	return v
}

func isAbsenceSentinel(v string) bool {
	for _, s := range absenceSentinels {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
