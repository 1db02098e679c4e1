// pkg/firmware/grammar.go

package firmware

import (
	"strings"
)

// productLines are the family codes a firmware file name may start with.
// Longer codes first so that NE is tried before a bare S would be.
var productLines = []string{"CE", "AR", "NE", "S"}

// suffixes binds the build marker to the file extension of each kind.
var suffixes = []struct {
	marker string
	ext    string
	kind   Kind
}{
	{marker: "SPC", ext: ".cc", kind: KindSystem},
	{marker: "SPH", ext: ".PAT", kind: KindPatch},
}

// A rule consumes a prefix of s starting at i and returns the position after it.
type rule func(s string, i int) (int, bool)

func literalFold(lit string) rule {
	return func(s string, i int) (int, bool) {
		if len(s)-i < len(lit) || !strings.EqualFold(s[i:i+len(lit)], lit) {
			return i, false
		}
		return i + len(lit), true
	}
}

func digits(min, max int) rule {
	return func(s string, i int) (int, bool) {
		n := 0
		for n < max && i+n < len(s) && isDigit(s[i+n]) {
			n++
		}
		if n < min {
			return i, false
		}
		return i + n, true
	}
}

func optional(r rule) rule {
	return func(s string, i int) (int, bool) {
		if j, ok := r(s, i); ok {
			return j, true
		}
		return i, true
	}
}

func sequence(rules ...rule) rule {
	return func(s string, i int) (int, bool) {
		j := i
		for _, r := range rules {
			var ok bool
			if j, ok = r(s, j); !ok {
				return i, false
			}
		}
		return j, true
	}
}

func oneOf(alts ...rule) rule {
	return func(s string, i int) (int, bool) {
		for _, r := range alts {
			if j, ok := r(s, i); ok {
				return j, true
			}
		}
		return i, false
	}
}

// family matches a product line code, the rest of the model word and the dash.
func family(s string, i int) (int, bool) {
	for _, pl := range productLines {
		j, ok := literalFold(pl)(s, i)
		if !ok {
			continue
		}
		for j < len(s) && isWord(s[j]) {
			j++
		}
		if j < len(s) && s[j] == '-' {
			return j + 1, true
		}
	}
	return i, false
}

var version = sequence(
	literalFold("V"), digits(3, 3),
	literalFold("R"), digits(3, 3),
	optional(sequence(literalFold("C"), digits(1, 2))),
)

func build(marker string) rule {
	return sequence(literalFold(marker), digits(3, 3))
}

// MatchAt tries to match a firmware file name starting exactly at s[i:].
// It reports the matched Filename and the index just past it.
func MatchAt(s string, i int) (Filename, int, bool) {
	famEnd, ok := family(s, i)
	if !ok {
		return Filename{}, i, false
	}
	verEnd, ok := version(s, famEnd)
	if !ok {
		return Filename{}, i, false
	}
	for _, sfx := range suffixes {
		buildEnd, ok := build(sfx.marker)(s, verEnd)
		if !ok {
			continue
		}
		end, ok := literalFold(sfx.ext)(s, buildEnd)
		if !ok {
			continue
		}
		return Filename{
			Name:    s[i:end],
			Family:  s[i : famEnd-1],
			Version: s[famEnd:verEnd],
			Build:   s[verEnd:buildEnd],
			Kind:    sfx.kind,
		}, end, true
	}
	return Filename{}, i, false
}

// FindAll returns every non-overlapping firmware file name in s, left to right.
func FindAll(s string) []Filename {
	var found []Filename
	for i := 0; i < len(s); {
		if f, end, ok := MatchAt(s, i); ok {
			found = append(found, f)
			i = end
			continue
		}
		i++
	}
	return found
}

// ParseFilename parses s as a single firmware file name with nothing around it.
func ParseFilename(s string) (Filename, bool) {
	f, end, ok := MatchAt(s, 0)
	if !ok || end != len(s) {
		return Filename{}, false
	}
	return f, true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isWord(c byte) bool {
	return isDigit(c) || c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
