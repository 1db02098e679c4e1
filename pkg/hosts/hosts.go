// Package hosts loads the list of device addresses to reconcile.
package hosts

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Format selects how a host file is read.
type Format string

const (
	FormatAuto  Format = "auto"
	FormatLines Format = "lines"
	FormatCSV   Format = "csv"
)

// DefaultColumn is the CSV header that holds the address.
const DefaultColumn = "host"

// Load reads addresses from path. FormatAuto picks CSV for a .csv extension and
// one address per line otherwise. Order and duplicates are preserved.
func Load(path string, format Format, column string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open host list")
	}
	defer f.Close()

	if format == "" || format == FormatAuto {
		format = FormatLines
		if strings.EqualFold(filepath.Ext(path), ".csv") {
			format = FormatCSV
		}
	}

	var hosts []string
	switch format {
	case FormatLines:
		hosts, err = ReadLines(f)
	case FormatCSV:
		hosts, err = ReadCSV(f, column)
	default:
		return nil, errors.Errorf("unknown host list format %q", format)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read host list %s", path)
	}
	return hosts, nil
}

// ReadLines reads one address per line. Blank lines and lines starting with
// '#' are skipped.
func ReadLines(r io.Reader) ([]string, error) {
	var hosts []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		hosts = append(hosts, line)
	}
	return hosts, sc.Err()
}

// ReadCSV reads addresses from the named column of a CSV file with a header
// row. The column name is matched case-insensitively; empty cells are skipped.
func ReadCSV(r io.Reader, column string) ([]string, error) {
	if column == "" {
		column = DefaultColumn
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	idx := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), column) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, errors.Errorf("column %q not found in header %v", column, header)
	}

	var hosts []string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return hosts, nil
		}
		if err != nil {
			return nil, err
		}
		if idx >= len(rec) {
			continue
		}
		if h := strings.TrimSpace(rec[idx]); h != "" {
			hosts = append(hosts, h)
		}
	}
}
