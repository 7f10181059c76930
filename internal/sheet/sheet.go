// Package sheet reads licensing spreadsheets into header-keyed records.
package sheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	DefaultMarker = "Inspection Number"
	DefaultWindow = 20
)

var ErrHeaderNotFound = errors.New("header row not found")

// Options controls header detection.
type Options struct {
	// Marker is the text a header cell must contain.
	Marker string
	// Window is how many leading rows are searched for the header.
	Window int
}

func (o Options) withDefaults() Options {
	if o.Marker == "" {
		o.Marker = DefaultMarker
	}
	if o.Window <= 0 {
		o.Window = DefaultWindow
	}
	return o
}

var zipMagic = []byte("PK\x03\x04")

// Read parses an xlsx workbook or a csv file. The format is sniffed from the
// content. Each returned record maps header cells to the row's values.
func Read(r io.Reader, opts Options) ([]map[string]string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if bytes.HasPrefix(raw, zipMagic) {
		return readWorkbook(bytes.NewReader(raw), opts.withDefaults())
	}
	return readCSV(bytes.NewReader(raw), opts.withDefaults())
}

func readWorkbook(r io.Reader, opts Options) ([]map[string]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		if records, err := records(rows, opts); err == nil {
			return records, nil
		}
	}
	return nil, fmt.Errorf("%w: no cell containing %q in the first %d rows", ErrHeaderNotFound, opts.Marker, opts.Window)
}

func readCSV(r io.Reader, opts Options) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return records(rows, opts)
}

// records locates the header row and keys the rows after it.
func records(rows [][]string, opts Options) ([]map[string]string, error) {
	header := headerIndex(rows, opts)
	if header < 0 {
		return nil, fmt.Errorf("%w: no cell containing %q in the first %d rows", ErrHeaderNotFound, opts.Marker, opts.Window)
	}

	names := make([]string, len(rows[header]))
	for i, cell := range rows[header] {
		names[i] = strings.TrimSpace(cell)
	}

	var out []map[string]string
	for _, row := range rows[header+1:] {
		rec := make(map[string]string, len(names))
		empty := true
		for i, name := range names {
			if name == "" || i >= len(row) {
				continue
			}
			v := strings.TrimSpace(row[i])
			rec[name] = v
			if v != "" {
				empty = false
			}
		}
		if !empty {
			out = append(out, rec)
		}
	}
	return out, nil
}

func headerIndex(rows [][]string, opts Options) int {
	marker := strings.ToLower(opts.Marker)
	for i, row := range rows {
		if i >= opts.Window {
			break
		}
		for _, cell := range row {
			if strings.Contains(strings.ToLower(cell), marker) {
				return i
			}
		}
	}
	return -1
}
