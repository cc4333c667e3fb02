package dataset

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/klauspost/pgzip"
)

// ErrNotFound reports that a dataset does not exist at its source.
var ErrNotFound = errors.New("dataset not found")

// NotFoundError names the missing dataset. It matches ErrNotFound with errors.Is.
type NotFoundError struct {
	Path string
	Hint string // shown to users next to the path
}

func (e *NotFoundError) Error() string {
	return "file not found: " + e.Path
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// timestampLayouts are tried in order for every Timestamp cell.
var timestampLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// LoadCSV reads a CSV file into a Table. Files ending in .gz are decompressed.
//
// A missing file is not fatal: LoadCSV returns an empty table together with a
// *NotFoundError so callers can show a message and keep rendering.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Empty(), &NotFoundError{Path: path, Hint: "Please ensure data is in the 'data/' folder."}
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("gzip %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	t, err := ReadCSV(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

// ReadCSV parses CSV data with a header row. The Timestamp column is parsed
// into times; every other numeric column is kept, non-numeric columns are
// dropped.
func ReadCSV(r io.Reader) (*Table, error) {
	df := dataframe.ReadCSV(r,
		dataframe.WithTypes(map[string]series.Type{ColTimestamp: series.String}),
		dataframe.NaNValues([]string{"", "NA", "NaN", "nan", "<nil>"}),
	)
	if df.Err != nil {
		// gota refuses header-only input; that is a valid, empty dataset.
		if strings.Contains(df.Err.Error(), "empty DataFrame") {
			return Empty(), nil
		}
		return nil, fmt.Errorf("parse csv: %w", df.Err)
	}

	names := df.Names()
	if !slices.Contains(names, ColTimestamp) {
		return nil, fmt.Errorf("missing required column %q", ColTimestamp)
	}

	raw := df.Col(ColTimestamp).Records()
	timestamps := make([]time.Time, len(raw))
	for i, s := range raw {
		ts, err := ParseTimestamp(s)
		if err != nil {
			// +2: header line and 1-based numbering
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		timestamps[i] = ts
	}

	var keep []string
	columns := make(map[string][]float64)
	for _, name := range names {
		if name == ColTimestamp {
			continue
		}
		col := df.Col(name)
		switch col.Type() {
		case series.Float, series.Int:
			keep = append(keep, name)
			columns[name] = col.Float()
		}
	}

	for _, name := range RequiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("column %q is missing or not numeric", name)
		}
	}

	return NewTable(timestamps, keep, columns)
}

// ParseTimestamp parses a timestamp cell using the supported layouts.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
