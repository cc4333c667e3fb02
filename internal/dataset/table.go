// Package dataset holds the column-oriented table used by the dashboard along
// with loading, filtering, reshaping and reduction helpers.
//
// A *Table is immutable once built. Every operation that derives data returns
// a new table, so tables can be shared between concurrent requests.
package dataset

import (
	"fmt"
	"math"
	"slices"
	"time"
)

// Column names used throughout the dashboard.
const (
	ColTimestamp = "Timestamp"
	ColGHI       = "GHI"
	ColDNI       = "DNI"
	ColDHI       = "DHI"
	ColModA      = "ModA"
	ColModB      = "ModB"
	ColTamb      = "Tamb"
	ColRH        = "RH"
	ColWS        = "WS"
	ColWSgust    = "WSgust"
	ColWD        = "WD"
	ColTModA     = "TModA"
	ColTModB     = "TModB"
)

// RequiredColumns must be present (and numeric) in every loaded dataset.
var RequiredColumns = []string{ColGHI, ColDNI, ColDHI, ColTamb, ColWS}

// Table is an ordered set of rows stored one slice per column. Missing numeric
// cells are NaN.
type Table struct {
	timestamps []time.Time
	names      []string
	columns    map[string][]float64
}

// Empty returns a table with no rows and no columns.
func Empty() *Table {
	return &Table{columns: map[string][]float64{}}
}

// NewTable builds a table from column slices. Every column must have the same
// length as timestamps. The slices are owned by the table afterwards.
func NewTable(timestamps []time.Time, names []string, columns map[string][]float64) (*Table, error) {
	t := &Table{
		timestamps: timestamps,
		names:      slices.Clone(names),
		columns:    make(map[string][]float64, len(names)),
	}
	for _, name := range names {
		if name == ColTimestamp {
			return nil, fmt.Errorf("column %q is reserved", name)
		}
		col, ok := columns[name]
		if !ok {
			return nil, fmt.Errorf("column %q has no values", name)
		}
		if len(col) != len(timestamps) {
			return nil, fmt.Errorf("column %q has %d values, want %d", name, len(col), len(timestamps))
		}
		if _, dup := t.columns[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		t.columns[name] = col
	}
	return t, nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.timestamps)
}

// IsEmpty reports whether the table has no rows.
func (t *Table) IsEmpty() bool {
	return len(t.timestamps) == 0
}

// Columns returns the numeric column names in source order.
func (t *Table) Columns() []string {
	return slices.Clone(t.names)
}

// Has reports whether the table carries the named numeric column.
func (t *Table) Has(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// Column returns the values of a numeric column. The returned slice is shared
// with the table and must not be modified.
func (t *Table) Column(name string) ([]float64, bool) {
	col, ok := t.columns[name]
	return col, ok
}

// Timestamps returns the timestamp column. The returned slice is shared with
// the table and must not be modified.
func (t *Table) Timestamps() []time.Time {
	return t.timestamps
}

// Value returns a single cell, or NaN when the column does not exist.
func (t *Table) Value(name string, row int) float64 {
	col, ok := t.columns[name]
	if !ok {
		return math.NaN()
	}
	return col[row]
}

// Take returns a new table holding the given rows, in the given order.
func (t *Table) Take(rows []int) *Table {
	out := &Table{
		timestamps: make([]time.Time, len(rows)),
		names:      slices.Clone(t.names),
		columns:    make(map[string][]float64, len(t.names)),
	}
	for i, r := range rows {
		out.timestamps[i] = t.timestamps[r]
	}
	for _, name := range t.names {
		src := t.columns[name]
		dst := make([]float64, len(rows))
		for i, r := range rows {
			dst[i] = src[r]
		}
		out.columns[name] = dst
	}
	return out
}

// Project returns a new table with only the named columns, in the given order.
func (t *Table) Project(names ...string) (*Table, error) {
	out := &Table{
		timestamps: t.timestamps,
		columns:    make(map[string][]float64, len(names)),
	}
	for _, name := range names {
		if name == ColTimestamp {
			continue
		}
		col, ok := t.columns[name]
		if !ok {
			return nil, fmt.Errorf("project: unknown column %q", name)
		}
		out.names = append(out.names, name)
		out.columns[name] = col
	}
	return out, nil
}

// Builder accumulates rows into a new Table.
type Builder struct {
	names      []string
	timestamps []time.Time
	columns    [][]float64
}

// NewBuilder returns a builder for the given numeric columns.
func NewBuilder(names ...string) *Builder {
	return &Builder{
		names:   slices.Clone(names),
		columns: make([][]float64, len(names)),
	}
}

// Append adds one row. values must be in the builder's column order.
func (b *Builder) Append(ts time.Time, values ...float64) {
	if len(values) != len(b.names) {
		panic(fmt.Sprintf("dataset: Append got %d values for %d columns", len(values), len(b.names)))
	}
	b.timestamps = append(b.timestamps, ts)
	for i, v := range values {
		b.columns[i] = append(b.columns[i], v)
	}
}

// Table returns the accumulated rows. The builder must not be used afterwards.
func (b *Builder) Table() *Table {
	t := &Table{
		timestamps: b.timestamps,
		names:      b.names,
		columns:    make(map[string][]float64, len(b.names)),
	}
	if t.timestamps == nil {
		t.timestamps = []time.Time{}
	}
	for i, name := range b.names {
		col := b.columns[i]
		if col == nil {
			col = []float64{}
		}
		t.columns[name] = col
	}
	return t
}
