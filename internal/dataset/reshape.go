package dataset

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Long is a table in long form: one row per (source row, variable) pair.
type Long struct {
	Timestamps []time.Time
	Variables  []string
	Values     []float64
}

// Len returns the number of long-form rows.
func (l *Long) Len() int {
	return len(l.Values)
}

// Melt reshapes the given columns into long form. Rows are ordered by
// variable first, then by source row, and NaN cells are kept.
func Melt(t *Table, cols ...string) (*Long, error) {
	n := t.Len() * len(cols)
	l := &Long{
		Timestamps: make([]time.Time, 0, n),
		Variables:  make([]string, 0, n),
		Values:     make([]float64, 0, n),
	}
	for _, c := range cols {
		col, ok := t.Column(c)
		if !ok {
			return nil, fmt.Errorf("melt: unknown column %q", c)
		}
		for i, v := range col {
			l.Timestamps = append(l.Timestamps, t.timestamps[i])
			l.Variables = append(l.Variables, c)
			l.Values = append(l.Values, v)
		}
	}
	return l, nil
}

// Group returns the values of each variable in first-seen order.
func (l *Long) Group() (variables []string, values map[string][]float64) {
	values = make(map[string][]float64)
	for i, v := range l.Variables {
		if _, ok := values[v]; !ok {
			variables = append(variables, v)
		}
		values[v] = append(values[v], l.Values[i])
	}
	return variables, values
}

// NLargest returns the n rows with the largest values in col, in descending
// order. Rows where col is NaN are never selected; ties keep source order.
func (t *Table) NLargest(n int, col string) (*Table, error) {
	vals, ok := t.Column(col)
	if !ok {
		return nil, fmt.Errorf("nlargest: unknown column %q", col)
	}
	rows := make([]int, 0, len(vals))
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		rows = append(rows, i)
	}
	sort.SliceStable(rows, func(a, b int) bool {
		return vals[rows[a]] > vals[rows[b]]
	})
	if n < len(rows) {
		rows = rows[:max(n, 0)]
	}
	return t.Take(rows), nil
}
