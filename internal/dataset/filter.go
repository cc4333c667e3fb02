package dataset

import "time"

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// FilterDates returns the rows whose timestamp falls on a day within
// [start, end], both inclusive. Only the date parts of start and end are used.
func (t *Table) FilterDates(start, end time.Time) *Table {
	s := civil(start)
	e := civil(end)
	rows := make([]int, 0, len(t.timestamps))
	for i, ts := range t.timestamps {
		d := civil(ts)
		if d < s || d > e {
			continue
		}
		rows = append(rows, i)
	}
	return t.Take(rows)
}

// DateBounds returns the first and last day present in the table.
func (t *Table) DateBounds() (first, last time.Time, ok bool) {
	if len(t.timestamps) == 0 {
		return time.Time{}, time.Time{}, false
	}
	first, last = t.timestamps[0], t.timestamps[0]
	for _, ts := range t.timestamps[1:] {
		if ts.Before(first) {
			first = ts
		}
		if ts.After(last) {
			last = ts
		}
	}
	return Day(first), Day(last), true
}

// civil encodes the calendar date of t as yyyymmdd so dates compare as ints
// regardless of location.
func civil(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}
