package dataset

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Metrics are the headline figures shown above the charts.
type Metrics struct {
	Rows    int   `json:"rows"`
	AvgGHI  Value `json:"avg_ghi"`
	AvgDNI  Value `json:"avg_dni"`
	AvgTamb Value `json:"avg_tamb"`
	MaxWS   Value `json:"max_ws"`
}

// Summarize computes the headline metrics. Every metric is Undefined when the
// table has no usable values for it.
func Summarize(t *Table) Metrics {
	return Metrics{
		Rows:    t.Len(),
		AvgGHI:  Mean(t, ColGHI),
		AvgDNI:  Mean(t, ColDNI),
		AvgTamb: Mean(t, ColTamb),
		MaxWS:   Max(t, ColWS),
	}
}

// Mean returns the mean of a column, skipping NaN cells.
func Mean(t *Table, name string) Value {
	vals := Finite(column(t, name))
	if len(vals) == 0 {
		return Undefined
	}
	return Value(stat.Mean(vals, nil))
}

// Max returns the maximum of a column, skipping NaN cells.
func Max(t *Table, name string) Value {
	vals := Finite(column(t, name))
	if len(vals) == 0 {
		return Undefined
	}
	return Value(floats.Max(vals))
}

// Finite returns the non-NaN, non-Inf elements of vals in a new slice.
func Finite(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Correlation returns the Pearson correlation of x and y over the rows where
// both are finite. It is NaN when fewer than two such rows exist or either
// side is constant.
func Correlation(x, y []float64) float64 {
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for i := range x {
		if !finite(x[i]) || !finite(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}

// CorrelationMatrix returns pairwise correlations for the named columns that
// exist in t. names reports which columns were used, in order.
func CorrelationMatrix(t *Table, cols []string) (names []string, matrix [][]float64) {
	for _, c := range cols {
		if t.Has(c) {
			names = append(names, c)
		}
	}
	matrix = make([][]float64, len(names))
	for i := range names {
		matrix[i] = make([]float64, len(names))
	}
	for i, a := range names {
		for j := i; j < len(names); j++ {
			r := Correlation(column(t, a), column(t, names[j]))
			if i == j && !math.IsNaN(r) {
				r = 1
			}
			matrix[i][j] = r
			matrix[j][i] = r
		}
	}
	return names, matrix
}

// Quantile returns the p-quantile of sorted using linear interpolation
// between closest ranks. sorted must be ascending and free of NaN.
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// Description holds the summary statistics of one column.
type Description struct {
	Column string `json:"column"`
	Count  int    `json:"count"`
	Mean   Value  `json:"mean"`
	Std    Value  `json:"std"`
	Min    Value  `json:"min"`
	P25    Value  `json:"p25"`
	P50    Value  `json:"p50"`
	P75    Value  `json:"p75"`
	Max    Value  `json:"max"`
}

// Describe returns count, mean, sample standard deviation, min, quartiles and
// max for every numeric column, skipping NaN cells.
func Describe(t *Table) []Description {
	out := make([]Description, 0, len(t.names))
	for _, name := range t.names {
		vals := Finite(t.columns[name])
		d := Description{
			Column: name,
			Count:  len(vals),
			Mean:   Undefined,
			Std:    Undefined,
			Min:    Undefined,
			P25:    Undefined,
			P50:    Undefined,
			P75:    Undefined,
			Max:    Undefined,
		}
		if len(vals) > 0 {
			slices.Sort(vals)
			d.Mean = Value(stat.Mean(vals, nil))
			if len(vals) > 1 {
				d.Std = Value(stat.StdDev(vals, nil))
			}
			d.Min = Value(vals[0])
			d.P25 = Value(Quantile(vals, 0.25))
			d.P50 = Value(Quantile(vals, 0.5))
			d.P75 = Value(Quantile(vals, 0.75))
			d.Max = Value(vals[len(vals)-1])
		}
		out = append(out, d)
	}
	return out
}

func column(t *Table, name string) []float64 {
	col, _ := t.Column(name)
	return col
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
