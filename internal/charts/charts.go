// Package charts builds chart descriptions from dataset tables. Builders are
// pure: they never modify their input and keep no state between calls. The
// descriptions encode to JSON for the API and are drawn by package render.
package charts

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/lox/solardash/internal/dataset"
)

// Kind names a chart endpoint.
type Kind string

const (
	KindTimeSeries Kind = "timeseries"
	KindBoxPlot    Kind = "boxplot"
	KindHeatmap    Kind = "heatmap"
	KindHistogram  Kind = "histogram"
	KindTop        Kind = "top"
	KindDescribe   Kind = "describe"
)

// Kinds lists every chart kind.
var Kinds = []Kind{KindTimeSeries, KindBoxPlot, KindHeatmap, KindHistogram, KindTop, KindDescribe}

// HistogramBins is the fixed bin count for distributions.
const HistogramBins = 50

// TopRows is the size of the high-GHI table.
const TopRows = 10

// IrradianceColumns are plotted on the time series.
var IrradianceColumns = []string{dataset.ColGHI, dataset.ColDNI, dataset.ColDHI}

// CorrelationColumns are compared on the heatmap.
var CorrelationColumns = []string{
	dataset.ColGHI, dataset.ColDNI, dataset.ColDHI, dataset.ColTModA, dataset.ColTModB,
	dataset.ColWS, dataset.ColWSgust, dataset.ColWD, dataset.ColTamb, dataset.ColRH,
}

// BoxPlotColumns are shown on the data visualisation tab.
var BoxPlotColumns = []string{dataset.ColGHI, dataset.ColDNI, dataset.ColDHI, dataset.ColModA, dataset.ColModB}

// TopColumns are the columns of the high-GHI table.
var TopColumns = []string{dataset.ColTimestamp, dataset.ColGHI, dataset.ColDNI, dataset.ColDHI, dataset.ColTamb}

const timestampFormat = "2006-01-02 15:04:05"

type Point struct {
	T time.Time     `json:"t"`
	V dataset.Value `json:"v"`
}

type LineSeries struct {
	Name   string  `json:"name"`
	Color  Color   `json:"color"`
	Points []Point `json:"points"`
}

type LineChart struct {
	Title  string       `json:"title"`
	XLabel string       `json:"x_label"`
	YLabel string       `json:"y_label"`
	Series []LineSeries `json:"series"`
}

// Empty reports whether no series has any point.
func (c *LineChart) Empty() bool {
	for _, s := range c.Series {
		if len(s.Points) > 0 {
			return false
		}
	}
	return true
}

// IrradianceTimeSeries draws GHI, DNI and DHI over time, one line each.
func IrradianceTimeSeries(t *dataset.Table) (*LineChart, error) {
	long, err := dataset.Melt(t, IrradianceColumns...)
	if err != nil {
		return nil, err
	}
	chart := &LineChart{
		Title:  "GHI, DNI, and DHI Trends",
		XLabel: "Timestamp",
		YLabel: "Irradiance (W/m²)",
	}
	index := make(map[string]int)
	for i := range long.Len() {
		name := long.Variables[i]
		j, ok := index[name]
		if !ok {
			j = len(chart.Series)
			index[name] = j
			chart.Series = append(chart.Series, LineSeries{
				Name:   name,
				Color:  SeriesColor(j, name),
				Points: make([]Point, 0, t.Len()),
			})
		}
		chart.Series[j].Points = append(chart.Series[j].Points, Point{T: long.Timestamps[i], V: dataset.Value(long.Values[i])})
	}
	for i := range chart.Series {
		slices.SortStableFunc(chart.Series[i].Points, func(a, b Point) int {
			return a.T.Compare(b.T)
		})
	}
	return chart, nil
}

type Heatmap struct {
	Title  string            `json:"title"`
	Labels []string          `json:"labels"`
	Values [][]dataset.Value `json:"values"`
	Scale  string            `json:"scale"`
	Min    float64           `json:"min"`
	Max    float64           `json:"max"`
}

// Empty reports whether no cell holds a defined correlation.
func (h *Heatmap) Empty() bool {
	for _, row := range h.Values {
		for _, v := range row {
			if v.Defined() {
				return false
			}
		}
	}
	return true
}

// CorrelationHeatmap computes the correlation matrix of CorrelationColumns.
// Columns missing from t are left out.
func CorrelationHeatmap(t *dataset.Table) *Heatmap {
	names, m := dataset.CorrelationMatrix(t, CorrelationColumns)
	h := &Heatmap{
		Title:  "Correlation Between Variables",
		Labels: names,
		Values: make([][]dataset.Value, len(m)),
		Scale:  "RdBu_r",
		Min:    -1,
		Max:    1,
	}
	for i, row := range m {
		h.Values[i] = make([]dataset.Value, len(row))
		for j, v := range row {
			h.Values[i][j] = dataset.Value(v)
		}
	}
	return h
}

type Bin struct {
	Lo    float64 `json:"lo"`
	Hi    float64 `json:"hi"`
	Count int     `json:"count"`
}

type Histogram struct {
	Title   string `json:"title"`
	Column  string `json:"column"`
	Color   Color  `json:"color"`
	Bins    []Bin  `json:"bins"`
	Missing int    `json:"missing"` // NaN cells left out
}

// NewHistogram bins a column into HistogramBins equal-width bins spanning its
// range. The last bin includes the maximum.
func NewHistogram(t *dataset.Table, column string) (*Histogram, error) {
	col, ok := t.Column(column)
	if !ok {
		return nil, fmt.Errorf("histogram: unknown column %q", column)
	}
	vals := dataset.Finite(col)
	h := &Histogram{
		Title:   "Distribution of " + column,
		Column:  column,
		Color:   SeriesColor(1, column),
		Missing: len(col) - len(vals),
	}
	if len(vals) == 0 {
		return h, nil
	}

	lo, hi := slices.Min(vals), slices.Max(vals)
	if lo == hi {
		h.Bins = []Bin{{Lo: lo - 0.5, Hi: hi + 0.5, Count: len(vals)}}
		return h, nil
	}
	width := (hi - lo) / HistogramBins
	h.Bins = make([]Bin, HistogramBins)
	for i := range h.Bins {
		h.Bins[i].Lo = lo + float64(i)*width
		h.Bins[i].Hi = lo + float64(i+1)*width
	}
	h.Bins[HistogramBins-1].Hi = hi
	for _, v := range vals {
		i := int((v - lo) / width)
		if i >= HistogramBins {
			i = HistogramBins - 1
		}
		h.Bins[i].Count++
	}
	return h, nil
}

// Box summarises one variable. The statistics are Undefined when Count is 0.
type Box struct {
	Variable     string        `json:"variable"`
	Color        Color         `json:"color"`
	Count        int           `json:"count"`
	LowerWhisker dataset.Value `json:"lower_whisker"`
	Q1           dataset.Value `json:"q1"`
	Median       dataset.Value `json:"median"`
	Q3           dataset.Value `json:"q3"`
	UpperWhisker dataset.Value `json:"upper_whisker"`
	Outliers     []float64     `json:"outliers"`
	Values       []float64     `json:"-"`
}

type BoxPlot struct {
	Title  string `json:"title"`
	YLabel string `json:"y_label"`
	Boxes  []Box  `json:"boxes"`
}

// Empty reports whether no box has data.
func (b *BoxPlot) Empty() bool {
	for _, box := range b.Boxes {
		if box.Count > 0 {
			return false
		}
	}
	return true
}

// NewBoxPlot melts columns into long form and summarises each variable.
// Whiskers reach the most extreme values within 1.5 IQR of the quartiles.
func NewBoxPlot(t *dataset.Table, columns []string) (*BoxPlot, error) {
	long, err := dataset.Melt(t, columns...)
	if err != nil {
		return nil, err
	}
	vars, groups := long.Group()
	bp := &BoxPlot{Title: "Distribution & Outliers (Boxplot)", YLabel: "Value"}
	for i, name := range vars {
		vals := dataset.Finite(groups[name])
		slices.Sort(vals)
		box := Box{
			Variable:     name,
			Color:        SeriesColor(i, name),
			Count:        len(vals),
			Values:       vals,
			LowerWhisker: dataset.Undefined,
			Q1:           dataset.Undefined,
			Median:       dataset.Undefined,
			Q3:           dataset.Undefined,
			UpperWhisker: dataset.Undefined,
		}
		if len(vals) > 0 {
			q1 := dataset.Quantile(vals, 0.25)
			q3 := dataset.Quantile(vals, 0.75)
			iqr := q3 - q1
			lowFence, highFence := q1-1.5*iqr, q3+1.5*iqr
			lo, hi := math.Inf(1), math.Inf(-1)
			for _, v := range vals {
				if v < lowFence || v > highFence {
					box.Outliers = append(box.Outliers, v)
					continue
				}
				lo = min(lo, v)
				hi = max(hi, v)
			}
			box.Q1 = dataset.Value(q1)
			box.Median = dataset.Value(dataset.Quantile(vals, 0.5))
			box.Q3 = dataset.Value(q3)
			box.LowerWhisker, box.UpperWhisker = dataset.Value(lo), dataset.Value(hi)
		}
		bp.Boxes = append(bp.Boxes, box)
	}
	return bp, nil
}

// Table is a static text table.
type Table struct {
	Title   string     `json:"title"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// TopN lists the n rows with the largest values of column, projected to
// TopColumns.
func TopN(t *dataset.Table, column string, n int) (*Table, error) {
	top, err := t.NLargest(n, column)
	if err != nil {
		return nil, err
	}
	out := &Table{
		Title:   "Top High-" + column + " Events",
		Columns: slices.Clone(TopColumns),
		Rows:    make([][]string, 0, top.Len()),
	}
	ts := top.Timestamps()
	for i := range top.Len() {
		row := make([]string, 0, len(TopColumns))
		row = append(row, ts[i].Format(timestampFormat))
		for _, c := range TopColumns[1:] {
			row = append(row, dataset.Value(top.Value(c, i)).String())
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// SummaryTable lays out dataset.Describe with statistics as rows and columns
// as columns.
func SummaryTable(t *dataset.Table) *Table {
	desc := dataset.Describe(t)
	out := &Table{
		Title:   "Summary Statistics",
		Columns: []string{""},
	}
	for _, d := range desc {
		out.Columns = append(out.Columns, d.Column)
	}
	stats := []struct {
		name string
		get  func(dataset.Description) string
	}{
		{"count", func(d dataset.Description) string { return fmt.Sprintf("%d", d.Count) }},
		{"mean", func(d dataset.Description) string { return d.Mean.String() }},
		{"std", func(d dataset.Description) string { return d.Std.String() }},
		{"min", func(d dataset.Description) string { return d.Min.String() }},
		{"25%", func(d dataset.Description) string { return d.P25.String() }},
		{"50%", func(d dataset.Description) string { return d.P50.String() }},
		{"75%", func(d dataset.Description) string { return d.P75.String() }},
		{"max", func(d dataset.Description) string { return d.Max.String() }},
	}
	for _, s := range stats {
		row := []string{s.name}
		for _, d := range desc {
			row = append(row, s.get(d))
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}
