package render

import (
	"bytes"
	"image/png"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/lox/solardash/internal/charts"
	"github.com/lox/solardash/internal/dataset"
)

func sample() *dataset.Table {
	b := dataset.NewBuilder("GHI", "DNI", "DHI", "Tamb", "WS")
	start := time.Date(2021, 8, 9, 0, 0, 0, 0, time.UTC)
	for i := range 48 {
		x := float64(i)
		dni := 300 + 2*x
		if i == 10 {
			dni = math.NaN()
		}
		b.Append(start.Add(time.Duration(i)*time.Hour), 500+10*x, dni, 100+x, 25+x/10, 1+math.Mod(x, 5))
	}
	return b.Table()
}

func renderPNG(t *testing.T, chart any) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, PNG(&buf, chart, 4*vg.Inch, 3*vg.Inch))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 4*96, img.Bounds().Dx())
}

func TestPNG_AllCharts(t *testing.T) {
	tbl := sample()

	ts, err := charts.IrradianceTimeSeries(tbl)
	require.NoError(t, err)
	bp, err := charts.NewBoxPlot(tbl, []string{"GHI", "DNI", "DHI"})
	require.NoError(t, err)
	hist, err := charts.NewHistogram(tbl, "WS")
	require.NoError(t, err)

	for name, c := range map[string]any{
		"timeseries": ts,
		"boxplot":    bp,
		"heatmap":    charts.CorrelationHeatmap(tbl),
		"histogram":  hist,
	} {
		t.Run(name, func(t *testing.T) {
			renderPNG(t, c)
		})
	}
}

func TestPNG_EmptyChartsUsePlaceholder(t *testing.T) {
	empty := dataset.NewBuilder("GHI", "DNI", "DHI", "WS").Table()

	ts, err := charts.IrradianceTimeSeries(empty)
	require.NoError(t, err)
	hist, err := charts.NewHistogram(empty, "WS")
	require.NoError(t, err)

	renderPNG(t, ts)
	renderPNG(t, hist)
	renderPNG(t, charts.CorrelationHeatmap(dataset.Empty()))
}

func TestPlot_EmptyRangeHeatmapUsesPlaceholder(t *testing.T) {
	tbl := sample()

	full, err := Plot(charts.CorrelationHeatmap(tbl))
	require.NoError(t, err)
	assert.NotZero(t, full.X.Width)

	day := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	hm := charts.CorrelationHeatmap(tbl.FilterDates(day, day))
	require.NotEmpty(t, hm.Labels)
	p, err := Plot(hm)
	require.NoError(t, err)
	assert.Zero(t, p.X.Width, "placeholder hides the axes")
	renderPNG(t, hm)
}

func TestNewBox_UsesDescribedQuartiles(t *testing.T) {
	tbl := dataset.NewBuilder("GHI")
	start := time.Date(2021, 8, 9, 0, 0, 0, 0, time.UTC)
	for i, v := range []float64{1, 2, 3, 4} {
		tbl.Append(start.Add(time.Duration(i)*time.Hour), v)
	}
	bp, err := charts.NewBoxPlot(tbl.Table(), []string{"GHI"})
	require.NoError(t, err)
	want := bp.Boxes[0]
	require.Equal(t, dataset.Value(1.75), want.Q1)

	box, err := newBox(want, 0)
	require.NoError(t, err)
	assert.Equal(t, float64(want.Q1), box.Quartile1)
	assert.Equal(t, float64(want.Median), box.Median)
	assert.Equal(t, float64(want.Q3), box.Quartile3)
	assert.Equal(t, float64(want.LowerWhisker), box.AdjLow)
	assert.Equal(t, float64(want.UpperWhisker), box.AdjHigh)
	assert.Empty(t, box.Outside)
}

func TestNewBox_Outliers(t *testing.T) {
	tbl := dataset.NewBuilder("GHI")
	start := time.Date(2021, 8, 9, 0, 0, 0, 0, time.UTC)
	for i, v := range []float64{1, 2, 3, 4, 5, 6, 7, 8, 100} {
		tbl.Append(start.Add(time.Duration(i)*time.Hour), v)
	}
	bp, err := charts.NewBoxPlot(tbl.Table(), []string{"GHI"})
	require.NoError(t, err)

	box, err := newBox(bp.Boxes[0], 0)
	require.NoError(t, err)
	require.Len(t, box.Outside, 1)
	assert.Equal(t, 100.0, box.Values[box.Outside[0]])
	assert.Equal(t, 8.0, box.AdjHigh)
}

func TestPlot_Unsupported(t *testing.T) {
	_, err := Plot(struct{}{})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestDecimate(t *testing.T) {
	xys := make(plotter.XYs, 10000)
	for i := range xys {
		xys[i] = plotter.XY{X: float64(i), Y: math.Sin(float64(i) / 100)}
	}
	xys[5000].Y = 42

	out := decimate(xys, 200)

	assert.LessOrEqual(t, len(out), 200)
	maxY := math.Inf(-1)
	for i := 1; i < len(out); i++ {
		assert.Less(t, out[i-1].X, out[i].X)
		maxY = math.Max(maxY, out[i].Y)
	}
	assert.Equal(t, 42.0, maxY, "spikes survive")
}

func TestSegments(t *testing.T) {
	xys := plotter.XYs{{X: 0, Y: 1}, {X: 1, Y: math.NaN()}, {X: 2, Y: 2}, {X: 3, Y: 3}, {X: 4, Y: math.NaN()}}

	segs := segments(xys)

	require.Len(t, segs, 2)
	assert.Len(t, segs[0], 1)
	assert.Len(t, segs[1], 2)
}
