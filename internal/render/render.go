// Package render draws chart descriptions as raster images with gonum/plot.
package render

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"golang.org/x/image/colornames"

	"github.com/lox/solardash/internal/charts"
)

// Default canvas size used by the dashboard.
const (
	DefaultWidth  = 10 * vg.Inch
	DefaultHeight = 5 * vg.Inch
)

// maxLinePoints bounds the points drawn per line series. Longer series are
// reduced to the min and max of each bucket.
const maxLinePoints = 2000

const noData = "No data available for the selected range"

var ErrUnsupported = errors.New("render: unsupported chart")

// PNG renders chart into w.
func PNG(w io.Writer, chart any, width, height vg.Length) error {
	p, err := Plot(chart)
	if err != nil {
		return err
	}
	return writePNG(w, p, width, height)
}

// PlaceholderPNG renders a Placeholder into w.
func PlaceholderPNG(w io.Writer, title, message string, width, height vg.Length) error {
	p, err := Placeholder(title, message)
	if err != nil {
		return err
	}
	return writePNG(w, p, width, height)
}

func writePNG(w io.Writer, p *plot.Plot, width, height vg.Length) error {
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// Plot builds the gonum plot for a chart description.
func Plot(chart any) (*plot.Plot, error) {
	switch c := chart.(type) {
	case *charts.LineChart:
		return linePlot(c)
	case *charts.BoxPlot:
		return boxPlot(c)
	case *charts.Heatmap:
		return heatmapPlot(c)
	case *charts.Histogram:
		return histogramPlot(c)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupported, chart)
	}
}

// Placeholder returns a plot with a title and a single centred message.
func Placeholder(title, message string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.HideAxes()
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1

	l, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    []plotter.XY{{X: 0.5, Y: 0.5}},
		Labels: []string{message},
	})
	if err != nil {
		return nil, err
	}
	l.TextStyle[0].XAlign = draw.XCenter
	l.TextStyle[0].YAlign = draw.YCenter
	l.TextStyle[0].Color = colornames.Dimgray
	l.TextStyle[0].Font.Size = vg.Points(14)
	p.Add(l)
	return p, nil
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())
	return p
}

func linePlot(c *charts.LineChart) (*plot.Plot, error) {
	if c.Empty() {
		return Placeholder(c.Title, noData)
	}
	p := newPlot(c.Title, c.XLabel, c.YLabel)
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.Legend.Top = true

	for _, s := range c.Series {
		xys := make(plotter.XYs, 0, len(s.Points))
		for _, pt := range s.Points {
			xys = append(xys, plotter.XY{X: float64(pt.T.Unix()), Y: float64(pt.V)})
		}
		var legend plot.Thumbnailer
		for _, seg := range segments(decimate(xys, maxLinePoints)) {
			line, err := plotter.NewLine(seg)
			if err != nil {
				return nil, fmt.Errorf("render %s: %w", s.Name, err)
			}
			line.Color = s.Color
			line.Width = vg.Points(1)
			p.Add(line)
			if legend == nil {
				legend = line
			}
		}
		if legend != nil {
			p.Legend.Add(s.Name, legend)
		}
	}
	return p, nil
}

// decimate keeps the minimum and maximum of each of n/2 buckets, in order.
// A bucket holding only gaps keeps one gap.
func decimate(xys plotter.XYs, n int) plotter.XYs {
	if len(xys) <= n {
		return xys
	}
	buckets := n / 2
	size := int(math.Ceil(float64(len(xys)) / float64(buckets)))
	out := make(plotter.XYs, 0, n)
	for start := 0; start < len(xys); start += size {
		end := min(start+size, len(xys))
		lo, hi := -1, -1
		for i := start; i < end; i++ {
			y := xys[i].Y
			if math.IsNaN(y) {
				continue
			}
			if lo < 0 || y < xys[lo].Y {
				lo = i
			}
			if hi < 0 || y > xys[hi].Y {
				hi = i
			}
		}
		switch {
		case lo < 0:
			out = append(out, xys[start])
		case lo == hi:
			out = append(out, xys[lo])
		case lo < hi:
			out = append(out, xys[lo], xys[hi])
		default:
			out = append(out, xys[hi], xys[lo])
		}
	}
	return out
}

// segments splits xys at NaN values into runs gonum can draw.
func segments(xys plotter.XYs) []plotter.XYs {
	var out []plotter.XYs
	start := -1
	for i, xy := range xys {
		if math.IsNaN(xy.Y) || math.IsInf(xy.Y, 0) {
			if start >= 0 {
				out = append(out, xys[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, xys[start:])
	}
	return out
}

func boxPlot(c *charts.BoxPlot) (*plot.Plot, error) {
	if c.Empty() {
		return Placeholder(c.Title, noData)
	}
	p := newPlot(c.Title, "Variable", c.YLabel)

	names := make([]string, len(c.Boxes))
	for i, b := range c.Boxes {
		names[i] = b.Variable
		if b.Count == 0 {
			continue
		}
		box, err := newBox(b, float64(i))
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", b.Variable, err)
		}
		p.Add(box)
	}
	p.NominalX(names...)
	return p, nil
}

// newBox draws b at x with the quartiles, whiskers and outliers of b, not
// gonum's own.
func newBox(b charts.Box, x float64) (*plotter.BoxPlot, error) {
	box, err := plotter.NewBoxPlot(vg.Points(20), x, plotter.Values(b.Values))
	if err != nil {
		return nil, err
	}
	box.FillColor = b.Color
	box.Median = float64(b.Median)
	box.Quartile1 = float64(b.Q1)
	box.Quartile3 = float64(b.Q3)
	box.AdjLow = float64(b.LowerWhisker)
	box.AdjHigh = float64(b.UpperWhisker)
	box.Outside = box.Outside[:0]
	for i, v := range b.Values {
		if v < box.AdjLow || v > box.AdjHigh {
			box.Outside = append(box.Outside, i)
		}
	}
	return box, nil
}

func histogramPlot(c *charts.Histogram) (*plot.Plot, error) {
	if len(c.Bins) == 0 {
		return Placeholder(c.Title, noData)
	}
	p := newPlot(c.Title, c.Column, "Count")

	bins := make([]plotter.HistogramBin, len(c.Bins))
	for i, b := range c.Bins {
		bins[i] = plotter.HistogramBin{Min: b.Lo, Max: b.Hi, Weight: float64(b.Count)}
	}
	h := &plotter.Histogram{
		Bins:      bins,
		Width:     c.Bins[0].Hi - c.Bins[0].Lo,
		FillColor: c.Color,
	}
	h.LineStyle = plotter.DefaultLineStyle
	h.LineStyle.Color = colornames.White
	p.Add(h)
	return p, nil
}

// grid adapts a square correlation matrix to plotter.GridXYZ with the first
// label on the top row.
type grid struct {
	values [][]float64
}

func (g grid) Dims() (c, r int) {
	n := len(g.values)
	return n, n
}

func (g grid) Z(c, r int) float64 {
	n := len(g.values)
	return g.values[n-1-r][c]
}

func (g grid) X(c int) float64 { return float64(c) }
func (g grid) Y(r int) float64 { return float64(r) }

func heatmapPlot(c *charts.Heatmap) (*plot.Plot, error) {
	n := len(c.Labels)
	if c.Empty() {
		return Placeholder(c.Title, noData)
	}
	p := newPlot(c.Title, "", "")

	g := grid{values: make([][]float64, n)}
	for i, row := range c.Values {
		g.values[i] = make([]float64, n)
		for j, v := range row {
			f := float64(v)
			if !math.IsNaN(f) {
				f = math.Max(c.Min, math.Min(c.Max, f))
			}
			g.values[i][j] = f
		}
	}

	cm := moreland.SmoothBlueRed()
	cm.SetMin(c.Min)
	cm.SetMax(c.Max)
	hm := plotter.NewHeatMap(g, cm.Palette(255))
	hm.Min, hm.Max = c.Min, c.Max
	hm.NaN = colornames.Lightgray
	p.Add(hm)

	xTicks := make([]plot.Tick, n)
	yTicks := make([]plot.Tick, n)
	var xys []plotter.XY
	var labels []string
	for i, name := range c.Labels {
		xTicks[i] = plot.Tick{Value: float64(i), Label: name}
		yTicks[i] = plot.Tick{Value: float64(n - 1 - i), Label: name}
		for j := range c.Labels {
			xys = append(xys, plotter.XY{X: float64(j), Y: float64(n - 1 - i)})
			labels = append(labels, c.Values[i][j].String())
		}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xTicks)
	p.Y.Tick.Marker = plot.ConstantTicks(yTicks)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	annot, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
	if err != nil {
		return nil, err
	}
	for i := range annot.TextStyle {
		annot.TextStyle[i].XAlign = draw.XCenter
		annot.TextStyle[i].YAlign = draw.YCenter
		annot.TextStyle[i].Color = color.Black
	}
	p.Add(annot)
	return p, nil
}
