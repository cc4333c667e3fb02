package api

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"time"

	"gonum.org/v1/plot/vg"

	"github.com/lox/solardash/internal/charts"
	"github.com/lox/solardash/internal/dataset"
	"github.com/lox/solardash/internal/metrics"
	"github.com/lox/solardash/internal/render"
)

var errUnknownChart = errors.New("unknown chart")

var chartTitles = map[charts.Kind]string{
	charts.KindTimeSeries: "GHI, DNI, and DHI Trends",
	charts.KindBoxPlot:    "Distribution & Outliers (Boxplot)",
	charts.KindHeatmap:    "Correlation Between Variables",
	charts.KindHistogram:  "Distribution",
}

// imageKinds can be rendered as PNG; the others are tables.
var imageKinds = map[charts.Kind]struct{ w, h vg.Length }{
	charts.KindTimeSeries: {render.DefaultWidth, render.DefaultHeight},
	charts.KindBoxPlot:    {render.DefaultWidth, render.DefaultHeight},
	charts.KindHeatmap:    {7 * vg.Inch, 6 * vg.Inch},
	charts.KindHistogram:  {7 * vg.Inch, 6 * vg.Inch},
}

// buildChart computes the description of one chart kind for t.
func buildChart(kind charts.Kind, t *dataset.Table, q url.Values) (any, error) {
	switch kind {
	case charts.KindTimeSeries:
		return charts.IrradianceTimeSeries(t)
	case charts.KindBoxPlot:
		return charts.NewBoxPlot(t, present(t, charts.BoxPlotColumns))
	case charts.KindHeatmap:
		return charts.CorrelationHeatmap(t), nil
	case charts.KindHistogram:
		column := histogramColumn(q)
		if !t.Has(column) {
			return nil, badRequest("unknown column %q", column)
		}
		return charts.NewHistogram(t, column)
	case charts.KindTop:
		return charts.TopN(t, dataset.ColGHI, charts.TopRows)
	case charts.KindDescribe:
		return charts.SummaryTable(t), nil
	}
	return nil, errUnknownChart
}

func histogramColumn(q url.Values) string {
	if c := q.Get("column"); c != "" {
		return c
	}
	return dataset.ColWS
}

// present keeps the columns that exist in t.
func present(t *dataset.Table, cols []string) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if t.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

func (s *Server) handleChartImage(w http.ResponseWriter, r *http.Request) {
	kind := charts.Kind(r.PathValue("kind"))
	size, ok := imageKinds[kind]
	if !ok {
		http.NotFound(w, r)
		return
	}

	sel, err := s.selectData(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	key := s.imageKey(r, sel, kind)
	if s.images != nil && key != "" {
		if data, ok := s.images.Get(key); ok {
			writePNG(w, data)
			return
		}
	}

	start := time.Now()
	var buf bytes.Buffer
	if sel.Missing != nil {
		err = render.PlaceholderPNG(&buf, chartTitles[kind], noticeText(sel.Missing), size.w, size.h)
	} else {
		var chart any
		chart, err = buildChart(kind, sel.Table, r.URL.Query())
		if err == nil {
			err = render.PNG(&buf, chart, size.w, size.h)
		}
	}
	metrics.ChartRenderLatency.WithLabelValues(string(kind), "png").Observe(time.Since(start).Seconds())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if s.images != nil && key != "" {
		if err := s.images.Set(key, buf.Bytes()); err != nil {
			s.log.Warn("cache chart", "kind", kind, "error", err)
		}
	}
	writePNG(w, buf.Bytes())
}

// imageKey identifies a rendered chart by the dataset version the request
// actually loaded. It is empty when that version is unknown, which disables
// caching for the request.
func (s *Server) imageKey(r *http.Request, sel *selection, kind charts.Kind) string {
	if sel.Missing != nil || sel.Version == "" {
		return ""
	}
	return render.Key(
		s.cache.Source().Name(),
		sel.Country.Key,
		sel.Version,
		string(kind),
		sel.Start.Format(dateLayout),
		sel.End.Format(dateLayout),
		histogramColumn(r.URL.Query()),
	)
}

func writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Write(data)
}
