package api

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/lox/solardash/internal/charts"
	"github.com/lox/solardash/internal/dataset"
	"github.com/lox/solardash/internal/metrics"
)

const missingDataInfo = "Please ensure the CSV files are located in the 'data/' directory."

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sel, err := s.selectData(r)
	if err != nil {
		metrics.PageRendersTotal.WithLabelValues("index", "error").Inc()
		s.writeError(w, r, err)
		return
	}

	data, err := s.dashboardData(sel, r.URL.Query().Get("tab"))
	if err != nil {
		metrics.PageRendersTotal.WithLabelValues("index", "error").Inc()
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, "index.html", data); err != nil {
		metrics.PageRendersTotal.WithLabelValues("index", "error").Inc()
		s.writeError(w, r, err)
		return
	}
	status := "ok"
	if sel.Missing != nil {
		status = "missing"
	}
	metrics.PageRendersTotal.WithLabelValues("index", status).Inc()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (s *Server) dashboardData(sel *selection, tab string) (*DashboardData, error) {
	data := &DashboardData{
		Title:   "Solar Radiation Dashboard",
		Country: sel.Country,
	}
	for _, c := range s.countries.All() {
		data.Countries = append(data.Countries, CountryOption{
			Key:      c.Key,
			Name:     c.Name,
			Selected: c.Key == sel.Country.Key,
		})
	}

	if sel.Missing != nil {
		data.Notice = noticeText(sel.Missing)
		data.Info = missingDataInfo
		return data, nil
	}

	if !sel.Start.IsZero() {
		data.Start = sel.Start.Format(dateLayout)
		data.End = sel.End.Format(dateLayout)
		data.MinDate = sel.MinDate.Format(dateLayout)
		data.MaxDate = sel.MaxDate.Format(dateLayout)
	}

	data.Tab = tabVisualization
	for _, t := range tabs {
		if t.Key == tab {
			data.Tab = tab
		}
	}
	for _, t := range tabs {
		t.Active = t.Key == data.Tab
		t.URL = template.URL("/?" + sel.query("tab", t.Key).Encode())
		data.Tabs = append(data.Tabs, t)
	}

	data.Rows = sel.Table.Len()
	data.Metrics = metricCards(dataset.Summarize(sel.Table))
	data.ExportURL = template.URL("/export.xlsx?" + sel.query().Encode())

	switch data.Tab {
	case tabVisualization:
		data.TimeSeriesURL = chartURL(sel, charts.KindTimeSeries)
		data.BoxPlotURL = chartURL(sel, charts.KindBoxPlot)
	case tabStatistics:
		data.Summary = charts.SummaryTable(sel.Table)
		top, err := charts.TopN(sel.Table, dataset.ColGHI, charts.TopRows)
		if err != nil {
			return nil, err
		}
		data.Top = top
	case tabWind:
		data.HeatmapURL = chartURL(sel, charts.KindHeatmap)
		data.HistogramURL = template.URL("/charts/" + string(charts.KindHistogram) + "?" +
			sel.query("column", dataset.ColWS).Encode())
	}
	return data, nil
}

func chartURL(sel *selection, kind charts.Kind) template.URL {
	return template.URL("/charts/" + string(kind) + "?" + sel.query().Encode())
}
