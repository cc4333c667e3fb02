package api

import (
	"html/template"

	"github.com/lox/solardash/internal/charts"
	"github.com/lox/solardash/internal/dataset"
	"github.com/lox/solardash/internal/models"
)

// DashboardData is everything index.html renders.
type DashboardData struct {
	Title     string
	Countries []CountryOption
	Country   models.Country

	// Date picker state. Empty when no dataset is loaded.
	Start, End       string
	MinDate, MaxDate string

	// Notice replaces the dashboard body when the dataset is missing.
	Notice string
	Info   string

	Rows    int
	Metrics []MetricCard
	Tabs    []TabOption
	Tab     string

	TimeSeriesURL template.URL
	BoxPlotURL    template.URL
	HeatmapURL    template.URL
	HistogramURL  template.URL
	ExportURL     template.URL

	Summary *charts.Table
	Top     *charts.Table
}

type CountryOption struct {
	Key      string
	Name     string
	Selected bool
}

type MetricCard struct {
	Label string
	Value string
}

type TabOption struct {
	Key    string
	Label  string
	Icon   string
	URL    template.URL
	Active bool
}

const (
	tabVisualization = "visualization"
	tabStatistics    = "statistics"
	tabWind          = "wind"
)

var tabs = []TabOption{
	{Key: tabVisualization, Label: "Data Visualization", Icon: "📊"},
	{Key: tabStatistics, Label: "Statistics & Top Values", Icon: "📈"},
	{Key: tabWind, Label: "Wind & Correlations", Icon: "🌪️"},
}

func metricCards(m dataset.Metrics) []MetricCard {
	return []MetricCard{
		{Label: "Avg GHI (W/m²)", Value: m.AvgGHI.String()},
		{Label: "Avg DNI (W/m²)", Value: m.AvgDNI.String()},
		{Label: "Avg Temp (°C)", Value: m.AvgTamb.String()},
		{Label: "Max Wind Speed (m/s)", Value: m.MaxWS.String()},
	}
}

// noticeText is the message shown when a dataset is missing.
func noticeText(nf *dataset.NotFoundError) string {
	msg := "File not found: " + nf.Path + "."
	if nf.Hint != "" {
		msg += " " + nf.Hint
	}
	return msg
}
