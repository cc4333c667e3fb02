package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/lox/solardash/internal/charts"
	"github.com/lox/solardash/internal/dataset"
	"github.com/lox/solardash/internal/metrics"
	"github.com/lox/solardash/internal/models"
	"github.com/lox/solardash/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleAPICountries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.countries.All())
}

// SummaryResponse is the /api/summary payload.
type SummaryResponse struct {
	Country models.Country  `json:"country"`
	Start   string          `json:"start,omitempty"`
	End     string          `json:"end,omitempty"`
	MinDate string          `json:"min_date,omitempty"`
	MaxDate string          `json:"max_date,omitempty"`
	Metrics dataset.Metrics `json:"metrics"`
}

func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	sel, err := s.selectData(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if sel.Missing != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": noticeText(sel.Missing)})
		return
	}
	resp := SummaryResponse{
		Country: sel.Country,
		Metrics: dataset.Summarize(sel.Table),
	}
	if !sel.Start.IsZero() {
		resp.Start = sel.Start.Format(dateLayout)
		resp.End = sel.End.Format(dateLayout)
		resp.MinDate = sel.MinDate.Format(dateLayout)
		resp.MaxDate = sel.MaxDate.Format(dateLayout)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAPIChart(w http.ResponseWriter, r *http.Request) {
	kind := charts.Kind(r.PathValue("kind"))
	if !slices.Contains(charts.Kinds, kind) {
		http.NotFound(w, r)
		return
	}
	sel, err := s.selectData(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if sel.Missing != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": noticeText(sel.Missing)})
		return
	}

	start := time.Now()
	chart, err := buildChart(kind, sel.Table, r.URL.Query())
	if errors.Is(err, errUnknownChart) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	metrics.ChartRenderLatency.WithLabelValues(string(kind), "json").Observe(time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, chart)
}

type HealthStatus struct {
	Status    string              `json:"status"`
	Source    string              `json:"source"`
	Countries []CountryHealth     `json:"countries"`
	Loads     []store.DatasetLoad `json:"recent_loads,omitempty"`
	Schema    int                 `json:"schema_version,omitempty"`
	Errors    []string            `json:"errors,omitempty"`
}

type CountryHealth struct {
	Key       string `json:"key"`
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	src := s.cache.Source()
	health := HealthStatus{
		Status: "ok",
		Source: src.Name(),
	}

	for _, c := range s.countries.All() {
		ch := CountryHealth{Key: c.Key}
		version, err := src.Version(r.Context(), c)
		switch {
		case errors.Is(err, dataset.ErrNotFound):
			health.Status = "degraded"
		case err != nil:
			health.Errors = append(health.Errors, c.Key+": "+err.Error())
		default:
			ch.Available = true
			ch.Version = version
		}
		health.Countries = append(health.Countries, ch)
	}

	if s.store != nil {
		loads, err := s.store.RecentLoads(r.Context(), 10)
		if err != nil {
			health.Errors = append(health.Errors, "recent loads: "+err.Error())
		}
		health.Loads = loads
		if v, err := s.store.MigrationVersion(); err == nil {
			health.Schema = v
		}
	}

	if len(health.Errors) > 0 {
		health.Status = "error"
	}

	status := http.StatusOK
	if health.Status == "error" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}
