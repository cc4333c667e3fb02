package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/lox/solardash/internal/dataset"
	"github.com/lox/solardash/internal/models"
)

const dateLayout = "2006-01-02"

// selection is the dataset slice a request asks for.
type selection struct {
	Country models.Country
	// Full is the whole dataset; Table is Full restricted to [Start, End].
	Full  *dataset.Table
	Table *dataset.Table
	// Missing is set when the dataset does not exist.
	Missing *dataset.NotFoundError
	// Version is the source version Full was loaded at.
	Version string

	MinDate, MaxDate time.Time
	Start, End       time.Time
}

// requestError is an input problem reported to the client as 400.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// selectData resolves the country and date range of a request and loads the
// filtered table. Requested dates are clamped into the dataset's bounds.
func (s *Server) selectData(r *http.Request) (*selection, error) {
	q := r.URL.Query()
	country := s.countries.Default()
	if key := q.Get("country"); key != "" {
		c, ok := s.countries.Lookup(key)
		if !ok {
			return nil, badRequest("unknown country %q", key)
		}
		country = c
	}

	start, err := parseDate(q, "start")
	if err != nil {
		return nil, err
	}
	end, err := parseDate(q, "end")
	if err != nil {
		return nil, err
	}

	full, version, err := s.cache.GetVersion(r.Context(), country)
	sel := &selection{Country: country, Full: full, Version: version}
	var nf *dataset.NotFoundError
	switch {
	case errors.As(err, &nf):
		sel.Missing = nf
		sel.Full = dataset.Empty()
		sel.Table = sel.Full
		return sel, nil
	case err != nil:
		return nil, fmt.Errorf("load %s: %w", country.Key, err)
	}

	first, last, ok := full.DateBounds()
	if !ok {
		sel.Table = full
		return sel, nil
	}
	sel.MinDate, sel.MaxDate = first, last
	sel.Start, sel.End = clamp(start, first, last, first), clamp(end, first, last, last)
	sel.Table = full.FilterDates(sel.Start, sel.End)
	return sel, nil
}

func parseDate(q url.Values, name string) (time.Time, error) {
	v := q.Get(name)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, badRequest("invalid %s date %q (want YYYY-MM-DD)", name, v)
	}
	return t, nil
}

func clamp(t, lo, hi, def time.Time) time.Time {
	switch {
	case t.IsZero():
		return def
	case t.Before(lo):
		return lo
	case t.After(hi):
		return hi
	}
	return t
}

// query returns the URL query identifying sel, plus any extra pairs.
func (sel *selection) query(extra ...string) url.Values {
	q := url.Values{}
	q.Set("country", sel.Country.Key)
	if !sel.Start.IsZero() {
		q.Set("start", sel.Start.Format(dateLayout))
		q.Set("end", sel.End.Format(dateLayout))
	}
	for i := 0; i+1 < len(extra); i += 2 {
		q.Set(extra[i], extra[i+1])
	}
	return q
}

// writeError maps err onto an HTTP status and logs server-side failures.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var re *requestError
	if errors.As(err, &re) {
		http.Error(w, re.msg, http.StatusBadRequest)
		return
	}
	s.log.Error("request failed", "path", r.URL.Path, "error", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
