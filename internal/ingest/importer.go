// Package ingest imports country datasets into the store, running per-row
// quality checks on the way.
package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"log/slog"
	"math"

	"github.com/lox/solardash/internal/dataset"
	"github.com/lox/solardash/internal/metrics"
	"github.com/lox/solardash/internal/models"
	"github.com/lox/solardash/internal/store"
)

// ReadingStore is the part of the store used by the importer.
type ReadingStore interface {
	StartImportRun(ctx context.Context, country, sourcePath string) (*store.ImportRun, error)
	CompleteImportRun(ctx context.Context, run *store.ImportRun) error
	ReplaceReadings(ctx context.Context, country string, importID int64, readings iter.Seq[models.Reading]) (int64, error)
}

type Importer struct {
	src   *dataset.FileSource
	store ReadingStore
	log   *slog.Logger
}

func NewImporter(src *dataset.FileSource, st ReadingStore, log *slog.Logger) *Importer {
	if log == nil {
		log = slog.Default()
	}
	return &Importer{src: src, store: st, log: log.With("component", "import")}
}

// Result summarises one import.
type Result struct {
	Country     string
	RowsRead    int
	RowsStored  int64
	RowsFlagged int
	Flags       map[string]int
}

// Import loads the country's CSV and replaces its stored readings. Rows that
// fail quality checks are stored as read and counted per flag.
func (im *Importer) Import(ctx context.Context, country models.Country) (*Result, error) {
	path := im.src.Path(country)
	run, err := im.store.StartImportRun(ctx, country.Key, path)
	if err != nil {
		return nil, fmt.Errorf("start import run: %w", err)
	}

	res, err := im.importTable(ctx, country, run.ID)
	if res != nil {
		run.RowsRead = sql.NullInt64{Int64: int64(res.RowsRead), Valid: true}
		run.RowsStored = sql.NullInt64{Int64: res.RowsStored, Valid: true}
		run.RowsFlagged = sql.NullInt64{Int64: int64(res.RowsFlagged), Valid: true}
		if js := FlagCountsToJSON(res.Flags); js != "" {
			run.FlagCounts = sql.NullString{String: js, Valid: true}
		}
	}
	run.Success = err == nil
	if err != nil {
		run.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
	}
	if cerr := im.store.CompleteImportRun(context.WithoutCancel(ctx), run); cerr != nil {
		im.log.Warn("complete import run", "country", country.Key, "error", cerr)
	}
	if err != nil {
		return nil, err
	}

	metrics.RowsImported.WithLabelValues(country.Key).Add(float64(res.RowsStored))
	for flag, n := range res.Flags {
		metrics.RowsFlagged.WithLabelValues(country.Key, flag).Add(float64(n))
	}
	im.log.Info("import complete",
		"country", country.Key,
		"path", path,
		"rows", res.RowsStored,
		"flagged", res.RowsFlagged,
	)
	return res, nil
}

func (im *Importer) importTable(ctx context.Context, country models.Country, importID int64) (*Result, error) {
	t, err := im.src.Load(ctx, country)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", country.Key, err)
	}

	res := &Result{Country: country.Key, RowsRead: t.Len(), Flags: make(map[string]int)}
	readings := func(yield func(models.Reading) bool) {
		for r := range Readings(t, country.Key) {
			if flags := ValidateReading(&r); len(flags) > 0 {
				res.RowsFlagged++
				for _, f := range flags {
					res.Flags[f]++
				}
			}
			if !yield(r) {
				return
			}
		}
	}

	res.RowsStored, err = im.store.ReplaceReadings(ctx, country.Key, importID, readings)
	if err != nil {
		// the transaction rolled back
		res.RowsStored = 0
		return res, fmt.Errorf("store %s: %w", country.Key, err)
	}
	return res, nil
}

// Readings yields the rows of t as readings. Columns absent from t and NaN
// cells become NULL.
func Readings(t *dataset.Table, country string) iter.Seq[models.Reading] {
	return func(yield func(models.Reading) bool) {
		cols := make([][]float64, len(models.ReadingColumns))
		for i, name := range models.ReadingColumns {
			cols[i], _ = t.Column(name)
		}
		for row, ts := range t.Timestamps() {
			r := models.Reading{Country: country, Timestamp: ts}
			for i, name := range models.ReadingColumns {
				if cols[i] == nil || math.IsNaN(cols[i][row]) {
					continue
				}
				*r.Field(name) = sql.NullFloat64{Float64: cols[i][row], Valid: true}
			}
			if !yield(r) {
				return
			}
		}
	}
}
