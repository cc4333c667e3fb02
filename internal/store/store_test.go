package store

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"slices"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lox/solardash/internal/dataset"
	"github.com/lox/solardash/internal/models"
)

var benin = models.Country{Key: "benin", Name: "Benin", File: "benin_clean.csv"}

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store := New(db, nil)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func reading(ts time.Time, ghi float64) models.Reading {
	r := models.Reading{Country: "benin", Timestamp: ts}
	r.GHI = sql.NullFloat64{Float64: ghi, Valid: true}
	r.DNI = sql.NullFloat64{Float64: ghi / 2, Valid: true}
	r.DHI = sql.NullFloat64{Float64: ghi / 4, Valid: true}
	r.Tamb = sql.NullFloat64{Float64: 28, Valid: true}
	r.WS = sql.NullFloat64{Float64: 2.5, Valid: true}
	return r
}

func importReadings(t *testing.T, s *Store, readings ...models.Reading) *ImportRun {
	t.Helper()
	ctx := context.Background()
	run, err := s.StartImportRun(ctx, "benin", "data/benin_clean.csv")
	if err != nil {
		t.Fatalf("StartImportRun: %v", err)
	}
	n, err := s.ReplaceReadings(ctx, "benin", run.ID, slices.Values(readings))
	if err != nil {
		t.Fatalf("ReplaceReadings: %v", err)
	}
	run.RowsRead = sql.NullInt64{Int64: int64(len(readings)), Valid: true}
	run.RowsStored = sql.NullInt64{Int64: n, Valid: true}
	run.Success = true
	if err := s.CompleteImportRun(ctx, run); err != nil {
		t.Fatalf("CompleteImportRun: %v", err)
	}
	return run
}

func TestLoad_NotImported(t *testing.T) {
	store := setupTestStore(t)

	tbl, err := store.Load(context.Background(), benin)
	if !errors.Is(err, dataset.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if tbl == nil || !tbl.IsEmpty() {
		t.Errorf("want empty table, got %v", tbl)
	}
}

func TestReplaceReadings_RoundTrip(t *testing.T) {
	store := setupTestStore(t)
	base := time.Date(2021, 8, 9, 12, 0, 0, 0, time.UTC)

	importReadings(t, store,
		reading(base.Add(time.Hour), 900),
		reading(base, 800),
	)

	tbl, err := store.Load(context.Background(), benin)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("Len = %d, want 2", tbl.Len())
	}
	if !tbl.Timestamps()[0].Equal(base) {
		t.Errorf("first timestamp = %v, want %v (ordered by time)", tbl.Timestamps()[0], base)
	}
	if got := tbl.Value("GHI", 0); got != 800 {
		t.Errorf("GHI[0] = %v, want 800", got)
	}
	if tbl.Has("WD") {
		t.Error("column with no stored values should be dropped")
	}
	if !tbl.Has("Tamb") {
		t.Error("required column missing")
	}
}

func TestReplaceReadings_KeepsNulls(t *testing.T) {
	store := setupTestStore(t)
	base := time.Date(2021, 8, 9, 12, 0, 0, 0, time.UTC)

	r := reading(base, 500)
	r.DNI = sql.NullFloat64{}
	importReadings(t, store, r, reading(base.Add(time.Minute), 510))

	tbl, err := store.Load(context.Background(), benin)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !math.IsNaN(tbl.Value("DNI", 0)) {
		t.Errorf("DNI[0] = %v, want NaN", tbl.Value("DNI", 0))
	}
}

func TestReplaceReadings_Replaces(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2021, 8, 9, 12, 0, 0, 0, time.UTC)

	importReadings(t, store, reading(base, 1), reading(base.Add(time.Hour), 2))
	v1, err := store.Version(ctx, benin)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}

	importReadings(t, store, reading(base, 3))
	v2, err := store.Version(ctx, benin)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}

	if v1 == v2 {
		t.Errorf("version unchanged after re-import: %s", v1)
	}
	n, err := store.CountReadings(ctx, "benin")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("CountReadings = %d, want 1", n)
	}
}

func TestImportRun_StartAndComplete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	run, err := store.StartImportRun(ctx, "togo", "data/togo_clean.csv")
	if err != nil {
		t.Fatalf("StartImportRun: %v", err)
	}
	if run.ID == 0 {
		t.Error("run.ID should be set")
	}

	run.Success = false
	run.ErrorMessage = sql.NullString{String: "file not found", Valid: true}
	if err := store.CompleteImportRun(ctx, run); err != nil {
		t.Fatalf("CompleteImportRun: %v", err)
	}

	latest, err := store.LatestImport(ctx, "togo")
	if err != nil {
		t.Fatalf("LatestImport: %v", err)
	}
	if latest == nil {
		t.Fatal("LatestImport returned nil")
	}
	if latest.ErrorMessage.String != "file not found" {
		t.Errorf("ErrorMessage = %q, want 'file not found'", latest.ErrorMessage.String)
	}
	if !latest.FinishedAt.Valid {
		t.Error("FinishedAt should be set")
	}

	if _, err := store.Version(ctx, models.Country{Key: "togo"}); !errors.Is(err, dataset.ErrNotFound) {
		t.Errorf("failed import should not count as a version, got %v", err)
	}
}

func TestLatestImport_None(t *testing.T) {
	store := setupTestStore(t)

	run, err := store.LatestImport(context.Background(), "benin")
	if err != nil {
		t.Fatal(err)
	}
	if run != nil {
		t.Errorf("want nil, got %+v", run)
	}
}

func TestRecordLoad(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	events := []dataset.LoadEvent{
		{Country: "benin", Source: "csv", Version: "1-2", Rows: 10, Duration: 15 * time.Millisecond},
		{Country: "togo", Source: "csv", Err: errors.New("boom")},
	}
	for _, ev := range events {
		if err := store.RecordLoad(ctx, ev); err != nil {
			t.Fatalf("RecordLoad: %v", err)
		}
	}

	loads, err := store.RecentLoads(ctx, 10)
	if err != nil {
		t.Fatalf("RecentLoads: %v", err)
	}
	if len(loads) != 2 {
		t.Fatalf("len(loads) = %d, want 2", len(loads))
	}
	if loads[0].Country != "togo" || loads[0].Success {
		t.Errorf("newest load = %+v, want failed togo", loads[0])
	}
	if loads[1].Rows != 10 || loads[1].DurationMS != 15 || !loads[1].Success {
		t.Errorf("benin load = %+v", loads[1])
	}
}

func TestMigrationVersion(t *testing.T) {
	store := setupTestStore(t)

	version, err := store.MigrationVersion()
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("MigrationVersion = %d, want %d", version, len(migrations))
	}
	if err := store.Migrate(); err != nil {
		t.Errorf("second Migrate: %v", err)
	}
}

func TestInitialSchema(t *testing.T) {
	store := setupTestStore(t)

	want := map[string][]string{
		"readings":    {"import_id"},
		"import_runs": {"rows_flagged", "flag_counts"},
	}
	for table, cols := range want {
		rows, err := store.db.Query(`SELECT name FROM pragma_table_info(?)`, table)
		if err != nil {
			t.Fatalf("table_info %s: %v", table, err)
		}
		var have []string
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				t.Fatal(err)
			}
			have = append(have, name)
		}
		rows.Close()
		for _, c := range cols {
			if !slices.Contains(have, c) {
				t.Errorf("%s missing column %s (have %v)", table, c, have)
			}
		}
	}
}
