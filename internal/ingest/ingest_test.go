package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lox/solardash/internal/dataset"
	"github.com/lox/solardash/internal/models"
	"github.com/lox/solardash/internal/store"
)

func valid(f float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: true}
}

func TestValidateReading(t *testing.T) {
	tests := []struct {
		name      string
		reading   models.Reading
		wantFlags []string
	}{
		{
			name: "valid reading - no flags",
			reading: models.Reading{
				GHI: valid(812.5), DNI: valid(540.1), DHI: valid(300.2),
				Tamb: valid(31.5), RH: valid(60.2), WS: valid(3.1), WSgust: valid(4.5), WD: valid(200),
			},
			wantFlags: nil,
		},
		{
			name:      "night-time negative irradiance - valid",
			reading:   models.Reading{GHI: valid(-1.2), DNI: valid(-0.2), DHI: valid(-1.1)},
			wantFlags: nil,
		},
		{
			name:      "irradiance at boundary - valid",
			reading:   models.Reading{GHI: valid(-50)},
			wantFlags: nil,
		},
		{
			name:      "irradiance below boundary flagged once",
			reading:   models.Reading{GHI: valid(-60), DHI: valid(-70)},
			wantFlags: []string{FlagIrradianceNegative},
		},
		{
			name:      "temp too hot",
			reading:   models.Reading{Tamb: valid(61)},
			wantFlags: []string{FlagTempOutOfRange},
		},
		{
			name:      "temp too cold",
			reading:   models.Reading{Tamb: valid(-21)},
			wantFlags: []string{FlagTempOutOfRange},
		},
		{
			name:      "humidity over 100",
			reading:   models.Reading{RH: valid(100.5)},
			wantFlags: []string{FlagHumidityInvalid},
		},
		{
			name:      "wind direction over 360",
			reading:   models.Reading{WD: valid(361)},
			wantFlags: []string{FlagWindDirInvalid},
		},
		{
			name:      "negative gust",
			reading:   models.Reading{WS: valid(2), WSgust: valid(-0.1)},
			wantFlags: []string{FlagWindSpeedUnlikely},
		},
		{
			name:      "wind speed too high",
			reading:   models.Reading{WS: valid(61)},
			wantFlags: []string{FlagWindSpeedUnlikely},
		},
		{
			name:      "nulls are never flagged",
			reading:   models.Reading{},
			wantFlags: nil,
		},
		{
			name:      "multiple flags",
			reading:   models.Reading{Tamb: valid(70), RH: valid(-1)},
			wantFlags: []string{FlagTempOutOfRange, FlagHumidityInvalid},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateReading(&tt.reading)
			if !slices.Equal(got, tt.wantFlags) {
				t.Errorf("ValidateReading() = %v, want %v", got, tt.wantFlags)
			}
		})
	}
}

func TestFlagCountsToJSON(t *testing.T) {
	if got := FlagCountsToJSON(nil); got != "" {
		t.Errorf("FlagCountsToJSON(nil) = %q, want empty", got)
	}

	got := FlagCountsToJSON(map[string]int{FlagTempOutOfRange: 2})
	var parsed map[string]int
	if err := json.Unmarshal([]byte(got), &parsed); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}
	if parsed[FlagTempOutOfRange] != 2 {
		t.Errorf("parsed = %v", parsed)
	}
}

const sampleCSV = `Timestamp,GHI,DNI,DHI,ModA,ModB,Tamb,RH,WS,WSgust,WD,TModA,TModB,Comments
2021-08-09 00:01,-1.2,-0.2,-1.1,0,0,26.2,93.4,0,0.4,122.1,24.7,24.4,
2021-08-09 12:00,812.5,540.1,300.2,790.3,781.9,31.5,60.2,3.1,4.5,200,45.1,44.7,
2021-08-10 12:00,901.0,610.0,310.0,880.0,870.0,72.0,55.0,4.2,5.1,400,47.0,46.5,
2021-08-11 06:30,120.0,,80.0,115.0,110.0,25.0,90.0,1.5,2.0,90,26.0,25.5,cleaning
`

func setup(t *testing.T) (*Importer, *store.Store, models.Country) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "benin_clean.csv"), []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	st := store.New(db, nil)
	if err := st.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	country := models.Country{Key: "benin", Name: "Benin", File: "benin_clean.csv"}
	return NewImporter(dataset.NewFileSource(dir), st, nil), st, country
}

func TestImport(t *testing.T) {
	im, st, country := setup(t)
	ctx := context.Background()

	res, err := im.Import(ctx, country)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.RowsRead != 4 || res.RowsStored != 4 {
		t.Errorf("rows read/stored = %d/%d, want 4/4", res.RowsRead, res.RowsStored)
	}
	if res.RowsFlagged != 1 {
		t.Errorf("RowsFlagged = %d, want 1", res.RowsFlagged)
	}
	if res.Flags[FlagTempOutOfRange] != 1 || res.Flags[FlagWindDirInvalid] != 1 {
		t.Errorf("Flags = %v", res.Flags)
	}

	run, err := st.LatestImport(ctx, "benin")
	if err != nil || run == nil {
		t.Fatalf("LatestImport: %v %v", run, err)
	}
	if !run.Success || run.RowsStored.Int64 != 4 || run.RowsFlagged.Int64 != 1 {
		t.Errorf("run = %+v", run)
	}

	tbl, err := st.Load(ctx, country)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tbl.Len() != 4 {
		t.Fatalf("Len = %d, want 4", tbl.Len())
	}
	csv, err := dataset.LoadCSV(filepath.Join(im.src.Dir, country.File))
	if err != nil {
		t.Fatal(err)
	}
	want, got := dataset.Summarize(csv), dataset.Summarize(tbl)
	if want != got {
		t.Errorf("summary after import = %+v, want %+v", got, want)
	}
}

func TestImport_MissingFile(t *testing.T) {
	im, st, _ := setup(t)
	ctx := context.Background()
	togo := models.Country{Key: "togo", File: "togo_clean.csv"}

	_, err := im.Import(ctx, togo)
	if !errors.Is(err, dataset.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	run, err := st.LatestImport(ctx, "togo")
	if err != nil || run == nil {
		t.Fatalf("LatestImport: %v %v", run, err)
	}
	if run.Success || !run.ErrorMessage.Valid {
		t.Errorf("failed import recorded as %+v", run)
	}
}

// failingStore stores nothing and fails after consuming a few readings.
type failingStore struct {
	*store.Store
	after int
}

func (s failingStore) ReplaceReadings(ctx context.Context, country string, importID int64, readings iter.Seq[models.Reading]) (int64, error) {
	var n int64
	for range readings {
		n++
		if int(n) == s.after {
			break
		}
	}
	return n, errors.New("disk full")
}

func TestImport_StoreFailureRecordsNoRows(t *testing.T) {
	im, st, country := setup(t)
	ctx := context.Background()
	im.store = failingStore{Store: st, after: 2}

	if _, err := im.Import(ctx, country); err == nil {
		t.Fatal("expected error")
	}

	run, err := st.LatestImport(ctx, "benin")
	if err != nil || run == nil {
		t.Fatalf("LatestImport: %v %v", run, err)
	}
	if run.Success {
		t.Error("failed import recorded as success")
	}
	if run.RowsRead.Int64 != 4 {
		t.Errorf("RowsRead = %d, want 4", run.RowsRead.Int64)
	}
	if run.RowsStored.Int64 != 0 {
		t.Errorf("RowsStored = %d, want 0 after rollback", run.RowsStored.Int64)
	}
}

func TestReadings(t *testing.T) {
	b := dataset.NewBuilder("GHI", "DNI", "DHI", "Tamb", "WS")
	b.Append(time.Date(2021, 8, 9, 12, 0, 0, 0, time.UTC), 1, 2, 3, 4, 5)
	tbl := b.Table()

	var got []models.Reading
	for r := range Readings(tbl, "benin") {
		got = append(got, r)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].GHI.Float64 != 1 || !got[0].GHI.Valid {
		t.Errorf("GHI = %+v", got[0].GHI)
	}
	if got[0].WD.Valid {
		t.Error("absent column should be NULL")
	}
}
