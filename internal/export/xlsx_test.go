package export

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/lox/solardash/internal/dataset"
)

func TestWriteXLSX(t *testing.T) {
	b := dataset.NewBuilder("GHI", "DNI", "DHI", "Tamb", "WS")
	start := time.Date(2021, 8, 9, 12, 0, 0, 0, time.UTC)
	b.Append(start, 800, 500, 200, 30, 3)
	b.Append(start.Add(time.Hour), 900, math.NaN(), 210, 31, 4)

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, Workbook{
		Country: "Benin",
		Start:   "2021-08-09",
		End:     "2021-08-09",
		Table:   b.Table(),
	}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetStats, SheetData}, f.GetSheetList())

	country, err := f.GetCellValue(SheetSummary, "B3")
	require.NoError(t, err)
	assert.Equal(t, "Benin", country)
	avg, err := f.GetCellValue(SheetSummary, "B7")
	require.NoError(t, err)
	assert.Equal(t, "850", avg)

	rows, err := f.GetRows(SheetData)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Timestamp", "GHI", "DNI", "DHI", "Tamb", "WS"}, rows[0])
	assert.Contains(t, rows[1][0], "2021")
	assert.Equal(t, "", rows[2][2], "NaN exported as an empty cell")

	stats, err := f.GetRows(SheetStats)
	require.NoError(t, err)
	require.Len(t, stats, 9)
	assert.Equal(t, []string{"count", "2", "1", "2", "2", "2"}, stats[1])
}

func TestWriteXLSX_EmptyTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, Workbook{Country: "Togo", Table: dataset.NewBuilder("GHI", "DNI", "DHI", "Tamb", "WS").Table()}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(SheetData)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
