// Package export writes a filtered dataset and its statistics as an Excel
// workbook.
package export

import (
	"fmt"
	"io"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/lox/solardash/internal/dataset"
)

const (
	SheetSummary = "summary"
	SheetStats   = "statistics"
	SheetData    = "data"
)

// Workbook describes what to export.
type Workbook struct {
	Country string
	Start   string
	End     string
	Table   *dataset.Table
}

// WriteXLSX writes the workbook to w. The data sheet is streamed so large
// ranges do not hold every cell in memory twice.
func WriteXLSX(w io.Writer, wb Workbook) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", SheetSummary)
	if _, err := f.NewSheet(SheetStats); err != nil {
		return err
	}
	if _, err := f.NewSheet(SheetData); err != nil {
		return err
	}

	if err := writeSummary(f, wb); err != nil {
		return fmt.Errorf("summary sheet: %w", err)
	}
	if err := writeStats(f, wb.Table); err != nil {
		return fmt.Errorf("statistics sheet: %w", err)
	}
	if err := writeData(f, wb.Table); err != nil {
		return fmt.Errorf("data sheet: %w", err)
	}

	return f.Write(w)
}

func cellValue(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func writeSummary(f *excelize.File, wb Workbook) error {
	m := dataset.Summarize(wb.Table)
	rows := [][]any{
		{"Solar Radiation Dashboard"},
		{},
		{"Country", wb.Country},
		{"Start", wb.Start},
		{"End", wb.End},
		{"Rows", m.Rows},
		{"Avg GHI (W/m²)", cellValue(float64(m.AvgGHI))},
		{"Avg DNI (W/m²)", cellValue(float64(m.AvgDNI))},
		{"Avg Temp (°C)", cellValue(float64(m.AvgTamb))},
		{"Max Wind Speed (m/s)", cellValue(float64(m.MaxWS))},
	}
	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(SheetSummary, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeStats(f *excelize.File, t *dataset.Table) error {
	desc := dataset.Describe(t)
	header := []any{""}
	for _, d := range desc {
		header = append(header, d.Column)
	}
	if err := f.SetSheetRow(SheetStats, "A1", &header); err != nil {
		return err
	}
	stats := []struct {
		name string
		get  func(dataset.Description) any
	}{
		{"count", func(d dataset.Description) any { return d.Count }},
		{"mean", func(d dataset.Description) any { return cellValue(float64(d.Mean)) }},
		{"std", func(d dataset.Description) any { return cellValue(float64(d.Std)) }},
		{"min", func(d dataset.Description) any { return cellValue(float64(d.Min)) }},
		{"25%", func(d dataset.Description) any { return cellValue(float64(d.P25)) }},
		{"50%", func(d dataset.Description) any { return cellValue(float64(d.P50)) }},
		{"75%", func(d dataset.Description) any { return cellValue(float64(d.P75)) }},
		{"max", func(d dataset.Description) any { return cellValue(float64(d.Max)) }},
	}
	for i, s := range stats {
		row := []any{s.name}
		for _, d := range desc {
			row = append(row, s.get(d))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetStats, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeData(f *excelize.File, t *dataset.Table) error {
	sw, err := f.NewStreamWriter(SheetData)
	if err != nil {
		return err
	}
	tsStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: ptr("yyyy-mm-dd hh:mm:ss")})
	if err != nil {
		return err
	}

	cols := t.Columns()
	header := make([]any, 0, len(cols)+1)
	header = append(header, dataset.ColTimestamp)
	for _, c := range cols {
		header = append(header, c)
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	data := make([][]float64, len(cols))
	for i, c := range cols {
		data[i], _ = t.Column(c)
	}
	row := make([]any, len(cols)+1)
	for i, ts := range t.Timestamps() {
		row[0] = excelize.Cell{StyleID: tsStyle, Value: ts}
		for j := range cols {
			row[j+1] = cellValue(data[j][i])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	return sw.Flush()
}

func ptr[T any](v T) *T {
	return &v
}
