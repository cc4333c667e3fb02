package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/lox/solardash/internal/export"
	"github.com/lox/solardash/internal/metrics"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sel, err := s.selectData(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if sel.Missing != nil {
		http.Error(w, noticeText(sel.Missing), http.StatusNotFound)
		return
	}

	wb := export.Workbook{Country: sel.Country.Name, Table: sel.Table}
	if !sel.Start.IsZero() {
		wb.Start = sel.Start.Format(dateLayout)
		wb.End = sel.End.Format(dateLayout)
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, wb); err != nil {
		metrics.PageRendersTotal.WithLabelValues("export", "error").Inc()
		s.writeError(w, r, fmt.Errorf("export %s: %w", sel.Country.Key, err))
		return
	}
	metrics.PageRendersTotal.WithLabelValues("export", "ok").Inc()

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="solardash-%s.xlsx"`, sel.Country.Key))
	w.Write(buf.Bytes())
}
