package store

import (
	"context"
	"database/sql"
	"time"
)

// ImportRun is the audit record of one `solardash import` of a country.
type ImportRun struct {
	ID           int64
	Country      string
	SourcePath   string
	StartedAt    time.Time
	FinishedAt   sql.NullTime
	RowsRead     sql.NullInt64
	RowsStored   sql.NullInt64
	RowsFlagged  sql.NullInt64 // rows with at least one quality flag
	FlagCounts   sql.NullString // JSON object of flag name to count
	Success      bool
	ErrorMessage sql.NullString
}

// StartImportRun creates a new import run record and returns it.
func (s *Store) StartImportRun(ctx context.Context, country, sourcePath string) (*ImportRun, error) {
	run := &ImportRun{
		Country:    country,
		SourcePath: sourcePath,
		StartedAt:  time.Now().UTC(),
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO import_runs (country, source_path, started_at, success)
		VALUES (?, ?, ?, FALSE)
	`, run.Country, run.SourcePath, run.StartedAt)
	if err != nil {
		return nil, err
	}

	run.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return run, nil
}

// CompleteImportRun updates the import run with results.
func (s *Store) CompleteImportRun(ctx context.Context, run *ImportRun) error {
	if run == nil {
		return nil
	}

	run.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}

	_, err := s.db.ExecContext(ctx, `
		UPDATE import_runs SET
			finished_at = ?,
			rows_read = ?,
			rows_stored = ?,
			rows_flagged = ?,
			flag_counts = ?,
			success = ?,
			error_message = ?
		WHERE id = ?
	`, run.FinishedAt, run.RowsRead, run.RowsStored, run.RowsFlagged,
		run.FlagCounts, run.Success, run.ErrorMessage, run.ID)
	return err
}

// LatestImport returns the most recent import run of a country, or nil.
func (s *Store) LatestImport(ctx context.Context, country string) (*ImportRun, error) {
	runs, err := s.queryImports(ctx, `WHERE country = ? ORDER BY id DESC LIMIT 1`, country)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return &runs[0], nil
}

// RecentImports returns the latest import runs across all countries.
func (s *Store) RecentImports(ctx context.Context, limit int) ([]ImportRun, error) {
	return s.queryImports(ctx, `ORDER BY id DESC LIMIT ?`, limit)
}

func (s *Store) queryImports(ctx context.Context, clause string, args ...any) ([]ImportRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, country, source_path, started_at, finished_at, rows_read,
			   rows_stored, rows_flagged, flag_counts, success, error_message
		FROM import_runs
	`+clause, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ImportRun
	for rows.Next() {
		var r ImportRun
		if err := rows.Scan(&r.ID, &r.Country, &r.SourcePath, &r.StartedAt, &r.FinishedAt,
			&r.RowsRead, &r.RowsStored, &r.RowsFlagged, &r.FlagCounts, &r.Success,
			&r.ErrorMessage); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
