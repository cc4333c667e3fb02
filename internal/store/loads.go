package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/lox/solardash/internal/dataset"
)

// DatasetLoad is the audit record of one cache miss.
type DatasetLoad struct {
	ID           int64          `json:"id"`
	LoadedAt     time.Time      `json:"loaded_at"`
	Country      string         `json:"country"`
	Source       string         `json:"source"`
	Version      string         `json:"version,omitempty"`
	Rows         int            `json:"rows"`
	DurationMS   int64          `json:"duration_ms"`
	Success      bool           `json:"success"`
	ErrorMessage sql.NullString `json:"-"`
}

// RecordLoad implements dataset.LoadRecorder.
func (s *Store) RecordLoad(ctx context.Context, ev dataset.LoadEvent) error {
	var errMsg sql.NullString
	if ev.Err != nil {
		errMsg = sql.NullString{String: ev.Err.Error(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dataset_loads (loaded_at, country, source, version, rows, duration_ms, success, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, time.Now().UTC(), ev.Country, ev.Source, ev.Version, ev.Rows,
		ev.Duration.Milliseconds(), ev.Err == nil, errMsg)
	return err
}

// RecentLoads returns the latest dataset loads, newest first.
func (s *Store) RecentLoads(ctx context.Context, limit int) ([]DatasetLoad, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, loaded_at, country, source, COALESCE(version, ''), rows, duration_ms, success, error_message
		FROM dataset_loads
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []DatasetLoad
	for rows.Next() {
		var l DatasetLoad
		if err := rows.Scan(&l.ID, &l.LoadedAt, &l.Country, &l.Source, &l.Version,
			&l.Rows, &l.DurationMS, &l.Success, &l.ErrorMessage); err != nil {
			return nil, err
		}
		results = append(results, l)
	}
	return results, rows.Err()
}
