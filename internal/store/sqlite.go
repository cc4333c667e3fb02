// Package store persists imported datasets and audit records in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lox/solardash/internal/dataset"
	"github.com/lox/solardash/internal/models"
)

type Store struct {
	db  *sql.DB
	log *slog.Logger
}

func New(db *sql.DB, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{db: db, log: log.With("component", "store")}
}

// Open opens the database at path with WAL journaling and a busy timeout.
func Open(path string) (*sql.DB, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}
	return db, nil
}

// readingColumns maps models.ReadingColumns onto table columns.
var readingColumns = map[string]string{
	"GHI":    "ghi",
	"DNI":    "dni",
	"DHI":    "dhi",
	"ModA":   "mod_a",
	"ModB":   "mod_b",
	"Tamb":   "tamb",
	"RH":     "rh",
	"WS":     "ws",
	"WSgust": "ws_gust",
	"WD":     "wd",
	"TModA":  "tmod_a",
	"TModB":  "tmod_b",
}

func sqlColumns() []string {
	cols := make([]string, len(models.ReadingColumns))
	for i, name := range models.ReadingColumns {
		cols[i] = readingColumns[name]
	}
	return cols
}

// ReplaceReadings deletes the country's readings and inserts the given ones
// in a single transaction. It returns the number of rows inserted.
func (s *Store) ReplaceReadings(ctx context.Context, country string, importID int64, readings iter.Seq[models.Reading]) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM readings WHERE country = ?`, country); err != nil {
		return 0, fmt.Errorf("delete readings: %w", err)
	}

	cols := sqlColumns()
	placeholders := strings.Repeat(", ?", len(cols))
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO readings (country, ts, import_id, %s) VALUES (?, ?, ?%s)`,
		strings.Join(cols, ", "), placeholders,
	))
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	var n int64
	args := make([]any, 3+len(cols))
	for r := range readings {
		args[0], args[1], args[2] = country, r.Timestamp.Unix(), importID
		for i, name := range models.ReadingColumns {
			args[3+i] = *r.Field(name)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return n, fmt.Errorf("insert reading %s: %w", r.Timestamp.Format(time.DateTime), err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// CountReadings returns how many readings are stored for a country.
func (s *Store) CountReadings(ctx context.Context, country string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM readings WHERE country = ?`, country).Scan(&n)
	return n, err
}

// Name implements dataset.Source.
func (s *Store) Name() string {
	return "sqlite"
}

// Version implements dataset.Source. It is the id of the latest successful
// import of the country.
func (s *Store) Version(ctx context.Context, c models.Country) (string, error) {
	var id sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(id) FROM import_runs WHERE country = ? AND success = TRUE
	`, c.Key).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("import version %s: %w", c.Key, err)
	}
	if !id.Valid {
		return "", s.notFound(c)
	}
	return fmt.Sprintf("import-%d", id.Int64), nil
}

// Load implements dataset.Source. Optional columns with no stored values are
// left out of the table, as they would be absent from the source CSV.
func (s *Store) Load(ctx context.Context, c models.Country) (*dataset.Table, error) {
	if _, err := s.Version(ctx, c); err != nil {
		if errors.Is(err, dataset.ErrNotFound) {
			return dataset.Empty(), err
		}
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT ts, %s FROM readings WHERE country = ? ORDER BY ts, rowid
	`, strings.Join(sqlColumns(), ", ")), c.Key)
	if err != nil {
		return nil, fmt.Errorf("query readings %s: %w", c.Key, err)
	}
	defer rows.Close()

	b := dataset.NewBuilder(models.ReadingColumns...)
	seen := make([]bool, len(models.ReadingColumns))
	nulls := make([]sql.NullFloat64, len(models.ReadingColumns))
	dest := make([]any, 1+len(nulls))
	var ts int64
	dest[0] = &ts
	for i := range nulls {
		dest[1+i] = &nulls[i]
	}
	values := make([]float64, len(nulls))
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		for i, v := range nulls {
			values[i] = math.NaN()
			if v.Valid {
				values[i] = v.Float64
				seen[i] = true
			}
		}
		b.Append(time.Unix(ts, 0).UTC(), values...)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	t := b.Table()
	keep := make([]string, 0, len(seen))
	for i, name := range models.ReadingColumns {
		if seen[i] || slices.Contains(dataset.RequiredColumns, name) {
			keep = append(keep, name)
		}
	}
	return t.Project(keep...)
}

func (s *Store) notFound(c models.Country) error {
	return &dataset.NotFoundError{
		Path: "sqlite readings for " + c.Key,
		Hint: fmt.Sprintf("Run 'solardash import %s' first.", c.Key),
	}
}
