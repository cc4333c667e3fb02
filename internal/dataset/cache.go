package dataset

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/lox/solardash/internal/metrics"
	"github.com/lox/solardash/internal/models"
)

// LoadEvent describes one load that reached the underlying source.
type LoadEvent struct {
	Country  string
	Source   string
	Version  string
	Rows     int
	Duration time.Duration
	Err      error
}

// LoadRecorder receives an event for every cache miss.
type LoadRecorder interface {
	RecordLoad(ctx context.Context, ev LoadEvent) error
}

// Cache memoises loads per country. An entry is reused for as long as the
// source reports the same version, and concurrent requests for the same
// country share a single load.
type Cache struct {
	src      Source
	recorder LoadRecorder
	log      *slog.Logger

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	version string
	ready   chan struct{}
	table   *Table
	err     error
}

// NewCache wraps src. recorder may be nil.
func NewCache(src Source, recorder LoadRecorder, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	return &Cache{
		src:      src,
		recorder: recorder,
		log:      log.With("component", "cache"),
		entries:  make(map[string]*cacheEntry),
	}
}

// Source returns the wrapped source.
func (c *Cache) Source() Source {
	return c.src
}

// Get returns the country's table, loading it only when the source version
// changed since the last successful load. Missing datasets are never cached.
func (c *Cache) Get(ctx context.Context, country models.Country) (*Table, error) {
	t, _, err := c.GetVersion(ctx, country)
	return t, err
}

// GetVersion is Get that also returns the source version the table was
// loaded at. The version is empty for missing datasets.
func (c *Cache) GetVersion(ctx context.Context, country models.Country) (*Table, string, error) {
	version, err := c.src.Version(ctx, country)
	if errors.Is(err, ErrNotFound) {
		c.forget(country.Key)
		t, err := c.load(ctx, country, "")
		return t, "", err
	}
	if err != nil {
		return nil, "", err
	}

	c.mu.Lock()
	e, ok := c.entries[country.Key]
	if ok && e.version == version {
		c.mu.Unlock()
		select {
		case <-e.ready:
		case <-ctx.Done():
			return nil, "", ctx.Err()
		}
		if e.err != nil {
			return nil, "", e.err
		}
		metrics.DatasetCacheHits.WithLabelValues(country.Key).Inc()
		return e.table, e.version, nil
	}
	e = &cacheEntry{version: version, ready: make(chan struct{})}
	c.entries[country.Key] = e
	c.mu.Unlock()

	e.table, e.err = c.load(ctx, country, version)
	if e.err != nil {
		c.mu.Lock()
		if c.entries[country.Key] == e {
			delete(c.entries, country.Key)
		}
		c.mu.Unlock()
	}
	close(e.ready)
	if e.err != nil {
		return nil, "", e.err
	}
	return e.table, version, nil
}

// Invalidate drops every cached table.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

func (c *Cache) forget(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *Cache) load(ctx context.Context, country models.Country, version string) (*Table, error) {
	start := time.Now()
	t, err := c.src.Load(ctx, country)
	elapsed := time.Since(start)

	ev := LoadEvent{
		Country:  country.Key,
		Source:   c.src.Name(),
		Version:  version,
		Duration: elapsed,
		Err:      err,
	}
	if t != nil {
		ev.Rows = t.Len()
	}

	status := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		status = "not_found"
		c.log.Warn("dataset missing", "country", country.Key, "error", err)
	case err != nil:
		status = "error"
		c.log.Error("dataset load failed", "country", country.Key, "error", err)
	default:
		metrics.DatasetRows.WithLabelValues(country.Key).Set(float64(ev.Rows))
		c.log.Info("dataset loaded", "country", country.Key, "source", ev.Source, "rows", ev.Rows, "duration", elapsed)
	}
	metrics.DatasetLoadsTotal.WithLabelValues(country.Key, ev.Source, status).Inc()
	metrics.DatasetLoadLatency.WithLabelValues(country.Key, ev.Source).Observe(elapsed.Seconds())

	if c.recorder != nil {
		if rerr := c.recorder.RecordLoad(context.WithoutCancel(ctx), ev); rerr != nil {
			c.log.Warn("record load", "country", country.Key, "error", rerr)
		}
	}
	return t, err
}
