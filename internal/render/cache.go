package render

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DiskCache stores rendered charts as PNG files. Keys should include the
// dataset version so that a re-imported dataset never serves stale images.
type DiskCache struct {
	dir    string
	maxAge time.Duration
}

// NewDiskCache creates the cache directory. Entries older than maxAge are
// treated as missing.
func NewDiskCache(dir string, maxAge time.Duration) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chart cache: %w", err)
	}
	return &DiskCache{dir: dir, maxAge: maxAge}, nil
}

// Key derives a file-safe cache key from its parts.
func Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:12])
}

func (c *DiskCache) path(key string) string {
	return filepath.Join(c.dir, "chart_"+key+".png")
}

// Get returns the cached image for key if present and fresh.
func (c *DiskCache) Get(key string) ([]byte, bool) {
	path := c.path(key)
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if c.maxAge > 0 && time.Since(info.ModTime()) > c.maxAge {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set stores an image. Concurrent writers of the same key are safe: the file
// is written aside and renamed into place.
func (c *DiskCache) Set(key string, data []byte) error {
	tmp, err := os.CreateTemp(c.dir, ".chart-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), c.path(key))
}

// Prune deletes stale entries and returns how many were removed.
func (c *DiskCache) Prune() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".png" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if c.maxAge > 0 && time.Since(info.ModTime()) > c.maxAge {
			if err := os.Remove(filepath.Join(c.dir, entry.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
