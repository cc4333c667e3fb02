// Package fetch downloads country datasets from an HTTP(S) or FTP mirror
// into the data directory.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jlaffaye/ftp"

	"github.com/lox/solardash/internal/httputil"
	"github.com/lox/solardash/internal/metrics"
	"github.com/lox/solardash/internal/models"
)

// ErrUnsupportedScheme is returned for mirrors that are neither HTTP(S) nor FTP.
var ErrUnsupportedScheme = errors.New("unsupported mirror scheme")

type Fetcher struct {
	mirror *url.URL
	dir    string
	client *http.Client
	log    *slog.Logger

	// MaxElapsed bounds the retries of one HTTP download.
	MaxElapsed time.Duration
	// FTPTimeout is the dial timeout for FTP mirrors.
	FTPTimeout time.Duration
}

func New(mirror, dir string, log *slog.Logger) (*Fetcher, error) {
	u, err := url.Parse(mirror)
	if err != nil {
		return nil, fmt.Errorf("parse mirror: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "ftp":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{
		mirror:     u,
		dir:        dir,
		client:     httputil.NewClient(),
		log:        log.With("component", "fetch"),
		MaxElapsed: 2 * time.Minute,
		FTPTimeout: 30 * time.Second,
	}, nil
}

// Result describes one completed download.
type Result struct {
	Country string
	URL     string
	Path    string
	Bytes   int64
}

// Fetch downloads the country's file, named after the base of its File, and
// atomically replaces the copy in the data directory.
func (f *Fetcher) Fetch(ctx context.Context, country models.Country) (*Result, error) {
	name := filepath.Base(country.File)
	src := f.mirror.JoinPath(name)
	dst := filepath.Join(f.dir, name)

	var n int64
	var err error
	switch f.mirror.Scheme {
	case "ftp":
		n, err = f.fetchFTP(ctx, src, dst)
	default:
		n, err = f.fetchHTTP(ctx, src.String(), dst)
	}

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.FetchesTotal.WithLabelValues(country.Key, f.mirror.Scheme, status).Inc()
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", country.Key, err)
	}

	f.log.Info("fetched dataset", "country", country.Key, "url", src.Redacted(), "path", dst, "bytes", n)
	return &Result{Country: country.Key, URL: src.Redacted(), Path: dst, Bytes: n}, nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, src, dst string) (int64, error) {
	var n int64
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := f.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("get %s: %w", src, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("get %s: status %d", src, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("get %s: status %d", src, resp.StatusCode))
		}

		n, err = writeAtomic(dst, resp.Body)
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = f.MaxElapsed
	notify := func(err error, wait time.Duration) {
		f.log.Warn("download failed, retrying", "url", src, "error", err, "wait", wait)
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(bo, ctx), notify); err != nil {
		return 0, err
	}
	return n, nil
}

func (f *Fetcher) fetchFTP(ctx context.Context, src *url.URL, dst string) (int64, error) {
	host := src.Host
	if src.Port() == "" {
		host += ":21"
	}
	conn, err := ftp.Dial(host, ftp.DialWithTimeout(f.FTPTimeout), ftp.DialWithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("ftp dial: %w", err)
	}
	defer conn.Quit()

	user, pass := "anonymous", "anonymous"
	if src.User != nil {
		user = src.User.Username()
		if p, ok := src.User.Password(); ok {
			pass = p
		}
	}
	if err := conn.Login(user, pass); err != nil {
		return 0, fmt.Errorf("ftp login: %w", err)
	}

	resp, err := conn.Retr(src.Path)
	if err != nil {
		return 0, fmt.Errorf("ftp retr %s: %w", src.Path, err)
	}
	defer resp.Close()

	return writeAtomic(dst, resp)
}

// writeAtomic copies r into a temporary file next to dst and renames it over
// dst once complete.
func writeAtomic(dst string, r io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+path.Base(dst)+".*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("write %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return 0, err
	}
	return n, nil
}
