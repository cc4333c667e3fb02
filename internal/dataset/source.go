package dataset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/lox/solardash/internal/models"
)

// Source loads the dataset of a country.
type Source interface {
	// Name identifies the source in logs and metrics.
	Name() string
	// Load returns the country's table. A missing dataset yields an empty
	// table and an error matching ErrNotFound.
	Load(ctx context.Context, c models.Country) (*Table, error)
	// Version returns a stamp that changes whenever the data behind Load
	// changes. It returns an error matching ErrNotFound for missing data.
	Version(ctx context.Context, c models.Country) (string, error)
}

// FileSource reads one CSV file per country from a directory.
type FileSource struct {
	Dir string
}

func NewFileSource(dir string) *FileSource {
	return &FileSource{Dir: dir}
}

func (s *FileSource) Name() string {
	return "csv"
}

// Path returns where the country's CSV is expected.
func (s *FileSource) Path(c models.Country) string {
	if filepath.IsAbs(c.File) {
		return c.File
	}
	return filepath.Join(s.Dir, c.File)
}

func (s *FileSource) Load(ctx context.Context, c models.Country) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := LoadCSV(s.Path(c))
	var nf *NotFoundError
	if errors.As(err, &nf) {
		nf.Hint = fmt.Sprintf("Please ensure data is in the '%s/' folder.", s.Dir)
	}
	return t, err
}

func (s *FileSource) Version(ctx context.Context, c models.Country) (string, error) {
	path := s.Path(c)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", &NotFoundError{Path: path}
	}
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	return fmt.Sprintf("%d-%d", info.ModTime().UnixNano(), info.Size()), nil
}
