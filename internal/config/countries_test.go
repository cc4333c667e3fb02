package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := Defaults()

	require.Len(t, c.All(), 3)
	assert.Equal(t, "benin", c.Default().Key)
	sl, ok := c.Lookup("sierraleone")
	require.True(t, ok)
	assert.Equal(t, "Sierraleone_clean.csv", sl.File)
	_, ok = c.Lookup("ghana")
	assert.False(t, ok)
}

func TestLoadCountries_EmptyPathUsesDefaults(t *testing.T) {
	c, err := LoadCountries("")
	require.NoError(t, err)
	assert.Len(t, c.All(), 3)
}

func TestLoadCountries_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "countries.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
countries:
  - key: togo
    name: Togo
    file: /srv/togo.csv.gz
  - key: ghana
    file: ghana.csv
`), 0o644))

	c, err := LoadCountries(path)
	require.NoError(t, err)

	all := c.All()
	require.Len(t, all, 2)
	assert.Equal(t, "togo", c.Default().Key)
	assert.Equal(t, "ghana", all[1].Name, "name defaults to key")
}

func TestParseCountries_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":         ``,
		"bad key":       "countries:\n  - key: Sierra Leone\n    file: x.csv\n",
		"duplicate key": "countries:\n  - key: a\n    file: a.csv\n  - key: a\n    file: b.csv\n",
		"missing file":  "countries:\n  - key: a\n",
		"unknown field": "countries:\n  - key: a\n    file: a.csv\n    url: http://x\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCountries(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestSelect(t *testing.T) {
	c := Defaults()

	got, err := c.Select([]string{"togo"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Togo", got[0].Name)

	_, err = c.Select([]string{"mali"})
	assert.Error(t, err)
}
