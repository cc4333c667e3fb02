// Package config loads the country list shown on the dashboard.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/lox/solardash/internal/models"
)

var keyPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// Countries is an ordered, validated list of datasets.
type Countries struct {
	list []models.Country
}

type countriesFile struct {
	Countries []models.Country `yaml:"countries"`
}

// Defaults returns the built-in three-country list.
func Defaults() *Countries {
	return &Countries{list: slices.Clone(models.DefaultCountries)}
}

// LoadCountries reads a YAML file of the form
//
//	countries:
//	  - key: benin
//	    name: Benin
//	    file: benin_clean.csv
//
// An empty path returns the defaults.
func LoadCountries(path string) (*Countries, error) {
	if path == "" {
		return Defaults(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open countries: %w", err)
	}
	defer f.Close()
	c, err := ParseCountries(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ParseCountries decodes and validates a countries document.
func ParseCountries(r io.Reader) (*Countries, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc countriesFile
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode countries: %w", err)
	}
	if len(doc.Countries) == 0 {
		return nil, errors.New("no countries configured")
	}
	seen := make(map[string]bool, len(doc.Countries))
	for i, c := range doc.Countries {
		if !keyPattern.MatchString(c.Key) {
			return nil, fmt.Errorf("country %d: invalid key %q", i, c.Key)
		}
		if seen[c.Key] {
			return nil, fmt.Errorf("country %d: duplicate key %q", i, c.Key)
		}
		seen[c.Key] = true
		if c.File == "" {
			return nil, fmt.Errorf("country %q: file is required", c.Key)
		}
		if c.Name == "" {
			doc.Countries[i].Name = c.Key
		}
	}
	return &Countries{list: doc.Countries}, nil
}

// All returns the countries in configured order.
func (c *Countries) All() []models.Country {
	return slices.Clone(c.list)
}

// Lookup finds a country by key.
func (c *Countries) Lookup(key string) (models.Country, bool) {
	for _, country := range c.list {
		if country.Key == key {
			return country, true
		}
	}
	return models.Country{}, false
}

// Default is the country selected when none is requested.
func (c *Countries) Default() models.Country {
	return c.list[0]
}

// Select returns the countries with the given keys, or all of them when keys
// is empty.
func (c *Countries) Select(keys []string) ([]models.Country, error) {
	if len(keys) == 0 {
		return c.All(), nil
	}
	out := make([]models.Country, 0, len(keys))
	for _, k := range keys {
		country, ok := c.Lookup(k)
		if !ok {
			return nil, fmt.Errorf("unknown country %q", k)
		}
		out = append(out, country)
	}
	return out, nil
}
