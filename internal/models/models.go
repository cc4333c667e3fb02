package models

import (
	"database/sql"
	"time"
)

// Country is one selectable dataset on the dashboard.
type Country struct {
	Key  string `yaml:"key" json:"key"`
	Name string `yaml:"name" json:"name"`
	File string `yaml:"file" json:"file"` // relative to the data directory unless absolute
}

// DefaultCountries are the datasets shipped with the dashboard.
var DefaultCountries = []Country{
	{Key: "benin", Name: "Benin", File: "benin_clean.csv"},
	{Key: "togo", Name: "Togo", File: "togo_clean.csv"},
	{Key: "sierraleone", Name: "Sierra Leone", File: "Sierraleone_clean.csv"},
}

// ReadingColumns are the measurement columns persisted for imported datasets,
// in storage order.
var ReadingColumns = []string{
	"GHI", "DNI", "DHI", "ModA", "ModB", "Tamb", "RH", "WS", "WSgust", "WD", "TModA", "TModB",
}

// Reading is a single timestamped row of a solar dataset.
type Reading struct {
	Country   string
	Timestamp time.Time
	GHI       sql.NullFloat64 // W/m²
	DNI       sql.NullFloat64 // W/m²
	DHI       sql.NullFloat64 // W/m²
	ModA      sql.NullFloat64
	ModB      sql.NullFloat64
	Tamb      sql.NullFloat64 // °C
	RH        sql.NullFloat64 // %
	WS        sql.NullFloat64 // m/s
	WSgust    sql.NullFloat64 // m/s
	WD        sql.NullFloat64 // degrees
	TModA     sql.NullFloat64
	TModB     sql.NullFloat64
}

// Field returns a pointer to the named measurement, or nil if name is not one
// of ReadingColumns.
func (r *Reading) Field(name string) *sql.NullFloat64 {
	switch name {
	case "GHI":
		return &r.GHI
	case "DNI":
		return &r.DNI
	case "DHI":
		return &r.DHI
	case "ModA":
		return &r.ModA
	case "ModB":
		return &r.ModB
	case "Tamb":
		return &r.Tamb
	case "RH":
		return &r.RH
	case "WS":
		return &r.WS
	case "WSgust":
		return &r.WSgust
	case "WD":
		return &r.WD
	case "TModA":
		return &r.TModA
	case "TModB":
		return &r.TModB
	}
	return nil
}
