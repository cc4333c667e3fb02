package ingest

import (
	"database/sql"
	"encoding/json"

	"github.com/lox/solardash/internal/models"
)

const (
	FlagIrradianceNegative = "irradiance_negative"
	FlagTempOutOfRange     = "temp_out_of_range"
	FlagHumidityInvalid    = "humidity_invalid"
	FlagWindDirInvalid     = "wind_dir_invalid"
	FlagWindSpeedUnlikely  = "wind_speed_unlikely"
)

// Night-time irradiance sensors read slightly negative; only readings below
// this are flagged.
const minIrradiance = -50

func ValidateReading(r *models.Reading) []string {
	var flags []string

	if below(r.GHI, minIrradiance) || below(r.DNI, minIrradiance) || below(r.DHI, minIrradiance) {
		flags = append(flags, FlagIrradianceNegative)
	}

	if r.Tamb.Valid {
		if r.Tamb.Float64 < -20 || r.Tamb.Float64 > 60 {
			flags = append(flags, FlagTempOutOfRange)
		}
	}

	if r.RH.Valid {
		if r.RH.Float64 < 0 || r.RH.Float64 > 100 {
			flags = append(flags, FlagHumidityInvalid)
		}
	}

	if r.WD.Valid {
		if r.WD.Float64 < 0 || r.WD.Float64 > 360 {
			flags = append(flags, FlagWindDirInvalid)
		}
	}

	if windUnlikely(r.WS) || windUnlikely(r.WSgust) {
		flags = append(flags, FlagWindSpeedUnlikely)
	}

	return flags
}

func below(v sql.NullFloat64, limit float64) bool {
	return v.Valid && v.Float64 < limit
}

func windUnlikely(v sql.NullFloat64) bool {
	return v.Valid && (v.Float64 < 0 || v.Float64 > 60)
}

// FlagCountsToJSON encodes per-flag row counts for the import audit.
func FlagCountsToJSON(counts map[string]int) string {
	if len(counts) == 0 {
		return ""
	}
	b, _ := json.Marshal(counts)
	return string(b)
}
