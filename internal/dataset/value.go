package dataset

import (
	"math"
	"strconv"
)

// Value is a float64 that may be undefined (NaN or ±Inf). Undefined values
// encode as JSON null and print as "n/a".
type Value float64

// Undefined is the value of a reduction over no data.
var Undefined = Value(math.NaN())

// Defined reports whether v is a finite number.
func (v Value) Defined() bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// String formats v with two decimals.
func (v Value) String() string {
	if !v.Defined() {
		return "n/a"
	}
	return strconv.FormatFloat(float64(v), 'f', 2, 64)
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Defined() {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, float64(v), 'f', -1, 64), nil
}

func (v *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = Undefined
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*v = Value(f)
	return nil
}
