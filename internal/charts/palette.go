package charts

import (
	"fmt"
	"image/color"

	"golang.org/x/image/colornames"
)

// Color is an RGBA colour that encodes as a CSS hex string.
type Color color.RGBA

func (c Color) RGBA() (r, g, b, a uint32) {
	return color.RGBA(c).RGBA()
}

// Hex returns the colour as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

var seriesColors = []color.RGBA{
	colornames.Darkorange,
	colornames.Royalblue,
	colornames.Seagreen,
	colornames.Crimson,
	colornames.Mediumpurple,
	colornames.Teal,
	colornames.Goldenrod,
	colornames.Slategray,
}

// variableColors pins the irradiance measures so they keep their colour on
// every chart.
var variableColors = map[string]color.RGBA{
	"GHI": colornames.Darkorange,
	"DNI": colornames.Royalblue,
	"DHI": colornames.Seagreen,
}

// SeriesColor returns the colour for the i-th series named name.
func SeriesColor(i int, name string) Color {
	if c, ok := variableColors[name]; ok {
		return Color(c)
	}
	return Color(seriesColors[i%len(seriesColors)])
}
