// Package color converts the strip's hue/saturation/value triple to RGB using
// integer-only spectrum math, so the emitted bytes are reproducible exactly.
package color

import (
	"github.com/lucasb-eyer/go-colorful"
)

// RGB is one pixel value.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Black is the all-off pixel.
var Black = RGB{}

// Hex returns the color as "#rrggbb".
func (c RGB) Hex() string {
	return c.colorful().Hex()
}

// ParseHex parses "#rrggbb" (or "#rgb").
func ParseHex(s string) (RGB, error) {
	cf, err := colorful.Hex(s)
	if err != nil {
		return Black, err
	}
	r, g, b := cf.RGB255()
	return RGB{R: r, G: g, B: b}, nil
}

func (c RGB) colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
}

// Bytes returns the three channels in the given order.
func (c RGB) Bytes(order Order) [3]byte {
	var out [3]byte
	for i, ch := range order {
		switch ch {
		case 'R':
			out[i] = c.R
		case 'G':
			out[i] = c.G
		case 'B':
			out[i] = c.B
		}
	}
	return out
}
