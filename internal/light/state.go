// Package light holds the strip's brightness/color state and turns it into a
// uniform frame.
package light

import (
	"github.com/dokzlo13/stripd/internal/color"
)

// Startup defaults. DefaultHue is outside the byte range on purpose; it wraps
// to 4 when converted for display.
const (
	DefaultLevel      = 100
	DefaultHue        = 260
	DefaultSaturation = 255
	DefaultBrightness = 255
)

// State is the master dimmer level plus the absolute color. AdjustedBrightness
// is derived from Brightness and LightLevel and is only written by recompute.
type State struct {
	LightLevel         int `json:"lightLevel"`
	Hue                int `json:"hue"`
	Saturation         int `json:"saturation"`
	Brightness         int `json:"brightness"`
	AdjustedBrightness int `json:"adjustedBrightness"`
}

// New returns the startup state.
func New() *State {
	s := &State{
		LightLevel: DefaultLevel,
		Hue:        DefaultHue,
		Saturation: DefaultSaturation,
		Brightness: DefaultBrightness,
	}
	s.recompute()
	return s
}

// SetLevel stores an already clamped level.
func (s *State) SetLevel(level int) {
	s.LightLevel = level
	s.recompute()
}

// SetColor stores the absolute color fields. It satisfies command.ColorSetter.
func (s *State) SetColor(hue, saturation, brightness int) {
	s.Hue = hue
	s.Saturation = saturation
	s.Brightness = brightness
	s.recompute()
}

// recompute uses truncating integer division; no rounding.
func (s *State) recompute() {
	s.AdjustedBrightness = s.Brightness * s.LightLevel / 100
}

// RGB converts the state to a pixel value. Each field is narrowed to a byte
// first, so out-of-range values wrap.
func (s *State) RGB() color.RGB {
	return color.Spectrum(uint8(s.Hue), uint8(s.Saturation), uint8(s.AdjustedBrightness))
}
