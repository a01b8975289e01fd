// Package color converts clear colors between sRGB encoding and the linear
// values a render target expects.
//
// Colors in the demo are authored as displayed, sRGB-encoded values. Clear
// values for an sRGB render target are given in linear space and encoded by
// the hardware on store, so they must be linearized first.
package color

import (
	"math"

	"github.com/gogpu/gputypes"
)

// SRGBToLinear decodes one sRGB component in [0, 1].
func SRGBToLinear(s float64) float64 {
	if s <= 0.04045 {
		return s / 12.92
	}
	return math.Pow((s+0.055)/1.055, 2.4)
}

// LinearToSRGB encodes one linear component in [0, 1].
func LinearToSRGB(l float64) float64 {
	if l <= 0.0031308 {
		return l * 12.92
	}
	return 1.055*math.Pow(l, 1.0/2.4) - 0.055
}

// IsSRGB reports whether the hardware sRGB-encodes stores to f.
func IsSRGB(f gputypes.TextureFormat) bool {
	switch f {
	case gputypes.TextureFormatRGBA8UnormSrgb, gputypes.TextureFormatBGRA8UnormSrgb:
		return true
	}
	return false
}

// ClearValue returns the clear value that makes a target of format f show
// the displayed color c. Alpha is never encoded.
func ClearValue(c gputypes.Color, f gputypes.TextureFormat) gputypes.Color {
	if !IsSRGB(f) {
		return c
	}
	return gputypes.Color{
		R: SRGBToLinear(c.R),
		G: SRGBToLinear(c.G),
		B: SRGBToLinear(c.B),
		A: c.A,
	}
}

// FromRGB8 returns the opaque color with 8-bit components r, g, b.
func FromRGB8(r, g, b uint8) gputypes.Color {
	return gputypes.Color{
		R: float64(r) / 255,
		G: float64(g) / 255,
		B: float64(b) / 255,
		A: 1,
	}
}
