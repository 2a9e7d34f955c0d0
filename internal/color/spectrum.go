package color

const (
	section3 = 0x40
)

// Spectrum converts h/s/v to RGB with the "spectrum" mapping: the byte hue
// range [0,255] covers the full wheel and each of red, green and blue gets an
// equal third of it. Results match FastLED's hsv2rgb_spectrum byte for byte.
func Spectrum(h, s, v uint8) RGB {
	return raw(scale8(h, 191), s, v)
}

// scale8 computes i*(scale+1)/256.
func scale8(i, scale uint8) uint8 {
	return uint8((uint16(i) * (1 + uint16(scale))) >> 8)
}

// raw implements the three-section rainbow over hue in [0,191].
func raw(hue, sat, val uint8) RGB {
	invsat := 255 - uint16(sat)
	floor := uint8(uint16(val) * invsat / 256)
	amplitude := uint16(val - floor)

	section := hue / section3
	offset := hue % section3

	rampup := uint16(offset)
	rampdown := uint16(section3-1) - uint16(offset)

	up := uint8(rampup*amplitude/(256/4)) + floor
	down := uint8(rampdown*amplitude/(256/4)) + floor

	switch section {
	case 0:
		return RGB{R: down, G: up, B: floor}
	case 1:
		return RGB{R: floor, G: down, B: up}
	default:
		return RGB{R: up, G: floor, B: down}
	}
}
