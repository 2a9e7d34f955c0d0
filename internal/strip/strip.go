// Package strip holds the pixel buffer and the sinks that push it to an LED strip.
package strip

import (
	"github.com/dokzlo13/stripd/internal/color"
)

// DefaultPixels is the pixel count of the reference strip.
const DefaultPixels = 60

// Sink accepts one frame at a time: SetPixel for every index, then Flush.
type Sink interface {
	SetPixel(index int, c color.RGB)
	Flush() error
}

// Buffer is an ordered frame of pixels.
type Buffer struct {
	pixels []color.RGB
}

// NewBuffer creates a buffer of n black pixels. n <= 0 uses DefaultPixels.
func NewBuffer(n int) *Buffer {
	if n <= 0 {
		n = DefaultPixels
	}
	return &Buffer{pixels: make([]color.RGB, n)}
}

// Len returns the pixel count.
func (b *Buffer) Len() int {
	return len(b.pixels)
}

// Fill sets every pixel to c.
func (b *Buffer) Fill(c color.RGB) {
	for i := range b.pixels {
		b.pixels[i] = c
	}
}

// At returns the pixel at index i.
func (b *Buffer) At(i int) color.RGB {
	return b.pixels[i]
}

// Uniform reports whether every pixel has the same value.
func (b *Buffer) Uniform() bool {
	for _, p := range b.pixels {
		if p != b.pixels[0] {
			return false
		}
	}
	return true
}

// Show writes the buffer to the sink and flushes it.
func (b *Buffer) Show(sink Sink) error {
	for i, p := range b.pixels {
		sink.SetPixel(i, p)
	}
	return sink.Flush()
}
