package strip

import (
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/stripd/internal/color"
)

// MemorySink keeps the last flushed frame in memory.
type MemorySink struct {
	mu      sync.Mutex
	pending []color.RGB
	frame   []color.RGB
	flushes int
}

// NewMemorySink creates a sink for a strip of n pixels.
func NewMemorySink(n int) *MemorySink {
	return &MemorySink{pending: make([]color.RGB, n)}
}

func (s *MemorySink) SetPixel(index int, c color.RGB) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index >= 0 && index < len(s.pending) {
		s.pending[index] = c
	}
}

func (s *MemorySink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = append(s.frame[:0], s.pending...)
	s.flushes++
	return nil
}

// Frame returns a copy of the last flushed frame.
func (s *MemorySink) Frame() []color.RGB {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]color.RGB(nil), s.frame...)
}

// Flushes returns how many times Flush was called.
func (s *MemorySink) Flushes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushes
}

// LogSink logs each flushed frame. Frames are uniform, so only the first
// pixel is reported.
type LogSink struct {
	first color.RGB
	count int
}

// NewLogSink creates a logging sink.
func NewLogSink() *LogSink {
	return &LogSink{}
}

func (s *LogSink) SetPixel(index int, c color.RGB) {
	if index == 0 {
		s.first = c
	}
	if index+1 > s.count {
		s.count = index + 1
	}
}

func (s *LogSink) Flush() error {
	log.Debug().
		Str("color", s.first.Hex()).
		Int("pixels", s.count).
		Msg("Strip frame")
	return nil
}

// WriterSink serializes frames as raw channel bytes in a fixed color order.
type WriterSink struct {
	w     io.Writer
	order color.Order
	frame []byte
}

// NewWriterSink creates a sink for n pixels writing to w.
func NewWriterSink(w io.Writer, n int, order color.Order) *WriterSink {
	return &WriterSink{
		w:     w,
		order: order,
		frame: make([]byte, n*3),
	}
}

func (s *WriterSink) SetPixel(index int, c color.RGB) {
	if index < 0 || index*3 >= len(s.frame) {
		return
	}
	b := c.Bytes(s.order)
	copy(s.frame[index*3:], b[:])
}

func (s *WriterSink) Flush() error {
	if _, err := s.w.Write(s.frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}
