package strip

import (
	"fmt"
	"io"
	"os"

	"github.com/dokzlo13/stripd/internal/color"
)

// Sink kinds accepted by Open.
const (
	KindMemory = "memory"
	KindLog    = "log"
	KindWriter = "writer"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the sink named by kind. For KindWriter, path is opened for
// writing (a serial or SPI device node, a FIFO, or a plain file).
// The returned closer releases the underlying device.
func Open(kind, path string, pixels int, order color.Order) (Sink, io.Closer, error) {
	switch kind {
	case "", KindMemory:
		return NewMemorySink(pixels), nopCloser{}, nil
	case KindLog:
		return NewLogSink(), nopCloser{}, nil
	case KindWriter:
		if path == "" {
			return nil, nil, fmt.Errorf("writer sink requires a path")
		}
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open strip device: %w", err)
		}
		return NewWriterSink(f, pixels, order), f, nil
	default:
		return nil, nil, fmt.Errorf("unknown sink kind %q", kind)
	}
}
