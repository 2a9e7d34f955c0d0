package light

import (
	"github.com/dokzlo13/stripd/internal/color"
	"github.com/dokzlo13/stripd/internal/strip"
)

// Pipeline pushes a State to a strip: convert, fill, flush.
type Pipeline struct {
	state  *State
	buffer *strip.Buffer
	sink   strip.Sink
}

// NewPipeline wires a state to a buffer of the given size and a sink.
func NewPipeline(state *State, pixels int, sink strip.Sink) *Pipeline {
	return &Pipeline{
		state:  state,
		buffer: strip.NewBuffer(pixels),
		sink:   sink,
	}
}

// State returns the state the pipeline renders.
func (p *Pipeline) State() *State {
	return p.state
}

// Buffer returns the frame buffer.
func (p *Pipeline) Buffer() *strip.Buffer {
	return p.buffer
}

// Apply stores level, recomputes the adjusted brightness, fills every pixel
// with the resulting color and flushes the sink. The buffer is updated even
// when the flush fails.
func (p *Pipeline) Apply(level int) (color.RGB, error) {
	p.state.SetLevel(level)
	rgb := p.state.RGB()
	p.buffer.Fill(rgb)
	return rgb, p.buffer.Show(p.sink)
}
