// Package controller wires the command interpreter to the light pipeline and
// exposes the result as device functions and variables.
package controller

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/stripd/internal/color"
	"github.com/dokzlo13/stripd/internal/command"
	"github.com/dokzlo13/stripd/internal/device"
	"github.com/dokzlo13/stripd/internal/eventbus"
	"github.com/dokzlo13/stripd/internal/light"
	"github.com/dokzlo13/stripd/internal/script"
	"github.com/dokzlo13/stripd/internal/strip"
)

// FunctionSetLight is the name of the single remote function.
const FunctionSetLight = "setLight"

type sourceKey struct{}

// WithSource tags ctx with the transport a command arrived on ("api", "mqtt", ...).
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

// SourceFrom returns the transport tag, or "unknown".
func SourceFrom(ctx context.Context) string {
	if s, ok := ctx.Value(sourceKey{}).(string); ok && s != "" {
		return s
	}
	return "unknown"
}

// Options tune command semantics.
type Options struct {
	// ColorPowersOn turns a dark strip on at 100 when a COLOR command arrives.
	ColorPowersOn bool
	Aliases       script.Aliases
}

// Snapshot is a copy of the light state with its rendered color.
type Snapshot struct {
	light.State
	RGB   color.RGB `json:"rgb"`
	Color string    `json:"color"`
}

// Controller owns the light state. It is not safe for concurrent use; calls
// must be serialized, which Register does by routing them through a device.
type Controller struct {
	state    *light.State
	pipeline *light.Pipeline
	opts     Options
	bus      *eventbus.Bus

	seq       uint64
	observers []func(eventbus.Event)
}

// New creates a controller driving sink with a strip of the given size.
// bus may be nil.
func New(pixels int, sink strip.Sink, bus *eventbus.Bus, opts Options) *Controller {
	state := light.New()
	return &Controller{
		state:    state,
		pipeline: light.NewPipeline(state, pixels, sink),
		opts:     opts,
		bus:      bus,
	}
}

// SetLight interprets raw, updates the state, redraws the strip and returns
// the new level. It never fails; a sink error is logged and the state update stands.
func (c *Controller) SetLight(ctx context.Context, raw string) int {
	resolved := raw
	if expanded, ok := c.opts.Aliases.Resolve(raw); ok {
		log.Debug().Str("alias", raw).Str("command", expanded).Msg("Expanded command alias")
		resolved = expanded
	}

	kind := command.Parse(resolved).Kind
	level := command.Translate(resolved, c.state.LightLevel, c.state)
	if kind == command.SetColor && c.opts.ColorPowersOn && level == 0 {
		level = 100
	}

	rgb, err := c.pipeline.Apply(level)
	if err != nil {
		log.Error().Err(err).Str("command", raw).Msg("Failed to flush strip")
	}

	source := SourceFrom(ctx)
	log.Info().
		Str("source", source).
		Str("command", raw).
		Str("kind", kind.String()).
		Int("level", c.state.LightLevel).
		Int("hue", c.state.Hue).
		Int("saturation", c.state.Saturation).
		Int("brightness", c.state.Brightness).
		Str("color", rgb.Hex()).
		Msg("Applied command")

	c.seq++
	event := eventbus.Event{
		Type:    eventbus.EventStateChanged,
		ID:      uuid.NewString(),
		Seq:     c.seq,
		Source:  source,
		Command: raw,
		Kind:    kind.String(),
		State:   *c.state,
		Color:   rgb.Hex(),
		At:      time.Now(),
	}
	for _, fn := range c.observers {
		fn(event)
	}
	if c.bus != nil {
		c.bus.Publish(event)
	}

	return c.state.LightLevel
}

// Observe registers fn to run synchronously, in command order, after every
// applied command. fn must not block. Call before the device starts.
func (c *Controller) Observe(fn func(eventbus.Event)) {
	c.observers = append(c.observers, fn)
}

// Refresh redraws the strip from the current state without changing it.
func (c *Controller) Refresh() error {
	_, err := c.pipeline.Apply(c.state.LightLevel)
	return err
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	rgb := c.state.RGB()
	return Snapshot{
		State: *c.state,
		RGB:   rgb,
		Color: rgb.Hex(),
	}
}

// Register binds setLight and the state variables on dev.
func (c *Controller) Register(dev *device.Device) {
	dev.RegisterFunction(FunctionSetLight, c.SetLight)

	dev.RegisterVariable("lightLevel", func() int { return c.state.LightLevel })
	dev.RegisterVariable("hue", func() int { return c.state.Hue })
	dev.RegisterVariable("saturation", func() int { return c.state.Saturation })
	dev.RegisterVariable("brightness", func() int { return c.state.Brightness })
	adjusted := func() int { return c.state.AdjustedBrightness }
	dev.RegisterVariable("adjustedBrightness", adjusted)
	// Short alias for clients limited to 12-character variable names.
	dev.RegisterVariable("aBrightness", adjusted)
}

// SnapshotOn reads the state through dev's worker so the copy never observes
// a half-applied command.
func (c *Controller) SnapshotOn(ctx context.Context, dev *device.Device) (Snapshot, error) {
	out := make(chan Snapshot, 1)
	if err := dev.Exec(ctx, func(context.Context) {
		out <- c.Snapshot()
	}); err != nil {
		return Snapshot{}, err
	}
	return <-out, nil
}
