// Package alexa translates ConnectedHome v2 smart-home directives into
// setLight-style device calls ("on", "off", "+10", "color:h:s:b", ...).
package alexa

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Caller is the device surface the gateway needs.
type Caller interface {
	Name() string
	Functions() []string
	HasFunction(name string) bool
	Call(ctx context.Context, name, arg string) (int, error)
}

// Error response names.
const (
	ErrNoSuchTarget         = "NoSuchTargetError"
	ErrUnsupportedOperation = "UnsupportedOperationError"
	ErrDriverInternal       = "DriverInternalError"
)

var lightActions = []string{
	"turnOn",
	"turnOff",
	"setPercentage",
	"incrementPercentage",
	"decrementPercentage",
	"setColor",
}

// Gateway answers skill directives on behalf of a device.
type Gateway struct {
	dev          Caller
	manufacturer string
}

// NewGateway creates a gateway for dev.
func NewGateway(dev Caller) *Gateway {
	return &Gateway{dev: dev, manufacturer: "stripd"}
}

// Command maps a control directive to the argument sent to the device.
// ok is false for requests that do not call the device.
func Command(d Directive) (arg string, ok bool) {
	p := d.Payload
	switch d.Header.Name {
	case "TurnOnRequest":
		return "on", true
	case "TurnOffRequest":
		return "off", true
	case "SetPercentageRequest":
		return strconv.Itoa(int(p.PercentageState.Value)), true
	case "IncrementPercentageRequest":
		return "+" + strconv.Itoa(int(p.DeltaPercentage.Value)), true
	case "DecrementPercentageRequest":
		return "-" + strconv.Itoa(int(p.DeltaPercentage.Value)), true
	case "SetColorRequest":
		return fmt.Sprintf("color:%d:%d:%d",
			int(p.Color.Hue/360*255),
			int(p.Color.Saturation*255),
			int(p.Color.Brightness*255),
		), true
	}
	return "", false
}

// Handle answers one directive. Failures are reported as error responses,
// never as a Go error, so the skill always gets a well-formed reply.
func (g *Gateway) Handle(ctx context.Context, d Directive) Response {
	switch {
	case d.Header.Namespace == NamespaceDiscovery && d.Header.Name == "DiscoverAppliancesRequest":
		return g.reply(d, "DiscoverAppliancesResponse", g.discover())
	case d.Header.Name == "HealthCheckRequest":
		return g.reply(d, "HealthCheckResponse", HealthPayload{
			Description: "The system is currently healthy",
			IsHealthy:   true,
		})
	case d.Header.Namespace == NamespaceControl:
		return g.control(ctx, d)
	}
	return g.reply(d, ErrUnsupportedOperation, struct{}{})
}

func (g *Gateway) control(ctx context.Context, d Directive) Response {
	fn := d.Payload.Appliance.ApplianceID
	if !g.dev.HasFunction(fn) {
		return g.reply(d, ErrNoSuchTarget, struct{}{})
	}

	arg, ok := Command(d)
	if !ok {
		return g.reply(d, ErrUnsupportedOperation, struct{}{})
	}

	if _, err := g.dev.Call(ctx, fn, arg); err != nil {
		log.Error().Err(err).Str("function", fn).Str("arg", arg).Msg("Alexa directive failed")
		return g.reply(d, ErrDriverInternal, struct{}{})
	}

	name := strings.TrimSuffix(d.Header.Name, "Request") + "Confirmation"
	if d.Header.Name == "SetColorRequest" {
		var payload ColorPayload
		payload.AchievedState.Color = d.Payload.Color
		return g.reply(d, name, payload)
	}
	return g.reply(d, name, struct{}{})
}

func (g *Gateway) discover() DiscoveryPayload {
	functions := g.dev.Functions()
	appliances := make([]DiscoveredAppliance, 0, len(functions))
	for _, fn := range functions {
		appliances = append(appliances, DiscoveredAppliance{
			ApplianceID:         fn,
			ManufacturerName:    g.manufacturer,
			ModelName:           "LED strip",
			Version:             "1",
			FriendlyName:        g.dev.Name(),
			FriendlyDescription: g.dev.Name(),
			IsReachable:         true,
			Actions:             lightActions,
			AdditionalApplianceDetails: map[string]string{
				"function": fn,
			},
		})
	}
	return DiscoveryPayload{DiscoveredAppliances: appliances}
}

func (g *Gateway) reply(d Directive, name string, payload any) Response {
	return Response{
		Header: Header{
			Namespace:      d.Header.Namespace,
			Name:           name,
			PayloadVersion: PayloadVersion,
			MessageID:      d.Header.MessageID,
		},
		Payload: payload,
	}
}
