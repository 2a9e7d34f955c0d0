// Package command interprets the free-form strings sent to the setLight
// function. Parsing is pure; the color side effect and level resolution are
// applied separately by Translate.
package command

import (
	"strings"
)

// Kind identifies which grammar rule matched a command.
type Kind int

const (
	// Invalid is the zero value; Parse never produces it.
	Invalid Kind = iota
	SetOn
	SetOff
	Delta
	SetColor
	SetAbsolute
)

const colorPrefix = "COLOR:"

var kindNames = map[Kind]string{
	Invalid:     "invalid",
	SetOn:       "on",
	SetOff:      "off",
	Delta:       "delta",
	SetColor:    "color",
	SetAbsolute: "absolute",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Command is the parsed form of a raw setLight argument.
type Command struct {
	Kind Kind
	// Value is the absolute level for SetAbsolute and the signed delta for Delta.
	Value int

	// Color fields, only meaningful for SetColor.
	Hue        int
	Saturation int
	Brightness int

	Raw string
}

// Parse matches raw against the command grammar. The first matching rule
// wins and literal tokens are compared case-insensitively.
func Parse(raw string) Command {
	upper := strings.ToUpper(raw)
	cmd := Command{Raw: raw}

	switch {
	case upper == "ON":
		cmd.Kind = SetOn
	case upper == "OFF":
		cmd.Kind = SetOff
	case strings.HasPrefix(upper, "+"):
		cmd.Kind = Delta
		cmd.Value = Atoi(upper[1:])
	case strings.HasPrefix(upper, "-"):
		cmd.Kind = Delta
		cmd.Value = -Atoi(upper[1:])
	case strings.HasPrefix(upper, colorPrefix):
		args := upper[len(colorPrefix):]
		cmd.Kind = SetColor
		cmd.Hue = Atoi(Field(args, ':', 0))
		cmd.Saturation = Atoi(Field(args, ':', 1))
		cmd.Brightness = Atoi(Field(args, ':', 2))
	default:
		cmd.Kind = SetAbsolute
		cmd.Value = Atoi(upper)
	}

	return cmd
}

// Level resolves the command against the current level and clamps the result.
// Color commands leave the level untouched.
func (c Command) Level(current int) int {
	next := current
	switch c.Kind {
	case SetOn:
		next = 100
	case SetOff:
		next = 0
	case Delta:
		next = current + c.Value
	case SetAbsolute:
		next = c.Value
	}
	return ClampLevel(next)
}

// ClampLevel bounds a level to [0,100]. Levels strictly between 0 and 10 are
// raised to 10, the lowest level that still visibly lights the strip.
func ClampLevel(level int) int {
	if level > 0 && level < 10 {
		return 10
	}
	if level > 100 {
		return 100
	}
	if level < 0 {
		return 0
	}
	return level
}
