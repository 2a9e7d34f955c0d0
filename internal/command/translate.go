package command

// ColorSetter receives the side effect of a COLOR command.
type ColorSetter interface {
	SetColor(hue, saturation, brightness int)
}

// Translate parses raw, applies any color side effect to colors and returns
// the new clamped level. colors may be nil when the caller only wants the level.
func Translate(raw string, current int, colors ColorSetter) int {
	cmd := Parse(raw)
	if cmd.Kind == SetColor && colors != nil {
		colors.SetColor(cmd.Hue, cmd.Saturation, cmd.Brightness)
	}
	return cmd.Level(current)
}
