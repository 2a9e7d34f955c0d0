package command

import (
	"math"
	"testing"
)

type colorRecorder struct {
	called        bool
	hue, sat, bri int
}

func (r *colorRecorder) SetColor(h, s, b int) {
	r.called = true
	r.hue, r.sat, r.bri = h, s, b
}

func TestClampLevel(t *testing.T) {
	for l := -300; l <= 300; l++ {
		got := ClampLevel(l)
		if got < 0 || got > 100 {
			t.Fatalf("ClampLevel(%d) = %d, out of range", l, got)
		}
		if l > 0 && l < 10 && got != 10 {
			t.Fatalf("ClampLevel(%d) = %d, want 10", l, got)
		}
	}

	tests := []struct {
		in, want int
	}{
		{0, 0},
		{1, 10},
		{9, 10},
		{10, 10},
		{55, 55},
		{100, 100},
		{101, 100},
		{-1, 0},
		{math.MaxInt32, 100},
		{math.MinInt32, 0},
	}
	for _, tt := range tests {
		if got := ClampLevel(tt.in); got != tt.want {
			t.Errorf("ClampLevel(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name    string
		command string
		current int
		want    int
	}{
		{"on", "ON", 0, 100},
		{"on/lowercase", "on", 37, 100},
		{"on/mixed_case", "oN", 100, 100},
		{"off", "OFF", 80, 0},
		{"off/lowercase", "off", 0, 0},
		{"delta/up", "+15", 50, 65},
		{"delta/up_clamped", "+90", 50, 100},
		{"delta/down", "-20", 50, 30},
		{"delta/down_clamped", "-200", 50, 0},
		{"delta/down_to_floor", "-45", 50, 10},
		{"delta/empty", "+", 42, 42},
		{"delta/garbage", "+abc", 42, 42},
		{"delta/double_negative", "--5", 40, 45},
		{"absolute", "50", 10, 50},
		{"absolute/floor", "3", 50, 10},
		{"absolute/zero", "0", 50, 0},
		{"absolute/over", "250", 50, 100},
		{"absolute/leading_digits", "42%", 0, 42},
		{"absolute/float", "42.9", 0, 42},
		{"absolute/garbage", "dim please", 70, 0},
		{"absolute/empty", "", 70, 0},
		{"absolute/whitespace", "  60", 0, 60},
		{"on/with_space_is_not_on", "ON ", 50, 0},
		{"color/keeps_level", "COLOR:10:20:30", 40, 40},
		{"color/keeps_zero", "color:10:20:30", 0, 0},
		{"color/clamps_current", "COLOR:1:2:3", 5, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Translate(tt.command, tt.current, nil)
			if got != tt.want {
				t.Errorf("Translate(%q, %d) = %d, want %d", tt.command, tt.current, got, tt.want)
			}
		})
	}
}

func TestTranslate_OnOffForAnyLevel(t *testing.T) {
	for x := -150; x <= 150; x += 7 {
		if got := Translate("ON", x, nil); got != 100 {
			t.Errorf("Translate(ON, %d) = %d", x, got)
		}
		if got := Translate("OFF", x, nil); got != 0 {
			t.Errorf("Translate(OFF, %d) = %d", x, got)
		}
	}
}

func TestTranslate_Idempotent(t *testing.T) {
	level := 50
	for i := 0; i < 10; i++ {
		level = Translate("50", level, nil)
		if level != 50 {
			t.Fatalf("iteration %d: level drifted to %d", i, level)
		}
	}
}

func TestTranslate_ColorSideEffect(t *testing.T) {
	rec := &colorRecorder{}
	got := Translate("COLOR:10:20:30", 40, rec)
	if got != 40 {
		t.Errorf("level = %d, want 40", got)
	}
	if !rec.called {
		t.Fatal("SetColor was not called")
	}
	if rec.hue != 10 || rec.sat != 20 || rec.bri != 30 {
		t.Errorf("color = %d/%d/%d, want 10/20/30", rec.hue, rec.sat, rec.bri)
	}
}

func TestTranslate_NonColorLeavesColorAlone(t *testing.T) {
	for _, raw := range []string{"ON", "OFF", "+5", "-5", "77", "COLORS"} {
		rec := &colorRecorder{}
		Translate(raw, 50, rec)
		if rec.called {
			t.Errorf("%q should not touch color", raw)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		raw  string
		want Command
	}{
		{"ON", Command{Kind: SetOn}},
		{"off", Command{Kind: SetOff}},
		{"+15", Command{Kind: Delta, Value: 15}},
		{"-15", Command{Kind: Delta, Value: -15}},
		{"75", Command{Kind: SetAbsolute, Value: 75}},
		{"COLOR:10:20:30", Command{Kind: SetColor, Hue: 10, Saturation: 20, Brightness: 30}},
		// Alexa sends float strings, only the leading digits count.
		{"color:170.0:255.0:127.5", Command{Kind: SetColor, Hue: 170, Saturation: 255, Brightness: 127}},
		{"COLOR:10", Command{Kind: SetColor, Hue: 10}},
		{"COLOR:", Command{Kind: SetColor}},
		{"COLOR:300:-4:x", Command{Kind: SetColor, Hue: 300, Saturation: -4}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := Parse(tt.raw)
			tt.want.Raw = tt.raw
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestCommand_LevelInvalidKeepsCurrent(t *testing.T) {
	var cmd Command
	if cmd.Kind != Invalid {
		t.Fatalf("zero Command kind = %v, want invalid", cmd.Kind)
	}
	if got := cmd.Level(65); got != 65 {
		t.Errorf("Level = %d, want 65", got)
	}
}

func TestKindString(t *testing.T) {
	if SetColor.String() != "color" {
		t.Errorf("SetColor.String() = %q", SetColor.String())
	}
	if Kind(99).String() != "unknown" {
		t.Errorf("Kind(99).String() = %q", Kind(99).String())
	}
}

func TestField(t *testing.T) {
	tests := []struct {
		data  string
		index int
		want  string
	}{
		{"10:20:30", 0, "10"},
		{"10:20:30", 1, "20"},
		{"10:20:30", 2, "30"},
		{"10:20:30", 3, ""},
		{"10:20", 5, ""},
		{"10", 0, "10"},
		{"10", 1, ""},
		{"", 0, ""},
		{":20", 0, ""},
		{":20", 1, "20"},
		{"10:", 0, "10"},
		{"10:", 1, ""},
		{"10::30", 1, ""},
		{"10::30", 2, "30"},
		{"10:20", -1, ""},
	}

	for _, tt := range tests {
		if got := Field(tt.data, ':', tt.index); got != tt.want {
			t.Errorf("Field(%q, ':', %d) = %q, want %q", tt.data, tt.index, got, tt.want)
		}
	}
}

func TestAtoi(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"0", 0},
		{"42", 42},
		{"-42", -42},
		{"+42", 42},
		{"  \t7", 7},
		{"12abc", 12},
		{"abc", 0},
		{"", 0},
		{"-", 0},
		{"99999999999999", math.MaxInt32},
		{"-99999999999999", math.MinInt32},
	}

	for _, tt := range tests {
		if got := Atoi(tt.in); got != tt.want {
			t.Errorf("Atoi(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
