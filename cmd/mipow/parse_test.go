package main

import (
	"reflect"
	"strings"
	"testing"

	"github.com/Heckie75/mipow-bulbs/internal/protocol"
	"github.com/Heckie75/mipow-bulbs/internal/scene"
)

func TestParseArgsSplitsLabelsAndCommands(t *testing.T) {
	p, err := parseArgs([]string{"AF:66:4B:01:AC:E6", "bedroom", "--on", "--sleep", "500", "--off"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if want := []string{"AF:66:4B:01:AC:E6", "bedroom"}; !reflect.DeepEqual(p.Labels, want) {
		t.Errorf("labels = %v, want %v", p.Labels, want)
	}
	if len(p.Commands) != 3 {
		t.Fatalf("got %d commands, want 3", len(p.Commands))
	}
	if _, ok := p.Commands[0].(onCmd); !ok {
		t.Errorf("command 0 = %T, want onCmd", p.Commands[0])
	}
	if c, ok := p.Commands[1].(sleepCmd); !ok || c.Millis != 500 {
		t.Errorf("command 1 = %#v, want sleepCmd{500}", p.Commands[1])
	}
	if _, ok := p.Commands[2].(offCmd); !ok {
		t.Errorf("command 2 = %T, want offCmd", p.Commands[2])
	}
}

func TestParseArgsNoCommands(t *testing.T) {
	if _, err := parseArgs([]string{"AF:66:4B:01:AC:E6"}); err == nil {
		t.Fatal("expected error for empty command list")
	}
}

func TestParseArgsUnknownCommand(t *testing.T) {
	_, err := parseArgs([]string{"--frobnicate"})
	if err == nil || !strings.Contains(err.Error(), "frobnicate") {
		t.Fatalf("err = %v, want unknown command error", err)
	}
}

func TestParseArgsLoggingOptions(t *testing.T) {
	p, err := parseArgs([]string{"bedroom", "--log", "DEBUG", "--verbose", "--status"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if p.LogLevel != "DEBUG" {
		t.Errorf("log level = %q, want DEBUG", p.LogLevel)
	}
	if !p.Verbose {
		t.Error("verbose not set")
	}
	if len(p.Commands) != 1 {
		t.Errorf("got %d commands, want 1 (logging options are not commands)", len(p.Commands))
	}
}

func TestParseColorCommand(t *testing.T) {
	p, err := parseArgs([]string{"x", "--color", "0", "255", "47", "0"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	c, ok := p.Commands[0].(colorCmd)
	if !ok || c.Color == nil {
		t.Fatalf("command = %#v, want colorCmd with color", p.Commands[0])
	}
	want := protocol.Color{White: 0, Red: 255, Green: 47, Blue: 0}
	if *c.Color != want {
		t.Errorf("color = %v, want %v", *c.Color, want)
	}

	p, err = parseArgs([]string{"x", "--color"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if c := p.Commands[0].(colorCmd); c.Color != nil {
		t.Errorf("bare --color should request, got %v", c.Color)
	}

	if _, err := parseArgs([]string{"x", "--color", "256", "0", "0", "0"}); err == nil {
		t.Error("channel 256 accepted")
	}
	if _, err := parseArgs([]string{"x", "--color", "1", "2", "3"}); err == nil {
		t.Error("three channels accepted")
	}
}

func TestParseEffectCommands(t *testing.T) {
	p, err := parseArgs([]string{"x",
		"--pulse", "0", "0", "0", "1", "30",
		"--flash", "255", "0", "0", "0", "10", "3", "50",
		"--rainbow", "20",
		"--candle", "0", "255", "140", "0",
		"--disco", "25",
		"--hold", "40",
	})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}

	pulse := p.Commands[0].(pulseCmd)
	if pulse.Color != (protocol.Color{Blue: 1}) || pulse.Hold != 30 {
		t.Errorf("pulse = %#v", pulse)
	}
	flash := p.Commands[1].(flashCmd)
	if flash.Color != (protocol.Color{White: 255}) || flash.Time != 10 || flash.Repetitions != 3 || flash.Pause != 50 {
		t.Errorf("flash = %#v", flash)
	}
	if c := p.Commands[2].(rainbowCmd); c.Hold != 20 {
		t.Errorf("rainbow = %#v", c)
	}
	if c := p.Commands[3].(candleCmd); c.Color != (protocol.Color{Red: 255, Green: 140}) {
		t.Errorf("candle = %#v", c)
	}
	if c := p.Commands[4].(discoCmd); c.Hold != 25 {
		t.Errorf("disco = %#v", c)
	}
	hold := p.Commands[5].(holdCmd)
	if hold.Hold != 40 || hold.Repetitions != 0 || hold.Pause != 0 {
		t.Errorf("hold = %#v", hold)
	}
}

func TestParsePulseRejectsAnalogChannels(t *testing.T) {
	if _, err := parseArgs([]string{"x", "--pulse", "0", "0", "0", "2", "30"}); err == nil {
		t.Fatal("pulse channel 2 accepted")
	}
}

func TestParseTimerCommandVariants(t *testing.T) {
	p, err := parseArgs([]string{"x", "--timer"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if _, ok := p.Commands[0].(timerRequestCmd); !ok {
		t.Errorf("bare --timer = %T, want timerRequestCmd", p.Commands[0])
	}

	p, _ = parseArgs([]string{"x", "--timer", "off"})
	if c := p.Commands[0].(timerOffCmd); c.ID != -1 {
		t.Errorf("timer off id = %d, want -1", c.ID)
	}

	p, _ = parseArgs([]string{"x", "--timer", "3", "off"})
	if c := p.Commands[0].(timerOffCmd); c.ID != 2 {
		t.Errorf("timer 3 off id = %d, want 2", c.ID)
	}

	p, err = parseArgs([]string{"x", "--timer", "2", "06:30", "45"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	set := p.Commands[0].(timerSetCmd)
	if set.ID != 1 || set.Runtime != 45 {
		t.Errorf("timer set = %#v", set)
	}
	if got := set.Start.resolve(); got != (scene.Clock{Hour: 6, Minute: 30}) {
		t.Errorf("start = %v, want 06:30", got)
	}
	if set.Color != (protocol.Color{White: 255}) {
		t.Errorf("default color = %v, want white", set.Color)
	}

	p, _ = parseArgs([]string{"x", "--timer", "1", "10", "5", "0", "255", "0", "0"})
	set = p.Commands[0].(timerSetCmd)
	if set.Color != (protocol.Color{Red: 255}) {
		t.Errorf("explicit color = %v", set.Color)
	}
	if !set.Start.rel || set.Start.offset != 10 {
		t.Errorf("start = %#v, want 10 minutes from now", set.Start)
	}

	for _, args := range [][]string{
		{"x", "--timer", "5", "06:30", "45"},
		{"x", "--timer", "0", "off"},
		{"x", "--timer", "1", "24:00", "45"},
		{"x", "--timer", "1", "06:30"},
	} {
		if _, err := parseArgs(args); err == nil {
			t.Errorf("args %v accepted", args[1:])
		}
	}
}

func TestParseSceneCommands(t *testing.T) {
	p, err := parseArgs([]string{"x", "--ambient", "90", "--wakeup", "1:30", "06:00", "--doze", "45"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}

	amb := p.Commands[0].(ambientCmd)
	if amb.Runtime != 90 || amb.Start != nil {
		t.Errorf("ambient = %#v", amb)
	}
	wake := p.Commands[1].(wakeupCmd)
	if wake.Runtime != 90 {
		t.Errorf("wakeup runtime = %d, want 90 (1:30)", wake.Runtime)
	}
	if wake.Start == nil || wake.Start.resolve() != (scene.Clock{Hour: 6}) {
		t.Errorf("wakeup start = %#v, want 06:00", wake.Start)
	}
	if c := p.Commands[2].(dozeCmd); c.Runtime != 45 {
		t.Errorf("doze = %#v", c)
	}
}

func TestParseFadeCommand(t *testing.T) {
	p, err := parseArgs([]string{"x", "--fade", "30", "0", "255", "47", "0"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	f := p.Commands[0].(fadeCmd)
	if f.Runtime != 30 || f.Color != (protocol.Color{Red: 255, Green: 47}) {
		t.Errorf("fade = %#v", f)
	}

	if _, err := parseArgs([]string{"x", "--fade", "300", "0", "255", "0", "0"}); err == nil {
		t.Error("fade runtime 300 accepted")
	}
}

func TestParseWheelCommand(t *testing.T) {
	p, err := parseArgs([]string{"x", "--wheel", "BGR", "24:00"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	w := p.Commands[0].(wheelCmd)
	if w.Order != "bgr" || w.Runtime != 1440 || w.Start != nil || w.Brightness != 255 {
		t.Errorf("wheel = %#v", w)
	}

	p, err = parseArgs([]string{"x", "--wheel", "rbg", "240", "12:00", "128"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	w = p.Commands[0].(wheelCmd)
	if w.Order != "rbg" || w.Runtime != 240 || w.Brightness != 128 {
		t.Errorf("wheel = %#v", w)
	}
	if w.Start == nil || w.Start.resolve() != (scene.Clock{Hour: 12}) {
		t.Errorf("wheel start = %#v, want 12:00", w.Start)
	}

	if _, err := parseArgs([]string{"x", "--wheel", "xyz", "240"}); err == nil {
		t.Error("order xyz accepted")
	}
	if _, err := parseArgs([]string{"x", "--wheel", "bgr", "1500"}); err == nil {
		t.Error("runtime 1500 accepted")
	}
}

func TestParseSecurityCommandVariants(t *testing.T) {
	p, err := parseArgs([]string{"x", "--security"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if _, ok := p.Commands[0].(securityRequestCmd); !ok {
		t.Errorf("bare --security = %T", p.Commands[0])
	}

	p, _ = parseArgs([]string{"x", "--security", "off"})
	if _, ok := p.Commands[0].(securityOffCmd); !ok {
		t.Errorf("--security off = %T", p.Commands[0])
	}

	p, err = parseArgs([]string{"x", "--security", "21:00", "23:30", "5", "30"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	sec := p.Commands[0].(securitySetCmd)
	if sec.Start.resolve() != (scene.Clock{Hour: 21}) || sec.End.resolve() != (scene.Clock{Hour: 23, Minute: 30}) {
		t.Errorf("window = %v - %v", sec.Start.resolve(), sec.End.resolve())
	}
	if sec.MinInterval != 5 || sec.MaxInterval != 30 {
		t.Errorf("intervals = %d - %d", sec.MinInterval, sec.MaxInterval)
	}
	if sec.Color != (protocol.Color{White: 255}) {
		t.Errorf("default color = %v", sec.Color)
	}

	if _, err := parseArgs([]string{"x", "--security", "21:00", "23:30", "5"}); err == nil {
		t.Error("five args accepted")
	}
}

func TestParseNameAndPin(t *testing.T) {
	p, err := parseArgs([]string{"x", "--name", "BEDROOM", "--pin", "1234"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if c := p.Commands[0].(nameCmd); c.Name != "BEDROOM" {
		t.Errorf("name = %q", c.Name)
	}
	if c := p.Commands[1].(pinCmd); c.PIN != "1234" {
		t.Errorf("pin = %q", c.PIN)
	}

	if _, err := parseArgs([]string{"x", "--pin", "12345"}); err == nil {
		t.Error("five-digit pin accepted")
	}
	if _, err := parseArgs([]string{"x", "--name", "has spaces!"}); err == nil {
		t.Error("invalid name accepted")
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in      string
		want    scene.Clock
		rel     bool
		offset  int
		wantErr bool
	}{
		{in: "06:30", want: scene.Clock{Hour: 6, Minute: 30}},
		{in: "0:05", want: scene.Clock{Minute: 5}},
		{in: "15", rel: true, offset: 15},
		{in: "0", rel: true},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "1440", wantErr: true},
		{in: "abc", wantErr: true},
	}
	for _, tt := range tests {
		spec, err := parseTime(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseTime(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseTime(%q): %v", tt.in, err)
			continue
		}
		if spec.rel != tt.rel || spec.offset != tt.offset {
			t.Errorf("parseTime(%q) = %#v", tt.in, spec)
		}
		if !tt.rel && spec.clock != tt.want {
			t.Errorf("parseTime(%q) clock = %v, want %v", tt.in, spec.clock, tt.want)
		}
	}
}

func TestParseRuntime(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "90", want: 90},
		{in: "1:30", want: 90},
		{in: "24:00", want: 1440},
		{in: "0", want: 0},
		{in: "1441", wantErr: true},
		{in: "1:60", wantErr: true},
		{in: "x", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseRuntime(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseRuntime(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("parseRuntime(%q) = %d, %v, want %d", tt.in, got, err, tt.want)
		}
	}
}
