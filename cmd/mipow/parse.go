package main

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Heckie75/mipow-bulbs/internal/protocol"
	"github.com/Heckie75/mipow-bulbs/internal/scene"
)

// Command is one parsed command group from the argument list. Each variant
// carries its already-validated payload.
type Command interface {
	name() string
}

// timeSpec is a point in time given either as an absolute "hh:mm" clock or
// as minutes from now. Relative specs are resolved when the command runs,
// not when it is parsed.
type timeSpec struct {
	clock  scene.Clock
	offset int
	rel    bool
}

func (t timeSpec) resolve() scene.Clock {
	if t.rel {
		return scene.Now().Add(t.offset)
	}
	return t.clock
}

type (
	helpCmd    struct{ Topic string }
	aliasesCmd struct{}
	scanCmd    struct{}
	devicesCmd struct{}
	serveCmd   struct{}
	scriptCmd  struct{ Path string }

	statusCmd struct{}
	onCmd     struct{}
	offCmd    struct{}
	toggleCmd struct{}
	upCmd     struct{}
	downCmd   struct{}
	haltCmd   struct{}
	dumpCmd   struct{}
	printCmd  struct{}
	jsonCmd   struct{}
	resetCmd  struct{}
	sleepCmd  struct{ Millis int }

	// colorCmd with a nil color requests the current color instead.
	colorCmd  struct{ Color *protocol.Color }
	effectCmd struct{}
	pulseCmd  struct {
		Color protocol.Color
		Hold  uint8
	}
	flashCmd struct {
		Color       protocol.Color
		Time        uint8
		Repetitions uint8
		Pause       uint8
	}
	rainbowCmd struct{ Hold uint8 }
	candleCmd  struct{ Color protocol.Color }
	discoCmd   struct{ Hold uint8 }
	holdCmd    struct {
		Hold        uint8
		Repetitions uint8
		Pause       uint8
	}

	timerRequestCmd struct{}
	// timerOffCmd with ID -1 deactivates all four slots.
	timerOffCmd struct{ ID int }
	timerSetCmd struct {
		ID      int // 0-based slot
		Start   timeSpec
		Runtime uint8
		Color   protocol.Color
	}

	fadeCmd struct {
		Runtime uint8
		Color   protocol.Color
	}
	ambientCmd struct {
		Runtime int
		Start   *timeSpec
	}
	wakeupCmd struct {
		Runtime int
		Start   *timeSpec
	}
	dozeCmd struct {
		Runtime int
		Start   *timeSpec
	}
	wheelCmd struct {
		Order      string
		Runtime    int
		Start      *timeSpec
		Brightness uint8
	}

	securityRequestCmd struct{}
	securityOffCmd     struct{}
	securitySetCmd     struct {
		Start       timeSpec
		End         timeSpec
		MinInterval uint8
		MaxInterval uint8
		Color       protocol.Color
	}

	// nameCmd/pinCmd with an empty value request instead of set.
	nameCmd struct{ Name string }
	pinCmd  struct{ PIN string }
)

func (helpCmd) name() string            { return "help" }
func (aliasesCmd) name() string         { return "aliases" }
func (scanCmd) name() string            { return "scan" }
func (devicesCmd) name() string         { return "devices" }
func (serveCmd) name() string           { return "serve" }
func (scriptCmd) name() string          { return "script" }
func (statusCmd) name() string          { return "status" }
func (onCmd) name() string              { return "on" }
func (offCmd) name() string             { return "off" }
func (toggleCmd) name() string          { return "toggle" }
func (upCmd) name() string              { return "up" }
func (downCmd) name() string            { return "down" }
func (haltCmd) name() string            { return "halt" }
func (dumpCmd) name() string            { return "dump" }
func (printCmd) name() string           { return "print" }
func (jsonCmd) name() string            { return "json" }
func (resetCmd) name() string           { return "reset" }
func (sleepCmd) name() string           { return "sleep" }
func (colorCmd) name() string           { return "color" }
func (effectCmd) name() string          { return "effect" }
func (pulseCmd) name() string           { return "pulse" }
func (flashCmd) name() string           { return "flash" }
func (rainbowCmd) name() string         { return "rainbow" }
func (candleCmd) name() string          { return "candle" }
func (discoCmd) name() string           { return "disco" }
func (holdCmd) name() string            { return "hold" }
func (timerRequestCmd) name() string    { return "timer" }
func (timerOffCmd) name() string        { return "timer" }
func (timerSetCmd) name() string        { return "timer" }
func (fadeCmd) name() string            { return "fade" }
func (ambientCmd) name() string         { return "ambient" }
func (wakeupCmd) name() string          { return "wakeup" }
func (dozeCmd) name() string            { return "doze" }
func (wheelCmd) name() string           { return "wheel" }
func (securityRequestCmd) name() string { return "security" }
func (securityOffCmd) name() string     { return "security" }
func (securitySetCmd) name() string     { return "security" }
func (nameCmd) name() string            { return "name" }
func (pinCmd) name() string             { return "pin" }

// parsed is the result of one argument list: the bulb labels named before
// the first --command, the command groups, and the logging options that
// apply to the whole run.
type parsed struct {
	Labels   []string
	Commands []Command
	LogLevel string
	Verbose  bool
}

var (
	namePattern = regexp.MustCompile(`^[0-9A-Za-z_+-]{1,19}$`)
	pinPattern  = regexp.MustCompile(`^[0-9]{4}$`)
	wheelOrders = map[string]bool{"bgr": true, "grb": true, "rbg": true, "rgb": true}
)

// parseArgs splits an argument list into labels and typed command groups.
// Everything before the first --command names a bulb; each --command then
// consumes the bare words that follow it.
func parseArgs(args []string) (*parsed, error) {
	p := &parsed{}

	var groups []struct {
		cmd  string
		args []string
	}
	inCommands := false
	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "--"):
			inCommands = true
			groups = append(groups, struct {
				cmd  string
				args []string
			}{cmd: strings.TrimPrefix(arg, "--")})
		case arg == "-h" && !inCommands:
			inCommands = true
			groups = append(groups, struct {
				cmd  string
				args []string
			}{cmd: "help"})
		case !inCommands:
			p.Labels = append(p.Labels, arg)
		default:
			groups[len(groups)-1].args = append(groups[len(groups)-1].args, arg)
		}
	}

	for _, g := range groups {
		cmd, err := parseCommand(g.cmd, g.args)
		if err != nil {
			return nil, err
		}
		switch c := cmd.(type) {
		case logLevelOpt:
			p.LogLevel = string(c)
		case verboseOpt:
			p.Verbose = true
		default:
			p.Commands = append(p.Commands, cmd)
		}
	}

	if len(p.Commands) == 0 {
		return nil, fmt.Errorf("no commands given, use --help to get help")
	}
	return p, nil
}

// logLevelOpt and verboseOpt flow through parseCommand like commands but
// are folded into the parse result instead of the command list.
type logLevelOpt string

func (logLevelOpt) name() string { return "log" }

type verboseOpt struct{}

func (verboseOpt) name() string { return "verbose" }

func parseCommand(cmd string, args []string) (Command, error) {
	switch cmd {
	case "help":
		topic := ""
		if len(args) == 1 {
			topic = args[0]
		} else if len(args) > 1 {
			return nil, usageError(cmd)
		}
		return helpCmd{Topic: topic}, nil
	case "aliases", "scan", "devices", "serve", "status", "on", "off", "toggle",
		"up", "down", "effect", "halt", "dump", "print", "json", "reset", "verbose":
		if len(args) != 0 {
			return nil, usageError(cmd)
		}
		switch cmd {
		case "aliases":
			return aliasesCmd{}, nil
		case "scan":
			return scanCmd{}, nil
		case "devices":
			return devicesCmd{}, nil
		case "serve":
			return serveCmd{}, nil
		case "status":
			return statusCmd{}, nil
		case "on":
			return onCmd{}, nil
		case "off":
			return offCmd{}, nil
		case "toggle":
			return toggleCmd{}, nil
		case "up":
			return upCmd{}, nil
		case "down":
			return downCmd{}, nil
		case "effect":
			return effectCmd{}, nil
		case "halt":
			return haltCmd{}, nil
		case "dump":
			return dumpCmd{}, nil
		case "print":
			return printCmd{}, nil
		case "json":
			return jsonCmd{}, nil
		case "reset":
			return resetCmd{}, nil
		default:
			return verboseOpt{}, nil
		}
	case "script":
		if len(args) != 1 {
			return nil, usageError(cmd)
		}
		return scriptCmd{Path: args[0]}, nil
	case "log":
		if len(args) != 1 {
			return nil, usageError(cmd)
		}
		switch args[0] {
		case "DEBUG", "INFO", "WARN", "ERROR":
			return logLevelOpt(args[0]), nil
		}
		return nil, usageError(cmd)
	case "sleep":
		if len(args) != 1 {
			return nil, usageError(cmd)
		}
		ms, err := strconv.Atoi(args[0])
		if err != nil || ms < 0 {
			return nil, usageError(cmd)
		}
		return sleepCmd{Millis: ms}, nil
	case "color":
		switch len(args) {
		case 0:
			return colorCmd{}, nil
		case 4:
			c, err := parseColor(args)
			if err != nil {
				return nil, usageError(cmd)
			}
			return colorCmd{Color: &c}, nil
		}
		return nil, usageError(cmd)
	case "pulse":
		if len(args) != 5 {
			return nil, usageError(cmd)
		}
		c, err := parseBinaryColor(args[:4])
		if err != nil {
			return nil, usageError(cmd)
		}
		hold, err := parseByte(args[4])
		if err != nil {
			return nil, usageError(cmd)
		}
		return pulseCmd{Color: c, Hold: hold}, nil
	case "flash":
		if len(args) != 5 && len(args) != 7 {
			return nil, usageError(cmd)
		}
		c, err := parseColor(args[:4])
		if err != nil {
			return nil, usageError(cmd)
		}
		vals, err := parseBytes(args[4:])
		if err != nil {
			return nil, usageError(cmd)
		}
		f := flashCmd{Color: c, Time: vals[0]}
		if len(vals) == 3 {
			f.Repetitions, f.Pause = vals[1], vals[2]
		}
		return f, nil
	case "rainbow", "disco":
		if len(args) != 1 {
			return nil, usageError(cmd)
		}
		hold, err := parseByte(args[0])
		if err != nil {
			return nil, usageError(cmd)
		}
		if cmd == "rainbow" {
			return rainbowCmd{Hold: hold}, nil
		}
		return discoCmd{Hold: hold}, nil
	case "candle":
		if len(args) != 4 {
			return nil, usageError(cmd)
		}
		c, err := parseColor(args)
		if err != nil {
			return nil, usageError(cmd)
		}
		return candleCmd{Color: c}, nil
	case "hold":
		if len(args) != 1 && len(args) != 3 {
			return nil, usageError(cmd)
		}
		vals, err := parseBytes(args)
		if err != nil {
			return nil, usageError(cmd)
		}
		h := holdCmd{Hold: vals[0]}
		if len(vals) == 3 {
			h.Repetitions, h.Pause = vals[1], vals[2]
		}
		return h, nil
	case "timer":
		return parseTimerCommand(args)
	case "fade":
		if len(args) != 5 {
			return nil, usageError(cmd)
		}
		vals, err := parseBytes(args)
		if err != nil {
			return nil, usageError(cmd)
		}
		return fadeCmd{
			Runtime: vals[0],
			Color:   protocol.Color{White: vals[1], Red: vals[2], Green: vals[3], Blue: vals[4]},
		}, nil
	case "ambient", "wakeup", "doze":
		runtime, start, err := parseSceneArgs(args)
		if err != nil {
			return nil, usageError(cmd)
		}
		switch cmd {
		case "ambient":
			return ambientCmd{Runtime: runtime, Start: start}, nil
		case "wakeup":
			return wakeupCmd{Runtime: runtime, Start: start}, nil
		default:
			return dozeCmd{Runtime: runtime, Start: start}, nil
		}
	case "wheel":
		return parseWheelCommand(args)
	case "security":
		return parseSecurityCommand(args)
	case "name":
		switch len(args) {
		case 0:
			return nameCmd{}, nil
		case 1:
			if !namePattern.MatchString(args[0]) {
				return nil, usageError(cmd)
			}
			return nameCmd{Name: args[0]}, nil
		}
		return nil, usageError(cmd)
	case "pin":
		switch len(args) {
		case 0:
			return pinCmd{}, nil
		case 1:
			if !pinPattern.MatchString(args[0]) {
				return nil, usageError(cmd)
			}
			return pinCmd{PIN: args[0]}, nil
		}
		return nil, usageError(cmd)
	}
	return nil, fmt.Errorf("unknown command --%s, use --help to get help", cmd)
}

func parseTimerCommand(args []string) (Command, error) {
	switch {
	case len(args) == 0:
		return timerRequestCmd{}, nil
	case len(args) == 1 && args[0] == "off":
		return timerOffCmd{ID: -1}, nil
	case len(args) == 2 && args[1] == "off":
		id, err := parseTimerID(args[0])
		if err != nil {
			return nil, usageError("timer")
		}
		return timerOffCmd{ID: id}, nil
	case len(args) == 3 || len(args) == 7:
		id, err := parseTimerID(args[0])
		if err != nil {
			return nil, usageError("timer")
		}
		start, err := parseTime(args[1])
		if err != nil {
			return nil, usageError("timer")
		}
		runtime, err := parseByte(args[2])
		if err != nil {
			return nil, usageError("timer")
		}
		color := protocol.Color{White: 255}
		if len(args) == 7 {
			color, err = parseColor(args[3:])
			if err != nil {
				return nil, usageError("timer")
			}
		}
		return timerSetCmd{ID: id, Start: start, Runtime: runtime, Color: color}, nil
	}
	return nil, usageError("timer")
}

func parseWheelCommand(args []string) (Command, error) {
	if len(args) < 2 || len(args) > 4 {
		return nil, usageError("wheel")
	}
	order := strings.ToLower(args[0])
	if !wheelOrders[order] {
		return nil, usageError("wheel")
	}
	runtime, err := parseRuntime(args[1])
	if err != nil || runtime > 1440 {
		return nil, usageError("wheel")
	}
	w := wheelCmd{Order: order, Runtime: runtime, Brightness: 255}
	rest := args[2:]
	if len(rest) > 0 {
		// Last argument is the brightness when it is a bare number that
		// cannot be a start time anymore.
		if len(rest) == 2 {
			start, err := parseTime(rest[0])
			if err != nil {
				return nil, usageError("wheel")
			}
			w.Start = &start
			rest = rest[1:]
			b, err := parseByte(rest[0])
			if err != nil {
				return nil, usageError("wheel")
			}
			w.Brightness = b
		} else {
			start, err := parseTime(rest[0])
			if err != nil {
				return nil, usageError("wheel")
			}
			w.Start = &start
		}
	}
	return w, nil
}

func parseSecurityCommand(args []string) (Command, error) {
	switch {
	case len(args) == 0:
		return securityRequestCmd{}, nil
	case len(args) == 1 && args[0] == "off":
		return securityOffCmd{}, nil
	case len(args) == 4 || len(args) == 8:
		start, err := parseTime(args[0])
		if err != nil {
			return nil, usageError("security")
		}
		end, err := parseTime(args[1])
		if err != nil {
			return nil, usageError("security")
		}
		minI, err := parseByte(args[2])
		if err != nil {
			return nil, usageError("security")
		}
		maxI, err := parseByte(args[3])
		if err != nil {
			return nil, usageError("security")
		}
		color := protocol.Color{White: 255}
		if len(args) == 8 {
			color, err = parseColor(args[4:])
			if err != nil {
				return nil, usageError("security")
			}
		}
		return securitySetCmd{Start: start, End: end, MinInterval: minI, MaxInterval: maxI, Color: color}, nil
	}
	return nil, usageError("security")
}

func parseSceneArgs(args []string) (int, *timeSpec, error) {
	if len(args) < 1 || len(args) > 2 {
		return 0, nil, fmt.Errorf("expected runtime and optional start")
	}
	runtime, err := parseRuntime(args[0])
	if err != nil {
		return 0, nil, err
	}
	if len(args) == 2 {
		start, err := parseTime(args[1])
		if err != nil {
			return 0, nil, err
		}
		return runtime, &start, nil
	}
	return runtime, nil, nil
}

// parseTime accepts "hh:mm" as an absolute time of day or a bare number as
// minutes from now.
func parseTime(s string) (timeSpec, error) {
	if h, m, ok := strings.Cut(s, ":"); ok {
		hour, err1 := strconv.Atoi(h)
		minute, err2 := strconv.Atoi(m)
		if err1 != nil || err2 != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
			return timeSpec{}, fmt.Errorf("invalid time %q", s)
		}
		return timeSpec{clock: scene.Clock{Hour: uint8(hour), Minute: uint8(minute)}}, nil
	}
	offset, err := strconv.Atoi(s)
	if err != nil || offset < 0 || offset > 1439 {
		return timeSpec{}, fmt.Errorf("invalid time %q", s)
	}
	return timeSpec{offset: offset, rel: true}, nil
}

// parseRuntime accepts minutes or "hh:mm" as a duration.
func parseRuntime(s string) (int, error) {
	if h, m, ok := strings.Cut(s, ":"); ok {
		hour, err1 := strconv.Atoi(h)
		minute, err2 := strconv.Atoi(m)
		if err1 != nil || err2 != nil || hour < 0 || minute < 0 || minute > 59 {
			return 0, fmt.Errorf("invalid runtime %q", s)
		}
		return hour*60 + minute, nil
	}
	runtime, err := strconv.Atoi(s)
	if err != nil || runtime < 0 || runtime > 1440 {
		return 0, fmt.Errorf("invalid runtime %q", s)
	}
	return runtime, nil
}

func parseTimerID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 1 || id > protocol.NumSlots {
		return 0, fmt.Errorf("timer id must be 1-%d", protocol.NumSlots)
	}
	return id - 1, nil
}

func parseByte(s string) (uint8, error) {
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 || v > 255 {
		return 0, fmt.Errorf("value %q out of range 0-255", s)
	}
	return uint8(v), nil
}

func parseBytes(args []string) ([]uint8, error) {
	vals := make([]uint8, len(args))
	for i, arg := range args {
		v, err := parseByte(arg)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

// parseColor reads four 0-255 channel values in white, red, green, blue
// order.
func parseColor(args []string) (protocol.Color, error) {
	vals, err := parseBytes(args)
	if err != nil {
		return protocol.Color{}, err
	}
	return protocol.Color{White: vals[0], Red: vals[1], Green: vals[2], Blue: vals[3]}, nil
}

// parseBinaryColor reads four on/off channel flags for the pulse effect.
func parseBinaryColor(args []string) (protocol.Color, error) {
	c, err := parseColor(args)
	if err != nil {
		return protocol.Color{}, err
	}
	for _, v := range []uint8{c.White, c.Red, c.Green, c.Blue} {
		if v > 1 {
			return protocol.Color{}, fmt.Errorf("pulse channels must be 0 or 1")
		}
	}
	return c, nil
}

func usageError(cmd string) error {
	return fmt.Errorf("invalid parameters for --%s\n%s", cmd, commandHelp(cmd))
}
