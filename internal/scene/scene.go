// Package scene derives coordinated timer schedules for the named lighting
// scenes. All functions are pure; writing the result is the caller's job.
package scene

import (
	"fmt"
	"strings"
	"time"

	"github.com/Heckie75/mipow-bulbs/internal/protocol"
)

// Clock is a wall-clock time of day at minute granularity.
type Clock struct {
	Hour   uint8
	Minute uint8
}

// Now returns the current local time of day.
func Now() Clock {
	now := time.Now()
	return Clock{Hour: uint8(now.Hour()), Minute: uint8(now.Minute())}
}

// InOneMinute returns the local time of day one minute from now.
func InOneMinute() Clock {
	return Now().Add(1)
}

// Add returns the clock shifted by the given number of minutes, wrapping
// around midnight.
func (c Clock) Add(minutes int) Clock {
	total := ((c.MinuteOfDay()+minutes)%1440 + 1440) % 1440
	return Clock{Hour: uint8(total / 60), Minute: uint8(total % 60)}
}

// MinuteOfDay returns the clock as minutes since midnight.
func (c Clock) MinuteOfDay() int {
	return int(c.Hour)*60 + int(c.Minute)
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Scene is the schedule one scene compiles to: slot ids to clear first,
// then timers in the order they must be written. Timers are ordered by
// descending slot id so a late write never races a slot the firmware is
// already evaluating.
type Scene struct {
	Resets []int
	Timers []protocol.Timer
}

// ClampRuntimeToDay cuts runtime so start plus runtime stays within the
// current day. The generators do not clamp themselves.
func ClampRuntimeToDay(start Clock, runtime int) int {
	if start.MinuteOfDay()+runtime >= 1440 {
		return 1440 - start.MinuteOfDay()
	}
	return runtime
}

func clampByte(v int) uint8 {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return uint8(v)
}

var (
	warmColor = protocol.Color{Red: 255, Green: 47}
	offColor  = protocol.Color{}
)

// Fade clears slots 0 to 2 and programs slot 3 as a single ramp to color
// over runtime minutes, starting at start.
func Fade(start Clock, runtime uint8, color protocol.Color) Scene {
	return Scene{
		Resets: []int{0, 1, 2},
		Timers: []protocol.Timer{
			{ID: 3, Type: protocol.TimerWakeup, Hour: start.Hour, Minute: start.Minute, Runtime: runtime, Color: color},
		},
	}
}

// Ambient ramps up to a warm color at start and back off one minute before
// start plus runtime.
func Ambient(start Clock, runtime int) Scene {
	end := start.Add(runtime - 1)
	return Scene{
		Resets: []int{0, 1},
		Timers: []protocol.Timer{
			{ID: 3, Type: protocol.TimerDoze, Hour: end.Hour, Minute: end.Minute, Runtime: 1, Color: offColor},
			{ID: 2, Type: protocol.TimerWakeup, Hour: start.Hour, Minute: start.Minute, Runtime: 1, Color: warmColor},
		},
	}
}

// Wakeup builds a four-stage sunrise: a long dim-blue ramp, a shorter ramp
// to green-blue, one minute up to full white, and a final ramp down to off
// 36/60 of runtime after the white stage. Stage starts chain off the
// previous stage's computed end, so rounding error never accumulates beyond
// the integer truncation per stage.
func Wakeup(start Clock, runtime int) Scene {
	runtime1 := clampByte(runtime * 16 / 60)
	runtime2 := clampByte(runtime * 8 / 60)

	start2 := start.Add(int(runtime1))
	start3 := start2.Add(int(runtime2))
	start4 := start3.Add(runtime * 36 / 60)

	return Scene{
		Timers: []protocol.Timer{
			{ID: 3, Type: protocol.TimerDoze, Hour: start4.Hour, Minute: start4.Minute, Runtime: 1, Color: offColor},
			{ID: 2, Type: protocol.TimerWakeup, Hour: start3.Hour, Minute: start3.Minute, Runtime: 1, Color: protocol.Color{White: 255}},
			{ID: 1, Type: protocol.TimerWakeup, Hour: start2.Hour, Minute: start2.Minute, Runtime: runtime2, Color: protocol.Color{Green: 60, Blue: 255}},
			{ID: 0, Type: protocol.TimerWakeup, Hour: start.Hour, Minute: start.Minute, Runtime: runtime1, Color: protocol.Color{Blue: 20}},
		},
	}
}

// Doze ramps up to a warm color for two thirds of runtime, then down to off
// for the remaining third.
func Doze(start Clock, runtime int) Scene {
	runtime3 := clampByte(runtime * 2 / 3)
	runtime4 := clampByte(runtime / 3)
	start4 := start.Add(int(runtime3))

	return Scene{
		Resets: []int{0, 1},
		Timers: []protocol.Timer{
			{ID: 3, Type: protocol.TimerDoze, Hour: start4.Hour, Minute: start4.Minute, Runtime: runtime4, Color: offColor},
			{ID: 2, Type: protocol.TimerWakeup, Hour: start.Hour, Minute: start.Minute, Runtime: runtime3, Color: warmColor},
		},
	}
}

// Wheel cycles through the three color channels in the given order, each
// segment a quarter of runtime capped at 480 minutes, followed by a doze
// terminator. The on-wire runtime field is additionally capped at 255, and
// the gap before the terminator at 479 minutes. order must be a
// permutation of the letters r, g and b, case-insensitive.
func Wheel(order string, runtime int, start Clock, brightness uint8) (Scene, error) {
	lap := runtime / 4
	if lap > 480 {
		lap = 480
	}
	fieldRuntime := clampByte(lap)

	starts := [4]Clock{start}
	starts[1] = starts[0].Add(lap)
	starts[2] = starts[1].Add(lap)
	lastGap := lap
	if lastGap > 479 {
		lastGap = 479
	}
	starts[3] = starts[2].Add(lastGap)

	slotByChannel := map[rune]int{'b': 0, 'g': 1, 'r': 2}
	timers := [3]*protocol.Timer{}
	for i, ch := range strings.ToLower(order) {
		slot, ok := slotByChannel[ch]
		if !ok || i > 2 || timers[slot] != nil {
			return Scene{}, fmt.Errorf("scene: wheel order %q is not a permutation of r, g, b", order)
		}
		color := protocol.Color{}
		switch ch {
		case 'r':
			color.Red = brightness
		case 'g':
			color.Green = brightness
		case 'b':
			color.Blue = brightness
		}
		timers[slot] = &protocol.Timer{
			ID: slot, Type: protocol.TimerWakeup,
			Hour: starts[i].Hour, Minute: starts[i].Minute,
			Runtime: fieldRuntime, Color: color,
		}
	}
	for _, t := range timers {
		if t == nil {
			return Scene{}, fmt.Errorf("scene: wheel order %q is not a permutation of r, g, b", order)
		}
	}

	return Scene{
		Timers: []protocol.Timer{
			{ID: 3, Type: protocol.TimerDoze, Hour: starts[3].Hour, Minute: starts[3].Minute, Runtime: fieldRuntime, Color: offColor},
			*timers[2],
			*timers[1],
			*timers[0],
		},
	}, nil
}
