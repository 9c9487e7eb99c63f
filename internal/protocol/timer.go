package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimerType selects how a schedule slot changes the light.
type TimerType uint8

// Timer type bytes as the firmware encodes them. Anything else is treated
// as off for display.
const (
	TimerWakeup TimerType = 0x00 // ramp up to the target color
	TimerDoze   TimerType = 0x02 // ramp down to the target color
	TimerOff    TimerType = 0x04
)

// NumSlots is the number of independent schedule slots on the bulb.
const NumSlots = 4

// String returns the timer type name, or "off" for any unknown type byte.
func (t TimerType) String() string {
	switch t {
	case TimerWakeup:
		return "wakeup"
	case TimerDoze:
		return "doze"
	default:
		return "off"
	}
}

// Timer is one of the bulb's four schedule slots (IDs 0-3).
type Timer struct {
	ID      int
	Type    TimerType
	Hour    uint8 // TimeUnset when not programmed
	Minute  uint8 // TimeUnset when not programmed
	Runtime uint8 // minutes
	Color   Color

	// Now is the wall-clock moment stamped into the write command. The
	// firmware re-synchronizes its internal clock from it on every
	// schedule write. Zero means time.Now() at encode time.
	Now time.Time
}

// ResetTimer returns the record that clears a slot when written with the
// reset flag.
func ResetTimer(id int) Timer {
	return Timer{ID: id, Type: TimerDoze, Hour: TimeUnset, Minute: TimeUnset}
}

// DecodeTimer zips one slot's schedule triple (type, hour, minute) with its
// effect quintuple (color, runtime).
func DecodeTimer(id int, schedule, effect []byte) Timer {
	return Timer{
		ID:      id,
		Type:    TimerType(schedule[0]),
		Hour:    schedule[1],
		Minute:  schedule[2],
		Runtime: effect[4],
		Color:   DecodeColor(effect[:4]),
	}
}

// Command encodes the 13-byte schedule write record. The write format
// deliberately differs from the read format: it carries the issuing
// client's wall clock so the bulb can reset its own clock.
func (t Timer) Command(reset bool) []byte {
	now := t.Now
	if now.IsZero() {
		now = time.Now()
	}
	flag := byte(0x00)
	if reset {
		flag = 0xFF
	}
	b := []byte{
		byte(t.ID) & 0x03,
		byte(t.Type),
		byte(now.Second()),
		byte(now.Minute()),
		byte(now.Hour()),
		flag,
		t.Minute,
		t.Hour,
	}
	b = append(b, t.Color.Bytes()...)
	return append(b, t.Runtime)
}

// TimeString renders the start time, or "--:--" when unset.
func (t Timer) TimeString() string {
	return FormatTime(t.Hour, t.Minute)
}

// RuntimeString renders the runtime as "hh:mm".
func (t Timer) RuntimeString() string {
	return fmt.Sprintf("%02d:%02d", t.Runtime/60, t.Runtime%60)
}

func (t Timer) String() string {
	return fmt.Sprintf("Timer(id=%d, type=%s, time=%s, runtime=%d, color=%s)",
		t.ID, t.Type, t.TimeString(), t.Runtime, t.Color)
}

// MarshalJSON emits the raw fields alongside their rendered forms.
func (t Timer) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID         int    `json:"id"`
		Type       uint8  `json:"type"`
		TypeStr    string `json:"type_str"`
		Hour       uint8  `json:"hour"`
		Minute     uint8  `json:"minute"`
		TimeStr    string `json:"time_str"`
		Runtime    uint8  `json:"runtime"`
		RuntimeStr string `json:"runtime_str"`
		Color      Color  `json:"color"`
	}{t.ID, uint8(t.Type), t.Type.String(), t.Hour, t.Minute, t.TimeString(),
		t.Runtime, t.RuntimeString(), t.Color})
}

// Timers is the full four-slot schedule plus the clock the bulb reported on
// its schedule characteristic. Slot index always equals timer ID.
type Timers struct {
	Slots  [NumSlots]*Timer
	Hour   uint8
	Minute uint8
}

// DecodeTimers combines the schedule characteristic record (3 bytes per
// slot, bulb clock at offsets 12-13) with the timer effect record (5 bytes
// per slot).
func DecodeTimers(schedule, effect []byte) Timers {
	ts := Timers{Hour: schedule[12], Minute: schedule[13]}
	for i := 0; i < NumSlots; i++ {
		t := DecodeTimer(i, schedule[i*3:i*3+3], effect[i*5:i*5+5])
		ts.Slots[i] = &t
	}
	return ts
}

// Set stores a copy of t in its slot.
func (ts *Timers) Set(t Timer) {
	clone := t
	ts.Slots[t.ID&0x03] = &clone
}

// TimeString renders the bulb clock, or "--:--" when unknown.
func (ts Timers) TimeString() string {
	return FormatTime(ts.Hour, ts.Minute)
}

func (ts Timers) String() string {
	s := ""
	for _, t := range ts.Slots {
		if t == nil {
			continue
		}
		if s != "" {
			s += ", "
		}
		s += t.String()
	}
	return fmt.Sprintf("Timers(time=%s, timers=[%s])", ts.TimeString(), s)
}

// MarshalJSON emits the bulb clock and the programmed slots.
func (ts Timers) MarshalJSON() ([]byte, error) {
	timers := make([]Timer, 0, NumSlots)
	for _, t := range ts.Slots {
		if t != nil {
			timers = append(timers, *t)
		}
	}
	return json.Marshal(struct {
		Hour    uint8   `json:"hour"`
		Minute  uint8   `json:"minute"`
		TimeStr string  `json:"time_str"`
		Timers  []Timer `json:"timers"`
	}{ts.Hour, ts.Minute, ts.TimeString(), timers})
}
