package protocol

import (
	"bytes"
	"testing"
	"time"
)

func TestTimerCommandLayout(t *testing.T) {
	now := time.Date(2024, 3, 1, 6, 45, 30, 0, time.Local)
	tm := Timer{
		ID:      2,
		Type:    TimerWakeup,
		Hour:    7,
		Minute:  15,
		Runtime: 30,
		Color:   Color{Red: 255, Green: 47},
		Now:     now,
	}
	want := []byte{
		0x02, 0x00, // slot, type
		30, 45, 6, // now second/minute/hour
		0x00,   // no reset
		15, 7, // target minute/hour
		0, 255, 47, 0, // color
		30, // runtime
	}
	if got := tm.Command(false); !bytes.Equal(got, want) {
		t.Errorf("command = % X, want % X", got, want)
	}
}

func TestTimerCommandMasksSlotID(t *testing.T) {
	tm := Timer{ID: 7, Now: time.Now()}
	if got := tm.Command(false)[0]; got != 3 {
		t.Errorf("slot byte = %d, want 3", got)
	}
}

func TestTimerCommandResetFlag(t *testing.T) {
	tm := ResetTimer(1)
	tm.Now = time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local)
	got := tm.Command(true)
	if got[5] != 0xFF {
		t.Errorf("reset flag = 0x%02X, want 0xFF", got[5])
	}
	if got[1] != byte(TimerDoze) {
		t.Errorf("type byte = 0x%02X, want doze", got[1])
	}
	if got[6] != TimeUnset || got[7] != TimeUnset {
		t.Errorf("target time = %02X:%02X, want unset sentinels", got[7], got[6])
	}
	if len(got) != 13 {
		t.Errorf("length = %d, want 13", len(got))
	}
}

func TestDecodeTimers(t *testing.T) {
	// Slot 0 programmed (wakeup 06:30), slots 1-3 blank, bulb clock 12:34.
	schedule := []byte{
		0x00, 6, 30,
		0x04, 0xFF, 0xFF,
		0x04, 0xFF, 0xFF,
		0x04, 0xFF, 0xFF,
		12, 34,
	}
	effect := []byte{
		0, 255, 0, 0, 45,
		0, 0, 0, 0, 0,
		0, 0, 0, 0, 0,
		0, 0, 0, 0, 0,
	}

	ts := DecodeTimers(schedule, effect)
	if ts.Hour != 12 || ts.Minute != 34 {
		t.Errorf("bulb clock = %d:%d, want 12:34", ts.Hour, ts.Minute)
	}
	if ts.TimeString() != "12:34" {
		t.Errorf("time string = %q", ts.TimeString())
	}

	t0 := ts.Slots[0]
	if t0.ID != 0 || t0.Type != TimerWakeup || t0.Hour != 6 || t0.Minute != 30 {
		t.Errorf("slot 0 = %+v", t0)
	}
	if t0.Runtime != 45 || t0.Color != (Color{Red: 255}) {
		t.Errorf("slot 0 effect = runtime %d color %v", t0.Runtime, t0.Color)
	}

	for i := 1; i < NumSlots; i++ {
		ti := ts.Slots[i]
		if ti.ID != i {
			t.Errorf("slot %d has id %d", i, ti.ID)
		}
		if ti.Type.String() != "off" {
			t.Errorf("slot %d type = %s, want off", i, ti.Type)
		}
		if ti.TimeString() != "--:--" {
			t.Errorf("slot %d time = %q", i, ti.TimeString())
		}
	}
}

func TestTimerReadWriteFormatsAgree(t *testing.T) {
	// A decoded timer re-encoded as a command must carry the same target
	// time, color and runtime.
	tm := Timer{ID: 3, Type: TimerDoze, Hour: 22, Minute: 5, Runtime: 90,
		Color: Color{Blue: 128}, Now: time.Now()}
	cmd := tm.Command(false)

	schedule := []byte{byte(tm.Type), tm.Hour, tm.Minute}
	effect := append(tm.Color.Bytes(), tm.Runtime)
	back := DecodeTimer(3, schedule, effect)

	if cmd[7] != back.Hour || cmd[6] != back.Minute {
		t.Errorf("target time mismatch: cmd %d:%d, decoded %d:%d",
			cmd[7], cmd[6], back.Hour, back.Minute)
	}
	if !bytes.Equal(cmd[8:12], back.Color.Bytes()) {
		t.Errorf("color mismatch: % X vs % X", cmd[8:12], back.Color.Bytes())
	}
	if cmd[12] != back.Runtime {
		t.Errorf("runtime mismatch: %d vs %d", cmd[12], back.Runtime)
	}
}

func TestTimersSet(t *testing.T) {
	var ts Timers
	ts.Set(Timer{ID: 2, Type: TimerWakeup, Hour: 1, Minute: 2})
	if ts.Slots[2] == nil || ts.Slots[2].Hour != 1 {
		t.Fatalf("slot 2 = %+v", ts.Slots[2])
	}
	if ts.Slots[0] != nil || ts.Slots[1] != nil || ts.Slots[3] != nil {
		t.Error("other slots must stay empty")
	}
}

func TestTimerRuntimeString(t *testing.T) {
	tm := Timer{Runtime: 90}
	if got := tm.RuntimeString(); got != "01:30" {
		t.Errorf("got %q, want %q", got, "01:30")
	}
}
