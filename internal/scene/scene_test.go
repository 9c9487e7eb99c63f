package scene

import (
	"testing"

	"github.com/Heckie75/mipow-bulbs/internal/protocol"
)

func TestClockAdd(t *testing.T) {
	tests := []struct {
		name    string
		clock   Clock
		minutes int
		want    Clock
	}{
		{"plain", Clock{Hour: 6, Minute: 30}, 45, Clock{Hour: 7, Minute: 15}},
		{"wraps midnight", Clock{Hour: 23, Minute: 50}, 20, Clock{Hour: 0, Minute: 10}},
		{"whole day", Clock{Hour: 12, Minute: 0}, 1440, Clock{Hour: 12, Minute: 0}},
		{"negative", Clock{Hour: 0, Minute: 5}, -10, Clock{Hour: 23, Minute: 55}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.clock.Add(tt.minutes); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClampRuntimeToDay(t *testing.T) {
	tests := []struct {
		name    string
		start   Clock
		runtime int
		want    int
	}{
		{"fits", Clock{Hour: 10, Minute: 0}, 120, 120},
		{"crosses midnight", Clock{Hour: 23, Minute: 30}, 120, 30},
		{"exactly midnight", Clock{Hour: 23, Minute: 0}, 60, 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampRuntimeToDay(tt.start, tt.runtime); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFade(t *testing.T) {
	color := protocol.Color{Red: 255}
	s := Fade(Clock{Hour: 21, Minute: 31}, 30, color)

	if len(s.Resets) != 3 || s.Resets[0] != 0 || s.Resets[2] != 2 {
		t.Errorf("got resets %v, want [0 1 2]", s.Resets)
	}
	if len(s.Timers) != 1 {
		t.Fatalf("got %d timers, want 1", len(s.Timers))
	}
	timer := s.Timers[0]
	if timer.ID != 3 || timer.Type != protocol.TimerWakeup || timer.Hour != 21 || timer.Minute != 31 ||
		timer.Runtime != 30 || timer.Color != color {
		t.Errorf("got %v", timer)
	}
}

func TestAmbient(t *testing.T) {
	s := Ambient(Clock{Hour: 18, Minute: 0}, 60)

	if len(s.Resets) != 2 {
		t.Errorf("got resets %v, want [0 1]", s.Resets)
	}
	if len(s.Timers) != 2 {
		t.Fatalf("got %d timers, want 2", len(s.Timers))
	}
	down, up := s.Timers[0], s.Timers[1]
	if down.ID != 3 || up.ID != 2 {
		t.Errorf("got ids %d, %d, want descending 3, 2", down.ID, up.ID)
	}
	if up.Type != protocol.TimerWakeup || up.Color != warmColor || up.Runtime != 1 {
		t.Errorf("got up timer %v", up)
	}
	if down.Type != protocol.TimerDoze || down.Hour != 18 || down.Minute != 59 || !down.Color.IsOff() {
		t.Errorf("got down timer %v, want doze at 18:59 off", down)
	}
}

func TestWakeup(t *testing.T) {
	s := Wakeup(Clock{Hour: 6, Minute: 0}, 90)

	if len(s.Resets) != 0 {
		t.Errorf("got resets %v, want none", s.Resets)
	}
	if len(s.Timers) != 4 {
		t.Fatalf("got %d timers, want 4", len(s.Timers))
	}
	for i, wantID := range []int{3, 2, 1, 0} {
		if s.Timers[i].ID != wantID {
			t.Errorf("timer %d has id %d, want %d", i, s.Timers[i].ID, wantID)
		}
	}

	stage1 := s.Timers[3]
	if stage1.Runtime != 24 || stage1.Hour != 6 || stage1.Minute != 0 {
		t.Errorf("got stage1 %v, want runtime 24 at 06:00", stage1)
	}
	if (stage1.Color != protocol.Color{Blue: 20}) {
		t.Errorf("got stage1 color %v, want dim blue", stage1.Color)
	}
	stage2 := s.Timers[2]
	if stage2.Runtime != 12 || stage2.Hour != 6 || stage2.Minute != 24 {
		t.Errorf("got stage2 %v, want runtime 12 at 06:24", stage2)
	}
	stage3 := s.Timers[1]
	if stage3.Runtime != 1 || stage3.Hour != 6 || stage3.Minute != 36 {
		t.Errorf("got stage3 %v, want runtime 1 at 06:36", stage3)
	}
	if (stage3.Color != protocol.Color{White: 255}) {
		t.Errorf("got stage3 color %v, want full white", stage3.Color)
	}
	stage4 := s.Timers[0]
	if stage4.Type != protocol.TimerDoze || stage4.Hour != 7 || stage4.Minute != 30 || !stage4.Color.IsOff() {
		t.Errorf("got stage4 %v, want doze at 07:30 off", stage4)
	}
}

func TestWakeupClampsStageRuntimes(t *testing.T) {
	s := Wakeup(Clock{}, 1440)
	stage1 := s.Timers[3]
	if stage1.Runtime != 255 {
		t.Errorf("got runtime %d, want 255", stage1.Runtime)
	}
	stage2 := s.Timers[2]
	if stage2.Runtime != 192 {
		t.Errorf("got runtime %d, want 192", stage2.Runtime)
	}
}

func TestDoze(t *testing.T) {
	s := Doze(Clock{Hour: 22, Minute: 0}, 90)

	if len(s.Timers) != 2 {
		t.Fatalf("got %d timers, want 2", len(s.Timers))
	}
	down, up := s.Timers[0], s.Timers[1]
	if up.Runtime != 60 || up.Hour != 22 || up.Minute != 0 || up.Color != warmColor {
		t.Errorf("got up timer %v, want runtime 60 warm at 22:00", up)
	}
	if down.Runtime != 30 || down.Hour != 23 || down.Minute != 0 || !down.Color.IsOff() {
		t.Errorf("got down timer %v, want runtime 30 off at 23:00", down)
	}
}

func TestWheel(t *testing.T) {
	s, err := Wheel("bgr", 1920, Clock{Hour: 0, Minute: 0}, 128)
	if err != nil {
		t.Fatalf("Wheel: %v", err)
	}
	if len(s.Timers) != 4 {
		t.Fatalf("got %d timers, want 4", len(s.Timers))
	}

	// lap 480, field runtime capped at 255, last gap capped at 479
	for _, timer := range s.Timers {
		if timer.Runtime != 255 {
			t.Errorf("slot %d runtime %d, want 255", timer.ID, timer.Runtime)
		}
	}
	blue := s.Timers[3] // segment 0
	if blue.ID != 0 || blue.Hour != 0 || blue.Minute != 0 {
		t.Errorf("got blue segment %v, want slot 0 at 00:00", blue)
	}
	if (blue.Color != protocol.Color{Blue: 128}) {
		t.Errorf("got blue color %v", blue.Color)
	}
	green := s.Timers[2]
	if green.ID != 1 || green.Hour != 8 || green.Minute != 0 {
		t.Errorf("got green segment %v, want slot 1 at 08:00", green)
	}
	red := s.Timers[1]
	if red.ID != 2 || red.Hour != 16 || red.Minute != 0 {
		t.Errorf("got red segment %v, want slot 2 at 16:00", red)
	}
	term := s.Timers[0]
	if term.ID != 3 || term.Type != protocol.TimerDoze || term.Hour != 23 || term.Minute != 59 {
		t.Errorf("got terminator %v, want doze at 23:59", term)
	}
}

func TestWheelOrderVariants(t *testing.T) {
	s, err := Wheel("RGB", 240, Clock{Hour: 12, Minute: 0}, 255)
	if err != nil {
		t.Fatalf("Wheel: %v", err)
	}
	red := s.Timers[1]
	if red.Hour != 12 || red.Minute != 0 {
		t.Errorf("got red at %02d:%02d, want 12:00", red.Hour, red.Minute)
	}
	blue := s.Timers[3]
	if blue.Hour != 14 || blue.Minute != 0 {
		t.Errorf("got blue at %02d:%02d, want 14:00", blue.Hour, blue.Minute)
	}
}

func TestWheelRejectsMalformedOrder(t *testing.T) {
	for _, order := range []string{"", "rg", "rgg", "xyz", "rgbr"} {
		if _, err := Wheel(order, 240, Clock{}, 255); err == nil {
			t.Errorf("Wheel(%q) accepted, want error", order)
		}
	}
}
