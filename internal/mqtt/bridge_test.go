//go:build !no_mqtt

package mqtt

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Heckie75/mipow-bulbs/internal/bulb"
	"github.com/Heckie75/mipow-bulbs/internal/protocol"
)

type fakeLight struct {
	state    *bulb.State
	setColor *protocol.Color
	effect   *protocol.Effect
	toggled  int
}

func newFakeLight(address string) *fakeLight {
	return &fakeLight{state: &bulb.State{Address: address}}
}

func (l *fakeLight) Address() string    { return l.state.Address }
func (l *fakeLight) State() *bulb.State { return l.state }
func (l *fakeLight) Connected() bool    { return true }

func (l *fakeLight) RequestLight(context.Context) (protocol.Color, error) {
	if l.state.Color == nil {
		return protocol.Color{}, nil
	}
	return *l.state.Color, nil
}

func (l *fakeLight) RequestEffect(context.Context) (protocol.Effect, error) {
	if l.state.Effect == nil {
		return protocol.Effect{Type: protocol.EffectOff}, nil
	}
	return *l.state.Effect, nil
}

func (l *fakeLight) SetLight(_ context.Context, color protocol.Color) error {
	l.setColor = &color
	l.state.Color = &color
	return nil
}

func (l *fakeLight) SetEffect(_ context.Context, effect protocol.Effect) error {
	l.effect = &effect
	return nil
}

func (l *fakeLight) Toggle(context.Context) error {
	l.toggled++
	return nil
}

func (l *fakeLight) SubscribeTimerNotifications(func(bulb.TimerNotification)) (func(), error) {
	return func() {}, nil
}

func TestBulbTopicName(t *testing.T) {
	if got := bulbTopicName("AF:66:4B:01:AC:E6"); got != "af664b01ace6" {
		t.Errorf("got %q, want %q", got, "af664b01ace6")
	}
}

func TestBuildLightDiscovery(t *testing.T) {
	name := "Living room"
	serial := "BTL201"
	st := &bulb.State{Address: "AF:66:4B:01:AC:E6", Name: &name, SerialNumber: &serial}

	msg := buildLightDiscovery(st, "mipow")
	if msg.Topic != "homeassistant/light/mipow_af664b01ace6/config" {
		t.Errorf("got topic %q", msg.Topic)
	}

	var payload map[string]any
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("unmarshal discovery: %v", err)
	}
	if payload["name"] != "Living room" {
		t.Errorf("name = %v", payload["name"])
	}
	if payload["state_topic"] != "mipow/af664b01ace6" {
		t.Errorf("state_topic = %v", payload["state_topic"])
	}
	if payload["command_topic"] != "mipow/af664b01ace6/set" {
		t.Errorf("command_topic = %v", payload["command_topic"])
	}
	if payload["availability_topic"] != "mipow/bridge/state" {
		t.Errorf("availability_topic = %v", payload["availability_topic"])
	}
	device, _ := payload["device"].(map[string]any)
	if device["model"] != "Playbulb BTL201" {
		t.Errorf("model = %v", device["model"])
	}
}

func TestBuildStatePayload(t *testing.T) {
	color := protocol.Color{Red: 255, Green: 128}
	effect := protocol.Effect{Color: color, Type: protocol.EffectPulse}
	st := &bulb.State{Address: "AF:66:4B:01:AC:E6", Color: &color, Effect: &effect}

	var payload map[string]any
	if err := json.Unmarshal(buildStatePayload(st, nil), &payload); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	if payload["state"] != "ON" {
		t.Errorf("state = %v, want ON", payload["state"])
	}
	if payload["effect"] != "pulse" {
		t.Errorf("effect = %v, want pulse", payload["effect"])
	}
	if payload["brightness"] != float64(255) {
		t.Errorf("brightness = %v, want 255", payload["brightness"])
	}

	off := protocol.Color{}
	st = &bulb.State{Address: "AF:66:4B:01:AC:E6", Color: &off}
	if err := json.Unmarshal(buildStatePayload(st, nil), &payload); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	if payload["state"] != "OFF" {
		t.Errorf("state = %v, want OFF", payload["state"])
	}
}

func TestBuildStatePayloadLastTimer(t *testing.T) {
	id := uint8(2)
	st := &bulb.State{Address: "AF:66:4B:01:AC:E6"}

	var payload map[string]any
	if err := json.Unmarshal(buildStatePayload(st, &id), &payload); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	if payload["last_timer"] != float64(2) {
		t.Errorf("last_timer = %v, want 2", payload["last_timer"])
	}
}

func TestApplyCommandColor(t *testing.T) {
	light := newFakeLight("AF:66:4B:01:AC:E6")
	cmd := lightCommand{Color: &stateColor{R: 255, G: 10, B: 20}}

	if err := applyCommand(context.Background(), light, cmd); err != nil {
		t.Fatalf("applyCommand: %v", err)
	}
	want := protocol.Color{Red: 255, Green: 10, Blue: 20}
	if light.setColor == nil || *light.setColor != want {
		t.Errorf("got %v, want %v", light.setColor, want)
	}
}

func TestApplyCommandBrightnessAlone(t *testing.T) {
	light := newFakeLight("AF:66:4B:01:AC:E6")
	brightness := uint8(80)

	if err := applyCommand(context.Background(), light, lightCommand{Brightness: &brightness}); err != nil {
		t.Fatalf("applyCommand: %v", err)
	}
	if light.setColor == nil || light.setColor.White != 80 {
		t.Errorf("got %v, want white 80", light.setColor)
	}
}

func TestApplyCommandState(t *testing.T) {
	tests := []struct {
		name        string
		current     protocol.Color
		state       string
		wantToggles int
	}{
		{"on when off toggles", protocol.Color{}, "ON", 1},
		{"on when on is a no-op", protocol.Color{Red: 255}, "ON", 0},
		{"off when on toggles", protocol.Color{Red: 255}, "OFF", 1},
		{"off when off is a no-op", protocol.Color{}, "OFF", 0},
		{"toggle always toggles", protocol.Color{}, "TOGGLE", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			light := newFakeLight("AF:66:4B:01:AC:E6")
			current := tt.current
			light.state.Color = &current

			if err := applyCommand(context.Background(), light, lightCommand{State: tt.state}); err != nil {
				t.Fatalf("applyCommand: %v", err)
			}
			if light.toggled != tt.wantToggles {
				t.Errorf("got %d toggles, want %d", light.toggled, tt.wantToggles)
			}
		})
	}
}

func TestApplyCommandUnknownState(t *testing.T) {
	light := newFakeLight("AF:66:4B:01:AC:E6")
	if err := applyCommand(context.Background(), light, lightCommand{State: "BLINK"}); err == nil {
		t.Error("unknown state accepted")
	}
}

func TestApplyCommandEffect(t *testing.T) {
	light := newFakeLight("AF:66:4B:01:AC:E6")
	current := protocol.Color{Blue: 200}
	light.state.Color = &current
	delay := uint8(50)

	cmd := lightCommand{Effect: "pulse", Delay: &delay}
	if err := applyCommand(context.Background(), light, cmd); err != nil {
		t.Fatalf("applyCommand: %v", err)
	}
	if light.effect == nil {
		t.Fatal("no effect written")
	}
	if light.effect.Type != protocol.EffectPulse || light.effect.Delay != 50 {
		t.Errorf("got %v, want pulse with delay 50", light.effect)
	}
	if light.effect.Color != current {
		t.Errorf("got color %v, want the current color %v", light.effect.Color, current)
	}
}

func TestApplyCommandUnknownEffect(t *testing.T) {
	light := newFakeLight("AF:66:4B:01:AC:E6")
	if err := applyCommand(context.Background(), light, lightCommand{Effect: "strobe"}); err == nil {
		t.Error("unknown effect accepted")
	}
}

func TestMustJSON(t *testing.T) {
	if got := string(mustJSON(map[string]int{"a": 1})); got != `{"a":1}` {
		t.Errorf("got %q", got)
	}
	if got := string(mustJSON(make(chan int))); got != "{}" {
		t.Errorf("got %q, want {} for unmarshalable value", got)
	}
}
