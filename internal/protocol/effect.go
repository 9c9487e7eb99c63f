package protocol

import (
	"encoding/json"
	"fmt"
)

// EffectType selects one of the bulb's built-in animations.
type EffectType uint8

// Effect type bytes as the firmware encodes them. Anything above candle is
// treated as off for display.
const (
	EffectFlash   EffectType = 0x00
	EffectPulse   EffectType = 0x01
	EffectDisco   EffectType = 0x02
	EffectRainbow EffectType = 0x03
	EffectCandle  EffectType = 0x04
	EffectOff     EffectType = 0xFF
)

// String returns the effect name, or "off" for any unknown type byte.
func (t EffectType) String() string {
	switch t {
	case EffectFlash:
		return "flash"
	case EffectPulse:
		return "pulse"
	case EffectDisco:
		return "disco"
	case EffectRainbow:
		return "rainbow"
	case EffectCandle:
		return "candle"
	default:
		return "off"
	}
}

// Effect is the bulb's currently running animation: the color the animation
// renders plus three unsigned-byte tuning parameters.
type Effect struct {
	Color       Color
	Type        EffectType
	Repetitions uint8
	Delay       uint8
	Pause       uint8
}

// DecodeEffect reads the 8-byte effect record.
func DecodeEffect(data []byte) Effect {
	return Effect{
		Color:       DecodeColor(data[:4]),
		Type:        EffectType(data[4]),
		Repetitions: data[5],
		Delay:       data[6],
		Pause:       data[7],
	}
}

// Bytes encodes the 8-byte effect record: color, then type, repetitions,
// delay, pause.
func (e Effect) Bytes() []byte {
	b := e.Color.Bytes()
	return append(b, byte(e.Type), e.Repetitions, e.Delay, e.Pause)
}

func (e Effect) String() string {
	return fmt.Sprintf("Effect(type=%s, color=%s, repetitions=%d, delay=%d, pause=%d)",
		e.Type, e.Color, e.Repetitions, e.Delay, e.Pause)
}

// MarshalJSON emits the raw type byte alongside its rendered name.
func (e Effect) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Color       Color  `json:"color"`
		Type        uint8  `json:"type"`
		TypeStr     string `json:"type_str"`
		Repetitions uint8  `json:"repetitions"`
		Delay       uint8  `json:"delay"`
		Pause       uint8  `json:"pause"`
	}{e.Color, uint8(e.Type), e.Type.String(), e.Repetitions, e.Delay, e.Pause})
}
