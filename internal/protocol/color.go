// Package protocol implements the fixed-width record formats exchanged with
// Mipow Playbulb GATT characteristics: color, effect, timer schedule and
// security mode.
//
// All records have a fixed length. Decode functions index straight into the
// buffer; handing in a short record is a programmer error, not a signaled
// failure.
package protocol

import (
	"encoding/json"
	"fmt"
)

// TimeUnset marks an hour or minute field as not programmed.
const TimeUnset = 0xFF

// Color is one WRGB light value, four independent 8-bit channels.
// The bulb is off exactly when all four channels are zero.
type Color struct {
	White uint8
	Red   uint8
	Green uint8
	Blue  uint8
}

// DecodeColor reads a 4-byte WRGB record.
func DecodeColor(data []byte) Color {
	return Color{White: data[0], Red: data[1], Green: data[2], Blue: data[3]}
}

// Bytes encodes the 4-byte WRGB record.
func (c Color) Bytes() []byte {
	return []byte{c.White, c.Red, c.Green, c.Blue}
}

// IsOff reports whether all four channels are zero.
func (c Color) IsOff() bool {
	return c == Color{}
}

// Dim returns a copy scaled by factor, each channel clamped to [0,255] and
// truncated toward zero.
func (c Color) Dim(factor float64) Color {
	return Color{
		White: clampChannel(float64(c.White) * factor),
		Red:   clampChannel(float64(c.Red) * factor),
		Green: clampChannel(float64(c.Green) * factor),
		Blue:  clampChannel(float64(c.Blue) * factor),
	}
}

func clampChannel(v float64) uint8 {
	if v >= 255 {
		return 255
	}
	if v <= 0 {
		return 0
	}
	return uint8(v)
}

// String renders "off" or "WRGB(white,red,green,blue)".
func (c Color) String() string {
	if c.IsOff() {
		return "off"
	}
	return fmt.Sprintf("WRGB(%d,%d,%d,%d)", c.White, c.Red, c.Green, c.Blue)
}

// MarshalJSON emits the channels plus the rendered color string.
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		White    uint8  `json:"white"`
		Red      uint8  `json:"red"`
		Green    uint8  `json:"green"`
		Blue     uint8  `json:"blue"`
		ColorStr string `json:"color_str"`
	}{c.White, c.Red, c.Green, c.Blue, c.String()})
}

// FormatTime renders an hour/minute pair as "hh:mm", or "--:--" when either
// field carries the unset sentinel.
func FormatTime(hour, minute uint8) string {
	if hour == TimeUnset || minute == TimeUnset {
		return "--:--"
	}
	return fmt.Sprintf("%02d:%02d", hour, minute)
}
