package protocol

import (
	"encoding/json"
	"fmt"
)

// Security is the bulb's motion-simulation window: between the starting and
// ending time of day the bulb re-triggers the stored color at random
// intervals between MinInterval and MaxInterval minutes.
type Security struct {
	Active         bool
	Hour           uint8 // bulb clock, informational
	Minute         uint8
	StartingHour   uint8
	StartingMinute uint8
	EndingHour     uint8
	EndingMinute   uint8
	MinInterval    uint8 // minutes
	MaxInterval    uint8 // minutes
	Color          Color
}

// BlankSecurity returns the not-programmed value: window and intervals all
// carry the unset sentinel.
func BlankSecurity() Security {
	return Security{
		StartingHour:   TimeUnset,
		StartingMinute: TimeUnset,
		EndingHour:     TimeUnset,
		EndingMinute:   TimeUnset,
		MinInterval:    TimeUnset,
		MaxInterval:    TimeUnset,
	}
}

// DecodeSecurity reads the 13-byte security record.
func DecodeSecurity(data []byte) Security {
	return Security{
		Active:         data[0] != 0,
		Hour:           data[1],
		Minute:         data[2],
		StartingHour:   data[3],
		StartingMinute: data[4],
		EndingHour:     data[5],
		EndingMinute:   data[6],
		MinInterval:    data[7],
		MaxInterval:    data[8],
		Color:          DecodeColor(data[9:13]),
	}
}

// Bytes encodes the 13-byte security write record. The reset form blanks
// the window with 0xFF sentinels and an off color.
func (s Security) Bytes(reset bool) []byte {
	b := []byte{0x00, s.Minute, s.Hour}
	if reset {
		b = append(b, TimeUnset, TimeUnset, TimeUnset, TimeUnset, TimeUnset, TimeUnset)
		return append(b, Color{}.Bytes()...)
	}
	b = append(b, s.StartingHour, s.StartingMinute, s.EndingHour, s.EndingMinute,
		s.MinInterval, s.MaxInterval)
	return append(b, s.Color.Bytes()...)
}

func (s Security) String() string {
	return fmt.Sprintf("Security(active=%t, time=%s, start=%s, end=%s, interval=%d-%dm, color=%s)",
		s.Active, FormatTime(s.Hour, s.Minute),
		FormatTime(s.StartingHour, s.StartingMinute),
		FormatTime(s.EndingHour, s.EndingMinute),
		s.MinInterval, s.MaxInterval, s.Color)
}

// MarshalJSON emits the raw fields alongside their rendered time strings.
func (s Security) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Active         bool   `json:"active"`
		Hour           uint8  `json:"hour"`
		Minute         uint8  `json:"minute"`
		TimeStr        string `json:"time_str"`
		StartingHour   uint8  `json:"startingHour"`
		StartingMinute uint8  `json:"startingMinute"`
		StartStr       string `json:"start_str"`
		EndingHour     uint8  `json:"endingHour"`
		EndingMinute   uint8  `json:"endingMinute"`
		EndStr         string `json:"end_str"`
		MinInterval    uint8  `json:"minInterval"`
		MaxInterval    uint8  `json:"maxInterval"`
		Color          Color  `json:"color"`
	}{s.Active, s.Hour, s.Minute, FormatTime(s.Hour, s.Minute),
		s.StartingHour, s.StartingMinute, FormatTime(s.StartingHour, s.StartingMinute),
		s.EndingHour, s.EndingMinute, FormatTime(s.EndingHour, s.EndingMinute),
		s.MinInterval, s.MaxInterval, s.Color})
}
