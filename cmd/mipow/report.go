package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Heckie75/mipow-bulbs/internal/alias"
	"github.com/Heckie75/mipow-bulbs/internal/bulb"
	"github.com/Heckie75/mipow-bulbs/internal/protocol"
)

const reportSeparator = "-----------------------------------------------"

// printReport renders the full collected state of every bulb as a padded
// label/value listing.
func printReport(w io.Writer, states []*bulb.State, aliases *alias.Alias) {
	var s []string
	for _, st := range states {
		s = append(s, reportSeparator)
		s = append(s, line("Device mac:", st.Address))
		s = append(s, line("Device name:", orNA(st.Name)))
		label := aliases.Label(st.Address)
		if label == "" {
			label = "n/a"
		}
		s = append(s, line("Alias:", label))
		s = append(s, "")
		s = append(s, line("Device PIN:", orNA(st.PIN)))
		if st.BatteryLevel != nil {
			s = append(s, line("Battery level:", fmt.Sprintf("%d%%", *st.BatteryLevel)))
		} else {
			s = append(s, line("Battery level:", "n/a"))
		}
		s = append(s, "")
		s = append(s, line("Manufacturer:", orNA(st.Manufacturer)))
		s = append(s, line("Serial no.:", orNA(st.SerialNumber)))
		s = append(s, line("Hardware:", orNA(st.HardwareRevision)))
		s = append(s, line("Software:", orNA(st.SoftwareRevision)))
		s = append(s, line("Firmware:", orNA(st.FirmwareRevision)))
		s = append(s, line("pnpID:", orNA(st.PnPID)))
		s = append(s, "")
		if st.Color != nil {
			s = append(s, line("Light:", st.Color.String()))
		} else {
			s = append(s, line("Light:", "n/a"))
		}
		s = append(s, "")
		if st.Effect != nil {
			s = append(s, line("Effect:", st.Effect.Type.String()))
			s = append(s, line("- Light:", st.Effect.Color.String()))
			s = append(s, line("- Delay:", fmt.Sprintf("%d", st.Effect.Delay)))
			s = append(s, line("- Repetitions:", fmt.Sprintf("%d", st.Effect.Repetitions)))
			s = append(s, line("- Pause:", fmt.Sprintf("%d", st.Effect.Pause)))
		} else {
			s = append(s, line("Effect:", "n/a"))
		}
		s = append(s, "")
		if st.Timers != nil {
			for _, t := range st.Timers.Slots {
				if t == nil {
					continue
				}
				s = append(s, "")
				s = append(s, line(fmt.Sprintf("Timer %d:", t.ID+1), t.Type.String()))
				s = append(s, line("- Time:", t.TimeString()))
				s = append(s, line("- Runtime:", t.RuntimeString()))
				s = append(s, line("- Light:", t.Color.String()))
			}
			s = append(s, "")
			s = append(s, line("Time:", st.Timers.TimeString()))
		} else {
			s = append(s, line("Timers:", "n/a"))
		}
		s = append(s, "")
		if st.Security != nil {
			running := "inactive"
			if st.Security.Active {
				running = "running"
			}
			s = append(s, line("Security:", running))
			s = append(s, line("- Start:", protocol.FormatTime(st.Security.StartingHour, st.Security.StartingMinute)))
			s = append(s, line("- End:", protocol.FormatTime(st.Security.EndingHour, st.Security.EndingMinute)))
			s = append(s, line("- min. interval:", fmt.Sprintf("%d", st.Security.MinInterval)))
			s = append(s, line("- max. interval:", fmt.Sprintf("%d", st.Security.MaxInterval)))
			s = append(s, line("- Light:", st.Security.Color.String()))
		} else {
			s = append(s, line("Security:", "n/a"))
		}
		s = append(s, "")
	}
	fmt.Fprintln(w, strings.Join(s, "\n"))
}

// printStatus renders the compact per-bulb status: light or running effect,
// programmed timers and the security window.
func printStatus(w io.Writer, states []*bulb.State, aliases *alias.Alias) {
	var s []string
	for _, st := range states {
		s = append(s, reportSeparator)
		s = append(s, fmt.Sprintf("Address:    %s", st.Address))
		if label := aliases.Label(st.Address); label != "" {
			s = append(s, fmt.Sprintf("Alias:      %s\n", label))
		}

		switch {
		case st.Effect != nil && st.Effect.Type != protocol.EffectOff:
			s = append(s, fmt.Sprintf("Effect:     %s", st.Effect))
		case st.Color != nil:
			s = append(s, fmt.Sprintf("Light:      %s", st.Color))
		}

		if st.Timers != nil {
			first := true
			for _, t := range st.Timers.Slots {
				if t == nil || t.Hour == protocol.TimeUnset {
					continue
				}
				if first {
					s = append(s, "")
					first = false
				}
				s = append(s, fmt.Sprintf("Timer %d:    %s, %s, %dm", t.ID+1, t.TimeString(), t.Color, t.Runtime))
			}
		}

		if st.Security != nil && st.Security.StartingHour != protocol.TimeUnset {
			s = append(s, fmt.Sprintf("\nSecurity:   %s - %s, %s, %d - %dm",
				protocol.FormatTime(st.Security.StartingHour, st.Security.StartingMinute),
				protocol.FormatTime(st.Security.EndingHour, st.Security.EndingMinute),
				st.Security.Color, st.Security.MinInterval, st.Security.MaxInterval))
		}
	}
	fmt.Fprintln(w, strings.Join(s, "\n"))
}

// printJSON renders the collected state of every bulb as indented JSON.
func printJSON(w io.Writer, states []*bulb.State) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(states)
}

func line(label, value string) string {
	return fmt.Sprintf("%-30s%s", label, value)
}

func orNA(s *string) string {
	if s == nil || *s == "" {
		return "n/a"
	}
	return *s
}
