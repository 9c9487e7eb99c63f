// Package bulb holds the per-device state model and the session that drives
// one GATT connection to a Playbulb.
package bulb

import (
	"strings"
	"time"

	"github.com/Heckie75/mipow-bulbs/internal/protocol"
)

// MACSuffix is the fixed vendor suffix every Playbulb address ends with.
const MACSuffix = ":AC:E6"

// IsBulbAddress reports whether an address carries the vendor suffix.
func IsBulbAddress(address string) bool {
	return strings.HasSuffix(strings.ToUpper(address), MACSuffix)
}

// State is everything known locally about one bulb. Every field except the
// address is nil until the corresponding request/response exchange
// populated it; a failed exchange never touches previously known values.
type State struct {
	Address          string             `json:"address"`
	Name             *string            `json:"name"`
	SerialNumber     *string            `json:"serialNumber"`
	PIN              *string            `json:"pin"`
	BatteryLevel     *uint16            `json:"batteryLevel"`
	FirmwareRevision *string            `json:"firmwareRevision"`
	HardwareRevision *string            `json:"hardwareRevision"`
	SoftwareRevision *string            `json:"softwareRevision"`
	Manufacturer     *string            `json:"manufacturer"`
	PnPID            *string            `json:"pnpId"`
	Color            *protocol.Color    `json:"color"`
	Effect           *protocol.Effect   `json:"effect"`
	Timers           *protocol.Timers   `json:"timers"`
	Security         *protocol.Security `json:"security"`
}

// setTimer merges one written timer into the known schedule, creating the
// aggregate from the stamped wall clock if none was read yet.
func (st *State) setTimer(t protocol.Timer) {
	if st.Timers == nil {
		now := t.Now
		if now.IsZero() {
			now = time.Now()
		}
		st.Timers = &protocol.Timers{Hour: uint8(now.Hour()), Minute: uint8(now.Minute())}
	}
	st.Timers.Set(t)
}
