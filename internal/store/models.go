package store

import (
	"time"

	"github.com/Heckie75/mipow-bulbs/internal/bulb"
)

// Bulb is one registry entry. State holds the snapshot taken the last time
// the client talked to the device; it goes stale the moment anything else
// writes to the bulb.
type Bulb struct {
	Address   string      `json:"address"`
	Name      string      `json:"name,omitempty"`
	RSSI      int16       `json:"rssi,omitempty"`
	FirstSeen time.Time   `json:"first_seen"`
	LastSeen  time.Time   `json:"last_seen"`
	State     *bulb.State `json:"state,omitempty"`
}
