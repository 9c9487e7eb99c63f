//go:build !no_mqtt

package mqtt

import (
	"encoding/json"
	"strings"

	"github.com/Heckie75/mipow-bulbs/internal/bulb"
	"github.com/Heckie75/mipow-bulbs/internal/protocol"
)

// discoveryMsg is a Home Assistant MQTT discovery payload.
type discoveryMsg struct {
	Topic   string // e.g. "homeassistant/light/mipow_af664b01ace6/config"
	Payload []byte // JSON, empty means delete
}

// haDevice is the "device" block in HA discovery.
type haDevice struct {
	Identifiers  []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
	Name         string   `json:"name"`
}

// haLight is the HA discovery payload for a JSON-schema light.
type haLight struct {
	Name              string   `json:"name"`
	UniqueID          string   `json:"unique_id"`
	Schema            string   `json:"schema"`
	StateTopic        string   `json:"state_topic"`
	CommandTopic      string   `json:"command_topic"`
	AvailabilityTopic string   `json:"availability_topic"`
	Brightness        bool     `json:"brightness"`
	BrightnessScale   int      `json:"brightness_scale,omitempty"`
	ColorModes        []string `json:"supported_color_modes,omitempty"`
	Effect            bool     `json:"effect"`
	EffectList        []string `json:"effect_list,omitempty"`
	Device            haDevice `json:"device"`
}

var effectNames = []string{"flash", "pulse", "disco", "rainbow", "candle", "off"}

// bulbDisplayName returns a display name for the bulb.
func bulbDisplayName(st *bulb.State) string {
	if st.Name != nil && *st.Name != "" {
		return *st.Name
	}
	return st.Address
}

// bulbIdentifier returns the unique identifier for the HA device registry.
func bulbIdentifier(address string) string {
	return "mipow_" + strings.ToLower(strings.ReplaceAll(address, ":", ""))
}

// bulbTopicName returns the topic node for a bulb. The address is used so
// retained topics survive renames.
func bulbTopicName(address string) string {
	return strings.ToLower(strings.ReplaceAll(address, ":", ""))
}

// buildLightDiscovery generates the HA discovery message for one bulb.
func buildLightDiscovery(st *bulb.State, prefix string) discoveryMsg {
	nodeID := bulbIdentifier(st.Address)
	displayName := bulbDisplayName(st)
	stateTopic := prefix + "/" + bulbTopicName(st.Address)

	model := "Playbulb"
	if st.SerialNumber != nil && *st.SerialNumber != "" {
		model = "Playbulb " + *st.SerialNumber
	}
	manufacturer := "Mipow"
	if st.Manufacturer != nil && *st.Manufacturer != "" {
		manufacturer = *st.Manufacturer
	}

	payload := haLight{
		Name:              displayName,
		UniqueID:          nodeID,
		Schema:            "json",
		StateTopic:        stateTopic,
		CommandTopic:      stateTopic + "/set",
		AvailabilityTopic: prefix + "/bridge/state",
		Brightness:        true,
		BrightnessScale:   255,
		ColorModes:        []string{"rgbw"},
		Effect:            true,
		EffectList:        effectNames,
		Device: haDevice{
			Identifiers:  []string{nodeID},
			Manufacturer: manufacturer,
			Model:        model,
			Name:         displayName,
		},
	}
	return discoveryMsg{
		Topic:   "homeassistant/light/" + nodeID + "/config",
		Payload: mustJSON(payload),
	}
}

// statePayload is the JSON state published for one bulb.
type statePayload struct {
	State      string        `json:"state"`
	Color      *stateColor   `json:"color,omitempty"`
	White      *uint8        `json:"white,omitempty"`
	Brightness *uint8        `json:"brightness,omitempty"`
	Effect     string        `json:"effect,omitempty"`
	Timers     []interface{} `json:"timers,omitempty"`
	LastTimer  *uint8        `json:"last_timer,omitempty"`
}

type stateColor struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	W uint8 `json:"w"`
}

// buildStatePayload renders the retained state message. lastTimer carries
// the id of the most recently fired schedule slot, if any.
func buildStatePayload(st *bulb.State, lastTimer *uint8) []byte {
	p := statePayload{State: "OFF", LastTimer: lastTimer}
	if st.Color != nil {
		c := *st.Color
		if !c.IsOff() {
			p.State = "ON"
		}
		p.Color = &stateColor{R: c.Red, G: c.Green, B: c.Blue, W: c.White}
		p.White = &c.White
		brightness := maxChannel(c)
		p.Brightness = &brightness
	}
	if st.Effect != nil && st.Effect.Type != protocol.EffectOff {
		p.Effect = st.Effect.Type.String()
	}
	return mustJSON(p)
}

func maxChannel(c protocol.Color) uint8 {
	m := c.White
	for _, v := range []uint8{c.Red, c.Green, c.Blue} {
		if v > m {
			m = v
		}
	}
	return m
}

func mustJSON(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
