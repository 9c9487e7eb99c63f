package bulb

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Heckie75/mipow-bulbs/internal/protocol"
	"github.com/Heckie75/mipow-bulbs/internal/transport"
)

// ConnState is the session's connection lifecycle state.
type ConnState int32

const (
	Disconnected ConnState = iota
	Connecting
	Connected
	Disconnecting
)

func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnecting:
		return "disconnecting"
	default:
		return "disconnected"
	}
}

const (
	maxNameLen = 14
	maxPINLen  = 4
)

// Session drives one GATT connection to a single bulb. It exclusively owns
// the connection handle and the device state; characteristic I/O is
// serialized, so operations issued in sequence execute in sequence. No
// operation is retried internally.
type Session struct {
	transport transport.Transport
	logger    *slog.Logger
	state     *State

	mu        sync.Mutex // serializes characteristic I/O
	conn      transport.Conn
	connState atomic.Int32
}

// NewSession creates a disconnected session for the given address.
func NewSession(tr transport.Transport, address string, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{
		transport: tr,
		logger:    logger.With("component", "session", "address", address),
		state:     &State{Address: address},
	}
}

// Address returns the bulb's BLE address.
func (s *Session) Address() string { return s.state.Address }

// State returns the session's device state. The session exclusively owns
// it; callers read it between operations.
func (s *Session) State() *State { return s.state }

// ConnState returns the current lifecycle state.
func (s *Session) ConnState() ConnState { return ConnState(s.connState.Load()) }

// Connected reports whether the link is up.
func (s *Session) Connected() bool { return s.ConnState() == Connected }

// Connect establishes the GATT connection. Link loss reported by the
// transport moves the session straight back to Disconnected.
func (s *Session) Connect(ctx context.Context) error {
	s.connState.Store(int32(Connecting))
	conn, err := s.transport.Connect(ctx, s.state.Address)
	if err != nil {
		s.connState.Store(int32(Disconnected))
		return err
	}
	conn.OnDisconnect(func() {
		s.connState.Store(int32(Disconnected))
		s.logger.Info("disconnected")
	})
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.connState.Store(int32(Connected))
	return nil
}

// Disconnect closes the connection. Safe to call on a dropped link.
func (s *Session) Disconnect() error {
	if s.ConnState() != Connected {
		return nil
	}
	s.connState.Store(int32(Disconnecting))
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	err := conn.Close()
	s.connState.Store(int32(Disconnected))
	return err
}

func (s *Session) read(ctx context.Context, char transport.Characteristic) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil || !s.Connected() {
		return nil, transport.ErrDisconnected
	}
	s.logger.Debug("read", "char", char)
	data, err := s.conn.Read(ctx, char)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("read done", "char", char, "data", fmt.Sprintf("% x", data))
	return data, nil
}

func (s *Session) write(ctx context.Context, char transport.Characteristic, data []byte, ack bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil || !s.Connected() {
		return transport.ErrDisconnected
	}
	s.logger.Debug("write", "char", char, "data", fmt.Sprintf("% x", data), "ack", ack)
	return s.conn.Write(ctx, char, data, ack)
}

// RequestLight reads the current color.
func (s *Session) RequestLight(ctx context.Context) (protocol.Color, error) {
	data, err := s.read(ctx, transport.CharColor)
	if err != nil {
		return protocol.Color{}, err
	}
	color := protocol.DecodeColor(data)
	s.state.Color = &color
	s.logger.Info("light", "color", color.String())
	return color, nil
}

// SetLight writes a color. Delivery is unacknowledged: a lost write is not
// distinguishable from success here.
func (s *Session) SetLight(ctx context.Context, color protocol.Color) error {
	if err := s.write(ctx, transport.CharColor, color.Bytes(), false); err != nil {
		return err
	}
	clone := color
	s.state.Color = &clone
	s.logger.Info("light set", "color", color.String())
	return nil
}

// RequestEffect reads the currently running effect.
func (s *Session) RequestEffect(ctx context.Context) (protocol.Effect, error) {
	data, err := s.read(ctx, transport.CharEffect)
	if err != nil {
		return protocol.Effect{}, err
	}
	effect := protocol.DecodeEffect(data)
	s.state.Effect = &effect
	s.logger.Info("effect", "effect", effect.String())
	return effect, nil
}

// SetEffect writes an effect, unacknowledged like SetLight.
func (s *Session) SetEffect(ctx context.Context, effect protocol.Effect) error {
	if err := s.write(ctx, transport.CharEffect, effect.Bytes(), false); err != nil {
		return err
	}
	clone := effect
	s.state.Effect = &clone
	s.logger.Info("effect set", "effect", effect.String())
	return nil
}

// SetHold reads the running effect and rewrites it with new timing
// parameters, keeping color and type.
func (s *Session) SetHold(ctx context.Context, delay, repetitions, pause uint8) error {
	effect, err := s.RequestEffect(ctx)
	if err != nil {
		return err
	}
	effect.Delay = delay
	effect.Repetitions = repetitions
	effect.Pause = pause
	return s.SetEffect(ctx, effect)
}

// Halt stops the running animation but keeps the bulb showing its current
// color.
func (s *Session) Halt(ctx context.Context) error {
	color, err := s.RequestLight(ctx)
	if err != nil {
		return err
	}
	return s.SetEffect(ctx, protocol.Effect{Color: color, Type: protocol.EffectOff})
}

// Toggle turns the bulb off when it is on, remembering nothing; when it is
// off it restores the last effect color, or full white if that is off too.
func (s *Session) Toggle(ctx context.Context) error {
	color, err := s.RequestLight(ctx)
	if err != nil {
		return err
	}
	if color.IsOff() {
		effect, err := s.RequestEffect(ctx)
		if err != nil {
			return err
		}
		if !effect.Color.IsOff() {
			return s.SetLight(ctx, effect.Color)
		}
		return s.SetLight(ctx, protocol.Color{White: 255})
	}
	if err := s.SetEffect(ctx, protocol.Effect{Color: color, Type: protocol.EffectOff}); err != nil {
		return err
	}
	return s.SetLight(ctx, protocol.Color{})
}

// Dim reads the current color and writes it scaled by factor.
func (s *Session) Dim(ctx context.Context, factor float64) error {
	color, err := s.RequestLight(ctx)
	if err != nil {
		return err
	}
	return s.SetLight(ctx, color.Dim(factor))
}

// RequestTimers reads the schedule and timer-effect characteristics and
// combines them into the four-slot aggregate.
func (s *Session) RequestTimers(ctx context.Context) (protocol.Timers, error) {
	schedule, err := s.read(ctx, transport.CharTimerSchedule)
	if err != nil {
		return protocol.Timers{}, err
	}
	effect, err := s.read(ctx, transport.CharTimerEffect)
	if err != nil {
		return protocol.Timers{}, err
	}
	timers := protocol.DecodeTimers(schedule, effect)
	s.state.Timers = &timers
	s.logger.Info("timers", "timers", timers.String())
	return timers, nil
}

// SetTimer programs one schedule slot. Acknowledged: the write changes
// persistent device configuration.
func (s *Session) SetTimer(ctx context.Context, timer protocol.Timer) error {
	if err := s.write(ctx, transport.CharTimerSchedule, timer.Command(false), true); err != nil {
		return err
	}
	s.state.setTimer(timer)
	s.logger.Info("timer set", "timer", timer.String())
	return nil
}

// ResetTimer clears one schedule slot.
func (s *Session) ResetTimer(ctx context.Context, id int) error {
	timer := protocol.ResetTimer(id)
	if err := s.write(ctx, transport.CharTimerSchedule, timer.Command(true), true); err != nil {
		return err
	}
	s.state.setTimer(timer)
	s.logger.Info("timer reset", "id", id)
	return nil
}

// DeactivateTimer rewrites a slot with the off type, keeping its schedule.
func (s *Session) DeactivateTimer(ctx context.Context, timer protocol.Timer) error {
	timer.Type = protocol.TimerOff
	if err := s.write(ctx, transport.CharTimerSchedule, timer.Command(false), true); err != nil {
		return err
	}
	s.state.setTimer(timer)
	s.logger.Info("timer deactivated", "timer", timer.String())
	return nil
}

// RequestSecurity reads the security mode. The characteristic is missing on
// some firmware revisions, so a transport failure downgrades to unknown
// instead of propagating.
func (s *Session) RequestSecurity(ctx context.Context) (*protocol.Security, error) {
	data, err := s.read(ctx, transport.CharSecurityMode)
	if err != nil {
		s.logger.Warn("security not supported", "err", err)
		s.state.Security = nil
		return nil, nil
	}
	security := protocol.DecodeSecurity(data)
	s.state.Security = &security
	s.logger.Info("security", "security", security.String())
	return &security, nil
}

// SetSecurity programs the security window. Fault-tolerant like
// RequestSecurity.
func (s *Session) SetSecurity(ctx context.Context, security protocol.Security) error {
	if err := s.write(ctx, transport.CharSecurityMode, security.Bytes(false), true); err != nil {
		s.logger.Warn("security not supported", "err", err)
		s.state.Security = nil
		return nil
	}
	clone := security
	s.state.Security = &clone
	s.logger.Info("security set", "security", security.String())
	return nil
}

// ResetSecurity blanks the security window. Fault-tolerant like
// RequestSecurity.
func (s *Session) ResetSecurity(ctx context.Context) error {
	blank := protocol.BlankSecurity()
	if err := s.write(ctx, transport.CharSecurityMode, blank.Bytes(true), true); err != nil {
		s.logger.Warn("security not supported", "err", err)
		s.state.Security = nil
		return nil
	}
	s.state.Security = &blank
	s.logger.Info("security reset")
	return nil
}

// RequestName reads the given name.
func (s *Session) RequestName(ctx context.Context) (string, error) {
	data, err := s.read(ctx, transport.CharGivenName)
	if err != nil {
		return "", err
	}
	name := decodeString(data)
	s.state.Name = &name
	s.logger.Info("name", "name", name)
	return name, nil
}

// SetName writes the given name, truncated to 14 bytes.
func (s *Session) SetName(ctx context.Context, name string) error {
	data := []byte(name)
	if len(data) > maxNameLen {
		data = data[:maxNameLen]
	}
	if err := s.write(ctx, transport.CharGivenName, data, true); err != nil {
		return err
	}
	trimmed := string(data)
	s.state.Name = &trimmed
	s.logger.Info("name set", "name", trimmed)
	return nil
}

// RequestPIN reads the PIN. Not supported on all firmware revisions, so a
// failure downgrades to unknown.
func (s *Session) RequestPIN(ctx context.Context) (string, error) {
	data, err := s.read(ctx, transport.CharPIN)
	if err != nil {
		s.logger.Warn("pin not supported", "err", err)
		return "", nil
	}
	pin := decodeString(data)
	s.state.PIN = &pin
	s.logger.Info("pin", "pin", pin)
	return pin, nil
}

// SetPIN writes the PIN, truncated to 4 bytes. Fault-tolerant like
// RequestPIN.
func (s *Session) SetPIN(ctx context.Context, pin string) error {
	data := []byte(pin)
	if len(data) > maxPINLen {
		data = data[:maxPINLen]
	}
	if err := s.write(ctx, transport.CharPIN, data, true); err != nil {
		s.logger.Warn("pin not supported", "err", err)
		return nil
	}
	clone := string(data)
	s.state.PIN = &clone
	s.logger.Info("pin set")
	return nil
}

// RequestBatteryLevel reads the battery percentage. Not supported on
// mains-powered models, so a failure downgrades to unknown.
func (s *Session) RequestBatteryLevel(ctx context.Context) (*uint16, error) {
	data, err := s.read(ctx, transport.CharBatteryLevel)
	if err != nil {
		s.logger.Warn("battery level not supported", "err", err)
		s.state.BatteryLevel = nil
		return nil, nil
	}
	level := decodeBatteryLevel(data)
	s.state.BatteryLevel = &level
	s.logger.Info("battery level", "percent", level)
	return &level, nil
}

// RequestFirmwareRevision reads the firmware revision string.
func (s *Session) RequestFirmwareRevision(ctx context.Context) (string, error) {
	return s.requestString(ctx, transport.CharFirmwareRevision, &s.state.FirmwareRevision, "firmware revision")
}

// RequestHardwareRevision reads the hardware revision string.
func (s *Session) RequestHardwareRevision(ctx context.Context) (string, error) {
	return s.requestString(ctx, transport.CharHardwareRevision, &s.state.HardwareRevision, "hardware revision")
}

// RequestSoftwareRevision reads the software revision string.
func (s *Session) RequestSoftwareRevision(ctx context.Context) (string, error) {
	return s.requestString(ctx, transport.CharSoftwareRevision, &s.state.SoftwareRevision, "software revision")
}

// RequestManufacturer reads the manufacturer name string.
func (s *Session) RequestManufacturer(ctx context.Context) (string, error) {
	return s.requestString(ctx, transport.CharManufacturerName, &s.state.Manufacturer, "manufacturer")
}

// RequestSerialNumber reads the serial number string.
func (s *Session) RequestSerialNumber(ctx context.Context) (string, error) {
	return s.requestString(ctx, transport.CharSerialNumber, &s.state.SerialNumber, "serial number")
}

func (s *Session) requestString(ctx context.Context, char transport.Characteristic, field **string, what string) (string, error) {
	data, err := s.read(ctx, char)
	if err != nil {
		return "", err
	}
	value := decodeString(data)
	*field = &value
	s.logger.Info(what, "value", value)
	return value, nil
}

// RequestPnPID reads and renders the PnP identifier.
func (s *Session) RequestPnPID(ctx context.Context) (string, error) {
	data, err := s.read(ctx, transport.CharPnPID)
	if err != nil {
		return "", err
	}
	pnp := decodePnPID(data)
	s.state.PnPID = &pnp
	s.logger.Info("pnp id", "value", pnp)
	return pnp, nil
}

// RequestDeviceInfo populates the full identity block: name, manufacturer,
// serial, revisions, PnP ID and battery level.
func (s *Session) RequestDeviceInfo(ctx context.Context) error {
	if _, err := s.RequestName(ctx); err != nil {
		return err
	}
	if _, err := s.RequestManufacturer(ctx); err != nil {
		return err
	}
	if _, err := s.RequestSerialNumber(ctx); err != nil {
		return err
	}
	if _, err := s.RequestHardwareRevision(ctx); err != nil {
		return err
	}
	if _, err := s.RequestFirmwareRevision(ctx); err != nil {
		return err
	}
	if _, err := s.RequestSoftwareRevision(ctx); err != nil {
		return err
	}
	if _, err := s.RequestPnPID(ctx); err != nil {
		return err
	}
	if _, err := s.RequestBatteryLevel(ctx); err != nil {
		return err
	}
	return nil
}

// FactoryReset asks the firmware to wipe its configuration.
func (s *Session) FactoryReset(ctx context.Context) error {
	if err := s.write(ctx, transport.CharFactoryReset, []byte{0x03}, true); err != nil {
		return err
	}
	s.logger.Info("factory reset performed")
	return nil
}

// TimerNotification is one timer-fired event pushed by the bulb.
type TimerNotification struct {
	TimerID uint8
	Color   protocol.Color
}

// SubscribeTimerNotifications subscribes to the bulb's timer-fired channel
// (the repurposed heart-rate measurement characteristic). Payload layout:
// color (4 bytes), unused (2), timer id (1).
func (s *Session) SubscribeTimerNotifications(fn func(TimerNotification)) (func(), error) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil || !s.Connected() {
		return nil, transport.ErrDisconnected
	}
	return conn.Subscribe(transport.CharTimerNotification, func(data []byte) {
		if len(data) < 7 {
			s.logger.Warn("short timer notification", "data", fmt.Sprintf("% x", data))
			return
		}
		fn(TimerNotification{TimerID: data[6], Color: protocol.DecodeColor(data[:4])})
	})
}

// decodeString strips trailing NUL padding the firmware appends to string
// characteristics.
func decodeString(data []byte) string {
	end := len(data)
	for end > 0 && data[end-1] == 0 {
		end--
	}
	return string(data[:end])
}

func decodeBatteryLevel(data []byte) uint16 {
	switch {
	case len(data) >= 2:
		return binary.LittleEndian.Uint16(data[:2])
	case len(data) == 1:
		return uint16(data[0])
	default:
		return 0
	}
}

// decodePnPID renders the 7-byte PnP ID record: vendor ID source (signed
// byte), then vendor/product/version as big-endian words.
func decodePnPID(data []byte) string {
	if len(data) < 7 {
		return ""
	}
	return fmt.Sprintf("pnpId(vendorIDSource=%d,vendorID=%#x,productID=%#x,productVersion=%#x)",
		int8(data[0]),
		binary.BigEndian.Uint16(data[1:3]),
		binary.BigEndian.Uint16(data[3:5]),
		binary.BigEndian.Uint16(data[5:7]))
}
