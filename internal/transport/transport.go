// Package transport abstracts the BLE link to a bulb: advertisement
// scanning, connection establishment, and GATT characteristic I/O.
// Backend: tinygo.org/x/bluetooth (BlueZ on Linux).
package transport

import (
	"context"
	"errors"
)

// ErrDisconnected is returned for I/O on a connection the peripheral has
// dropped.
var ErrDisconnected = errors.New("transport: disconnected")

// Advertisement is one observed BLE advertisement.
type Advertisement struct {
	Address string
	Name    string
	RSSI    int16
}

// Transport is the abstract BLE central backend.
type Transport interface {
	// Scan delivers advertisements to onAdvert until ctx is done.
	Scan(ctx context.Context, onAdvert func(Advertisement)) error

	// Connect establishes a GATT connection to the given address.
	Connect(ctx context.Context, address string) (Conn, error)
}

// Conn is one GATT connection to a peripheral.
type Conn interface {
	// Address returns the peripheral address the connection was made to.
	Address() string

	// Read reads the current value of a characteristic.
	Read(ctx context.Context, char Characteristic) ([]byte, error)

	// Write sends data to a characteristic. With ack set the peripheral
	// confirms receipt before the call returns; without it a failed
	// delivery is not distinguishable from success.
	Write(ctx context.Context, char Characteristic, data []byte, ack bool) error

	// Subscribe registers fn for notifications on a characteristic and
	// returns the func that cancels the subscription.
	Subscribe(char Characteristic, fn func([]byte)) (func(), error)

	// OnDisconnect registers fn to run once when the link drops,
	// whether by Close or by the peripheral going away.
	OnDisconnect(fn func())

	// Close tears the connection down.
	Close() error
}
