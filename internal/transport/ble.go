package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"
)

const defaultConnectTimeout = 30 * time.Second

// BLE is the production Transport on top of tinygo.org/x/bluetooth.
type BLE struct {
	adapter *bluetooth.Adapter
	logger  *slog.Logger

	mu    sync.Mutex
	conns map[string]*bleConn // by upper-case address
}

// NewBLE enables the default adapter and returns the transport.
func NewBLE(logger *slog.Logger) (*BLE, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("enable adapter: %w", err)
	}
	b := &BLE{
		adapter: adapter,
		logger:  logger.With("component", "ble"),
		conns:   make(map[string]*bleConn),
	}
	adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if connected {
			return
		}
		addr := strings.ToUpper(device.Address.String())
		b.mu.Lock()
		conn := b.conns[addr]
		delete(b.conns, addr)
		b.mu.Unlock()
		if conn != nil {
			b.logger.Info("link lost", "address", addr)
			conn.dropped()
		}
	})
	return b, nil
}

// Scan runs an advertisement scan until ctx is done.
func (b *BLE) Scan(ctx context.Context, onAdvert func(Advertisement)) error {
	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			if err := b.adapter.StopScan(); err != nil {
				b.logger.Warn("stop scan", "err", err)
			}
		case <-stopped:
		}
	}()

	err := b.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
		onAdvert(Advertisement{
			Address: strings.ToUpper(result.Address.String()),
			Name:    result.LocalName(),
			RSSI:    result.RSSI,
		})
	})
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	return nil
}

// Connect dials the peripheral and discovers its characteristics.
func (b *BLE) Connect(ctx context.Context, address string) (Conn, error) {
	mac, err := bluetooth.ParseMAC(strings.ToUpper(address))
	if err != nil {
		return nil, fmt.Errorf("parse address %q: %w", address, err)
	}

	timeout := defaultConnectTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	params := bluetooth.ConnectionParams{ConnectionTimeout: bluetooth.NewDuration(timeout)}

	b.logger.Info("connecting", "address", address)
	device, err := b.adapter.Connect(bluetooth.Address{MACAddress: bluetooth.MACAddress{MAC: mac}}, params)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", address, err)
	}

	services, err := device.DiscoverServices(nil)
	if err != nil {
		device.Disconnect()
		return nil, fmt.Errorf("discover services on %s: %w", address, err)
	}

	chars := make(map[Characteristic]bluetooth.DeviceCharacteristic)
	for _, svc := range services {
		cs, err := svc.DiscoverCharacteristics(nil)
		if err != nil {
			b.logger.Warn("discover characteristics", "address", address, "service", svc.UUID().String(), "err", err)
			continue
		}
		for _, ch := range cs {
			chars[Characteristic(strings.ToLower(ch.UUID().String()))] = ch
		}
	}

	conn := &bleConn{
		device:  device,
		address: strings.ToUpper(address),
		chars:   chars,
		logger:  b.logger,
	}
	b.mu.Lock()
	b.conns[conn.address] = conn
	b.mu.Unlock()
	b.logger.Info("connected", "address", address, "characteristics", len(chars))
	return conn, nil
}

type bleConn struct {
	device  bluetooth.Device
	address string
	chars   map[Characteristic]bluetooth.DeviceCharacteristic
	logger  *slog.Logger

	mu       sync.Mutex
	onDrop   []func()
	notified bool
}

func (c *bleConn) Address() string { return c.address }

func (c *bleConn) char(id Characteristic) (bluetooth.DeviceCharacteristic, error) {
	ch, ok := c.chars[id]
	if !ok {
		return bluetooth.DeviceCharacteristic{}, fmt.Errorf("%s: characteristic %s not offered", c.address, id)
	}
	return ch, nil
}

func (c *bleConn) Read(ctx context.Context, id Characteristic) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch, err := c.char(id)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 64)
	n, err := ch.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("read %s on %s: %w", id, c.address, err)
	}
	return buf[:n], nil
}

func (c *bleConn) Write(ctx context.Context, id Characteristic, data []byte, ack bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ch, err := c.char(id)
	if err != nil {
		return err
	}
	if ack {
		_, err = ch.Write(data)
	} else {
		_, err = ch.WriteWithoutResponse(data)
	}
	if err != nil {
		return fmt.Errorf("write %s on %s: %w", id, c.address, err)
	}
	return nil
}

func (c *bleConn) Subscribe(id Characteristic, fn func([]byte)) (func(), error) {
	ch, err := c.char(id)
	if err != nil {
		return nil, err
	}
	err = ch.EnableNotifications(func(buf []byte) {
		data := make([]byte, len(buf))
		copy(data, buf)
		fn(data)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s on %s: %w", id, c.address, err)
	}
	return func() {
		if err := ch.EnableNotifications(nil); err != nil {
			c.logger.Warn("unsubscribe", "address", c.address, "char", id, "err", err)
		}
	}, nil
}

func (c *bleConn) OnDisconnect(fn func()) {
	c.mu.Lock()
	c.onDrop = append(c.onDrop, fn)
	c.mu.Unlock()
}

// dropped runs the disconnect handlers exactly once.
func (c *bleConn) dropped() {
	c.mu.Lock()
	if c.notified {
		c.mu.Unlock()
		return
	}
	c.notified = true
	handlers := c.onDrop
	c.mu.Unlock()
	for _, fn := range handlers {
		fn()
	}
}

func (c *bleConn) Close() error {
	if err := c.device.Disconnect(); err != nil {
		return fmt.Errorf("disconnect %s: %w", c.address, err)
	}
	c.dropped()
	return nil
}
