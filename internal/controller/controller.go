// Package controller orchestrates a set of bulb sessions: discovery,
// connection fan-out, and bulk operations with partial-failure aggregation.
package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Heckie75/mipow-bulbs/internal/bulb"
	"github.com/Heckie75/mipow-bulbs/internal/protocol"
	"github.com/Heckie75/mipow-bulbs/internal/scene"
	"github.com/Heckie75/mipow-bulbs/internal/transport"
)

// MaxConnections is the hard ceiling on concurrent sessions. Typical BLE
// adapters run out of connection slots beyond this.
const MaxConnections = 8

// ErrNotAllFound is returned when scanning located fewer bulbs than
// addresses were requested.
var ErrNotAllFound = errors.New("controller: could not find all given addresses")

// Controller owns the sessions for a fixed set of addresses.
type Controller struct {
	transport transport.Transport
	logger    *slog.Logger
	addresses []string
	sessions  []*bulb.Session
}

// New validates the address set and returns an unconnected controller.
// It fails before any transport work when the set exceeds MaxConnections.
func New(tr transport.Transport, addresses []string, logger *slog.Logger) (*Controller, error) {
	if len(addresses) == 0 {
		return nil, errors.New("controller: no addresses given")
	}
	if len(addresses) > MaxConnections {
		return nil, fmt.Errorf("controller: number of bulbs must not exceed %d, got %d", MaxConnections, len(addresses))
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Controller{
		transport: tr,
		logger:    logger.With("component", "controller"),
		addresses: addresses,
	}, nil
}

// Scan listens for bulb advertisements. With a filter it stops as soon as
// every entry has been matched, or when duration elapses; without a filter
// it runs for duration, or until ctx is done if duration is zero. Each
// entry matches an address exactly (case-insensitive) or a device name
// exactly. Only devices carrying the vendor MAC suffix and a name count.
func Scan(ctx context.Context, tr transport.Transport, duration time.Duration, filter []string, onFound func(transport.Advertisement)) ([]transport.Advertisement, error) {
	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if duration > 0 {
		scanCtx, cancel = context.WithTimeout(scanCtx, duration)
		defer cancel()
	}

	remaining := make(map[string]struct{}, len(filter))
	for _, f := range filter {
		remaining[strings.ToUpper(f)] = struct{}{}
	}

	var (
		mu    sync.Mutex
		seen  = map[string]struct{}{}
		found []transport.Advertisement
	)
	err := tr.Scan(scanCtx, func(adv transport.Advertisement) {
		mu.Lock()
		defer mu.Unlock()

		address := strings.ToUpper(adv.Address)
		if _, ok := seen[address]; ok || adv.Name == "" {
			return
		}
		seen[address] = struct{}{}
		if !bulb.IsBulbAddress(address) {
			return
		}

		if len(filter) > 0 {
			key := ""
			if _, ok := remaining[address]; ok {
				key = address
			} else if _, ok := remaining[strings.ToUpper(adv.Name)]; ok {
				key = strings.ToUpper(adv.Name)
			}
			if key == "" {
				return
			}
			delete(remaining, key)
			found = append(found, adv)
			if onFound != nil {
				onFound(adv)
			}
			if len(remaining) == 0 {
				cancel()
			}
			return
		}

		found = append(found, adv)
		if onFound != nil {
			onFound(adv)
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	return found, nil
}

// Connect discovers the configured addresses and brings up all sessions
// concurrently. The scan window is timeout plus one second per address.
// It fails with ErrNotAllFound when any address stayed unseen.
func (c *Controller) Connect(ctx context.Context, timeout time.Duration) error {
	c.logger.Info("connecting", "addresses", strings.Join(c.addresses, ", "))
	window := timeout + time.Duration(len(c.addresses))*time.Second
	found, err := Scan(ctx, c.transport, window, c.addresses, nil)
	if err != nil {
		return fmt.Errorf("scan for bulbs: %w", err)
	}
	if len(found) < len(c.addresses) {
		return ErrNotAllFound
	}

	c.sessions = make([]*bulb.Session, len(found))
	for i, adv := range found {
		c.sessions[i] = bulb.NewSession(c.transport, strings.ToUpper(adv.Address), c.logger)
	}
	return c.fanOutAll(ctx, func(ctx context.Context, s *bulb.Session) error {
		return s.Connect(ctx)
	})
}

// Disconnect closes all connected sessions.
func (c *Controller) Disconnect() error {
	return c.fanOut(context.Background(), func(_ context.Context, s *bulb.Session) error {
		return s.Disconnect()
	})
}

// Sessions returns the controller's sessions in discovery order.
func (c *Controller) Sessions() []*bulb.Session { return c.sessions }

// States returns the device state of every session in discovery order.
func (c *Controller) States() []*bulb.State {
	states := make([]*bulb.State, len(c.sessions))
	for i, s := range c.sessions {
		states[i] = s.State()
	}
	return states
}

// fanOut runs op concurrently on every connected session, waits for all
// of them to settle and joins the failures.
func (c *Controller) fanOut(ctx context.Context, op func(context.Context, *bulb.Session) error) error {
	var wg sync.WaitGroup
	errs := make([]error, len(c.sessions))
	for i, s := range c.sessions {
		if !s.Connected() {
			continue
		}
		wg.Add(1)
		go func(i int, s *bulb.Session) {
			defer wg.Done()
			if err := op(ctx, s); err != nil {
				errs[i] = fmt.Errorf("%s: %w", s.Address(), err)
			}
		}(i, s)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// fanOutAll is fanOut without the connected filter, for connection setup.
func (c *Controller) fanOutAll(ctx context.Context, op func(context.Context, *bulb.Session) error) error {
	var wg sync.WaitGroup
	errs := make([]error, len(c.sessions))
	for i, s := range c.sessions {
		wg.Add(1)
		go func(i int, s *bulb.Session) {
			defer wg.Done()
			if err := op(ctx, s); err != nil {
				errs[i] = fmt.Errorf("%s: %w", s.Address(), err)
			}
		}(i, s)
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (c *Controller) RequestName(ctx context.Context) error {
	return c.fanOut(ctx, func(ctx context.Context, s *bulb.Session) error {
		_, err := s.RequestName(ctx)
		return err
	})
}

func (c *Controller) SetName(ctx context.Context, name string) error {
	return c.fanOut(ctx, func(ctx context.Context, s *bulb.Session) error {
		return s.SetName(ctx, name)
	})
}

func (c *Controller) RequestPIN(ctx context.Context) error {
	return c.fanOut(ctx, func(ctx context.Context, s *bulb.Session) error {
		_, err := s.RequestPIN(ctx)
		return err
	})
}

func (c *Controller) SetPIN(ctx context.Context, pin string) error {
	return c.fanOut(ctx, func(ctx context.Context, s *bulb.Session) error {
		return s.SetPIN(ctx, pin)
	})
}

// RequestDeviceInfo walks the sessions one at a time. The identity block is
// eight reads per bulb; running them concurrently across bulbs floods the
// adapter's request queue.
func (c *Controller) RequestDeviceInfo(ctx context.Context) error {
	for _, s := range c.sessions {
		if !s.Connected() {
			continue
		}
		if err := s.RequestDeviceInfo(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.Address(), err)
		}
	}
	return nil
}

func (c *Controller) RequestLight(ctx context.Context) error {
	return c.fanOut(ctx, func(ctx context.Context, s *bulb.Session) error {
		_, err := s.RequestLight(ctx)
		return err
	})
}

func (c *Controller) SetLight(ctx context.Context, color protocol.Color) error {
	return c.fanOut(ctx, func(ctx context.Context, s *bulb.Session) error {
		return s.SetLight(ctx, color)
	})
}

func (c *Controller) RequestEffect(ctx context.Context) error {
	return c.fanOut(ctx, func(ctx context.Context, s *bulb.Session) error {
		_, err := s.RequestEffect(ctx)
		return err
	})
}

func (c *Controller) SetEffect(ctx context.Context, effect protocol.Effect) error {
	return c.fanOut(ctx, func(ctx context.Context, s *bulb.Session) error {
		return s.SetEffect(ctx, effect)
	})
}

func (c *Controller) SetHold(ctx context.Context, delay, repetitions, pause uint8) error {
	return c.fanOut(ctx, func(ctx context.Context, s *bulb.Session) error {
		return s.SetHold(ctx, delay, repetitions, pause)
	})
}

func (c *Controller) Halt(ctx context.Context) error {
	return c.fanOut(ctx, func(ctx context.Context, s *bulb.Session) error {
		return s.Halt(ctx)
	})
}

func (c *Controller) Toggle(ctx context.Context) error {
	return c.fanOut(ctx, func(ctx context.Context, s *bulb.Session) error {
		return s.Toggle(ctx)
	})
}

func (c *Controller) Dim(ctx context.Context, factor float64) error {
	return c.fanOut(ctx, func(ctx context.Context, s *bulb.Session) error {
		return s.Dim(ctx, factor)
	})
}

func (c *Controller) RequestTimers(ctx context.Context) error {
	return c.fanOut(ctx, func(ctx context.Context, s *bulb.Session) error {
		_, err := s.RequestTimers(ctx)
		return err
	})
}

func (c *Controller) SetTimer(ctx context.Context, timer protocol.Timer) error {
	return c.fanOut(ctx, func(ctx context.Context, s *bulb.Session) error {
		return s.SetTimer(ctx, timer)
	})
}

// SetTimers writes each timer to every bulb, preserving the given timer
// order per bulb.
func (c *Controller) SetTimers(ctx context.Context, timers []protocol.Timer) error {
	for _, timer := range timers {
		if err := c.SetTimer(ctx, timer); err != nil {
			return err
		}
	}
	return nil
}

// ResetTimers clears the given slots on every bulb.
func (c *Controller) ResetTimers(ctx context.Context, ids []int) error {
	return c.fanOut(ctx, func(ctx context.Context, s *bulb.Session) error {
		for _, id := range ids {
			if err := s.ResetTimer(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeactivateTimers turns off every currently known timer slot without
// clearing its schedule.
func (c *Controller) DeactivateTimers(ctx context.Context) error {
	return c.fanOut(ctx, func(ctx context.Context, s *bulb.Session) error {
		timers := s.State().Timers
		if timers == nil {
			read, err := s.RequestTimers(ctx)
			if err != nil {
				return err
			}
			timers = &read
		}
		for i := protocol.NumSlots - 1; i >= 0; i-- {
			t := timers.Slots[i]
			if t == nil || t.Type == protocol.TimerOff {
				continue
			}
			if err := s.DeactivateTimer(ctx, *t); err != nil {
				return err
			}
		}
		return nil
	})
}

// ApplyScene clears the scene's reset slots and writes its timers in order.
func (c *Controller) ApplyScene(ctx context.Context, sc scene.Scene) error {
	if len(sc.Resets) > 0 {
		if err := c.ResetTimers(ctx, sc.Resets); err != nil {
			return err
		}
	}
	return c.SetTimers(ctx, sc.Timers)
}

// SetSceneFade fades to color over runtime minutes, starting in one minute.
func (c *Controller) SetSceneFade(ctx context.Context, runtime int, color protocol.Color) error {
	if runtime > 255 {
		runtime = 255
	}
	return c.ApplyScene(ctx, scene.Fade(scene.InOneMinute(), uint8(runtime), color))
}

// SetSceneAmbient programs the ambient scene, runtime clamped to the day.
func (c *Controller) SetSceneAmbient(ctx context.Context, start scene.Clock, runtime int) error {
	return c.ApplyScene(ctx, scene.Ambient(start, scene.ClampRuntimeToDay(start, runtime)))
}

// SetSceneWakeup programs the wakeup scene, runtime clamped to the day.
func (c *Controller) SetSceneWakeup(ctx context.Context, start scene.Clock, runtime int) error {
	return c.ApplyScene(ctx, scene.Wakeup(start, scene.ClampRuntimeToDay(start, runtime)))
}

// SetSceneDoze programs the doze scene, runtime clamped to the day.
func (c *Controller) SetSceneDoze(ctx context.Context, start scene.Clock, runtime int) error {
	return c.ApplyScene(ctx, scene.Doze(start, scene.ClampRuntimeToDay(start, runtime)))
}

// SetSceneWheel programs the color wheel, runtime clamped to the day.
func (c *Controller) SetSceneWheel(ctx context.Context, order string, start scene.Clock, runtime int, brightness uint8) error {
	sc, err := scene.Wheel(order, scene.ClampRuntimeToDay(start, runtime), start, brightness)
	if err != nil {
		return err
	}
	return c.ApplyScene(ctx, sc)
}

func (c *Controller) RequestSecurity(ctx context.Context) error {
	return c.fanOut(ctx, func(ctx context.Context, s *bulb.Session) error {
		_, err := s.RequestSecurity(ctx)
		return err
	})
}

func (c *Controller) SetSecurity(ctx context.Context, security protocol.Security) error {
	return c.fanOut(ctx, func(ctx context.Context, s *bulb.Session) error {
		return s.SetSecurity(ctx, security)
	})
}

func (c *Controller) ResetSecurity(ctx context.Context) error {
	return c.fanOut(ctx, func(ctx context.Context, s *bulb.Session) error {
		return s.ResetSecurity(ctx)
	})
}

func (c *Controller) RequestBatteryLevel(ctx context.Context) error {
	return c.fanOut(ctx, func(ctx context.Context, s *bulb.Session) error {
		_, err := s.RequestBatteryLevel(ctx)
		return err
	})
}

func (c *Controller) FactoryReset(ctx context.Context) error {
	return c.fanOut(ctx, func(ctx context.Context, s *bulb.Session) error {
		return s.FactoryReset(ctx)
	})
}

// SubscribeTimerNotifications subscribes every connected session and
// returns one func cancelling all subscriptions. Bulbs whose firmware does
// not support the notification channel are skipped with a warning.
func (c *Controller) SubscribeTimerNotifications(fn func(address string, n bulb.TimerNotification)) func() {
	cancels := make([]func(), 0, len(c.sessions))
	for _, s := range c.sessions {
		if !s.Connected() {
			continue
		}
		address := s.Address()
		cancel, err := s.SubscribeTimerNotifications(func(n bulb.TimerNotification) {
			fn(address, n)
		})
		if err != nil {
			c.logger.Warn("notifications not supported", "address", address, "err", err)
			continue
		}
		cancels = append(cancels, cancel)
	}
	return func() {
		for _, cancel := range cancels {
			cancel()
		}
	}
}
