package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/Heckie75/mipow-bulbs/internal/alias"
	"github.com/Heckie75/mipow-bulbs/internal/bulb"
	"github.com/Heckie75/mipow-bulbs/internal/controller"
	"github.com/Heckie75/mipow-bulbs/internal/protocol"
	"github.com/Heckie75/mipow-bulbs/internal/scene"
	"github.com/Heckie75/mipow-bulbs/internal/store"
	"github.com/Heckie75/mipow-bulbs/internal/transport"
)

type app struct {
	cfg     *Config
	logger  *slog.Logger
	aliases *alias.Alias
	out     io.Writer
	errOut  io.Writer
}

func (a *app) run(p *parsed) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Setup commands work without a connection and run alone.
	switch c := p.Commands[0].(type) {
	case helpCmd:
		if c.Topic != "" {
			printCommandHelp(a.errOut, c.Topic)
		} else {
			printHelp(a.errOut)
		}
		return nil
	case aliasesCmd:
		fmt.Fprint(a.out, a.aliases.String())
		return nil
	case scanCmd:
		return a.runScan(ctx)
	case devicesCmd:
		return a.runDevices()
	}

	if len(p.Labels) == 0 {
		return fmt.Errorf("mac address or alias unknown")
	}
	addresses, err := a.aliases.ResolveAll(p.Labels)
	if err != nil {
		return err
	}

	tr, err := transport.NewBLE(a.logger)
	if err != nil {
		return err
	}
	ctrl, err := controller.New(tr, addresses, a.logger)
	if err != nil {
		return err
	}
	if err := ctrl.Connect(ctx, a.cfg.connectTimeout()); err != nil {
		return err
	}
	defer ctrl.Disconnect()

	for _, cmd := range p.Commands {
		if err := a.dispatch(ctx, ctrl, cmd); err != nil {
			return fmt.Errorf("--%s: %w", cmd.name(), err)
		}
	}
	return nil
}

func (a *app) dispatch(ctx context.Context, ctrl *controller.Controller, cmd Command) error {
	switch c := cmd.(type) {
	case statusCmd:
		if err := a.refreshStatus(ctx, ctrl); err != nil {
			return err
		}
		printStatus(a.out, ctrl.States(), a.aliases)
		return nil
	case onCmd:
		return ctrl.SetLight(ctx, protocol.Color{White: 255})
	case offCmd:
		return ctrl.SetLight(ctx, protocol.Color{})
	case toggleCmd:
		return ctrl.Toggle(ctx)
	case upCmd:
		return ctrl.Dim(ctx, 2)
	case downCmd:
		return ctrl.Dim(ctx, 0.5)
	case colorCmd:
		if c.Color == nil {
			return ctrl.RequestLight(ctx)
		}
		return ctrl.SetLight(ctx, *c.Color)
	case effectCmd:
		return ctrl.RequestEffect(ctx)
	case pulseCmd:
		return ctrl.SetEffect(ctx, protocol.Effect{Color: c.Color, Type: protocol.EffectPulse, Delay: c.Hold})
	case flashCmd:
		return ctrl.SetEffect(ctx, protocol.Effect{
			Color:       c.Color,
			Type:        protocol.EffectFlash,
			Repetitions: c.Repetitions,
			Delay:       c.Time,
			Pause:       c.Pause,
		})
	case rainbowCmd:
		return ctrl.SetEffect(ctx, protocol.Effect{Type: protocol.EffectRainbow, Delay: c.Hold})
	case candleCmd:
		return ctrl.SetEffect(ctx, protocol.Effect{Color: c.Color, Type: protocol.EffectCandle})
	case discoCmd:
		return ctrl.SetEffect(ctx, protocol.Effect{Type: protocol.EffectDisco, Delay: c.Hold})
	case holdCmd:
		return ctrl.SetHold(ctx, c.Hold, c.Repetitions, c.Pause)
	case haltCmd:
		return ctrl.Halt(ctx)
	case timerRequestCmd:
		return ctrl.RequestTimers(ctx)
	case timerOffCmd:
		ids := []int{c.ID}
		if c.ID < 0 {
			ids = []int{0, 1, 2, 3}
		}
		return ctrl.ResetTimers(ctx, ids)
	case timerSetCmd:
		start := c.Start.resolve()
		return ctrl.SetTimer(ctx, protocol.Timer{
			ID:      c.ID,
			Type:    protocol.TimerWakeup,
			Hour:    start.Hour,
			Minute:  start.Minute,
			Runtime: c.Runtime,
			Color:   c.Color,
		})
	case fadeCmd:
		return ctrl.SetSceneFade(ctx, int(c.Runtime), c.Color)
	case ambientCmd:
		return ctrl.SetSceneAmbient(ctx, startOrSoon(c.Start), c.Runtime)
	case wakeupCmd:
		return ctrl.SetSceneWakeup(ctx, startOrSoon(c.Start), c.Runtime)
	case dozeCmd:
		return ctrl.SetSceneDoze(ctx, startOrSoon(c.Start), c.Runtime)
	case wheelCmd:
		return ctrl.SetSceneWheel(ctx, c.Order, startOrSoon(c.Start), c.Runtime, c.Brightness)
	case securityRequestCmd:
		return ctrl.RequestSecurity(ctx)
	case securityOffCmd:
		return ctrl.ResetSecurity(ctx)
	case securitySetCmd:
		now := time.Now()
		start, end := c.Start.resolve(), c.End.resolve()
		return ctrl.SetSecurity(ctx, protocol.Security{
			Active:         true,
			Hour:           uint8(now.Hour()),
			Minute:         uint8(now.Minute()),
			StartingHour:   start.Hour,
			StartingMinute: start.Minute,
			EndingHour:     end.Hour,
			EndingMinute:   end.Minute,
			MinInterval:    c.MinInterval,
			MaxInterval:    c.MaxInterval,
			Color:          c.Color,
		})
	case nameCmd:
		if c.Name == "" {
			return ctrl.RequestName(ctx)
		}
		return ctrl.SetName(ctx, c.Name)
	case pinCmd:
		if c.PIN == "" {
			return ctrl.RequestPIN(ctx)
		}
		return ctrl.SetPIN(ctx, c.PIN)
	case sleepCmd:
		select {
		case <-time.After(time.Duration(c.Millis) * time.Millisecond):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	case dumpCmd:
		if err := ctrl.RequestDeviceInfo(ctx); err != nil {
			return err
		}
		if err := a.refreshStatus(ctx, ctrl); err != nil {
			return err
		}
		a.saveStates(ctrl.States())
		return nil
	case printCmd:
		printReport(a.out, ctrl.States(), a.aliases)
		return nil
	case jsonCmd:
		return printJSON(a.out, ctrl.States())
	case resetCmd:
		if err := ctrl.FactoryReset(ctx); err != nil {
			return err
		}
		a.forgetStates(ctrl.States())
		return nil
	case serveCmd:
		return a.serve(ctx, ctrl)
	case scriptCmd:
		return a.runScript(ctx, ctrl, c.Path)
	}
	return fmt.Errorf("command --%s not implemented", cmd.name())
}

func (a *app) refreshStatus(ctx context.Context, ctrl *controller.Controller) error {
	if err := ctrl.RequestLight(ctx); err != nil {
		return err
	}
	if err := ctrl.RequestEffect(ctx); err != nil {
		return err
	}
	if err := ctrl.RequestTimers(ctx); err != nil {
		return err
	}
	return ctrl.RequestSecurity(ctx)
}

func startOrSoon(start *timeSpec) scene.Clock {
	if start == nil {
		return scene.InOneMinute()
	}
	return start.resolve()
}

// runScan prints every bulb seen during the scan window and records the
// sightings in the registry.
func (a *app) runScan(ctx context.Context) error {
	tr, err := transport.NewBLE(a.logger)
	if err != nil {
		return err
	}

	db := a.openStore()
	if db != nil {
		defer db.Close()
	}

	fmt.Fprintln(a.out, "MAC-Address           Bulb name")
	_, err = controller.Scan(ctx, tr, a.cfg.scanDuration(), nil, func(adv transport.Advertisement) {
		fmt.Fprintf(a.out, "%s     %s\n", adv.Address, adv.Name)
		if db != nil {
			a.recordSighting(db, adv)
		}
	})
	return err
}

// runDevices lists the registry contents.
func (a *app) runDevices() error {
	db := a.openStore()
	if db == nil {
		return fmt.Errorf("store: cannot open %s", a.cfg.Store.Path)
	}
	defer db.Close()

	bulbs, err := db.ListBulbs()
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "MAC-Address           Bulb name       Last seen")
	for _, b := range bulbs {
		fmt.Fprintf(a.out, "%s     %-15s %s\n", b.Address, b.Name, b.LastSeen.Format(time.RFC3339))
	}
	return nil
}

func (a *app) openStore() store.Store {
	db, err := store.NewBoltStore(a.cfg.Store.Path)
	if err != nil {
		a.logger.Warn("open store", "path", a.cfg.Store.Path, "err", err)
		return nil
	}
	return db
}

func (a *app) recordSighting(db store.Store, adv transport.Advertisement) {
	now := time.Now()
	err := db.UpdateBulb(adv.Address, func(rec *store.Bulb) error {
		rec.Name = adv.Name
		rec.RSSI = adv.RSSI
		rec.LastSeen = now
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		err = db.SaveBulb(&store.Bulb{
			Address:   adv.Address,
			Name:      adv.Name,
			RSSI:      adv.RSSI,
			FirstSeen: now,
			LastSeen:  now,
		})
	}
	if err != nil {
		a.logger.Warn("save store", "address", adv.Address, "err", err)
	}
}

// saveStates snapshots the dumped state of every bulb into the registry.
func (a *app) saveStates(states []*bulb.State) {
	db := a.openStore()
	if db == nil {
		return
	}
	defer db.Close()

	now := time.Now()
	for _, st := range states {
		err := db.UpdateBulb(st.Address, func(rec *store.Bulb) error {
			if st.Name != nil {
				rec.Name = *st.Name
			}
			rec.LastSeen = now
			rec.State = st
			return nil
		})
		if errors.Is(err, store.ErrNotFound) {
			rec := &store.Bulb{Address: st.Address, FirstSeen: now, LastSeen: now, State: st}
			if st.Name != nil {
				rec.Name = *st.Name
			}
			err = db.SaveBulb(rec)
		}
		if err != nil {
			a.logger.Warn("save store", "address", st.Address, "err", err)
		}
	}
}

// forgetStates drops the registry records of bulbs that were factory reset;
// the stored name and snapshot no longer describe the device.
func (a *app) forgetStates(states []*bulb.State) {
	db := a.openStore()
	if db == nil {
		return
	}
	defer db.Close()

	for _, st := range states {
		if err := db.DeleteBulb(st.Address); err != nil && !errors.Is(err, store.ErrNotFound) {
			a.logger.Warn("delete store", "address", st.Address, "err", err)
		}
	}
}

// serve keeps the connections open and bridges the bulbs to MQTT until the
// process is signalled.
func (a *app) serve(ctx context.Context, ctrl *controller.Controller) error {
	if a.cfg.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is not configured")
	}
	stop, err := startBridge(ctrl, a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer stop()

	a.logger.Info("serving", "broker", a.cfg.MQTT.Broker)
	<-ctx.Done()
	a.logger.Info("shutting down")
	return nil
}
