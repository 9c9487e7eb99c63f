//go:build !no_mqtt

// Package mqtt bridges connected bulbs to an MQTT broker with Home
// Assistant autodiscovery. Each bulb gets a retained state topic and a
// command topic under the configured prefix.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Heckie75/mipow-bulbs/internal/bulb"
	"github.com/Heckie75/mipow-bulbs/internal/protocol"
)

// Config holds MQTT bridge configuration.
type Config struct {
	Broker       string
	Username     string
	Password     string
	TopicPrefix  string
	PollInterval time.Duration
}

// Light is the per-bulb surface the bridge drives. *bulb.Session
// implements it.
type Light interface {
	Address() string
	State() *bulb.State
	Connected() bool
	RequestLight(ctx context.Context) (protocol.Color, error)
	RequestEffect(ctx context.Context) (protocol.Effect, error)
	SetLight(ctx context.Context, color protocol.Color) error
	SetEffect(ctx context.Context, effect protocol.Effect) error
	Toggle(ctx context.Context) error
	SubscribeTimerNotifications(fn func(bulb.TimerNotification)) (func(), error)
}

// Bridge connects a set of bulbs to MQTT.
type Bridge struct {
	client pahomqtt.Client
	lights []Light
	prefix string
	poll   time.Duration
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	unsubs []func()

	// Last fired timer slot per address.
	mu         sync.Mutex
	lastTimers map[string]uint8
}

// NewBridge creates and connects an MQTT bridge.
func NewBridge(lights []Light, cfg Config, logger *slog.Logger) (*Bridge, error) {
	ctx, cancel := context.WithCancel(context.Background())
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	b := &Bridge{
		lights:     lights,
		prefix:     cfg.TopicPrefix,
		poll:       cfg.PollInterval,
		logger:     logger.With("component", "mqtt"),
		lastTimers: make(map[string]uint8),
		ctx:        ctx,
		cancel:     cancel,
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID("mipow-bulbs").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(cfg.TopicPrefix+"/bridge/state", "offline", 1, true).
		SetOnConnectHandler(func(_ pahomqtt.Client) {
			b.logger.Info("MQTT connected")
			b.publishBridgeState("online")
			b.publishAllDiscovery()
			b.subscribeCommands()
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			b.logger.Warn("MQTT connection lost", "err", err)
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		cancel()
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		cancel()
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	b.client = client
	return b, nil
}

// Start subscribes to timer notifications and begins the state poll loop.
func (b *Bridge) Start() {
	for _, light := range b.lights {
		light := light
		unsub, err := light.SubscribeTimerNotifications(func(n bulb.TimerNotification) {
			b.handleTimerFired(light, n)
		})
		if err != nil {
			b.logger.Warn("timer notifications not supported", "address", light.Address(), "err", err)
		} else {
			b.unsubs = append(b.unsubs, unsub)
		}
	}

	b.wg.Add(1)
	go b.pollLoop()
	b.logger.Info("MQTT bridge started", "prefix", b.prefix, "bulbs", len(b.lights))
}

// Stop publishes offline state, unsubscribes, and disconnects.
func (b *Bridge) Stop() {
	b.cancel()
	b.wg.Wait()
	for _, unsub := range b.unsubs {
		unsub()
	}
	b.publishBridgeState("offline")
	b.client.Disconnect(1000)
	b.logger.Info("MQTT bridge stopped")
}

// pollLoop re-reads every bulb's color periodically so state changed by
// other clients or by the device's own schedule shows up on the bus.
func (b *Bridge) pollLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.poll)
	defer ticker.Stop()

	b.refreshAll()
	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			b.refreshAll()
		}
	}
}

func (b *Bridge) refreshAll() {
	for _, light := range b.lights {
		if !light.Connected() {
			continue
		}
		ctx, cancel := context.WithTimeout(b.ctx, 10*time.Second)
		if _, err := light.RequestLight(ctx); err != nil {
			b.logger.Warn("poll light", "address", light.Address(), "err", err)
			cancel()
			continue
		}
		if _, err := light.RequestEffect(ctx); err != nil {
			b.logger.Warn("poll effect", "address", light.Address(), "err", err)
		}
		cancel()
		b.publishState(light)
	}
}

func (b *Bridge) handleTimerFired(light Light, n bulb.TimerNotification) {
	b.logger.Info("timer fired", "address", light.Address(), "timer", n.TimerID, "color", n.Color.String())
	b.mu.Lock()
	b.lastTimers[light.Address()] = n.TimerID
	b.mu.Unlock()

	color := n.Color
	light.State().Color = &color
	b.publishState(light)
}

func (b *Bridge) publishState(light Light) {
	b.mu.Lock()
	var lastTimer *uint8
	if id, ok := b.lastTimers[light.Address()]; ok {
		lastTimer = &id
	}
	b.mu.Unlock()

	topic := b.prefix + "/" + bulbTopicName(light.Address())
	b.publish(topic, buildStatePayload(light.State(), lastTimer), true)
}

func (b *Bridge) publishBridgeState(state string) {
	b.publish(b.prefix+"/bridge/state", []byte(state), true)
}

func (b *Bridge) publishAllDiscovery() {
	for _, light := range b.lights {
		msg := buildLightDiscovery(light.State(), b.prefix)
		b.publish(msg.Topic, msg.Payload, true)
		b.logger.Info("published HA discovery", "address", light.Address(), "name", bulbDisplayName(light.State()))
	}
}

func (b *Bridge) subscribeCommands() {
	for _, light := range b.lights {
		light := light
		topic := b.prefix + "/" + bulbTopicName(light.Address()) + "/set"
		b.client.Subscribe(topic, 1, func(_ pahomqtt.Client, msg pahomqtt.Message) {
			b.handleCommand(light, msg.Payload())
		})
	}
}

// lightCommand is the accepted command payload.
type lightCommand struct {
	State       string      `json:"state,omitempty"`
	Color       *stateColor `json:"color,omitempty"`
	White       *uint8      `json:"white,omitempty"`
	Brightness  *uint8      `json:"brightness,omitempty"`
	Effect      string      `json:"effect,omitempty"`
	Delay       *uint8      `json:"delay,omitempty"`
	Repetitions *uint8      `json:"repetitions,omitempty"`
	Pause       *uint8      `json:"pause,omitempty"`
}

func (b *Bridge) handleCommand(light Light, payload []byte) {
	var cmd lightCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.logger.Warn("invalid command JSON", "address", light.Address(), "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(b.ctx, 10*time.Second)
	defer cancel()

	if err := applyCommand(ctx, light, cmd); err != nil {
		b.logger.Warn("command failed", "address", light.Address(), "err", err)
		return
	}
	b.publishState(light)
}

// applyCommand executes one parsed command against a light. Color and
// white/brightness are combined into a single write; state ON/OFF without
// an explicit color toggles relative to the current state.
func applyCommand(ctx context.Context, light Light, cmd lightCommand) error {
	if cmd.Effect != "" {
		return applyEffectCommand(ctx, light, cmd)
	}

	if cmd.Color != nil || cmd.White != nil || cmd.Brightness != nil {
		color := protocol.Color{}
		if cmd.Color != nil {
			color = protocol.Color{White: cmd.Color.W, Red: cmd.Color.R, Green: cmd.Color.G, Blue: cmd.Color.B}
		}
		if cmd.White != nil {
			color.White = *cmd.White
		}
		if cmd.Brightness != nil && color.IsOff() {
			color.White = *cmd.Brightness
		}
		return light.SetLight(ctx, color)
	}

	switch strings.ToUpper(cmd.State) {
	case "TOGGLE":
		return light.Toggle(ctx)
	case "ON":
		current, err := light.RequestLight(ctx)
		if err != nil {
			return err
		}
		if current.IsOff() {
			return light.Toggle(ctx)
		}
		return nil
	case "OFF":
		current, err := light.RequestLight(ctx)
		if err != nil {
			return err
		}
		if !current.IsOff() {
			return light.Toggle(ctx)
		}
		return nil
	case "":
		return nil
	default:
		return fmt.Errorf("unknown state %q", cmd.State)
	}
}

func applyEffectCommand(ctx context.Context, light Light, cmd lightCommand) error {
	effectType, err := parseEffectName(cmd.Effect)
	if err != nil {
		return err
	}

	color := protocol.Color{White: 255}
	if st := light.State(); st.Color != nil && !st.Color.IsOff() {
		color = *st.Color
	}
	if cmd.Color != nil {
		color = protocol.Color{White: cmd.Color.W, Red: cmd.Color.R, Green: cmd.Color.G, Blue: cmd.Color.B}
	}

	effect := protocol.Effect{Color: color, Type: effectType, Delay: 20}
	if cmd.Delay != nil {
		effect.Delay = *cmd.Delay
	}
	if cmd.Repetitions != nil {
		effect.Repetitions = *cmd.Repetitions
	}
	if cmd.Pause != nil {
		effect.Pause = *cmd.Pause
	}
	return light.SetEffect(ctx, effect)
}

func parseEffectName(name string) (protocol.EffectType, error) {
	switch strings.ToLower(name) {
	case "flash":
		return protocol.EffectFlash, nil
	case "pulse":
		return protocol.EffectPulse, nil
	case "disco":
		return protocol.EffectDisco, nil
	case "rainbow":
		return protocol.EffectRainbow, nil
	case "candle":
		return protocol.EffectCandle, nil
	case "off":
		return protocol.EffectOff, nil
	default:
		return 0, fmt.Errorf("unknown effect %q", name)
	}
}

func (b *Bridge) publish(topic string, payload []byte, retained bool) {
	token := b.client.Publish(topic, 1, retained, payload)
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			b.logger.Warn("MQTT publish timeout", "topic", topic)
		} else if err := token.Error(); err != nil {
			b.logger.Warn("MQTT publish error", "topic", topic, "err", err)
		}
	}()
}
