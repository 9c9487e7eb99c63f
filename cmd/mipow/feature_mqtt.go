//go:build !no_mqtt

package main

import (
	"log/slog"
	"time"

	"github.com/Heckie75/mipow-bulbs/internal/controller"
	mqttbridge "github.com/Heckie75/mipow-bulbs/internal/mqtt"
)

// startBridge connects the controller's sessions to the MQTT broker and
// returns the func that shuts the bridge down.
func startBridge(ctrl *controller.Controller, cfg *Config, logger *slog.Logger) (func(), error) {
	sessions := ctrl.Sessions()
	lights := make([]mqttbridge.Light, 0, len(sessions))
	for _, s := range sessions {
		lights = append(lights, s)
	}

	var pollInterval time.Duration
	if d, err := time.ParseDuration(cfg.MQTT.PollInterval); err == nil && d > 0 {
		pollInterval = d
	}

	bridge, err := mqttbridge.NewBridge(lights, mqttbridge.Config{
		Broker:       cfg.MQTT.Broker,
		Username:     cfg.MQTT.Username,
		Password:     cfg.MQTT.Password,
		TopicPrefix:  cfg.MQTT.TopicPrefix,
		PollInterval: pollInterval,
	}, logger)
	if err != nil {
		return nil, err
	}
	bridge.Start()
	return bridge.Stop, nil
}
