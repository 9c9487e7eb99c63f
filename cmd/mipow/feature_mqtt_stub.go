//go:build no_mqtt

package main

import (
	"fmt"
	"log/slog"

	"github.com/Heckie75/mipow-bulbs/internal/controller"
)

func startBridge(_ *controller.Controller, _ *Config, _ *slog.Logger) (func(), error) {
	return nil, fmt.Errorf("built without mqtt support")
}
