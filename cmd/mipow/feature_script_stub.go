//go:build no_script

package main

import (
	"context"
	"fmt"

	"github.com/Heckie75/mipow-bulbs/internal/controller"
)

func (a *app) runScript(_ context.Context, _ *controller.Controller, _ string) error {
	return fmt.Errorf("built without script support")
}
