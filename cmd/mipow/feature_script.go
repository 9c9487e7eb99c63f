//go:build !no_script

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/Heckie75/mipow-bulbs/internal/controller"
	"github.com/Heckie75/mipow-bulbs/internal/script"
)

// runScript executes a Lua file against the connected bulbs. Script log
// lines go to stdout as they are the script's output.
func (a *app) runScript(ctx context.Context, ctrl *controller.Controller, path string) error {
	engine := script.NewEngine(ctrl, a.logger)
	result := engine.RunFile(ctx, path)
	for _, line := range result.Logs {
		fmt.Fprintln(a.out, line)
	}
	a.logger.Debug("script finished", "path", path, "ok", result.OK, "duration", result.Duration)
	if !result.OK {
		return errors.New(result.Error)
	}
	return nil
}
