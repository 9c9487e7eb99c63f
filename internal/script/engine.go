//go:build !no_script

// Package script runs user-supplied Lua scripts against connected bulbs.
// Scripts get a `bulbs` module for device operations and a `clock` module
// for time arithmetic and sleeping.
package script

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/Heckie75/mipow-bulbs/internal/bulb"
	"github.com/Heckie75/mipow-bulbs/internal/protocol"
	"github.com/Heckie75/mipow-bulbs/internal/scene"
)

// RunResult is the result of a one-shot script execution.
type RunResult struct {
	OK       bool     `json:"ok"`
	Error    string   `json:"error,omitempty"`
	Logs     []string `json:"logs"`
	Duration string   `json:"duration"`
}

// Ops is the controller surface scripts drive.
type Ops interface {
	States() []*bulb.State
	RequestLight(ctx context.Context) error
	SetLight(ctx context.Context, color protocol.Color) error
	SetEffect(ctx context.Context, effect protocol.Effect) error
	Toggle(ctx context.Context) error
	Dim(ctx context.Context, factor float64) error
	Halt(ctx context.Context) error
	RequestTimers(ctx context.Context) error
	ResetTimers(ctx context.Context, ids []int) error
	SetSceneFade(ctx context.Context, runtime int, color protocol.Color) error
	SetSceneAmbient(ctx context.Context, start scene.Clock, runtime int) error
	SetSceneWakeup(ctx context.Context, start scene.Clock, runtime int) error
	SetSceneDoze(ctx context.Context, start scene.Clock, runtime int) error
	SetSceneWheel(ctx context.Context, order string, start scene.Clock, runtime int, brightness uint8) error
}

// Engine runs scripts one at a time in sandboxed Lua VMs.
type Engine struct {
	ops    Ops
	logger *slog.Logger

	mu   sync.Mutex
	logs []string
}

// NewEngine creates a script engine over the given operations.
func NewEngine(ops Ops, logger *slog.Logger) *Engine {
	return &Engine{
		ops:    ops,
		logger: logger.With("component", "script"),
	}
}

// RunFile loads and executes a script file.
func (e *Engine) RunFile(ctx context.Context, path string) *RunResult {
	start := time.Now()
	code, err := os.ReadFile(path)
	if err != nil {
		return &RunResult{OK: false, Error: "read script: " + err.Error(), Duration: time.Since(start).String()}
	}
	return e.RunCode(ctx, string(code))
}

// RunCode executes Lua code in a fresh sandboxed VM. The VM is destroyed
// when the code returns or ctx is cancelled.
func (e *Engine) RunCode(ctx context.Context, code string) *RunResult {
	start := time.Now()

	L := lua.NewState(lua.Options{SkipOpenLibs: false})
	defer L.Close()

	// Sandbox: remove dangerous libs and functions
	L.SetGlobal("os", lua.LNil)
	L.SetGlobal("io", lua.LNil)
	L.SetGlobal("loadfile", lua.LNil)
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("require", lua.LNil)
	L.SetGlobal("load", lua.LNil)
	L.SetGlobal("debug", lua.LNil)
	L.SetGlobal("package", lua.LNil)

	L.SetContext(ctx)

	e.mu.Lock()
	e.logs = nil
	e.mu.Unlock()

	registerBulbsModule(L, e, ctx)
	registerClockModule(L, ctx)

	if err := L.DoString(code); err != nil {
		dur := time.Since(start)
		errStr := err.Error()
		if strings.Contains(errStr, "context deadline exceeded") || strings.Contains(errStr, "context canceled") {
			errStr = "script interrupted: " + errStr
		}
		e.logger.Warn("script error", "err", errStr)
		return &RunResult{OK: false, Error: errStr, Logs: e.takeLogs(), Duration: dur.String()}
	}

	dur := time.Since(start)
	e.logger.Info("script complete", "duration", dur)
	return &RunResult{OK: true, Logs: e.takeLogs(), Duration: dur.String()}
}

func (e *Engine) appendLog(msg string) {
	e.mu.Lock()
	e.logs = append(e.logs, msg)
	e.mu.Unlock()
	e.logger.Info("script log", "msg", msg)
}

func (e *Engine) takeLogs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	logs := e.logs
	e.logs = nil
	return logs
}
