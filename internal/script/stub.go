//go:build no_script

package script

import (
	"context"
	"log/slog"
)

// RunResult is the result of a one-shot script execution.
type RunResult struct {
	OK       bool     `json:"ok"`
	Error    string   `json:"error,omitempty"`
	Logs     []string `json:"logs"`
	Duration string   `json:"duration"`
}

// Ops is unused when scripting is disabled.
type Ops interface{}

// Engine is a no-op stub when scripting is disabled.
type Engine struct{}

// NewEngine returns a no-op engine when scripting is disabled.
func NewEngine(_ Ops, _ *slog.Logger) *Engine { return &Engine{} }

// RunFile returns a stub result.
func (e *Engine) RunFile(_ context.Context, _ string) *RunResult {
	return &RunResult{OK: false, Error: "scripting disabled"}
}

// RunCode returns a stub result.
func (e *Engine) RunCode(_ context.Context, _ string) *RunResult {
	return &RunResult{OK: false, Error: "scripting disabled"}
}
