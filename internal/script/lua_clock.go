//go:build !no_script

package script

import (
	"context"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/Heckie75/mipow-bulbs/internal/scene"
)

// registerClockModule registers the `clock` global table in a Lua state.
func registerClockModule(L *lua.LState, ctx context.Context) {
	mod := L.NewTable()

	mod.RawSetString("now", L.NewFunction(clockNow))
	mod.RawSetString("in_minutes", L.NewFunction(clockInMinutes))

	mod.RawSetString("sleep", L.NewFunction(func(L *lua.LState) int {
		return clockSleep(L, ctx)
	}))

	L.SetGlobal("clock", mod)
}

func pushClock(L *lua.LState, c scene.Clock) int {
	tbl := L.NewTable()
	tbl.RawSetString("hour", lua.LNumber(c.Hour))
	tbl.RawSetString("minute", lua.LNumber(c.Minute))
	L.Push(tbl)
	return 1
}

// clock.now() -> {hour=, minute=}
func clockNow(L *lua.LState) int {
	return pushClock(L, scene.Now())
}

// clock.in_minutes(n) -> {hour=, minute=}
func clockInMinutes(L *lua.LState) int {
	return pushClock(L, scene.Now().Add(L.CheckInt(1)))
}

// clock.sleep(seconds), interruptible by script cancellation.
func clockSleep(L *lua.LState, ctx context.Context) int {
	seconds := float64(L.CheckNumber(1))
	timer := time.NewTimer(time.Duration(seconds * float64(time.Second)))
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		L.RaiseError("sleep interrupted: %s", ctx.Err().Error())
	}
	return 0
}
