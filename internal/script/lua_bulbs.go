//go:build !no_script

package script

import (
	"context"

	lua "github.com/yuin/gopher-lua"

	"github.com/Heckie75/mipow-bulbs/internal/protocol"
	"github.com/Heckie75/mipow-bulbs/internal/scene"
)

// registerBulbsModule registers the `bulbs` global table in a Lua state.
func registerBulbsModule(L *lua.LState, e *Engine, ctx context.Context) {
	mod := L.NewTable()

	mod.RawSetString("set_color", L.NewFunction(func(L *lua.LState) int {
		return bulbsSetColor(L, e, ctx)
	}))

	mod.RawSetString("off", L.NewFunction(func(L *lua.LState) int {
		if err := e.ops.SetLight(ctx, protocol.Color{}); err != nil {
			L.RaiseError("off: %s", err.Error())
		}
		return 0
	}))

	mod.RawSetString("toggle", L.NewFunction(func(L *lua.LState) int {
		if err := e.ops.Toggle(ctx); err != nil {
			L.RaiseError("toggle: %s", err.Error())
		}
		return 0
	}))

	mod.RawSetString("dim", L.NewFunction(func(L *lua.LState) int {
		factor := float64(L.CheckNumber(1))
		if err := e.ops.Dim(ctx, factor); err != nil {
			L.RaiseError("dim: %s", err.Error())
		}
		return 0
	}))

	mod.RawSetString("halt", L.NewFunction(func(L *lua.LState) int {
		if err := e.ops.Halt(ctx); err != nil {
			L.RaiseError("halt: %s", err.Error())
		}
		return 0
	}))

	mod.RawSetString("effect", L.NewFunction(func(L *lua.LState) int {
		return bulbsEffect(L, e, ctx)
	}))

	mod.RawSetString("states", L.NewFunction(func(L *lua.LState) int {
		return bulbsStates(L, e, ctx)
	}))

	mod.RawSetString("reset_timers", L.NewFunction(func(L *lua.LState) int {
		return bulbsResetTimers(L, e, ctx)
	}))

	mod.RawSetString("fade", L.NewFunction(func(L *lua.LState) int {
		return bulbsFade(L, e, ctx)
	}))

	mod.RawSetString("ambient", L.NewFunction(func(L *lua.LState) int {
		return bulbsScene(L, e.ops.SetSceneAmbient, ctx)
	}))

	mod.RawSetString("wakeup", L.NewFunction(func(L *lua.LState) int {
		return bulbsScene(L, e.ops.SetSceneWakeup, ctx)
	}))

	mod.RawSetString("doze", L.NewFunction(func(L *lua.LState) int {
		return bulbsScene(L, e.ops.SetSceneDoze, ctx)
	}))

	mod.RawSetString("wheel", L.NewFunction(func(L *lua.LState) int {
		return bulbsWheel(L, e, ctx)
	}))

	mod.RawSetString("log", L.NewFunction(func(L *lua.LState) int {
		e.appendLog(L.CheckString(1))
		return 0
	}))

	L.SetGlobal("bulbs", mod)
}

// checkColor reads a {white=,red=,green=,blue=} table argument.
func checkColor(L *lua.LState, index int) protocol.Color {
	tbl := L.CheckTable(index)
	color := protocol.Color{}
	if v := tbl.RawGetString("white"); v != lua.LNil {
		color.White = uint8(lua.LVAsNumber(v))
	}
	if v := tbl.RawGetString("red"); v != lua.LNil {
		color.Red = uint8(lua.LVAsNumber(v))
	}
	if v := tbl.RawGetString("green"); v != lua.LNil {
		color.Green = uint8(lua.LVAsNumber(v))
	}
	if v := tbl.RawGetString("blue"); v != lua.LNil {
		color.Blue = uint8(lua.LVAsNumber(v))
	}
	return color
}

// checkClock reads an optional {hour=,minute=} table at index, defaulting
// to one minute from now.
func checkClock(L *lua.LState, index int) scene.Clock {
	if L.GetTop() < index {
		return scene.InOneMinute()
	}
	tbl := L.CheckTable(index)
	clock := scene.Clock{}
	if v := tbl.RawGetString("hour"); v != lua.LNil {
		clock.Hour = uint8(lua.LVAsNumber(v))
	}
	if v := tbl.RawGetString("minute"); v != lua.LNil {
		clock.Minute = uint8(lua.LVAsNumber(v))
	}
	return clock
}

// bulbs.set_color({white=, red=, green=, blue=})
func bulbsSetColor(L *lua.LState, e *Engine, ctx context.Context) int {
	color := checkColor(L, 1)
	if err := e.ops.SetLight(ctx, color); err != nil {
		L.RaiseError("set_color: %s", err.Error())
	}
	return 0
}

// bulbs.effect(name, color [, delay [, repetitions [, pause]]])
func bulbsEffect(L *lua.LState, e *Engine, ctx context.Context) int {
	name := L.CheckString(1)
	color := checkColor(L, 2)

	effect := protocol.Effect{Color: color, Delay: 20}
	switch name {
	case "flash":
		effect.Type = protocol.EffectFlash
	case "pulse":
		effect.Type = protocol.EffectPulse
	case "disco":
		effect.Type = protocol.EffectDisco
	case "rainbow":
		effect.Type = protocol.EffectRainbow
	case "candle":
		effect.Type = protocol.EffectCandle
	case "off":
		effect.Type = protocol.EffectOff
	default:
		L.RaiseError("unknown effect %q", name)
		return 0
	}
	if L.GetTop() >= 3 {
		effect.Delay = uint8(L.CheckInt(3))
	}
	if L.GetTop() >= 4 {
		effect.Repetitions = uint8(L.CheckInt(4))
	}
	if L.GetTop() >= 5 {
		effect.Pause = uint8(L.CheckInt(5))
	}

	if err := e.ops.SetEffect(ctx, effect); err != nil {
		L.RaiseError("effect: %s", err.Error())
	}
	return 0
}

// bulbs.states() -> { {address=, name=, white=, red=, green=, blue=}, ... }
func bulbsStates(L *lua.LState, e *Engine, ctx context.Context) int {
	if err := e.ops.RequestLight(ctx); err != nil {
		L.RaiseError("states: %s", err.Error())
		return 0
	}

	result := L.NewTable()
	for _, st := range e.ops.States() {
		entry := L.NewTable()
		entry.RawSetString("address", lua.LString(st.Address))
		if st.Name != nil {
			entry.RawSetString("name", lua.LString(*st.Name))
		}
		if st.Color != nil {
			entry.RawSetString("white", lua.LNumber(st.Color.White))
			entry.RawSetString("red", lua.LNumber(st.Color.Red))
			entry.RawSetString("green", lua.LNumber(st.Color.Green))
			entry.RawSetString("blue", lua.LNumber(st.Color.Blue))
			entry.RawSetString("off", lua.LBool(st.Color.IsOff()))
		}
		result.Append(entry)
	}
	L.Push(result)
	return 1
}

// bulbs.reset_timers([id, ...]); no arguments clears all four slots.
func bulbsResetTimers(L *lua.LState, e *Engine, ctx context.Context) int {
	ids := []int{0, 1, 2, 3}
	if L.GetTop() > 0 {
		ids = nil
		for i := 1; i <= L.GetTop(); i++ {
			ids = append(ids, L.CheckInt(i))
		}
	}
	if err := e.ops.ResetTimers(ctx, ids); err != nil {
		L.RaiseError("reset_timers: %s", err.Error())
	}
	return 0
}

// bulbs.fade(runtime, color)
func bulbsFade(L *lua.LState, e *Engine, ctx context.Context) int {
	runtime := L.CheckInt(1)
	color := checkColor(L, 2)
	if err := e.ops.SetSceneFade(ctx, runtime, color); err != nil {
		L.RaiseError("fade: %s", err.Error())
	}
	return 0
}

// bulbs.ambient/wakeup/doze(runtime [, {hour=, minute=}])
func bulbsScene(L *lua.LState, set func(context.Context, scene.Clock, int) error, ctx context.Context) int {
	runtime := L.CheckInt(1)
	start := checkClock(L, 2)
	if err := set(ctx, start, runtime); err != nil {
		L.RaiseError("scene: %s", err.Error())
	}
	return 0
}

// bulbs.wheel(order, runtime [, {hour=, minute=} [, brightness]])
func bulbsWheel(L *lua.LState, e *Engine, ctx context.Context) int {
	order := L.CheckString(1)
	runtime := L.CheckInt(2)
	start := checkClock(L, 3)
	brightness := uint8(255)
	if L.GetTop() >= 4 {
		brightness = uint8(L.CheckInt(4))
	}
	if err := e.ops.SetSceneWheel(ctx, order, start, runtime, brightness); err != nil {
		L.RaiseError("wheel: %s", err.Error())
	}
	return 0
}
