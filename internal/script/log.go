package script

import (
	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"
)

// logLoader provides structured logging functions to Lua
func logLoader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "debug", L.NewFunction(logAt(levelDebug)))
	L.SetField(mod, "info", L.NewFunction(logAt(levelInfo)))
	L.SetField(mod, "warn", L.NewFunction(logAt(levelWarn)))
	L.SetField(mod, "error", L.NewFunction(logAt(levelError)))

	L.Push(mod)
	return 1
}

type logLevel int

const (
	levelDebug logLevel = iota
	levelInfo
	levelWarn
	levelError
)

func logAt(level logLevel) lua.LGFunction {
	return func(L *lua.LState) int {
		msg := L.CheckString(1)
		fields := parseFields(L, 2)

		event := log.Debug()
		switch level {
		case levelInfo:
			event = log.Info()
		case levelWarn:
			event = log.Warn()
		case levelError:
			event = log.Error()
		}

		event = event.Str("source", "lua")
		for k, v := range fields {
			event = event.Interface(k, v)
		}
		event.Msg(msg)
		return 0
	}
}

// parseFields reads an optional table argument of extra log fields
func parseFields(L *lua.LState, index int) map[string]any {
	table := L.OptTable(index, nil)
	if table == nil {
		return nil
	}

	fields := map[string]any{}
	table.ForEach(func(key, value lua.LValue) {
		fields[key.String()] = luaToGo(value)
	})
	return fields
}

func luaToGo(value lua.LValue) any {
	switch v := value.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	default:
		return value.String()
	}
}
