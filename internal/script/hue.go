package script

import (
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/huelink/bridge"
)

// hueLoader exposes bridge operations to Lua
func (r *Runtime) hueLoader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "lights", L.NewFunction(r.lights))
	L.SetField(mod, "rooms", L.NewFunction(r.rooms))
	L.SetField(mod, "zones", L.NewFunction(r.zones))
	L.SetField(mod, "scenes", L.NewFunction(r.scenes))
	L.SetField(mod, "set_light", L.NewFunction(r.setLight))
	L.SetField(mod, "set_group", L.NewFunction(r.setGroup))
	L.SetField(mod, "recall_scene", L.NewFunction(r.recallScene))
	L.SetField(mod, "sleep", L.NewFunction(r.sleep))

	L.Push(mod)
	return 1
}

// lights returns { {id=..., name=..., on=..., brightness=...}, ... }
func (r *Runtime) lights(L *lua.LState) int {
	lights, err := r.bridge.GetAllLights(r.ctx)
	if err != nil {
		L.RaiseError("lights: %v", err)
	}

	out := L.NewTable()
	for _, light := range lights {
		entry := L.NewTable()
		L.SetField(entry, "id", lua.LString(light.ID))
		if light.Metadata != nil {
			L.SetField(entry, "name", lua.LString(light.Metadata.Name))
		}
		if light.On != nil {
			L.SetField(entry, "on", lua.LBool(light.On.On))
		}
		if light.Dimming != nil {
			L.SetField(entry, "brightness", lua.LNumber(light.Dimming.Brightness))
		}
		out.Append(entry)
	}
	L.Push(out)
	return 1
}

// rooms returns resolved rooms as { {id=..., name=..., lights={id, ...}}, ... }
func (r *Runtime) rooms(L *lua.LState) int {
	rooms, err := r.bridge.ResolveRooms(r.ctx)
	if err != nil {
		L.RaiseError("rooms: %v", err)
	}

	out := L.NewTable()
	for _, room := range rooms {
		entry := L.NewTable()
		L.SetField(entry, "id", lua.LString(room.ID))
		if room.Metadata != nil {
			L.SetField(entry, "name", lua.LString(room.Metadata.Name))
		}
		lights := L.NewTable()
		for _, light := range room.Children {
			lights.Append(lua.LString(light.ID))
		}
		L.SetField(entry, "lights", lights)
		out.Append(entry)
	}
	L.Push(out)
	return 1
}

func (r *Runtime) zones(L *lua.LState) int {
	zones, err := r.bridge.ResolveZones(r.ctx)
	if err != nil {
		L.RaiseError("zones: %v", err)
	}

	out := L.NewTable()
	for _, zone := range zones {
		entry := L.NewTable()
		L.SetField(entry, "id", lua.LString(zone.ID))
		if zone.Metadata != nil {
			L.SetField(entry, "name", lua.LString(zone.Metadata.Name))
		}
		lights := L.NewTable()
		for _, light := range zone.Children {
			lights.Append(lua.LString(light.ID))
		}
		L.SetField(entry, "lights", lights)
		out.Append(entry)
	}
	L.Push(out)
	return 1
}

func (r *Runtime) scenes(L *lua.LState) int {
	scenes, err := r.bridge.GetAllScenes(r.ctx)
	if err != nil {
		L.RaiseError("scenes: %v", err)
	}

	out := L.NewTable()
	for _, scene := range scenes {
		entry := L.NewTable()
		L.SetField(entry, "id", lua.LString(scene.ID))
		if scene.Metadata != nil {
			L.SetField(entry, "name", lua.LString(scene.Metadata.Name))
		}
		if scene.Group != nil {
			L.SetField(entry, "group", lua.LString(scene.Group.RID))
		}
		out.Append(entry)
	}
	L.Push(out)
	return 1
}

// set_light("id", {on=true, brightness=50, mirek=366, transition_ms=400})
func (r *Runtime) setLight(L *lua.LState) int {
	id := L.CheckString(1)
	command := commandFromTable(L.CheckTable(2))

	r.throttle(L)
	if err := r.bridge.SetLightState(r.ctx, id, command); err != nil {
		L.RaiseError("set_light %s: %v", id, err)
	}
	return 0
}

func (r *Runtime) setGroup(L *lua.LState) int {
	id := L.CheckString(1)
	command := commandFromTable(L.CheckTable(2))

	r.throttle(L)
	if err := r.bridge.SetGroupState(r.ctx, id, command); err != nil {
		L.RaiseError("set_group %s: %v", id, err)
	}
	return 0
}

func (r *Runtime) recallScene(L *lua.LState) int {
	id := L.CheckString(1)

	r.throttle(L)
	if err := r.bridge.RecallScene(r.ctx, id); err != nil {
		L.RaiseError("recall_scene %s: %v", id, err)
	}
	return 0
}

// sleep(ms) pauses the script, aborting early on cancellation
func (r *Runtime) sleep(L *lua.LState) int {
	ms := L.CheckInt(1)
	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
	case <-r.ctx.Done():
		L.RaiseError("cancelled: %v", r.ctx.Err())
	}
	return 0
}

// commandFromTable builds a sparse command: keys absent from the table stay
// absent from the wire payload.
func commandFromTable(table *lua.LTable) bridge.LightCommand {
	command := bridge.LightCommand{}

	if on := table.RawGetString("on"); on != lua.LNil {
		if lua.LVAsBool(on) {
			command = command.WithOn()
		} else {
			command = command.WithOff()
		}
	}
	if brightness, ok := table.RawGetString("brightness").(lua.LNumber); ok {
		command = command.WithBrightness(float64(brightness))
	}
	if mirek, ok := table.RawGetString("mirek").(lua.LNumber); ok {
		command = command.WithMirek(uint16(mirek))
	}
	if transition, ok := table.RawGetString("transition_ms").(lua.LNumber); ok {
		command = command.WithTransitionTime(uint32(transition))
	}

	x, xok := table.RawGetString("x").(lua.LNumber)
	y, yok := table.RawGetString("y").(lua.LNumber)
	if xok && yok {
		command = command.WithXY(float64(x), float64(y))
	}

	return command
}
