package script

import (
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/stripd/internal/command"
)

// stripModule exposes alias registration and the command parser to Lua.
type stripModule struct {
	pixels  int
	aliases Aliases
}

func newStripModule(pixels int) *stripModule {
	return &stripModule{
		pixels:  pixels,
		aliases: make(Aliases),
	}
}

// Loader is the module loader for Lua
func (m *stripModule) Loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "alias", L.NewFunction(m.alias))
	L.SetField(mod, "pixels", L.NewFunction(m.pixelCount))
	L.SetField(mod, "parse", L.NewFunction(m.parse))

	L.Push(mod)
	return 1
}

// alias(name, command)
func (m *stripModule) alias(L *lua.LState) int {
	name := strings.TrimSpace(L.CheckString(1))
	cmd := L.CheckString(2)
	if name == "" {
		L.ArgError(1, "alias name must not be empty")
		return 0
	}
	if cmd == "" {
		L.ArgError(2, "alias command must not be empty")
		return 0
	}

	m.aliases[strings.ToUpper(name)] = cmd
	return 0
}

// pixels() -> number
func (m *stripModule) pixelCount(L *lua.LState) int {
	L.Push(lua.LNumber(m.pixels))
	return 1
}

// parse(command) -> {kind=, value=, hue=, saturation=, brightness=}
func (m *stripModule) parse(L *lua.LState) int {
	cmd := command.Parse(L.CheckString(1))

	tbl := L.NewTable()
	L.SetField(tbl, "kind", lua.LString(cmd.Kind.String()))
	L.SetField(tbl, "value", lua.LNumber(cmd.Value))
	L.SetField(tbl, "hue", lua.LNumber(cmd.Hue))
	L.SetField(tbl, "saturation", lua.LNumber(cmd.Saturation))
	L.SetField(tbl, "brightness", lua.LNumber(cmd.Brightness))

	L.Push(tbl)
	return 1
}
