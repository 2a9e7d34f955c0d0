// Package script runs the optional Lua startup script that defines command
// aliases such as "reading" -> "COLOR:40:90:255". The script runs once; the
// VM is closed afterwards and only the alias table survives.
package script

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"
)

// Aliases maps an upper-cased alias name to the command it expands to.
type Aliases map[string]string

// Resolve returns the command behind raw if raw names an alias. Matching is
// case-insensitive on the whole string.
func (a Aliases) Resolve(raw string) (string, bool) {
	if len(a) == 0 {
		return raw, false
	}
	cmd, ok := a[strings.ToUpper(raw)]
	if !ok {
		return raw, false
	}
	return cmd, true
}

// LoadFile executes the script at path.
func LoadFile(path string, pixels int) (Aliases, error) {
	log.Info().Str("path", path).Msg("Loading Lua script")
	return run(pixels, func(L *lua.LState) error {
		return L.DoFile(path)
	})
}

// LoadString executes src as a script.
func LoadString(src string, pixels int) (Aliases, error) {
	return run(pixels, func(L *lua.LState) error {
		return L.DoString(src)
	})
}

func run(pixels int, exec func(L *lua.LState) error) (Aliases, error) {
	L := lua.NewState()
	defer L.Close()

	stripModule := newStripModule(pixels)
	L.PreloadModule("strip", stripModule.Loader)
	L.PreloadModule("log", newLogModule().Loader)

	if err := exec(L); err != nil {
		return nil, fmt.Errorf("failed to execute Lua script: %w", err)
	}

	log.Info().Int("aliases", len(stripModule.aliases)).Msg("Lua script loaded successfully")
	return stripModule.aliases, nil
}
