// Package hotkey registers the global key combination that starts an
// upload. Combinations are written as "+"-joined names, modifiers first:
//
//	shift+cmd+u     ctrl+alt+space     shift+ctrl+1
//
// "cmd" is the Command key on macOS and the Super/Windows key elsewhere.
package hotkey

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"
)

// Name is the trigger name reported for the global hotkey.
const Name = "hotkey"

// ErrUnsupported is returned by Listen on platforms without global hotkeys.
var ErrUnsupported = errors.New("global hotkeys not supported on this platform")

// Modifier names in canonical order.
const (
	Shift = "shift"
	Ctrl  = "ctrl"
	Alt   = "alt"
	Cmd   = "cmd"
)

var modifierOrder = []string{Shift, Ctrl, Alt, Cmd}

var modifierAliases = map[string]string{
	"shift":   Shift,
	"ctrl":    Ctrl,
	"control": Ctrl,
	"alt":     Alt,
	"opt":     Alt,
	"option":  Alt,
	"cmd":     Cmd,
	"command": Cmd,
	"super":   Cmd,
	"win":     Cmd,
	"meta":    Cmd,
}

var keyAliases = map[string]string{
	"enter":  "return",
	"esc":    "escape",
	"spc":    "space",
	"return": "return",
	"escape": "escape",
	"space":  "space",
	"tab":    "tab",
}

// Combo is a parsed key combination.
type Combo struct {
	Mods []string
	Key  string
}

func (c Combo) String() string {
	return strings.Join(append(slices.Clone(c.Mods), c.Key), "+")
}

// Default returns the platform's default combination.
func Default() string {
	return defaultFor(runtime.GOOS)
}

func defaultFor(goos string) string {
	if goos == "darwin" {
		return "shift+cmd+u"
	}
	return "shift+ctrl+u"
}

// Parse reads a combination. Names are case-insensitive; modifiers are
// deduplicated and sorted into canonical order. Exactly one non-modifier
// key is required.
func Parse(s string) (Combo, error) {
	var c Combo
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, "+") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			return Combo{}, fmt.Errorf("parse hotkey %q: empty key name", s)
		}
		if mod, ok := modifierAliases[name]; ok {
			seen[mod] = true
			continue
		}
		key, ok := normalizeKey(name)
		if !ok {
			return Combo{}, fmt.Errorf("parse hotkey %q: unknown key %q", s, name)
		}
		if c.Key != "" {
			return Combo{}, fmt.Errorf("parse hotkey %q: more than one key (%s, %s)", s, c.Key, key)
		}
		c.Key = key
	}
	if c.Key == "" {
		return Combo{}, fmt.Errorf("parse hotkey %q: no key", s)
	}
	for _, m := range modifierOrder {
		if seen[m] {
			c.Mods = append(c.Mods, m)
		}
	}
	return c, nil
}

func normalizeKey(name string) (string, bool) {
	if len(name) == 1 && (name[0] >= 'a' && name[0] <= 'z' || name[0] >= '0' && name[0] <= '9') {
		return name, true
	}
	k, ok := keyAliases[name]
	return k, ok
}
