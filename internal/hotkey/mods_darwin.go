package hotkey

import "golang.design/x/hotkey"

var modifiers = map[string]hotkey.Modifier{
	Shift: hotkey.ModShift,
	Ctrl:  hotkey.ModCtrl,
	Alt:   hotkey.ModOption,
	Cmd:   hotkey.ModCmd,
}
