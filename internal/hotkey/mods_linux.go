package hotkey

import "golang.design/x/hotkey"

// X11 maps Alt to Mod1 and Super to Mod4 on every common layout.
var modifiers = map[string]hotkey.Modifier{
	Shift: hotkey.ModShift,
	Ctrl:  hotkey.ModCtrl,
	Alt:   hotkey.Mod1,
	Cmd:   hotkey.Mod4,
}
