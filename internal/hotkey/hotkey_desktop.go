//go:build darwin || windows || linux

package hotkey

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.design/x/hotkey"
	"golang.design/x/hotkey/mainthread"

	"go.klb.dev/pulse/internal/trigger"
)

var keys = map[string]hotkey.Key{
	"a": hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD,
	"e": hotkey.KeyE, "f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH,
	"i": hotkey.KeyI, "j": hotkey.KeyJ, "k": hotkey.KeyK, "l": hotkey.KeyL,
	"m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO, "p": hotkey.KeyP,
	"q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX,
	"y": hotkey.KeyY, "z": hotkey.KeyZ,
	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3,
	"4": hotkey.Key4, "5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7,
	"8": hotkey.Key8, "9": hotkey.Key9,
	"space":  hotkey.KeySpace,
	"return": hotkey.KeyReturn,
	"escape": hotkey.KeyEscape,
	"tab":    hotkey.KeyTab,
}

// Listen registers c and reports every press and release to emit until ctx
// is cancelled. Registration failures (combination taken by another
// program, no display server) are returned immediately.
func Listen(ctx context.Context, c Combo, emit func(trigger.Event)) error {
	mods := make([]hotkey.Modifier, 0, len(c.Mods))
	for _, m := range c.Mods {
		mods = append(mods, modifiers[m])
	}
	key, ok := keys[c.Key]
	if !ok {
		return fmt.Errorf("register hotkey %s: unknown key %q", c, c.Key)
	}

	hk := hotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return fmt.Errorf("register hotkey %s: %w", c, err)
	}
	defer func() {
		if err := hk.Unregister(); err != nil {
			slog.Warn("unregister hotkey", "combo", c.String(), "err", err)
		}
	}()
	slog.Info("hotkey registered", "combo", c.String())

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hk.Keydown():
			emit(trigger.Event{Name: Name, State: trigger.Pressed, At: time.Now()})
		case <-hk.Keyup():
			emit(trigger.Event{Name: Name, State: trigger.Released, At: time.Now()})
		}
	}
}

// RunMain hands the main OS thread to the hotkey event loop and runs fn on
// another goroutine. It returns when fn does. Must be called from main.
func RunMain(fn func()) {
	mainthread.Init(fn)
}
