//go:build !darwin && !windows && !linux

package hotkey

import (
	"context"

	"go.klb.dev/pulse/internal/trigger"
)

// Listen always fails on this platform.
func Listen(_ context.Context, _ Combo, _ func(trigger.Event)) error {
	return ErrUnsupported
}

// RunMain runs fn on the calling goroutine.
func RunMain(fn func()) { fn() }
