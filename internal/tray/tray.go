// Package tray shows the agent's status item: the metrics label as its
// title and a small menu.
package tray

import (
	"log/slog"
	"sync/atomic"

	"fyne.io/systray"

	"go.klb.dev/pulse/internal/codec"
	"go.klb.dev/pulse/internal/events"
	"go.klb.dev/pulse/internal/statusbar"
	"go.klb.dev/pulse/internal/trigger"
)

// TriggerName is the trigger name reported for the "Upload clipboard" item.
const TriggerName = "tray"

const iconSize = 22

// Action is a menu selection.
type Action int

const (
	ActionShow Action = iota
	ActionUpload
	ActionQuit
)

// Tray is a statusbar.Renderer backed by the system status item. Render
// may be called from any goroutine once Run has started; calls before the
// item is ready are dropped.
type Tray struct {
	bus   *events.Bus
	quit  func()
	ready atomic.Bool
}

// New returns a Tray. quit is called when the user picks "Quit".
func New(bus *events.Bus, quit func()) *Tray {
	return &Tray{bus: bus, quit: quit}
}

// Run blocks on the main thread running the status item event loop until
// Stop is called. onReady runs once the item exists.
func (t *Tray) Run(onReady func()) {
	systray.Run(func() {
		t.setup()
		if onReady != nil {
			onReady()
		}
	}, func() {
		slog.Debug("tray exited")
	})
}

// Stop ends Run.
func (t *Tray) Stop() {
	systray.Quit()
}

// Render implements statusbar.Renderer. Native colour spans are not
// available through systray, so only the text is shown; the colours travel
// to the web UI over the status-bar event.
func (t *Tray) Render(l statusbar.Layout) {
	if !t.ready.Load() {
		return
	}
	systray.SetTitle(l.Text)
}

func (t *Tray) setup() {
	if icon, err := Icon(); err != nil {
		slog.Warn("tray icon", "err", err)
	} else {
		systray.SetIcon(icon)
	}
	systray.SetTitle("pulse")
	systray.SetTooltip("pulse: clipboard upload and system monitor")

	show := systray.AddMenuItem("Show Window", "Open the pulse window")
	up := systray.AddMenuItem("Upload clipboard", "Upload the clipboard image")
	systray.AddSeparator()
	quit := systray.AddMenuItem("Quit", "Stop the pulse agent")

	go func() {
		for {
			select {
			case <-show.ClickedCh:
				t.Handle(ActionShow)
			case <-up.ClickedCh:
				t.Handle(ActionUpload)
			case <-quit.ClickedCh:
				t.Handle(ActionQuit)
				return
			}
		}
	}()
	t.ready.Store(true)
	slog.Info("tray ready")
}

// Handle performs a menu action.
func (t *Tray) Handle(a Action) {
	switch a {
	case ActionShow:
		t.bus.PublishUI(events.New(events.ShowWindow, nil))
	case ActionUpload:
		t.bus.PublishTrigger(trigger.Press(TriggerName))
	case ActionQuit:
		slog.Info("quit requested from tray")
		if t.quit != nil {
			t.quit()
		}
	}
}

// Icon renders the status item icon: a filled disc on a transparent
// background, as PNG.
func Icon() ([]byte, error) {
	const n = iconSize
	pix := make([]byte, n*n*4)
	c := float64(n-1) / 2
	r2 := c * c
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			dx, dy := float64(x)-c, float64(y)-c
			if dx*dx+dy*dy > r2 {
				continue
			}
			i := (y*n + x) * 4
			pix[i], pix[i+1], pix[i+2], pix[i+3] = 0x2e, 0x86, 0xde, 0xff
		}
	}
	return codec.Encode(codec.RawImage{Pix: pix, Width: n, Height: n})
}
