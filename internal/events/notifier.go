package events

import (
	"errors"

	"go.klb.dev/pulse/internal/upload"
)

// ErrNoSubscribers is returned by Notifier when no UI client is connected.
// The event is still published so retained state stays current.
var ErrNoSubscribers = errors.New("no ui clients connected")

// Notifier publishes the pipeline's UI signals on a Bus.
type Notifier struct {
	bus *Bus
	hub *Hub
}

// NewNotifier returns a Notifier. hub may be nil, in which case delivery is
// never reported as failed.
func NewNotifier(bus *Bus, hub *Hub) *Notifier {
	return &Notifier{bus: bus, hub: hub}
}

func (n *Notifier) ShowMainWindow() error { return n.emit(ShowWindow, nil) }

func (n *Notifier) SwitchToUpload() error { return n.emit(SwitchToUpload, nil) }

func (n *Notifier) Result(out upload.Outcome) error { return n.emit(UploadResult, out) }

func (n *Notifier) emit(name string, payload any) error {
	n.bus.PublishUI(New(name, payload))
	if n.hub != nil && n.hub.Len() == 0 {
		return ErrNoSubscribers
	}
	return nil
}
