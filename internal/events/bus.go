// Package events carries in-process signals between the agent's components
// and fans UI events out to connected UI clients.
//
// Two topics flow over the Bus: trigger presses (from the hotkey, the tray,
// and the control plane) and UI events (from the pipeline and the status
// bar loop). The Hub is subscribed to the UI topic and forwards each event
// to every registered Peer.
package events

import (
	"fmt"
	"time"

	evbus "github.com/asaskevich/EventBus"

	"go.klb.dev/pulse/internal/trigger"
)

// UI event names as seen by UI clients.
const (
	ShowWindow     = "show-window"
	SwitchToUpload = "switch-to-upload"
	UploadResult   = "upload-result"
	StatusBar      = "status-bar"
)

const (
	topicUI      = "ui"
	topicTrigger = "trigger"
)

// Event is one UI signal. On the wire it is {"event", "payload", "at"}.
type Event struct {
	Name    string    `json:"event"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

// New returns an Event stamped with the current time.
func New(name string, payload any) Event {
	return Event{Name: name, Payload: payload, At: time.Now()}
}

// Bus is a typed wrapper around an EventBus instance. Handlers run
// synchronously on the publisher's goroutine and must not block.
type Bus struct {
	bus evbus.Bus
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{bus: evbus.New()}
}

// PublishUI sends ev to every UI subscriber.
func (b *Bus) PublishUI(ev Event) {
	b.bus.Publish(topicUI, ev)
}

// SubscribeUI registers fn for UI events.
func (b *Bus) SubscribeUI(fn func(Event)) error {
	if err := b.bus.Subscribe(topicUI, fn); err != nil {
		return fmt.Errorf("subscribe %s: %w", topicUI, err)
	}
	return nil
}

// PublishTrigger sends ev to every trigger subscriber.
func (b *Bus) PublishTrigger(ev trigger.Event) {
	b.bus.Publish(topicTrigger, ev)
}

// SubscribeTrigger registers fn for trigger events.
func (b *Bus) SubscribeTrigger(fn func(trigger.Event)) error {
	if err := b.bus.Subscribe(topicTrigger, fn); err != nil {
		return fmt.Errorf("subscribe %s: %w", topicTrigger, err)
	}
	return nil
}

// HasTriggerHandler reports whether anything consumes trigger events.
func (b *Bus) HasTriggerHandler() bool {
	return b.bus.HasCallback(topicTrigger)
}
