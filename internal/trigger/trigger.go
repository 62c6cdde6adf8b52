// Package trigger defines the key-combination event that starts an upload run.
package trigger

import "time"

// State is the edge a trigger event reports.
type State uint8

const (
	Released State = iota
	Pressed
)

func (s State) String() string {
	if s == Pressed {
		return "pressed"
	}
	return "released"
}

// Event is delivered asynchronously whenever a named trigger changes state.
// Only Pressed events start a run.
type Event struct {
	Name  string
	State State
	At    time.Time
}

// Press returns a Pressed event for name stamped with the current time.
// Sources without a physical key (CLI, tray menu, REST) use it directly.
func Press(name string) Event {
	return Event{Name: name, State: Pressed, At: time.Now()}
}
