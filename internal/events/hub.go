package events

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Peer is anything that can receive UI events from the hub: a websocket
// connection, a gRPC stream, the tray.
type Peer interface {
	ID() string
	// Send delivers an event to the peer. Must be non-blocking.
	Send(Event)
}

// Hub routes UI events to all registered peers. The latest event of each
// retained name is replayed to peers when they register, so a freshly
// opened UI shows the current status bar without waiting for the next tick.
type Hub struct {
	mu       sync.RWMutex
	peers    map[string]Peer
	retained map[string]Event
	keep     map[string]bool
}

// NewHub returns an empty Hub that retains the named events.
func NewHub(retain ...string) *Hub {
	keep := make(map[string]bool, len(retain))
	for _, name := range retain {
		keep[name] = true
	}
	return &Hub{
		peers:    make(map[string]Peer),
		retained: make(map[string]Event),
		keep:     keep,
	}
}

// Attach subscribes the hub to the bus's UI topic.
func (h *Hub) Attach(b *Bus) error {
	return b.SubscribeUI(h.Publish)
}

// Register adds a peer and immediately delivers the retained events.
func (h *Hub) Register(p Peer) {
	h.mu.Lock()
	h.peers[p.ID()] = p
	replay := make([]Event, 0, len(h.retained))
	for _, ev := range h.retained {
		replay = append(replay, ev)
	}
	total := len(h.peers)
	h.mu.Unlock()

	slog.Info("ui peer registered", "peer", p.ID(), "total", total)
	for _, ev := range replay {
		p.Send(ev)
	}
}

// Unregister removes a peer from the hub.
func (h *Hub) Unregister(p Peer) {
	h.mu.Lock()
	delete(h.peers, p.ID())
	total := len(h.peers)
	h.mu.Unlock()

	slog.Info("ui peer unregistered", "peer", p.ID(), "total", total)
}

// Publish fans ev out to every peer.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	if h.keep[ev.Name] {
		h.retained[ev.Name] = ev
	}
	targets := make([]Peer, 0, len(h.peers))
	for _, p := range h.peers {
		targets = append(targets, p)
	}
	h.mu.Unlock()

	if ev.Name != StatusBar {
		slog.Debug("ui event", "event", ev.Name, "peers", len(targets))
	}
	for _, p := range targets {
		p.Send(ev)
	}
}

// Len returns the number of registered peers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// ChanPeer is a Peer backed by a buffered channel. Events that do not fit
// are dropped.
type ChanPeer struct {
	id string
	ch chan Event
}

// NewChanPeer returns a ChanPeer with room for buf pending events.
func NewChanPeer(buf int) *ChanPeer {
	return &ChanPeer{id: uuid.NewString(), ch: make(chan Event, buf)}
}

func (p *ChanPeer) ID() string { return p.id }

// C returns the receive side of the peer's queue.
func (p *ChanPeer) C() <-chan Event { return p.ch }

func (p *ChanPeer) Send(ev Event) {
	select {
	case p.ch <- ev:
	default:
		slog.Warn("ui peer too slow, event dropped", "peer", p.id, "event", ev.Name)
	}
}
