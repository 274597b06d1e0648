package session

import "sync"

// Event reports that part of a session's map state changed.
type Event struct {
	Session string // session ID, "" for every session
	Kind    string // one of the Kind* constants
}

// Event kinds.
const (
	KindTheme     = "theme"
	KindProvider  = "provider"
	KindSelection = "selection"
	KindCountry   = "country"
	KindPlacing   = "placing"
	KindCursor    = "cursor"
	KindPOI       = "poi"
)

// EventBus is a simple fan-out pub/sub for session change events.
type EventBus struct {
	mu   sync.RWMutex
	subs map[chan Event]string // channel → session filter ("" = all)
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]string)}
}

// Publish sends an event to matching subscribers (non-blocking).
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch, filter := range b.subs {
		if filter != "" && e.Session != "" && filter != e.Session {
			continue
		}
		select {
		case ch <- e:
		default:
			// subscriber too slow; it re-renders from a snapshot on the next event
		}
	}
}

// Subscribe returns a buffered channel receiving events for sessionID,
// or for every session when sessionID is empty.
func (b *EventBus) Subscribe(sessionID string) chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[ch] = sessionID
	b.mu.Unlock()
	return ch
}

// Watching reports whether a subscriber is filtered to sessionID.
func (b *EventBus) Watching(sessionID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, filter := range b.subs {
		if filter == sessionID {
			return true
		}
	}
	return false
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}
