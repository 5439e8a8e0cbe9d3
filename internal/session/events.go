package session

import (
	"sync"

	"github.com/kozaktomas/xiangxin/internal/constants"
)

// Event is a state change pushed to subscribers.
type Event struct {
	Type string `json:"type"` // "state" or "closed"
	View View   `json:"view"`
}

// broadcaster fans events out to listeners. Slow listeners miss events rather
// than block the session.
type broadcaster struct {
	listeners []chan Event
	closed    bool
	mu        sync.RWMutex
}

func (b *broadcaster) addListener() chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, constants.EventChannelBuffer)
	if b.closed {
		close(ch)
		return ch
	}
	b.listeners = append(b.listeners, ch)
	return ch
}

func (b *broadcaster) removeListener(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

func (b *broadcaster) send(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// close sends a final event and closes every listener.
func (b *broadcaster) close(final Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, listener := range b.listeners {
		select {
		case listener <- final:
		default:
		}
		close(listener)
	}
	b.listeners = nil
}
