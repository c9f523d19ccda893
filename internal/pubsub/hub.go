package pubsub

import "sync"

// hub fans events out to local subscriber channels. Slow subscribers are
// skipped rather than allowed to block the publisher.
type hub struct {
	mu   sync.RWMutex
	subs []chan Event
	size int
}

func newHub(size int) *hub {
	return &hub{subs: []chan Event{}, size: size}
}

func (h *hub) add() chan Event {
	ch := make(chan Event, h.size)
	h.mu.Lock()
	h.subs = append(h.subs, ch)
	h.mu.Unlock()
	return ch
}

func (h *hub) remove(ch chan Event) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, sub := range h.subs {
		if sub == ch {
			h.subs = append(h.subs[:i], h.subs[i+1:]...)
			close(ch)
			return true
		}
	}
	return false
}

// broadcast returns how many subscribers were skipped
func (h *hub) broadcast(e Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	dropped := 0
	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
			dropped++
		}
	}
	return dropped
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		close(ch)
	}
	h.subs = nil
}
