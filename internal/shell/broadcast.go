package shell

import "sync"

// Broadcaster fans raw output lines out to observers (e.g. websocket
// clients). Sends are non-blocking: a subscriber that cannot keep up drops
// lines rather than stalling the session reader.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[chan<- string]struct{}
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[chan<- string]struct{}),
	}
}

// Subscribe registers a channel to receive output lines.
func (b *Broadcaster) Subscribe(ch chan<- string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[ch] = struct{}{}
}

// Unsubscribe removes a previously registered channel.
func (b *Broadcaster) Unsubscribe(ch chan<- string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, ch)
}

// Publish delivers a line to every subscriber that has channel capacity.
func (b *Broadcaster) Publish(line string) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- line:
		default:
			// Subscriber channel full, skip
		}
	}
}
