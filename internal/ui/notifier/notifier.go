// Package notifier fans out sheet update pings to SSE streams.
package notifier

import "sync"

// Notifier pings subscribers when a sheet should be re-rendered. A
// subscriber listens on one topic (a grid id); Broadcast reaches every
// topic. Pings carry no payload: listeners re-read the grid.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan struct{}]string
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[chan struct{}]string),
	}
}

// Subscribe returns a channel receiving pings for topic. The caller must
// Unsubscribe when done.
func (n *Notifier) Subscribe(topic string) chan struct{} {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	n.listeners[ch] = topic
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(ch chan struct{}) {
	n.mu.Lock()
	_, ok := n.listeners[ch]
	delete(n.listeners, ch)
	n.mu.Unlock()
	if ok {
		close(ch)
	}
}

// Publish pings the listeners of topic.
func (n *Notifier) Publish(topic string) {
	n.send(func(t string) bool { return t == topic })
}

// Broadcast pings every listener.
func (n *Notifier) Broadcast() {
	n.send(func(string) bool { return true })
}

// Len returns the number of listeners.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}

func (n *Notifier) send(match func(string) bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch, topic := range n.listeners {
		if !match(topic) {
			continue
		}
		select {
		case ch <- struct{}{}:
		default:
			// full: the listener already has a pending ping
		}
	}
}
