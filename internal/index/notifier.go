package index

import "sync"

// Notifier is a registry of change listeners.
// Listeners are called outside the registry lock, in subscription order.
type Notifier struct {
	mu        sync.Mutex
	nextID    int
	listeners []listener
}

type listener struct {
	id int
	fn func()
}

// Subscribe registers fn and returns a handle that removes it. The handle is idempotent.
func (n *Notifier) Subscribe(fn func()) (unsubscribe func()) {
	n.mu.Lock()
	n.nextID++
	id := n.nextID
	n.listeners = append(n.listeners, listener{id: id, fn: fn})
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			for i, l := range n.listeners {
				if l.id == id {
					n.listeners = append(n.listeners[:i:i], n.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Notify calls every registered listener.
func (n *Notifier) Notify() {
	n.mu.Lock()
	fns := make([]func(), len(n.listeners))
	for i, l := range n.listeners {
		fns[i] = l.fn
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Len returns the number of listeners.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners)
}
