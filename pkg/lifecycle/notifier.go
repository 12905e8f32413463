package lifecycle

import (
	"sync"
)

// Notifier is an in-process Source. Post delivers a signal synchronously to
// every live subscriber.
type Notifier struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[uint64]*guardedHandler
	opts     options
}

var (
	defaultOnce     sync.Once
	defaultNotifier *Notifier
)

// Default returns the process-wide notifier.
func Default() *Notifier {
	defaultOnce.Do(func() {
		defaultNotifier = NewNotifier()
	})
	return defaultNotifier
}

// NewNotifier creates an empty notifier.
func NewNotifier(opts ...Option) *Notifier {
	return &Notifier{
		handlers: make(map[uint64]*guardedHandler),
		opts:     applyOptions(opts),
	}
}

// Subscribe registers h until the returned subscription is cancelled.
func (n *Notifier) Subscribe(h Handler) (Subscription, error) {
	g := &guardedHandler{handler: h}

	n.mu.Lock()
	n.nextID++
	id := n.nextID
	n.handlers[id] = g
	n.mu.Unlock()

	return &notifierSubscription{notifier: n, id: id, guard: g}, nil
}

// Post delivers s to every subscriber registered at the time of the call.
func (n *Notifier) Post(s Signal) {
	n.mu.RLock()
	targets := make([]*guardedHandler, 0, len(n.handlers))
	for _, g := range n.handlers {
		targets = append(targets, g)
	}
	n.mu.RUnlock()

	n.opts.recordSignal("process", s)
	n.opts.logger.Debug("Posting lifecycle signal", "signal", s.String(), "subscribers", len(targets))

	// Handlers run outside the registry lock so they may subscribe or unsubscribe others.
	for _, g := range targets {
		g.deliver(s)
	}
}

// Len returns the number of live subscriptions.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.handlers)
}

type notifierSubscription struct {
	notifier *Notifier
	id       uint64
	guard    *guardedHandler
}

func (s *notifierSubscription) Unsubscribe() error {
	if !s.guard.stop() {
		return nil
	}
	s.notifier.mu.Lock()
	delete(s.notifier.handlers, s.id)
	s.notifier.mu.Unlock()
	return nil
}

var _ Source = (*Notifier)(nil)
