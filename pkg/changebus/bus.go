// Package changebus fans out "something changed" notifications to any number of subscribers.
//
// Each subscriber owns a one-slot queue. A publish that finds the slot already full leaves it
// as is, so a slow subscriber sees a single pending notification for everything it missed and
// publishers never block.
package changebus

import "sync"

// Subscription receives notifications published after it was created.
type Subscription struct {
	bus  *Bus
	ch   chan struct{}
	once sync.Once
}

// C returns the notification channel. It is closed when the subscription is closed.
func (s *Subscription) C() <-chan struct{} {
	return s.ch
}

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.remove(s)
	})
}

// Bus is a many-publisher, many-subscriber notification channel.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[*Subscription]struct{}
	onPublish   func()
	onCount     func(int)
}

// Option configures a Bus.
type Option func(*Bus)

// WithPublishHook registers fn to be called on every Publish.
func WithPublishHook(fn func()) Option {
	return func(b *Bus) { b.onPublish = fn }
}

// WithSubscriberHook registers fn to be called with the subscriber count whenever it changes.
// fn runs while the bus is locked, so calls arrive in the order the count changed; it must not
// call back into the bus.
func WithSubscriberHook(fn func(int)) Option {
	return func(b *Bus) { b.onCount = fn }
}

// New creates an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{subscribers: make(map[*Subscription]struct{})}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a new subscriber.
func (b *Bus) Subscribe() *Subscription {
	s := &Subscription{bus: b, ch: make(chan struct{}, 1)}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[s] = struct{}{}
	if b.onCount != nil {
		b.onCount(len(b.subscribers))
	}
	return s
}

func (b *Bus) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, s)
	close(s.ch)
	if b.onCount != nil {
		b.onCount(len(b.subscribers))
	}
}

// Publish notifies every current subscriber without blocking.
func (b *Bus) Publish() {
	b.mu.RLock()
	for s := range b.subscribers {
		select {
		case s.ch <- struct{}{}:
		default:
			// already pending; the subscriber will re-fetch once for all of them
		}
	}
	b.mu.RUnlock()

	if b.onPublish != nil {
		b.onPublish()
	}
}

// Subscribers returns the number of active subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
