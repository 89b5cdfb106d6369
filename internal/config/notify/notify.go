// Package notify delivers configuration changes to observers.
//
// Each published snapshot is compared with its predecessor and every
// changed setting path is delivered as a Change, followed by one
// ChangeReload that marks the end of the publication. Observers may
// subscribe to everything or to a path prefix.
package notify

import (
	"slices"
	"strings"
	"sync"
)

// ChangeType represents the type of configuration change.
type ChangeType int

const (
	// ChangeSet indicates a value was added or modified.
	ChangeSet ChangeType = iota

	// ChangeDelete indicates a value was removed.
	ChangeDelete

	// ChangeReload marks the end of a published snapshot's changes.
	ChangeReload
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeSet:
		return "set"
	case ChangeDelete:
		return "delete"
	case ChangeReload:
		return "reload"
	default:
		return "unknown"
	}
}

// Change represents a configuration change event.
type Change struct {
	// Path is the dot-separated path to the changed setting, or
	// "keymap.<mode>.<chord>" for a binding. Empty for reload events.
	Path string

	// Type is the type of change.
	Type ChangeType

	// OldValue is the previous value (nil for additions).
	OldValue any

	// NewValue is the new value (nil for deletes).
	NewValue any

	// Layer names the layer that supplied NewValue, or OldValue for
	// deletes.
	Layer string

	// Generation is the reload generation of the new snapshot.
	Generation uint64
}

// Observer is called when configuration changes occur.
type Observer func(change Change)

// Subscription represents an active observer subscription.
type Subscription struct {
	path     string
	observer Observer
	notifier *Notifier
}

// Path returns the subscribed prefix; empty for global subscriptions.
func (s *Subscription) Path() string {
	return s.path
}

// Unsubscribe removes this subscription. Calling it again is a no-op.
func (s *Subscription) Unsubscribe() {
	if s.notifier != nil {
		s.notifier.remove(s)
	}
}

// matches reports whether the subscription receives c.
func (s *Subscription) matches(c Change) bool {
	return s.path == "" || c.Type == ChangeReload || s.path == c.Path || covers(s.path, c.Path)
}

// Notifier fans changes out to subscriptions. Observers run in
// subscription order, outside the notifier's lock.
type Notifier struct {
	mu     sync.RWMutex
	subs   []*Subscription
	closed bool

	// queue is non-nil in asynchronous mode.
	queue chan Change
	done  chan struct{}
	wg    sync.WaitGroup
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithAsync enables asynchronous notification delivery. Changes are
// delivered in order from a single goroutine.
func WithAsync(bufferSize int) Option {
	return func(n *Notifier) {
		if bufferSize > 0 {
			n.queue = make(chan Change, bufferSize)
		}
	}
}

// New creates a Notifier. It delivers synchronously unless WithAsync is
// given.
func New(opts ...Option) *Notifier {
	n := &Notifier{done: make(chan struct{})}
	for _, opt := range opts {
		opt(n)
	}
	if n.queue != nil {
		n.wg.Add(1)
		go n.drain()
	}
	return n
}

// async reports whether changes are queued for a delivery goroutine.
func (n *Notifier) async() bool {
	return n.queue != nil
}

// Subscribe registers an observer for all changes.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	return n.SubscribePath("", observer)
}

// SubscribePath registers an observer for changes at or below path.
// Subscribing to "editor" receives changes to "editor.tab_size". Path
// observers also receive every ChangeReload.
func (n *Notifier) SubscribePath(path string, observer Observer) *Subscription {
	sub := &Subscription{path: path, observer: observer, notifier: n}

	n.mu.Lock()
	n.subs = append(n.subs, sub)
	n.mu.Unlock()
	return sub
}

func (n *Notifier) remove(sub *Subscription) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs = slices.DeleteFunc(n.subs, func(s *Subscription) bool { return s == sub })
}

// Notify delivers change to every matching observer. After Close it does
// nothing.
func (n *Notifier) Notify(change Change) {
	n.mu.RLock()
	closed := n.closed
	n.mu.RUnlock()
	if closed {
		return
	}

	if !n.async() {
		n.deliver(change)
		return
	}
	select {
	case n.queue <- change:
	case <-n.done:
	}
}

// NotifyReload sends the end-of-publication marker for a generation.
func (n *Notifier) NotifyReload(generation uint64) {
	n.Notify(Change{Type: ChangeReload, Generation: generation})
}

// Close shuts down the notifier, delivering any queued changes first.
// It is safe to call Close multiple times.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.mu.Unlock()

	close(n.done)
	n.wg.Wait()
}

func (n *Notifier) deliver(change Change) {
	n.mu.RLock()
	var targets []Observer
	for _, s := range n.subs {
		if s.matches(change) {
			targets = append(targets, s.observer)
		}
	}
	n.mu.RUnlock()

	for _, obs := range targets {
		obs(change)
	}
}

// drain delivers queued changes until Close, then flushes the queue.
func (n *Notifier) drain() {
	defer n.wg.Done()
	for {
		select {
		case change := <-n.queue:
			n.deliver(change)
		case <-n.done:
			for {
				select {
				case change := <-n.queue:
					n.deliver(change)
				default:
					return
				}
			}
		}
	}
}

// covers reports whether path lies strictly below prefix:
// "editor" covers "editor.tab_size" but not "editorconfig".
func covers(prefix, path string) bool {
	if prefix == "" {
		return path != ""
	}
	rest, ok := strings.CutPrefix(path, prefix)
	return ok && strings.HasPrefix(rest, ".") && len(rest) > 1
}

// Batch collects changes and delivers them together on Commit.
type Batch struct {
	mu       sync.Mutex
	notifier *Notifier
	pending  []Change
}

// NewBatch creates an empty batch.
func (n *Notifier) NewBatch() *Batch {
	return &Batch{notifier: n}
}

// Add queues a change.
func (b *Batch) Add(change Change) {
	b.mu.Lock()
	b.pending = append(b.pending, change)
	b.mu.Unlock()
}

// Commit delivers the queued changes in the order they were added.
func (b *Batch) Commit() {
	b.mu.Lock()
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()

	for _, c := range pending {
		b.notifier.Notify(c)
	}
}

// Discard drops the queued changes.
func (b *Batch) Discard() {
	b.mu.Lock()
	b.pending = nil
	b.mu.Unlock()
}

// Len returns the number of queued changes.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
