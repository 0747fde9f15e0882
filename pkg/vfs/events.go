package vfs

import "sync"

// EventType identifies a change notification.
type EventType string

const (
	EventCreated        EventType = "created"
	EventRenamed        EventType = "renamed"
	EventTrashed        EventType = "trashed"
	EventRestored       EventType = "restored"
	EventContentUpdated EventType = "content-updated"
)

// Event is a change notification emitted by the lifecycle manager so UI
// layers can refresh. Delivery is best-effort, at-least-once and
// same-process only; handlers must tolerate duplicates.
type Event struct {
	Type EventType

	// OldPath is set for renames, moves, trash and restore: the path the
	// item occupied before the operation.
	OldPath string

	// Path is the item's path after the operation.
	Path string

	// Name is the item's name after the operation.
	Name string
}

// Bus is the observer registry for change notifications.
//
// Handlers run synchronously on the publishing goroutine, in registration
// order. A slow handler slows mutations down, so consumers that do real
// work should hand the event off to their own goroutine.
type Bus struct {
	mu   sync.RWMutex
	next int
	subs map[int]func(Event)
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(Event))}
}

// Subscribe registers fn and returns a function that removes the
// subscription. Unsubscribing twice is harmless.
func (b *Bus) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish delivers e to every current subscriber.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
}
