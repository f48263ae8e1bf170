package controller

import "sync"

const subscriberBuffer = 64

// Bus fans Status snapshots out to subscribers. Publishing never blocks: a
// subscriber that falls behind loses updates rather than stalling playback
// control. That is fine because every snapshot is complete, so the next one
// that fits supersedes whatever was dropped.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan Status
	next int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Status)}
}

// Subscribe registers a listener. The returned cancel func must be called
// to release the channel; after cancel the channel is closed.
func (b *Bus) Subscribe() (<-chan Status, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Status, subscriberBuffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Publish delivers the snapshot to every subscriber with room for it.
func (b *Bus) Publish(s Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- s:
		default:
		}
	}
}

func (b *Bus) subscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
