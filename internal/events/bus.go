package events

import (
	"sync"
	"time"
)

// Kind classifies a broadcast event.
type Kind string

const (
	// KindLibraryChanged signals that titles were added to an install root.
	KindLibraryChanged Kind = "library_changed"
	// KindInstallFailed signals an install attempt that produced nothing.
	KindInstallFailed Kind = "install_failed"
)

// Event is the payload delivered to subscribers.
type Event struct {
	Sequence      uint64    `json:"seq"`
	Kind          Kind      `json:"kind"`
	Reason        string    `json:"reason,omitempty"`
	Titles        []string  `json:"titles,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	At            time.Time `json:"at"`
}

// Bus is an in-process broadcast. Publish never blocks: a subscriber whose
// buffer is full misses the event.
type Bus struct {
	mu       sync.Mutex
	nextSeq  uint64
	nextID   int
	subs     map[int]chan Event
	buffer   int
	recent   []Event
	capacity int
	dropped  uint64
}

// NewBus constructs a bus whose subscribers buffer up to buffer events.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 16
	}
	return &Bus{
		subs:     make(map[int]chan Event),
		buffer:   buffer,
		capacity: 64,
	}
}

// Publish stamps evt with a sequence number and timestamp and fans it out.
func (b *Bus) Publish(evt Event) Event {
	if b == nil {
		return evt
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	evt.Sequence = b.nextSeq
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	if len(b.recent) == b.capacity {
		copy(b.recent, b.recent[1:])
		b.recent = b.recent[:b.capacity-1]
	}
	b.recent = append(b.recent, evt)

	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			b.dropped++
		}
	}
	return evt
}

// Subscribe registers a listener. The returned cancel func closes the channel
// and is safe to call more than once.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.buffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Recent returns the buffered events with a sequence greater than since.
func (b *Bus) Recent(since uint64) []Event {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, 0, len(b.recent))
	for _, evt := range b.recent {
		if evt.Sequence > since {
			out = append(out, evt)
		}
	}
	return out
}

// Dropped reports how many deliveries were skipped because a subscriber was slow.
func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
