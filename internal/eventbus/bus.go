package eventbus

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event types published by the station.
const (
	SessionStarted    = "session.started"
	SessionStopped    = "session.stopped"
	SessionExpired    = "session.expired"
	SessionAborted    = "session.aborted"
	ReceiverTuned     = "receiver.tuned"
	ReceiverDetuned   = "receiver.detuned"
	SpeakerAuthorized = "speaker.authorized"
	PasswordRotated   = "password.rotated"
	RelayCompleted    = "relay.completed"
	ConfigReloaded    = "config.reloaded"
)

// Event is a lightweight in-memory signal used to decouple the station from
// observers (logging, audit).
//
// Contract:
//   - Publish never blocks.
//   - Subscribers get buffered channels; slow subscribers drop events.
type Event struct {
	Type    string
	Time    time.Time
	ActorID int64
	ChatID  int64
	Data    any
}

type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
}

// New returns an in-memory fan-out bus. It owns no goroutines.
func New() Bus {
	return &memBus{subs: map[uint64]chan Event{}}
}

type memBus struct {
	mu   sync.RWMutex
	subs map[uint64]chan Event
	seq  atomic.Uint64
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	// Hold the read lock while sending: unsubscribe takes the write lock
	// before closing, so a send never races a close.
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Event, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			close(ch)
			b.mu.Unlock()
		})
	}
}
