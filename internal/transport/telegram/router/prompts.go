package router

import (
	"sync"
	"time"
)

// DefaultPromptTTL bounds how long a next-input prompt waits for its answer.
const DefaultPromptTTL = 5 * time.Minute

type promptKey struct {
	chatID  int64
	actorID int64
}

type pendingPrompt struct {
	name    string
	next    HandlerFunc
	expires time.Time
}

// promptBook holds single-use continuations keyed by (chat, actor).
type promptBook struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	byID map[promptKey]pendingPrompt
}

func newPromptBook(ttl time.Duration) *promptBook {
	if ttl <= 0 {
		ttl = DefaultPromptTTL
	}
	return &promptBook{ttl: ttl, now: time.Now, byID: map[promptKey]pendingPrompt{}}
}

// expect replaces any earlier prompt for the same key.
func (b *promptBook) expect(k promptKey, name string, next HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byID[k] = pendingPrompt{name: name, next: next, expires: b.now().Add(b.ttl)}
}

// take removes and returns the prompt for k if it has not expired.
func (b *promptBook) take(k promptKey) (pendingPrompt, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.byID[k]
	if !ok {
		return pendingPrompt{}, false
	}
	delete(b.byID, k)
	if b.now().After(p.expires) {
		return pendingPrompt{}, false
	}
	return p, true
}

// sweep drops expired prompts.
func (b *promptBook) sweep() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	n := 0
	for k, p := range b.byID {
		if now.After(p.expires) {
			delete(b.byID, k)
			n++
		}
	}
	return n
}

func (b *promptBook) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.byID)
}
