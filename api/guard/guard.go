package guard

import (
	"errors"
	"sync"
	"time"
)

// ErrDuplicate signals that a run with the same key was accepted within the
// dedup window. It is retryable: the caller should wait and resubmit.
var ErrDuplicate = errors.New("run already in progress")

const (
	// DefaultTTL is the dedup window when runs share a working directory.
	DefaultTTL = 5 * time.Second
	// IsolatedTTL is the shorter window used when each run gets its own
	// isolated directory and collisions are impossible.
	IsolatedTTL = 2 * time.Second
	// evictAfter bounds memory growth: entries are dropped well after the
	// dedup window regardless of traffic.
	evictAfter = 30 * time.Second
)

type entry struct {
	acquiredAt time.Time
	evict      *time.Timer
}

// Guard is the in-memory duplicate-submission lock. It is the one piece of
// state shared across concurrent trigger requests; all access goes through
// the mutex.
type Guard struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]*entry
	closed  bool

	now func() time.Time
}

func New(ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Guard{
		ttl:     ttl,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Key builds the logical run identity used for deduplication.
func Key(host, runName string) string {
	return host + "/" + runName
}

// TryAcquire accepts the key or rejects it with ErrDuplicate. A rejection
// leaves the existing entry untouched: repeated duplicates do not extend
// the window.
func (g *Guard) TryAcquire(key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return errors.New("guard closed")
	}
	if e, ok := g.entries[key]; ok && g.now().Sub(e.acquiredAt) < g.ttl {
		return ErrDuplicate
	}
	g.write(key)
	return nil
}

// write must be called with the mutex held.
func (g *Guard) write(key string) {
	if old, ok := g.entries[key]; ok {
		old.evict.Stop()
	}
	e := &entry{acquiredAt: g.now()}
	e.evict = time.AfterFunc(evictAfter, func() { g.remove(key, e) })
	g.entries[key] = e
}

func (g *Guard) remove(key string, e *entry) {
	g.mu.Lock()
	defer g.mu.Unlock()
	// Only remove the entry the timer was armed for; the key may have been
	// reacquired since.
	if cur, ok := g.entries[key]; ok && cur == e {
		delete(g.entries, key)
	}
}

// Len reports the number of live entries.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// Close stops all outstanding eviction timers. The guard rejects further
// acquisitions afterwards.
func (g *Guard) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	for key, e := range g.entries {
		e.evict.Stop()
		delete(g.entries, key)
	}
}
