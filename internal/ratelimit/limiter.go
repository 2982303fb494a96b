// Package ratelimit throttles per-investment price refreshes.
//
// State is process-local and lost on restart, which degrades to "no limiter
// applied" rather than to incorrect denial.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Reasons recorded with a limiter entry. The client renders a different
// cooldown message for an investment that was just created.
const (
	ReasonUpdate   = "update"
	ReasonCreation = "creation"
)

// Entry is the last successful update instant for one (user, investment) key.
type Entry struct {
	At     time.Time
	Reason string
}

// Store holds limiter entries keyed by (user, investment name). Implementations
// must be safe for concurrent use. The in-memory store is the default; a
// persistent store can be swapped in without changing the orchestrator.
type Store interface {
	Get(userID, name string) (Entry, bool)
	Set(userID, name string, e Entry)
}

// MemoryStore is a mutex-guarded in-process Store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func storeKey(userID, name string) string {
	return fmt.Sprintf("%s\x00%s", userID, name)
}

func (s *MemoryStore) Get(userID, name string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[storeKey(userID, name)]
	return e, ok
}

func (s *MemoryStore) Set(userID, name string, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[storeKey(userID, name)] = e
}

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed bool
	// Seconds remaining until the next admission, zero when allowed.
	Seconds int64
	// Reason of the entry that caused a denial.
	Reason string
}

// Limiter decides whether a refresh for a (user, investment) key may proceed.
// Each key also carries a mutex spanning the whole guarded operation, so two
// concurrent refreshes cannot both pass admission before either records.
type Limiter struct {
	store  Store
	window time.Duration
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Limiter with the given store and admission window.
func New(store Store, window time.Duration) *Limiter {
	return &Limiter{
		store:  store,
		window: window,
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

// WithClock overrides the limiter's time source. Intended for tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

func (l *Limiter) keyLock(userID, name string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := storeKey(userID, name)
	lock, ok := l.locks[k]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[k] = lock
	}
	return lock
}

// Acquire serializes the guarded operation for one key and evaluates
// admission while holding it. An allowed decision keeps the key held until
// release is called; the caller must Record before releasing so the next
// waiter sees the fresh entry. A denial returns a nil release with the key
// already free.
func (l *Limiter) Acquire(userID, name string) (Decision, func()) {
	lock := l.keyLock(userID, name)
	lock.Lock()
	d := l.Admit(userID, name)
	if !d.Allowed {
		lock.Unlock()
		return d, nil
	}
	return d, lock.Unlock
}

// Hold takes the key's guarded section without an admission check, for
// writes that bypass the window but still arm it.
func (l *Limiter) Hold(userID, name string) func() {
	lock := l.keyLock(userID, name)
	lock.Lock()
	return lock.Unlock
}

// Admit reports whether a refresh may proceed. Admitted when no entry exists
// or the window has fully elapsed; denied otherwise with the remaining wait
// rounded up to whole seconds. Admit alone does not serialize the guarded
// operation; callers that go on to Record must use Acquire.
func (l *Limiter) Admit(userID, name string) Decision {
	e, ok := l.store.Get(userID, name)
	if !ok {
		return Decision{Allowed: true}
	}
	elapsed := l.now().Sub(e.At)
	if elapsed >= l.window {
		return Decision{Allowed: true}
	}
	remaining := l.window - elapsed
	secs := int64((remaining + time.Second - 1) / time.Second)
	return Decision{Allowed: false, Seconds: secs, Reason: e.Reason}
}

// Record overwrites the entry for the key with the current instant. It must
// be called only after the guarded operation has fully succeeded so a failed
// update does not consume the window.
func (l *Limiter) Record(userID, name, reason string) {
	l.store.Set(userID, name, Entry{At: l.now(), Reason: reason})
}
