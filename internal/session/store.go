package session

import "sync"

// Store provides access to sessions keyed by an opaque conversation key.
//
// Update is the only way to mutate a session. It runs fn while holding a lock
// private to that key, so two concurrent messages for the same conversation
// are processed strictly one after the other. Messages for different keys do
// not block each other.
type Store interface {
	// Update gets or creates the session for key (new sessions start in
	// initialStage) and runs fn on it under the per-key lock. The error from
	// fn is returned unchanged.
	Update(key, initialStage string, fn func(*Session) error) error

	// Snapshot returns a copy of the session for key, or false when no
	// message has been seen for it yet.
	Snapshot(key string) (*Session, bool)
}

type entry struct {
	mu      sync.Mutex
	session *Session
}

// MemoryStore is an in-process Store. Sessions are never evicted; completed
// conversations stay resident and keep answering with their final message.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*entry),
	}
}

func (m *MemoryStore) Update(key, initialStage string, fn func(*Session) error) error {
	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok {
		e = &entry{session: New(key, initialStage)}
		m.entries[key] = e
	}
	m.mu.Unlock()

	// Entries are never removed, so locking after releasing the map lock is
	// safe: e stays valid and subsequent lookups return the same entry.
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.session)
}

func (m *MemoryStore) Snapshot(key string) (*Session, bool) {
	m.mu.Lock()
	e, ok := m.entries[key]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone(), true
}
