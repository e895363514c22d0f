// Package session holds per-conversation state and the store that serializes
// access to it.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Session is the state of one provisioning conversation. It is created on the
// first message for an unseen key and lives for the lifetime of the process.
type Session struct {
	ID        string
	Key       string
	Stage     string
	Context   map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates a session in the given initial stage.
func New(key, stage string) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.New().String(),
		Key:       key,
		Stage:     stage,
		Context:   make(map[string]string),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Set records a gathered fact. Context keys accumulate monotonically; nothing
// ever deletes one within a session.
func (s *Session) Set(key, value string) {
	s.Context[key] = value
}

// Get returns a context value, empty string when unset.
func (s *Session) Get(key string) string {
	return s.Context[key]
}

// Clone returns a deep copy, safe to hand out after the session lock is
// released.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Context = make(map[string]string, len(s.Context))
	for k, v := range s.Context {
		cp.Context[k] = v
	}
	return &cp
}
