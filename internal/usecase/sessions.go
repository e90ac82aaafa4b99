package usecase

import (
	"sync"
	"time"

	"contact-vault/internal/domain"
)

const defaultIdleTTL = 5 * time.Minute

// sessionStore maps a call identifier to its in-progress session. The
// carrier never reliably signals call completion, so every access sweeps
// entries idle longer than the configured window to keep the map bounded.
type sessionStore struct {
	mu      sync.Mutex
	idleTTL time.Duration
	now     func() time.Time
	entries map[string]*sessionEntry
}

type sessionEntry struct {
	session domain.CallSession
	touched time.Time
}

func newSessionStore(idleTTL time.Duration) *sessionStore {
	if idleTTL <= 0 {
		idleTTL = defaultIdleTTL
	}
	return &sessionStore{
		idleTTL: idleTTL,
		now:     time.Now,
		entries: make(map[string]*sessionEntry),
	}
}

func (s *sessionStore) Get(callID string) (domain.CallSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.evictIdle(now)
	e, ok := s.entries[callID]
	if !ok {
		return domain.CallSession{}, false
	}
	e.touched = now
	return e.session, true
}

// Put fully replaces the stored session for its call identifier.
func (s *sessionStore) Put(session domain.CallSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.evictIdle(now)
	s.entries[session.CallID] = &sessionEntry{session: session, touched: now}
}

func (s *sessionStore) Delete(callID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, callID)
}

// evictIdle must be called with the mutex held.
func (s *sessionStore) evictIdle(now time.Time) {
	for id, e := range s.entries {
		if now.Sub(e.touched) > s.idleTTL {
			delete(s.entries, id)
		}
	}
}

// attemptStore counts failed PIN attempts per call identifier, with the
// same idle eviction as the session store.
type attemptStore struct {
	mu      sync.Mutex
	idleTTL time.Duration
	now     func() time.Time
	entries map[string]*attemptEntry
}

type attemptEntry struct {
	count   int
	touched time.Time
}

func newAttemptStore(idleTTL time.Duration) *attemptStore {
	if idleTTL <= 0 {
		idleTTL = defaultIdleTTL
	}
	return &attemptStore{
		idleTTL: idleTTL,
		now:     time.Now,
		entries: make(map[string]*attemptEntry),
	}
}

// Increment records one failed attempt and returns the new count.
func (a *attemptStore) Increment(callID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	a.evictIdle(now)
	e, ok := a.entries[callID]
	if !ok {
		e = &attemptEntry{}
		a.entries[callID] = e
	}
	e.count++
	e.touched = now
	return e.count
}

func (a *attemptStore) Clear(callID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.entries, callID)
}

// evictIdle must be called with the mutex held.
func (a *attemptStore) evictIdle(now time.Time) {
	for id, e := range a.entries {
		if now.Sub(e.touched) > a.idleTTL {
			delete(a.entries, id)
		}
	}
}
