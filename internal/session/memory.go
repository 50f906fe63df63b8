package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	userID  int64
	flashes []string
	expires time.Time
}

// MemoryStore is a process-local Store. Sessions are lost on restart.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*memoryEntry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an in-process session store whose entries expire
// after ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*memoryEntry),
	}
}

// lookup returns the live entry for id, evicting it if expired. Callers hold mu.
func (s *MemoryStore) lookup(id string) *memoryEntry {
	entry, ok := s.sessions[id]
	if !ok {
		return nil
	}
	if !s.now().Before(entry.expires) {
		delete(s.sessions, id)
		return nil
	}
	return entry
}

// New stores an anonymous session under a fresh random id.
func (s *MemoryStore) New(_ context.Context) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := newID()
	s.sessions[id] = &memoryEntry{expires: s.now().Add(s.ttl)}
	return &Session{ID: id}, nil
}

// Get returns a copy of the session for id, or nil when it is unknown or expired.
func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.lookup(id)
	if entry == nil {
		return nil, nil
	}
	return &Session{ID: id, UserID: entry.userID}, nil
}

func (s *MemoryStore) SetUser(_ context.Context, id string, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.lookup(id)
	if entry == nil {
		entry = &memoryEntry{}
		s.sessions[id] = entry
	}
	entry.userID = userID
	entry.expires = s.now().Add(s.ttl)
	return nil
}

func (s *MemoryStore) AddFlash(_ context.Context, id, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.lookup(id)
	if entry == nil {
		entry = &memoryEntry{}
		s.sessions[id] = entry
	}
	entry.flashes = append(entry.flashes, message)
	entry.expires = s.now().Add(s.ttl)
	return nil
}

// PopFlashes returns the queued messages in order and clears them.
func (s *MemoryStore) PopFlashes(_ context.Context, id string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.lookup(id)
	if entry == nil {
		return nil, nil
	}
	flashes := entry.flashes
	entry.flashes = nil
	return flashes, nil
}

func (s *MemoryStore) Destroy(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}
