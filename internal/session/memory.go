package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	data    Data
	expires time.Time
}

// MemoryStore keeps sessions in process memory. Sessions are lost on restart.
// Expired sessions are dropped on every write.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, id string) (Data, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return Data{}, false, nil
	}
	if s.now().After(e.expires) {
		delete(s.sessions, id)
		return Data{}, false, nil
	}
	e.data.Flashes = append([]string(nil), e.data.Flashes...)
	return e.data, true, nil
}

func (s *MemoryStore) Set(_ context.Context, id string, data Data, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.sessions {
		if now.After(e.expires) {
			delete(s.sessions, k)
		}
	}
	data.Flashes = append([]string(nil), data.Flashes...)
	s.sessions[id] = memoryEntry{data: data, expires: now.Add(ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
