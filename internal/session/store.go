package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a session or clip does not exist.
var ErrNotFound = errors.New("session not found")

// maxSessions caps process memory; the oldest idle sessions are evicted
// once the cap is reached.
const maxSessions = 512

// Store is a thread-safe in-memory session registry. Sessions live for
// the process lifetime or until evicted.
type Store struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{records: make(map[string]*Record)}
}

// Create registers a new idle session and returns a snapshot of it.
func (s *Store) Create() Record {
	now := time.Now()
	rec := &Record{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	if len(s.records) >= maxSessions {
		s.evictOldestLocked()
	}
	s.records[rec.ID] = rec
	s.mu.Unlock()

	return rec.clone()
}

// Get returns a snapshot of the session.
func (s *Store) Get(id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec.clone(), nil
}

// Update applies fn to the session under the store lock and returns the
// updated snapshot.
func (s *Store) Update(id string, fn func(*Record)) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	fn(rec)
	rec.UpdatedAt = time.Now()
	return rec.clone(), nil
}

// Clip returns the narration clip stored on the session, if any.
func (s *Store) Clip(id, clipID string) (Clip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return Clip{}, ErrNotFound
	}
	for _, c := range []*Clip{rec.EnglishClip, rec.TranslatedClip} {
		if c != nil && c.ID == clipID {
			return *c, nil
		}
	}
	return Clip{}, ErrNotFound
}

func (s *Store) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, rec := range s.records {
		if oldestID == "" || rec.UpdatedAt.Before(oldest) {
			oldestID = id
			oldest = rec.UpdatedAt
		}
	}
	if oldestID != "" {
		delete(s.records, oldestID)
	}
}
