// Package mirror keeps one device's OS notification queue consistent with
// the reminders the user should see: one future timer per upcoming occurrence
// of every enrolled course, at the user's current lead time and sound. It is
// the client-side counterpart of the dispatch scan and shares its pure
// scheduling logic.
package mirror

import (
	"sort"
	"sync"
	"time"
)

// Entry is the durable record of one reminder handed to the OS queue. It
// never leaves the device it was created on.
type Entry struct {
	Identifier   string    `json:"identifier"`
	CourseID     string    `json:"course_id"`
	SessionStart time.Time `json:"session_start"`
	FireAt       time.Time `json:"fire_at"`
}

// Store is the durable mirror record. At most one entry exists per
// identifier; Put with a known identifier replaces the old entry.
type Store interface {
	Put(e Entry) error
	Delete(identifier string) error
	List() ([]Entry, error)
}

// MemoryStore is the in-memory Store used on platforms without a better
// persistence option and in tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Put(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.Identifier] = e
	return nil
}

func (s *MemoryStore) Delete(identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, identifier)
	return nil
}

func (s *MemoryStore) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out, nil
}
