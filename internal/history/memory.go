package history

import (
	"sync"

	"github.com/KaramelBytes/dataqual-cli/internal/analysis"
)

// MemoryStore keeps entries for the life of the process.
type MemoryStore struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Record(fileName string, rep *analysis.Report) (Entry, error) {
	e, err := NewEntry(fileName, rep)
	if err != nil {
		return Entry{}, err
	}
	s.mu.Lock()
	s.entries = prepend(e, s.entries)
	s.mu.Unlock()
	return e, nil
}

func (s *MemoryStore) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()
	return nil
}
