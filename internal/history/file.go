package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/KaramelBytes/dataqual-cli/internal/analysis"
	"github.com/KaramelBytes/dataqual-cli/internal/utils"
)

// FileStore persists entries as a JSON array. Writes are atomic.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore { return &FileStore{path: path} }

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Record(fileName string, rep *analysis.Report) (Entry, error) {
	e, err := NewEntry(fileName, rep)
	if err != nil {
		return Entry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.load()
	if err != nil {
		return Entry{}, err
	}
	if err := s.save(prepend(e, entries)); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (s *FileStore) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.load()
	if err != nil {
		return nil, err
	}
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	return entries, nil
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func (s *FileStore) load() ([]Entry, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("read history: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("parse history %s: %w", s.path, err)
	}
	return entries, nil
}

func (s *FileStore) save(entries []Entry) error {
	if err := utils.EnsureDir(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	data, err := utils.PrettyJSON(entries)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(s.path, data)
}
