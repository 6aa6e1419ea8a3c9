package calculations

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// JSONStore keeps all records in a single JSON array file
type JSONStore struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewJSONStore creates a store backed by path. The file and its directory
// are created on the first save.
func NewJSONStore(path string, logger *zap.Logger) *JSONStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSONStore{path: path, logger: logger}
}

// Path returns the backing file
func (s *JSONStore) Path() string {
	return s.path
}

// Save appends a record
func (s *JSONStore) Save(record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.load()
	records = append(records, record)
	return s.write(records)
}

// List returns all records in the order they were saved
func (s *JSONStore) List() ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(), nil
}

// Get retrieves a record by ID
func (s *JSONStore) Get(id string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.load() {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, ErrNotFound
}

// Delete removes a record by ID
func (s *JSONStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.load()
	for i, r := range records {
		if r.ID == id {
			records = append(records[:i], records[i+1:]...)
			return s.write(records)
		}
	}
	return ErrNotFound
}

// Close is a no-op
func (s *JSONStore) Close() error {
	return nil
}

// load reads the file; a missing or unreadable file is an empty list
func (s *JSONStore) load() []*Record {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to read calculations file", zap.String("path", s.path), zap.Error(err))
		}
		return []*Record{}
	}

	var records []*Record
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Warn("calculations file is not valid JSON, starting empty", zap.String("path", s.path), zap.Error(err))
		return []*Record{}
	}
	if records == nil {
		records = []*Record{}
	}
	return records
}

// write replaces the file through a temp file in the same directory
func (s *JSONStore) write(records []*Record) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal calculations: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".calculations-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write calculations: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write calculations: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace calculations file: %w", err)
	}
	return nil
}
