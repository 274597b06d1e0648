package poi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileStore keeps POIs in memory and mirrors them to pois.json in the data
// directory. An empty dataDir keeps everything in memory.
type FileStore struct {
	dataDir string
	pois    map[string]POI
	mu      sync.RWMutex
}

// NewFileStore creates a store and loads any existing pois.json. A file that
// cannot be read or decoded is an error; it is never overwritten.
func NewFileStore(dataDir string) (*FileStore, error) {
	s := &FileStore{
		dataDir: dataDir,
		pois:    make(map[string]POI),
	}
	if err := s.loadFromDisk(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewMemoryStore creates a store that never touches disk.
func NewMemoryStore() *FileStore {
	return &FileStore{pois: make(map[string]POI)}
}

// Create adds p, generating an id when it has none.
func (s *FileStore) Create(ctx context.Context, p POI) (POI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		fresh := New(p.Name, p.Lat, p.Lng, p.CountryCode)
		p.ID, p.CreatedAt = fresh.ID, fresh.CreatedAt
		p.Name = fresh.Name
	}
	if _, exists := s.pois[p.ID]; exists {
		return POI{}, fmt.Errorf("poi with ID %q already exists", p.ID)
	}

	s.pois[p.ID] = p
	if err := s.saveToDisk(); err != nil {
		delete(s.pois, p.ID)
		return POI{}, err
	}
	return p, nil
}

// Get returns a POI by id.
func (s *FileStore) Get(ctx context.Context, id string) (POI, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pois[id]
	if !ok {
		return POI{}, fmt.Errorf("%q: %w", id, ErrNotFound)
	}
	return p, nil
}

// List returns POIs oldest first.
func (s *FileStore) List(ctx context.Context) ([]POI, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]POI, 0, len(s.pois))
	for _, p := range s.pois {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Delete removes a POI by id.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.pois[id]
	if !exists {
		return fmt.Errorf("%q: %w", id, ErrNotFound)
	}

	delete(s.pois, id)
	if err := s.saveToDisk(); err != nil {
		s.pois[id] = p
		return err
	}
	return nil
}

func (s *FileStore) configFile() string {
	return filepath.Join(s.dataDir, "pois.json")
}

func (s *FileStore) loadFromDisk() error {
	if s.dataDir == "" {
		return nil
	}
	data, err := os.ReadFile(s.configFile())
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", s.configFile(), err)
	}

	var pois map[string]POI
	if err := json.Unmarshal(data, &pois); err != nil {
		return fmt.Errorf("decoding %s: %w", s.configFile(), err)
	}
	if pois != nil {
		s.pois = pois
	}
	return nil
}

func (s *FileStore) saveToDisk() error {
	if s.dataDir == "" {
		return nil
	}
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s.pois, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.configFile(), data, 0644)
}
