package state

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"sync"
)

// MemoryStore keeps everything in a map. With a filename set every applied
// batch is also snapshotted to a JSON file, handy for local debugging runs.
type MemoryStore struct {
	mu       sync.RWMutex
	db       map[string][]byte
	filename string
	closed   bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{db: make(map[string][]byte)}
}

// NewFileBackedStore loads filename if it exists and keeps it in sync afterwards.
func NewFileBackedStore(filename string) (*MemoryStore, error) {
	m := &MemoryStore{db: make(map[string][]byte), filename: filename}
	if err := m.loadFromFile(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MemoryStore) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false, ErrStoreClosed
	}
	v, ok := m.db[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryStore) Apply(ops []Op) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	for _, op := range ops {
		if op.Delete {
			delete(m.db, op.Key)
			continue
		}
		m.db[op.Key] = append([]byte(nil), op.Value...)
	}
	if m.filename == "" {
		return nil
	}
	return m.saveToFile()
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Len is the number of stored keys, tests use it to prove nothing leaked.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.db)
}

// saveToFile writes the full map to a JSON file. Keys are binary so they get hex encoded.
func (m *MemoryStore) saveToFile() error {
	out := make(map[string][]byte, len(m.db))
	for k, v := range m.db {
		out[hex.EncodeToString([]byte(k))] = v
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.filename, data, 0o644)
}

// loadFromFile loads the map from a JSON file, a missing file is an empty store.
func (m *MemoryStore) loadFromFile() error {
	data, err := os.ReadFile(m.filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	var in map[string][]byte
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	for k, v := range in {
		key, err := hex.DecodeString(k)
		if err != nil {
			return err
		}
		m.db[string(key)] = v
	}
	return nil
}
