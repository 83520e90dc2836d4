package memorykv

import (
	"context"
	"sync"

	"github.com/trezcool/tripsync/core"
)

// Store keeps values in process memory; they do not survive a restart.
type Store struct {
	table map[string]string
	mutex sync.RWMutex
}

var _ core.KeyValueStore = (*Store)(nil)

func Open() *Store {
	return &Store{table: make(map[string]string)}
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if v, ok := s.table[key]; ok {
		return v, nil
	}
	return "", core.ErrKeyNotFound
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.table[key] = value
	return nil
}

func (s *Store) Delete(_ context.Context, keys ...string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, k := range keys {
		delete(s.table, k)
	}
	return nil
}

func (s *Store) Close() error { return nil }
