// Package memory provides an in-process KeyValueStore, the analogue of browser local storage.
package memory

import (
	"context"
	"sync"

	"local-auth/internal/repository"
)

// Store is a map-backed key-value store. The zero value is not usable; call NewStore.
type Store struct {
	mu   sync.RWMutex
	data map[string]string

	// Failures injected by tests, keyed by operation ("get", "set", "remove").
	fail map[string]error
}

func NewStore() *Store {
	return &Store{
		data: make(map[string]string),
		fail: make(map[string]error),
	}
}

func (s *Store) Init(context.Context) error { return nil }

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail["get"]; err != nil {
		return "", err
	}
	v, ok := s.data[key]
	if !ok {
		return "", repository.ErrNotFound
	}
	return v, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail["set"]; err != nil {
		return err
	}
	s.data[key] = value
	return nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail["remove"]; err != nil {
		return err
	}
	delete(s.data, key)
	return nil
}

// FailOn makes every subsequent op ("get", "set" or "remove") return err. A nil err clears it.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

// Snapshot returns a copy of the stored entries.
func (s *Store) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}

var _ repository.KeyValueStore = (*Store)(nil)
