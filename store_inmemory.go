package accumulate

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

type InMemoryPreparedStore struct {
	mu      sync.Mutex
	entries map[string]*PreparedTransaction
}

var _ PreparedStore = &InMemoryPreparedStore{}

func NewInMemoryPreparedStore() *InMemoryPreparedStore {
	return &InMemoryPreparedStore{
		entries: make(map[string]*PreparedTransaction),
	}
}

func (s *InMemoryPreparedStore) Put(p *PreparedTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[p.RequestID]; exists {
		return errors.Errorf("request id %s already in use", p.RequestID)
	}

	s.entries[p.RequestID] = p
	return nil
}

func (s *InMemoryPreparedStore) Take(requestID string) (*PreparedTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.entries[requestID]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "request id %s", requestID)
	}

	delete(s.entries, requestID)
	return p, nil
}

func (s *InMemoryPreparedStore) Sweep(createdBefore time.Time) (removed int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range s.entries {
		if p.CreatedAt.Before(createdBefore) {
			delete(s.entries, id)
			removed++
		}
	}

	return
}

func (s *InMemoryPreparedStore) Len() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries), nil
}

func (s *InMemoryPreparedStore) Close() error {
	return nil
}
