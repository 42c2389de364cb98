package proposal

import "sync"

// Store abstracts proposal persistence. Implementations must be safe for
// concurrent use. The workflow is handed a Store at construction time; there
// is no process-wide fallback list.
type Store interface {
	Put(p Proposal) error
	Get(id string) (Proposal, error)
	List() ([]Proposal, error)
}

// MemoryStore is an in-memory Store, the default for tests and single-process
// deployments without a configured database.
type MemoryStore struct {
	mu        sync.RWMutex
	proposals map[string]Proposal
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{proposals: make(map[string]Proposal)}
}

func (s *MemoryStore) Put(p Proposal) error {
	s.mu.Lock()
	s.proposals[p.ID] = p
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(id string) (Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.proposals[id]
	if !ok {
		return Proposal{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) List() ([]Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Proposal, 0, len(s.proposals))
	for _, p := range s.proposals {
		out = append(out, p)
	}
	return out, nil
}
