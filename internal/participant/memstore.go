package participant

import (
	"context"
	"sync"
	"time"

	"eventdesk/internal/auth"
)

// MemoryStore is a Store kept in process memory, used for local runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Participant
	order   []string
}

// NewMemoryStore creates a store seeded with ps.
func NewMemoryStore(ps ...Participant) *MemoryStore {
	s := &MemoryStore{records: make(map[string]Participant)}
	for _, p := range ps {
		s.records[p.ID] = p.Clone()
		s.order = append(s.order, p.ID)
	}
	return s
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Participant, error) {
	if err := ctx.Err(); err != nil {
		return Participant{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.records[id]
	if !ok {
		return Participant{}, ErrNotFound
	}
	return p.Clone(), nil
}

func (s *MemoryStore) List(ctx context.Context, order Order) ([]Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := s.snapshot()
	if order == OrderByRecent {
		SortByRecent(out)
	} else {
		SortByName(out)
	}
	return out, nil
}

func (s *MemoryStore) Search(ctx context.Context, query string, limit int) ([]Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	normalized := NormalizeQuery(query)
	out := []Participant{}
	for _, p := range s.snapshot() {
		if Matches(p, normalized) {
			out = append(out, p)
		}
	}
	SortByName(out)
	return capResults(out, limit), nil
}

func (s *MemoryStore) Insert(ctx context.Context, ps []Participant) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	by := auth.ActorFromContext(ctx).ID
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool, len(ps))
	for _, p := range ps {
		if _, exists := s.records[p.ID]; exists || seen[p.ID] {
			return 0, ErrConflict
		}
		seen[p.ID] = true
	}
	for _, p := range ps {
		p = p.Clone()
		p.UpdatedBy = by
		s.records[p.ID] = p
		s.order = append(s.order, p.ID)
	}
	return len(ps), nil
}

func (s *MemoryStore) Update(ctx context.Context, p Participant, prevUpdatedAt time.Time) (Participant, error) {
	if err := ctx.Err(); err != nil {
		return Participant{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.records[p.ID]
	if !ok {
		return Participant{}, ErrNotFound
	}
	if !prevUpdatedAt.IsZero() && !cur.UpdatedAt.Equal(prevUpdatedAt) {
		return Participant{}, ErrConflict
	}
	p = p.Clone()
	p.CreatedAt = cur.CreatedAt
	p.UpdatedBy = auth.ActorFromContext(ctx).ID
	s.records[p.ID] = p
	return p.Clone(), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return ErrNotFound
	}
	delete(s.records, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// snapshot returns clones in insertion order.
func (s *MemoryStore) snapshot() []Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Participant, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id].Clone())
	}
	return out
}
