package archive

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore keeps records in process memory. Default when no
// DATABASE_URL is configured.
type InMemoryStore struct {
	mu      sync.Mutex
	records []DocumentRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Record(_ context.Context, rec DocumentRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *InMemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{Total: len(s.records), ByWorkflow: make(map[string]int)}
	for _, rec := range s.records {
		stats.ByWorkflow[rec.Workflow]++
	}
	return stats, nil
}

func (s *InMemoryStore) Close(context.Context) error { return nil }
