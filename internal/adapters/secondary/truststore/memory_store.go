package truststore

import (
	"sync"

	"github.com/btps-org/btps-core/internal/core/domain"
	btpserrors "github.com/btps-org/btps-core/internal/errors"
)

// MemoryStore is a non-persistent ports.TrustStore used in tests and
// as a fixture implementation, mirroring the teacher corpus's pattern
// of a production adapter paired with an in-memory test double.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]domain.TrustRecord
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]domain.TrustRecord)}
}

func (s *MemoryStore) GetByID(id string) (*domain.TrustRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, false, nil
	}
	return &r, true, nil
}

func (s *MemoryStore) Create(rec domain.TrustRecord, id string) (*domain.TrustRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		id = domain.TrustRecordID(rec.SenderID, rec.ReceiverID)
	}
	if _, exists := s.records[id]; exists {
		return nil, btpserrors.NewTrustStoreConflict(id)
	}
	rec.ID = id
	s.records[id] = rec
	return &rec, nil
}

func (s *MemoryStore) Update(id string, patch map[string]any) (*domain.TrustRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, btpserrors.NewTrustStoreNotFound(id)
	}
	merged, err := mergePatch(rec, patch)
	if err != nil {
		return nil, err
	}
	s.records[id] = merged
	return &merged, nil
}

func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return btpserrors.NewTrustStoreNotFound(id)
	}
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) GetAll(receiverID string) ([]domain.TrustRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.TrustRecord, 0, len(s.records))
	for _, r := range s.records {
		if receiverID != "" && r.ReceiverID != receiverID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *MemoryStore) FlushNow() error       { return nil }
func (s *MemoryStore) FlushAndReload() error { return nil }
func (s *MemoryStore) Close() error          { return nil }
