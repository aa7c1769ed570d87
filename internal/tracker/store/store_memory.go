package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"filer/internal/tracker/models"
	id "filer/pkg/domain"
	"filer/pkg/platform/sentinel"
)

// InMemoryStore keeps tracked requests in a map guarded by one mutex, which
// makes Claim atomic in the same way the row lock does for PostgresStore.
type InMemoryStore struct {
	mu     sync.Mutex
	rows   map[models.Key]*models.Request
	nextID int64
	now    func() time.Time
}

// NewMemory creates an empty store.
func NewMemory() *InMemoryStore {
	return &InMemoryStore{
		rows: make(map[models.Key]*models.Request),
		now:  time.Now,
	}
}

func (s *InMemoryStore) Claim(_ context.Context, key models.Key, maxRetry int) (*models.Request, models.ClaimResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[key]
	if !ok {
		s.nextID++
		now := s.now()
		row = &models.Request{ID: s.nextID, Key: key, CreatedAt: now, LastModified: now}
		s.rows[key] = row
		return copyRequest(row), models.ClaimCreated, nil
	}
	if row.IsProcessed {
		return copyRequest(row), models.ClaimAlreadyProcessed, nil
	}
	if row.RetryNumber >= maxRetry {
		return copyRequest(row), models.ClaimExhausted, nil
	}
	row.RetryNumber++
	row.LastModified = s.now()
	return copyRequest(row), models.ClaimIncremented, nil
}

func (s *InMemoryStore) Record(_ context.Context, req *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[req.Key]
	if !ok || row.ID != req.ID {
		return fmt.Errorf("tracked request %d: %w", req.ID, sentinel.ErrNotFound)
	}
	if row.IsProcessed {
		return fmt.Errorf("tracked request %d already processed: %w", req.ID, sentinel.ErrInvalidState)
	}
	row.RequestObject = req.RequestObject
	row.ResponseObject = req.ResponseObject
	row.IsProcessed = req.IsProcessed
	row.LastModified = s.now()
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, key models.Key) (*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyRequest(row), nil
}

// ListByFiling returns the tracked requests of a filing.
func (s *InMemoryStore) ListByFiling(_ context.Context, filingID id.FilingID) ([]*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Request
	for key, row := range s.rows {
		if key.FilingID == filingID {
			out = append(out, copyRequest(row))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func copyRequest(r *models.Request) *models.Request {
	c := *r
	return &c
}
