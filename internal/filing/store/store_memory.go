package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	bizmodels "filer/internal/business/models"
	"filer/internal/filing/models"
	id "filer/pkg/domain"
	"filer/pkg/platform/sentinel"
)

type memoryState struct {
	filings      map[id.FilingID]*models.Filing
	businesses   map[id.BusinessID]*bizmodels.Business
	sequences    map[string]int64
	nextFiling   id.FilingID
	nextBusiness id.BusinessID
}

func (s *memoryState) clone() *memoryState {
	c := &memoryState{
		filings:      make(map[id.FilingID]*models.Filing, len(s.filings)),
		businesses:   make(map[id.BusinessID]*bizmodels.Business, len(s.businesses)),
		sequences:    make(map[string]int64, len(s.sequences)),
		nextFiling:   s.nextFiling,
		nextBusiness: s.nextBusiness,
	}
	for k, v := range s.filings {
		c.filings[k] = v.Clone()
	}
	for k, v := range s.businesses {
		c.businesses[k] = v.Clone()
	}
	for k, v := range s.sequences {
		c.sequences[k] = v
	}
	return c
}

// InMemoryStore serializes transactions behind one mutex. Each transaction
// works on a copy of the state that replaces it on commit, so a failed
// callback leaves nothing behind.
type InMemoryStore struct {
	mu    sync.Mutex
	state *memoryState
}

// NewMemory creates an empty store.
func NewMemory() *InMemoryStore {
	return &InMemoryStore{state: &memoryState{
		filings:    map[id.FilingID]*models.Filing{},
		businesses: map[id.BusinessID]*bizmodels.Business{},
		sequences:  map[string]int64{},
	}}
}

func (s *InMemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(ctx, &memoryTx{state: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

type memoryTx struct {
	state *memoryState
}

func (t *memoryTx) LockFiling(ctx context.Context, filingID id.FilingID) (*models.Filing, error) {
	return t.LoadFiling(ctx, filingID)
}

func (t *memoryTx) LoadFiling(_ context.Context, filingID id.FilingID) (*models.Filing, error) {
	f, ok := t.state.filings[filingID]
	if !ok {
		return nil, fmt.Errorf("filing %s: %w", filingID, sentinel.ErrNotFound)
	}
	return f.Clone(), nil
}

func (t *memoryTx) LockBusiness(_ context.Context, businessID id.BusinessID) (*bizmodels.Business, error) {
	b, ok := t.state.businesses[businessID]
	if !ok {
		return nil, fmt.Errorf("business %s: %w", businessID, sentinel.ErrNotFound)
	}
	return b.Clone(), nil
}

func (t *memoryTx) LockBusinessByIdentifier(ctx context.Context, identifier string) (*bizmodels.Business, error) {
	return t.LoadBusinessByIdentifier(ctx, identifier)
}

func (t *memoryTx) LoadBusinessByIdentifier(_ context.Context, identifier string) (*bizmodels.Business, error) {
	for _, b := range t.state.businesses {
		if b.Identifier == identifier {
			return b.Clone(), nil
		}
	}
	return nil, fmt.Errorf("business %s: %w", identifier, sentinel.ErrNotFound)
}

func (t *memoryTx) NextIdentifier(_ context.Context, legalType bizmodels.LegalType) (string, error) {
	prefix := legalType.IdentifierPrefix()
	t.state.sequences[prefix]++
	return formatIdentifier(prefix, t.state.sequences[prefix]), nil
}

func (t *memoryTx) FindPendingWithdrawal(_ context.Context, target id.FilingID) (*models.Filing, error) {
	for _, f := range t.state.filings {
		if f.Type == models.TypeNoticeOfWithdrawal && f.Status == models.StatusPaid &&
			f.WithdrawnFilingID != nil && *f.WithdrawnFilingID == target {
			return f.Clone(), nil
		}
	}
	return nil, nil
}

func (t *memoryTx) DueFilings(_ context.Context, now time.Time, limit int) ([]id.FilingID, error) {
	var due []*models.Filing
	for _, f := range t.state.filings {
		if f.Status == models.StatusPaid && !f.EffectiveDate.After(now) {
			due = append(due, f)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].EffectiveDate.Equal(due[j].EffectiveDate) {
			return due[i].EffectiveDate.Before(due[j].EffectiveDate)
		}
		return due[i].ID < due[j].ID
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	ids := make([]id.FilingID, len(due))
	for i, f := range due {
		ids[i] = f.ID
	}
	return ids, nil
}

func (t *memoryTx) SaveBusiness(_ context.Context, b *bizmodels.Business) (id.BusinessID, error) {
	if b.ID.IsNil() {
		for _, existing := range t.state.businesses {
			if existing.Identifier == b.Identifier {
				return 0, fmt.Errorf("business %s: %w", b.Identifier, sentinel.ErrConflict)
			}
		}
		t.state.nextBusiness++
		b.ID = t.state.nextBusiness
	}
	t.state.businesses[b.ID] = b.Clone()
	return b.ID, nil
}

func (t *memoryTx) CreateFiling(_ context.Context, f *models.Filing) (id.FilingID, error) {
	t.state.nextFiling++
	f.ID = t.state.nextFiling
	t.state.filings[f.ID] = f.Clone()
	return f.ID, nil
}

func (t *memoryTx) SaveFiling(_ context.Context, f *models.Filing) error {
	if _, ok := t.state.filings[f.ID]; !ok {
		return fmt.Errorf("filing %s: %w", f.ID, sentinel.ErrNotFound)
	}
	t.state.filings[f.ID] = f.Clone()
	return nil
}

func formatIdentifier(prefix string, n int64) string {
	return fmt.Sprintf("%s%07d", prefix, n)
}
