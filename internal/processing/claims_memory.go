package processing

import (
	"context"
	"sync"

	id "filer/pkg/domain"
)

// MemoryClaims is an in-process claim store for single-worker runs and tests.
type MemoryClaims struct {
	mu   sync.Mutex
	held map[id.FilingID]struct{}
}

func NewMemoryClaims() *MemoryClaims {
	return &MemoryClaims{held: make(map[id.FilingID]struct{})}
}

func (c *MemoryClaims) Acquire(_ context.Context, filingID id.FilingID) (func(), bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.held[filingID]; ok {
		return nil, false, nil
	}
	c.held[filingID] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.held, filingID)
			c.mu.Unlock()
		})
	}, true, nil
}
