// Package store persists filings and the businesses they mutate. All
// dispatch work happens inside RunInTx so that a filing and its business
// commit or roll back together.
package store

import (
	"context"
	"time"

	bizmodels "filer/internal/business/models"
	"filer/internal/filing/models"
	id "filer/pkg/domain"
)

// Tx is the unit of work handed to RunInTx callbacks. Lock methods take row
// locks held until the transaction ends; Load methods do not lock.
type Tx interface {
	LockFiling(ctx context.Context, filingID id.FilingID) (*models.Filing, error)
	LoadFiling(ctx context.Context, filingID id.FilingID) (*models.Filing, error)
	LockBusiness(ctx context.Context, businessID id.BusinessID) (*bizmodels.Business, error)
	LockBusinessByIdentifier(ctx context.Context, identifier string) (*bizmodels.Business, error)
	LoadBusinessByIdentifier(ctx context.Context, identifier string) (*bizmodels.Business, error)
	NextIdentifier(ctx context.Context, legalType bizmodels.LegalType) (string, error)
	FindPendingWithdrawal(ctx context.Context, target id.FilingID) (*models.Filing, error)
	DueFilings(ctx context.Context, now time.Time, limit int) ([]id.FilingID, error)
	SaveBusiness(ctx context.Context, b *bizmodels.Business) (id.BusinessID, error)
	CreateFiling(ctx context.Context, f *models.Filing) (id.FilingID, error)
	SaveFiling(ctx context.Context, f *models.Filing) error
}

// Store opens transactions.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
