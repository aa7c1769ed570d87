//go:build integration

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	bizmodels "filer/internal/business/models"
	"filer/internal/filing/models"
	"filer/pkg/document"
	id "filer/pkg/domain"
	"filer/pkg/platform/sentinel"
	"filer/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	ctx   context.Context
	pg    *containers.PostgresContainer
	store *PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.GetManager().Postgres(s.T())
	s.store = NewPostgres(s.pg.DB, 5*time.Second)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(s.ctx))
}

func (s *PostgresStoreSuite) seedFiling(f *models.Filing) id.FilingID {
	var filingID id.FilingID
	err := s.store.RunInTx(s.ctx, func(ctx context.Context, tx Tx) error {
		var err error
		filingID, err = tx.CreateFiling(ctx, f)
		return err
	})
	s.Require().NoError(err)
	return filingID
}

func (s *PostgresStoreSuite) TestFilingRoundTripKeepsSectionOrder() {
	payload := `{"filing":{"header":{"name":"changeOfAddress"},"changeOfDirectors":{},"changeOfAddress":{}}}`
	filingID := s.seedFiling(&models.Filing{
		Type:          models.TypeChangeOfAddress,
		Status:        models.StatusPaid,
		Payload:       document.MustParse(payload),
		EffectiveDate: time.Now().UTC().Truncate(time.Microsecond),
	})

	err := s.store.RunInTx(s.ctx, func(ctx context.Context, tx Tx) error {
		f, err := tx.LockFiling(ctx, filingID)
		s.Require().NoError(err)
		s.Equal([]string{"changeOfDirectors", "changeOfAddress"}, f.LegalSectionNames())

		f.Meta = models.NewMeta()
		f.Meta.AddLegalFiling(models.TypeChangeOfDirectors)
		f.Status = models.StatusCompleted
		return tx.SaveFiling(ctx, f)
	})
	s.Require().NoError(err)

	err = s.store.RunInTx(s.ctx, func(ctx context.Context, tx Tx) error {
		f, err := tx.LoadFiling(ctx, filingID)
		s.Require().NoError(err)
		s.Equal(models.StatusCompleted, f.Status)
		s.Equal([]models.FilingType{models.TypeChangeOfDirectors}, f.Meta.LegalFilings())
		return nil
	})
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestRollbackDiscardsWork() {
	filingID := s.seedFiling(&models.Filing{
		Type:          models.TypeAnnualReport,
		Status:        models.StatusPaid,
		Payload:       document.MustParse(`{"filing":{"annualReport":{}}}`),
		EffectiveDate: time.Now(),
	})

	boom := errors.New("boom")
	err := s.store.RunInTx(s.ctx, func(ctx context.Context, tx Tx) error {
		f, err := tx.LockFiling(ctx, filingID)
		s.Require().NoError(err)
		f.Status = models.StatusCompleted
		s.Require().NoError(tx.SaveFiling(ctx, f))
		_, err = tx.SaveBusiness(ctx, &bizmodels.Business{Identifier: "BC0000001", LegalType: bizmodels.LegalTypeBC, State: bizmodels.StateActive})
		s.Require().NoError(err)
		return boom
	})
	s.Require().ErrorIs(err, boom)

	err = s.store.RunInTx(s.ctx, func(ctx context.Context, tx Tx) error {
		f, err := tx.LoadFiling(ctx, filingID)
		s.Require().NoError(err)
		s.Equal(models.StatusPaid, f.Status)
		_, err = tx.LoadBusinessByIdentifier(ctx, "BC0000001")
		s.ErrorIs(err, sentinel.ErrNotFound)
		return nil
	})
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestBusinessLifecycle() {
	founded := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	err := s.store.RunInTx(s.ctx, func(ctx context.Context, tx Tx) error {
		identifier, err := tx.NextIdentifier(ctx, bizmodels.LegalTypeBEN)
		s.Require().NoError(err)
		s.Equal("BC0000001", identifier)

		next, err := tx.NextIdentifier(ctx, bizmodels.LegalTypeBC)
		s.Require().NoError(err)
		s.Equal("BC0000002", next)

		b := &bizmodels.Business{
			Identifier:   identifier,
			LegalName:    "ACME LTD.",
			LegalType:    bizmodels.LegalTypeBEN,
			State:        bizmodels.StateActive,
			FoundingDate: founded,
			Offices: []bizmodels.Office{{
				Type:            bizmodels.OfficeRegistered,
				DeliveryAddress: &bizmodels.Address{StreetAddress: "1 Main St"},
			}},
			PartyRoles: []bizmodels.PartyRole{{
				ID:    1,
				Role:  bizmodels.RoleDirector,
				Party: bizmodels.Party{Type: bizmodels.PartyPerson, FirstName: "Jane", LastName: "Doe"},
			}},
		}
		_, err = tx.SaveBusiness(ctx, b)
		s.Require().NoError(err)

		_, err = tx.SaveBusiness(ctx, &bizmodels.Business{Identifier: identifier, LegalType: bizmodels.LegalTypeBEN, State: bizmodels.StateActive})
		s.ErrorIs(err, sentinel.ErrConflict)
		return nil
	})
	// The conflicting insert aborts the postgres transaction.
	s.Require().Error(err)

	err = s.store.RunInTx(s.ctx, func(ctx context.Context, tx Tx) error {
		_, err := tx.LoadBusinessByIdentifier(ctx, "BC0000001")
		s.ErrorIs(err, sentinel.ErrNotFound)

		identifier, err := tx.NextIdentifier(ctx, bizmodels.LegalTypeBEN)
		s.Require().NoError(err)
		s.Equal("BC0000001", identifier)
		_, err = tx.SaveBusiness(ctx, &bizmodels.Business{
			Identifier: identifier, LegalName: "ACME LTD.", LegalType: bizmodels.LegalTypeBEN,
			State: bizmodels.StateActive, FoundingDate: founded,
			PartyRoles: []bizmodels.PartyRole{{ID: 1, Role: bizmodels.RoleDirector, Party: bizmodels.Party{FirstName: "Jane"}}},
		})
		return err
	})
	s.Require().NoError(err)

	err = s.store.RunInTx(s.ctx, func(ctx context.Context, tx Tx) error {
		b, err := tx.LockBusinessByIdentifier(ctx, "BC0000001")
		s.Require().NoError(err)
		s.Equal("ACME LTD.", b.LegalName)
		s.True(founded.Equal(b.FoundingDate))
		s.Require().Len(b.PartyRoles, 1)
		s.Equal("Jane", b.PartyRoles[0].Party.FirstName)

		b.State = bizmodels.StateHistorical
		_, err = tx.SaveBusiness(ctx, b)
		return err
	})
	s.Require().NoError(err)

	err = s.store.RunInTx(s.ctx, func(ctx context.Context, tx Tx) error {
		b, err := tx.LoadBusinessByIdentifier(ctx, "BC0000001")
		s.Require().NoError(err)
		s.Equal(bizmodels.StateHistorical, b.State)
		return nil
	})
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestFindPendingWithdrawal() {
	payload := document.MustParse(`{"filing":{}}`)
	target := s.seedFiling(&models.Filing{Type: models.TypeAlteration, Status: models.StatusPaid, Payload: payload, EffectiveDate: time.Now().Add(time.Hour)})
	s.seedFiling(&models.Filing{Type: models.TypeNoticeOfWithdrawal, Status: models.StatusPaid, Payload: payload, EffectiveDate: time.Now(), WithdrawnFilingID: &target})

	err := s.store.RunInTx(s.ctx, func(ctx context.Context, tx Tx) error {
		nw, err := tx.FindPendingWithdrawal(ctx, target)
		s.Require().NoError(err)
		s.Require().NotNil(nw)
		s.Equal(models.TypeNoticeOfWithdrawal, nw.Type)

		none, err := tx.FindPendingWithdrawal(ctx, target+100)
		s.Require().NoError(err)
		s.Nil(none)
		return nil
	})
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestMissingRows() {
	err := s.store.RunInTx(s.ctx, func(ctx context.Context, tx Tx) error {
		_, err := tx.LockFiling(ctx, 99)
		s.ErrorIs(err, sentinel.ErrNotFound)
		err = tx.SaveFiling(ctx, &models.Filing{ID: 99, Payload: document.NewObject()})
		s.ErrorIs(err, sentinel.ErrNotFound)
		return nil
	})
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestDueFilings() {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	paid := func(effective time.Time) id.FilingID {
		return s.seedFiling(&models.Filing{
			Type:          models.TypeAnnualReport,
			Status:        models.StatusPaid,
			Payload:       document.MustParse(`{"filing":{"annualReport":{}}}`),
			EffectiveDate: effective,
		})
	}
	later := paid(now.Add(-time.Hour))
	earlier := paid(now.Add(-48 * time.Hour))
	onTime := paid(now)
	paid(now.Add(time.Hour))
	s.seedFiling(&models.Filing{
		Type:          models.TypeAnnualReport,
		Status:        models.StatusCompleted,
		Payload:       document.MustParse(`{"filing":{"annualReport":{}}}`),
		EffectiveDate: now.Add(-72 * time.Hour),
	})

	var all, limited []id.FilingID
	s.Require().NoError(s.store.RunInTx(s.ctx, func(ctx context.Context, tx Tx) error {
		var err error
		if all, err = tx.DueFilings(ctx, now, 0); err != nil {
			return err
		}
		limited, err = tx.DueFilings(ctx, now, 2)
		return err
	}))
	s.Equal([]id.FilingID{earlier, later, onTime}, all)
	s.Equal([]id.FilingID{earlier, later}, limited)
}
