package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	bizmodels "filer/internal/business/models"
	"filer/internal/platform/config"
	"filer/internal/filing/models"
	"filer/internal/filing/state"
	trackermodels "filer/internal/tracker/models"
	"filer/pkg/document"
	id "filer/pkg/domain"
	dErrors "filer/pkg/domain-errors"
	"filer/pkg/platform/sentinel"
)

type stubReader struct {
	filings    map[id.FilingID]*models.Filing
	businesses map[string]*bizmodels.Business
}

func (r *stubReader) LoadFiling(_ context.Context, filingID id.FilingID) (*models.Filing, error) {
	f, ok := r.filings[filingID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return f, nil
}

func (r *stubReader) LoadBusinessByIdentifier(_ context.Context, identifier string) (*bizmodels.Business, error) {
	b, ok := r.businesses[identifier]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return b, nil
}

type HandlersSuite struct {
	suite.Suite
	ctx      context.Context
	now      time.Time
	reader   *stubReader
	business *bizmodels.Business
}

func TestHandlersSuite(t *testing.T) {
	suite.Run(t, new(HandlersSuite))
}

func (s *HandlersSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.reader = &stubReader{
		filings:    map[id.FilingID]*models.Filing{},
		businesses: map[string]*bizmodels.Business{},
	}
	s.business = &bizmodels.Business{
		ID:         id.BusinessID(7),
		Identifier: "BC0000007",
		LegalName:  "ACME LTD.",
		LegalType:  bizmodels.LegalTypeBC,
		State:      bizmodels.StateActive,
		TaxID:      "123456789BC0001",
		Offices: []bizmodels.Office{{
			Type:            bizmodels.OfficeRegistered,
			DeliveryAddress: &bizmodels.Address{StreetAddress: "1 Main St", AddressCity: "Victoria"},
		}},
		PartyRoles: []bizmodels.PartyRole{{
			ID:    1,
			Role:  bizmodels.RoleDirector,
			Party: bizmodels.Party{Type: bizmodels.PartyPerson, FirstName: "Jane", LastName: "Doe"},
		}},
	}
}

// run executes the handler for the first section of payload against a
// clone of the business and returns the result and the changed business.
func (s *HandlersSuite) run(fid id.FilingID, payload string) (Result, *bizmodels.Business, *models.Meta, error) {
	bid := s.business.ID
	f := &models.Filing{
		ID:            fid,
		BusinessID:    &bid,
		Status:        models.StatusPaid,
		Payload:       document.MustParse(payload),
		EffectiveDate: s.now,
	}
	names := f.LegalSectionNames()
	s.Require().NotEmpty(names)
	ft, err := models.ParseFilingType(names[0])
	s.Require().NoError(err)
	f.Type = ft

	h, ok := Lookup(ft)
	s.Require().True(ok)
	meta := models.NewMeta()
	res, err := h(s.ctx, Input{
		Type:     ft,
		Filing:   f,
		Business: s.business.Clone(),
		Section:  f.Section(ft),
		Meta:     meta,
		Reader:   s.reader,
		Now:      s.now,
	})
	if err != nil {
		return res, nil, meta, err
	}
	after := s.business.Clone()
	s.Require().NoError(bizmodels.ApplyAll(after, res.Changes))
	return res, after, meta, nil
}

func (s *HandlersSuite) completedFiling(fid id.FilingID, ft models.FilingType, status models.Status, section string) {
	bid := s.business.ID
	s.reader.filings[fid] = &models.Filing{
		ID:         fid,
		BusinessID: &bid,
		Type:       ft,
		Status:     status,
		Payload:    document.MustParse(`{"filing":{"header":{"name":"` + string(ft) + `"},"` + string(ft) + `":` + section + `}}`),
	}
}

func (s *HandlersSuite) TestLookupCoversEveryFilingType() {
	for _, ft := range models.AllFilingTypes {
		h, ok := Lookup(ft)
		s.True(ok, "no handler for %s", ft)
		s.NotNil(h, "nil handler for %s", ft)
	}
	_, ok := Lookup(models.FilingType("unknownFiling"))
	s.False(ok)
}

func (s *HandlersSuite) TestCorrection() {
	s.Run("rejects a parent that has not completed", func() {
		s.completedFiling(10, models.TypeAnnualReport, models.StatusPending, `{"annualReportDate":"2024-01-01"}`)
		_, _, _, err := s.run(11, `{"filing":{"header":{},"correction":{"correctedFilingId":"10","legalName":"NEW LTD."}}}`)
		s.Require().Error(err)
		s.True(dErrors.HasKind(err, dErrors.KindFatal))
		s.Contains(err.Error(), "correction is not a valid filing for this business")
	})

	s.Run("records the diff and marks the parent corrected", func() {
		s.completedFiling(20, models.TypeChangeOfName, models.StatusCompleted, `{"legalName":"OLD LTD.","comment":"x"}`)
		res, after, meta, err := s.run(21, `{"filing":{"header":{},"correction":{"correctedFilingId":"20","legalName":"FIXED LTD.","comment":"typo"}}}`)
		s.Require().NoError(err)
		s.Equal("FIXED LTD.", after.LegalName)
		s.Require().Len(res.FilingUpdates, 1)
		s.Equal(id.FilingID(20), res.FilingUpdates[0].FilingID)
		s.Equal(state.TriggerCorrected, res.FilingUpdates[0].Trigger)
		s.False(res.ManualReview)

		summary := meta.Document().Object(string(models.TypeCorrection))
		s.Equal("20", summary.String("correctedFilingId"))
		nodes := summary.List("diff")
		s.Require().Len(nodes, 1)
		node := nodes[0].(*document.Object)
		s.Equal("OLD LTD.", node.String("oldValue"))
		s.Equal("FIXED LTD.", node.String("newValue"))
	})

	s.Run("conversion corrections wait for review", func() {
		s.completedFiling(30, models.TypeConversion, models.StatusCompleted, `{"legalName":"OLD"}`)
		res, after, _, err := s.run(31, `{"filing":{"header":{},"correction":{"correctedFilingId":"30","legalName":"NEW"}}}`)
		s.Require().NoError(err)
		s.True(res.ManualReview)
		s.Empty(res.Changes)
		s.Empty(res.FilingUpdates)
		s.Equal("ACME LTD.", after.LegalName)
	})

	s.Run("missing parent is fatal", func() {
		_, _, _, err := s.run(41, `{"filing":{"header":{},"correction":{"correctedFilingId":"999"}}}`)
		s.Require().Error(err)
		s.True(dErrors.HasKind(err, dErrors.KindFatal))
	})
}

func (s *HandlersSuite) TestDissolution() {
	res, after, meta, err := s.run(50, `{"filing":{"header":{},"dissolution":{
		"dissolutionType":"voluntary",
		"dissolutionDate":"2024-04-30",
		"custodialOffice":{"deliveryAddress":{"streetAddress":"9 Vault Rd"}},
		"parties":[{"officer":{"firstName":"Carl","lastName":"Keeper"},"roles":[{"roleType":"Custodian"}]}]
	}}}`)
	s.Require().NoError(err)
	s.Equal(bizmodels.StateHistorical, after.State)
	s.Require().NotNil(after.DissolutionDate)
	s.Equal("2024-04-30", after.DissolutionDate.Format(dateLayout))
	s.Require().NotNil(after.Office(bizmodels.OfficeCustodial))
	s.Len(after.ActiveRoles(bizmodels.RoleCustodian), 1)

	s.Require().Len(res.Sync, 1)
	s.Equal(trackermodels.ServiceBNHub, res.Sync[0].Service)
	s.Equal(trackermodels.RequestChangeStatus, res.Sync[0].RequestType)
	s.Equal("voluntary", meta.Section(models.TypeDissolution).String("dissolutionType"))

	s.business.State = bizmodels.StateHistorical
	_, _, _, err = s.run(51, `{"filing":{"header":{},"dissolution":{}}}`)
	s.True(dErrors.HasKind(err, dErrors.KindFatal))
}

func (s *HandlersSuite) TestChangeOfRegistrationSyncsOnlyWhatChanged() {
	s.business.LegalType = bizmodels.LegalTypeSP
	s.business.Offices = []bizmodels.Office{{
		Type:            bizmodels.OfficeBusiness,
		DeliveryAddress: &bizmodels.Address{StreetAddress: "1 Main St"},
		MailingAddress:  &bizmodels.Address{StreetAddress: "PO Box 1"},
	}}

	res, after, _, err := s.run(60, `{"filing":{"header":{},"changeOfRegistration":{
		"nameRequest":{"legalName":"NEW NAME"},
		"offices":{"businessOffice":{"deliveryAddress":{"streetAddress":"2 Side St"}}}
	}}}`)
	s.Require().NoError(err)
	s.Equal("NEW NAME", after.LegalName)

	var types []trackermodels.RequestType
	for _, r := range res.Sync {
		types = append(types, r.RequestType)
	}
	s.Equal([]trackermodels.RequestType{
		trackermodels.RequestChangeName,
		trackermodels.RequestChangeDeliveryAddress,
	}, types)

	s.business.LegalType = bizmodels.LegalTypeBC
	_, _, _, err = s.run(61, `{"filing":{"header":{},"changeOfRegistration":{"nameRequest":{"legalName":"X"}}}}`)
	s.True(dErrors.HasKind(err, dErrors.KindFatal))
}

func (s *HandlersSuite) TestChangeOfRegistrationReportsEveryRegistryChange() {
	s.business.LegalType = bizmodels.LegalTypeSP
	s.business.Offices = []bizmodels.Office{{
		Type:            bizmodels.OfficeBusiness,
		DeliveryAddress: &bizmodels.Address{StreetAddress: "1 Main St"},
		MailingAddress:  &bizmodels.Address{StreetAddress: "PO Box 1"},
	}}

	res, _, _, err := s.run(62, `{"filing":{"header":{},"changeOfRegistration":{
		"nameRequest":{"legalName":"NEW NAME"},
		"offices":{"businessOffice":{
			"deliveryAddress":{"streetAddress":"2 Side St"},
			"mailingAddress":{"streetAddress":"PO Box 2"}
		}}
	}}}`)
	s.Require().NoError(err)
	s.Len(res.Sync, config.BNHubCallsPerDispatch)
}

func (s *HandlersSuite) TestChangeOfDirectors() {
	res, after, _, err := s.run(70, `{"filing":{"header":{},"changeOfDirectors":{"directors":[
		{"officer":{"firstName":"Jane","lastName":"Doe"},"actions":["ceased"]},
		{"officer":{"firstName":"Sam","lastName":"Roe"},"actions":["appointed"]}
	]}}}`)
	s.Require().NoError(err)
	s.NotEmpty(res.Changes)
	active := after.ActiveRoles(bizmodels.RoleDirector)
	s.Require().Len(active, 1)
	s.Equal("Sam Roe", active[0].Party.Name())
	s.Require().NotNil(after.LastCODDate)

	_, _, _, err = s.run(71, `{"filing":{"header":{},"changeOfDirectors":{"directors":[
		{"officer":{"firstName":"Nobody","lastName":"Here"},"actions":["ceased"]}
	]}}}`)
	s.True(dErrors.HasKind(err, dErrors.KindFatal))
}

func (s *HandlersSuite) TestNoticeOfWithdrawal() {
	bid := s.business.ID
	s.reader.filings[80] = &models.Filing{
		ID: 80, BusinessID: &bid, Type: models.TypeChangeOfName, Status: models.StatusPaid,
		EffectiveDate: s.now.Add(48 * time.Hour),
	}
	res, _, _, err := s.run(81, `{"filing":{"header":{},"noticeOfWithdrawal":{"filingId":80}}}`)
	s.Require().NoError(err)
	s.Equal([]FilingUpdate{{FilingID: 80, Trigger: state.TriggerWithdraw}}, res.FilingUpdates)

	s.reader.filings[80].EffectiveDate = s.now.Add(-time.Hour)
	_, _, _, err = s.run(82, `{"filing":{"header":{},"noticeOfWithdrawal":{"filingId":80}}}`)
	s.True(dErrors.HasKind(err, dErrors.KindFatal))
}

func (s *HandlersSuite) TestConsentThenContinuationOut() {
	res, after, _, err := s.run(90, `{"filing":{"header":{},"consentContinuationOut":{"foreignJurisdiction":{"country":"ca","region":"ab"}}}}`)
	s.Require().NoError(err)
	s.Len(res.Changes, 1)
	s.Require().Len(after.ConsentOuts, 1)
	s.Equal(s.now.AddDate(0, 6, 0), after.ConsentOuts[0].ExpiryDate)

	s.business = after
	_, out, _, err := s.run(91, `{"filing":{"header":{},"continuationOut":{"foreignJurisdiction":{"country":"CA","region":"AB"}}}}`)
	s.Require().NoError(err)
	s.Equal(bizmodels.StateHistorical, out.State)

	_, _, _, err = s.run(92, `{"filing":{"header":{},"continuationOut":{"foreignJurisdiction":{"country":"US","region":"NY"}}}}`)
	s.True(dErrors.HasKind(err, dErrors.KindFatal))
}

func (s *HandlersSuite) TestAnnualReportRejectsOlderYear() {
	s.business.LastARYear = 2024
	_, _, _, err := s.run(100, `{"filing":{"header":{},"annualReport":{"annualReportDate":"2024-03-01"}}}`)
	s.Require().NoError(err)

	bid := s.business.ID
	f := &models.Filing{ID: 101, BusinessID: &bid, Payload: document.MustParse(`{"filing":{"annualReport":{"annualReportDate":"2023-03-01"}}}`)}
	res, err := annualReport(s.ctx, Input{Type: models.TypeAnnualReport, Filing: f, Business: s.business.Clone(),
		Section: f.Section(models.TypeAnnualReport), Meta: models.NewMeta(), Now: s.now})
	s.Require().NoError(err)
	s.Error(bizmodels.ApplyAll(s.business.Clone(), res.Changes))
}

func TestCreationLegalType(t *testing.T) {
	f := &models.Filing{Payload: document.MustParse(`{"filing":{"incorporationApplication":{"nameRequest":{"legalType":"ben"}}}}`)}
	lt, err := CreationLegalType(f, models.TypeIncorporationApplication)
	require.NoError(t, err)
	assert.Equal(t, bizmodels.LegalTypeBEN, lt)

	f = &models.Filing{Payload: document.MustParse(`{"filing":{"business":{"legalType":"SP"},"registration":{}}}`)}
	lt, err = CreationLegalType(f, models.TypeRegistration)
	require.NoError(t, err)
	assert.Equal(t, bizmodels.LegalTypeSP, lt)

	f = &models.Filing{Payload: document.MustParse(`{"filing":{"registration":{}}}`)}
	_, err = CreationLegalType(f, models.TypeRegistration)
	assert.True(t, dErrors.HasKind(err, dErrors.KindFatal))
}

func TestIncorporationUsesNumberedName(t *testing.T) {
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	f := &models.Filing{ID: 1, EffectiveDate: now, Payload: document.MustParse(`{"filing":{"incorporationApplication":{
		"nameRequest":{"legalType":"BC"},
		"offices":{"registeredOffice":{"deliveryAddress":{"streetAddress":"1 Main"}}},
		"parties":[{"officer":{"firstName":"Ann","lastName":"Lee"},"roles":[{"roleType":"Director"},{"roleType":"Completing Party"}]}],
		"shareStructure":{"shareClasses":[{"name":"Common","priority":1,"series":[{"name":"A"}]}]}
	}}}`)}
	b := &bizmodels.Business{Identifier: "BC0000042", LegalType: bizmodels.LegalTypeBC, State: bizmodels.StateActive}
	meta := models.NewMeta()
	res, err := incorporationApplication(context.Background(), Input{
		Type: models.TypeIncorporationApplication, Filing: f, Business: b.Clone(),
		Section: f.Section(models.TypeIncorporationApplication), Meta: meta, Now: now,
	})
	require.NoError(t, err)
	require.NoError(t, bizmodels.ApplyAll(b, res.Changes))

	assert.Equal(t, "0000042 B.C. LTD.", b.LegalName)
	assert.Equal(t, now, b.FoundingDate)
	assert.Len(t, b.ActiveRoles(bizmodels.RoleDirector), 1)
	assert.Len(t, b.ActiveRoles(bizmodels.RoleCompletingParty), 1)
	require.Len(t, b.ShareClasses, 1)
	assert.Len(t, b.ShareClasses[0].Series, 1)
	assert.Equal(t, "BC0000042", meta.Section(models.TypeIncorporationApplication).String("identifier"))
}

func TestAmalgamationRetiresAmalgamatingBusinesses(t *testing.T) {
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	reader := &stubReader{businesses: map[string]*bizmodels.Business{
		"BC0000001": {Identifier: "BC0000001", State: bizmodels.StateActive},
		"BC0000002": {Identifier: "BC0000002", State: bizmodels.StateActive},
	}}
	f := &models.Filing{ID: 3, EffectiveDate: now, Payload: document.MustParse(`{"filing":{"amalgamationApplication":{
		"type":"regular",
		"nameRequest":{"legalType":"BC","legalName":"MERGED LTD."},
		"amalgamatingBusinesses":[{"identifier":"BC0000001","role":"amalgamating"},{"identifier":"BC0000002","role":"amalgamating"}],
		"offices":{"registeredOffice":{"deliveryAddress":{"streetAddress":"1 Main"}}},
		"parties":[{"officer":{"firstName":"Ann","lastName":"Lee"},"roles":[{"roleType":"Director"}]}]
	}}}`)}
	b := &bizmodels.Business{Identifier: "BC0000003", LegalType: bizmodels.LegalTypeBC, State: bizmodels.StateActive}
	res, err := amalgamationApplication(context.Background(), Input{
		Type: models.TypeAmalgamationApplication, Filing: f, Business: b.Clone(),
		Section: f.Section(models.TypeAmalgamationApplication), Meta: models.NewMeta(), Reader: reader, Now: now,
	})
	require.NoError(t, err)
	require.Len(t, res.Related, 2)
	assert.Equal(t, "BC0000001", res.Related[0].Identifier)

	reader.businesses["BC0000002"].State = bizmodels.StateHistorical
	_, err = amalgamationApplication(context.Background(), Input{
		Type: models.TypeAmalgamationApplication, Filing: f, Business: b.Clone(),
		Section: f.Section(models.TypeAmalgamationApplication), Meta: models.NewMeta(), Reader: reader, Now: now,
	})
	assert.True(t, dErrors.HasKind(err, dErrors.KindFatal))
}
