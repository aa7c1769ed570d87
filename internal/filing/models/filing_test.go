package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filer/pkg/document"
	id "filer/pkg/domain"
)

func TestFiling_LegalSectionNames(t *testing.T) {
	f := &Filing{Payload: document.MustParse(`{"filing": {
		"header": {"name": "correction"},
		"correction": {},
		"business": {"identifier": "BC1234567"},
		"annualReport": {}
	}}`)}

	assert.Equal(t, []string{"correction", "annualReport"}, f.LegalSectionNames())
	assert.NotNil(t, f.Section(TypeCorrection))
	assert.Nil(t, f.Section(TypeDissolution))
	assert.Equal(t, "correction", f.Header().String("name"))
}

func TestFiling_NilPayload(t *testing.T) {
	f := &Filing{}
	assert.Nil(t, f.Body())
	assert.Empty(t, f.LegalSectionNames())
	assert.False(t, f.HasBusiness())
}

func TestFiling_CloneIsIndependent(t *testing.T) {
	bid := id.BusinessID(7)
	parent := id.FilingID(3)
	f := &Filing{
		ID:             9,
		BusinessID:     &bid,
		ParentFilingID: &parent,
		Payload:        document.MustParse(`{"filing": {"annualReport": {"annualReportDate": "2024-01-01"}}}`),
		Meta:           NewMeta(),
	}

	c := f.Clone()
	*c.BusinessID = 8
	c.Section(TypeAnnualReport).Set("annualReportDate", "2025-01-01")
	c.Meta.AddLegalFiling(TypeAnnualReport)

	assert.Equal(t, id.BusinessID(7), *f.BusinessID)
	assert.Equal(t, "2024-01-01", f.Section(TypeAnnualReport).String("annualReportDate"))
	assert.Empty(t, f.Meta.LegalFilings())
}

func TestFilingType_Parse(t *testing.T) {
	for _, ft := range AllFilingTypes {
		parsed, err := ParseFilingType(string(ft))
		require.NoError(t, err)
		assert.Equal(t, ft, parsed)
	}
	_, err := ParseFilingType("changeOfEverything")
	assert.Error(t, err)
}

func TestMeta_Accumulates(t *testing.T) {
	m := NewMeta()
	m.AddLegalFiling(TypeCorrection)
	m.AddLegalFiling(TypeAnnualReport)
	m.AddLegalFiling(TypeCorrection)
	m.Section(TypeAnnualReport).Set("annualReportDate", "2024-01-01")

	assert.Equal(t, []FilingType{TypeCorrection, TypeAnnualReport}, m.LegalFilings())

	raw, err := m.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"legalFilings":["correction","annualReport"],"annualReport":{"annualReportDate":"2024-01-01"}}`, string(raw))

	var back Meta
	require.NoError(t, back.UnmarshalJSON(raw))
	assert.Equal(t, m.LegalFilings(), back.LegalFilings())
}

func TestStatus_IsTerminal(t *testing.T) {
	terminal := map[Status]bool{
		StatusCompleted: true,
		StatusCorrected: true,
		StatusWithdrawn: true,
		StatusError:     true,
	}
	for _, s := range AllStatuses {
		assert.Equal(t, terminal[s], s.IsTerminal(), s)
	}
	assert.False(t, Status("BOGUS").IsValid())
}
