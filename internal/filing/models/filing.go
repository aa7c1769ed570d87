package models

import (
	"time"

	"filer/pkg/document"
	id "filer/pkg/domain"
)

// Envelope members of a filing payload that are not legal filing sections.
const (
	SectionHeader   = "header"
	SectionBusiness = "business"
)

// Filing is one submitted legal action against a business.
type Filing struct {
	ID                id.FilingID
	BusinessID        *id.BusinessID // nil until a bootstrap filing creates the business
	TempIdentifier    string         // bootstrap registrations carry a temporary identifier
	Type              FilingType
	SubType           string
	Status            Status
	Payload           *document.Object
	EffectiveDate     time.Time
	SubmittedDate     time.Time
	CompletionDate    *time.Time
	ParentFilingID    *id.FilingID // corrections point at the filing they correct
	WithdrawnFilingID *id.FilingID // a notice of withdrawal points at its target
	Meta              *Meta
	Comment           string // diagnostic recorded when the filing fails
}

// Body returns the "filing" member of the payload.
func (f *Filing) Body() *document.Object {
	if f == nil || f.Payload == nil {
		return nil
	}
	return f.Payload.Object("filing")
}

// Header returns the payload header.
func (f *Filing) Header() *document.Object {
	return f.Body().Object(SectionHeader)
}

// LegalSectionNames returns the payload's section names in declared order,
// without the envelope members. Names are not validated.
func (f *Filing) LegalSectionNames() []string {
	var names []string
	for _, k := range f.Body().Keys() {
		if k == SectionHeader || k == SectionBusiness {
			continue
		}
		names = append(names, k)
	}
	return names
}

// Section returns one legal filing section.
func (f *Filing) Section(ft FilingType) *document.Object {
	return f.Body().Object(string(ft))
}

// HasBusiness reports whether the filing already belongs to a business.
func (f *Filing) HasBusiness() bool {
	return f.BusinessID != nil && !f.BusinessID.IsNil()
}

// IsFutureEffective reports whether the effective date is after now.
func (f *Filing) IsFutureEffective(now time.Time) bool {
	return f.EffectiveDate.After(now)
}

// Clone returns a deep copy so a failed dispatch never leaks partial
// changes into the caller's copy.
func (f *Filing) Clone() *Filing {
	if f == nil {
		return nil
	}
	c := *f
	c.Payload = f.Payload.Clone()
	c.Meta = f.Meta.Clone()
	if f.BusinessID != nil {
		v := *f.BusinessID
		c.BusinessID = &v
	}
	if f.CompletionDate != nil {
		v := *f.CompletionDate
		c.CompletionDate = &v
	}
	if f.ParentFilingID != nil {
		v := *f.ParentFilingID
		c.ParentFilingID = &v
	}
	if f.WithdrawnFilingID != nil {
		v := *f.WithdrawnFilingID
		c.WithdrawnFilingID = &v
	}
	return &c
}
