package bnhub

import (
	"encoding/xml"
	"fmt"

	bizmodels "filer/internal/business/models"
	"filer/internal/filing/models"
	dErrors "filer/pkg/domain-errors"
)

const dateLayout = "2006-01-02"

// Request is a rendered request document.
type Request struct {
	Root string
	Body []byte
}

// BuildFunc renders the request document for a business and filing. It
// returns a KindDataError when the business cannot be addressed.
type BuildFunc func(b *bizmodels.Business, f *models.Filing, h Header) (*Request, error)

func render(root string, doc any) (*Request, error) {
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.KindFatal, "render "+root)
	}
	return &Request{Root: root, Body: append([]byte(xml.Header), body...)}, nil
}

// BuildChangeStatus reports the business's program account as changing to
// status with the given reason.
func BuildChangeStatus(status, reason string) BuildFunc {
	return func(b *bizmodels.Business, f *models.Filing, h Header) (*Request, error) {
		tax, err := ParseTaxID(b.TaxID)
		if err != nil {
			return nil, err
		}
		var doc ChangeStatus
		doc.Header = h
		doc.Body.Account = accountOf(tax)
		doc.Body.UpdateReasonCode = reason
		doc.Body.Status.Code = status
		doc.Body.Status.EffectiveDate = f.EffectiveDate.Format(dateLayout)
		return render("SBNChangeStatus", doc)
	}
}

// BuildChangeName reports the business's current legal name.
func BuildChangeName() BuildFunc {
	return func(b *bizmodels.Business, f *models.Filing, h Header) (*Request, error) {
		tax, err := ParseTaxID(b.TaxID)
		if err != nil {
			return nil, err
		}
		var doc ChangeName
		doc.Header = h
		doc.Body.Account = accountOf(tax)
		doc.Body.Name = b.LegalName
		doc.Body.EffectiveDate = f.EffectiveDate.Format(dateLayout)
		return render("SBNChangeName", doc)
	}
}

// BuildChangeAddress reports one address of the business office. Firms
// keep their addresses on the business office.
func BuildChangeAddress(addressType string) BuildFunc {
	return func(b *bizmodels.Business, f *models.Filing, h Header) (*Request, error) {
		tax, err := ParseTaxID(b.TaxID)
		if err != nil {
			return nil, err
		}
		office := b.Office(bizmodels.OfficeBusiness)
		if office == nil {
			return nil, dErrors.New(dErrors.KindDataError, "business has no business office")
		}
		addr := office.DeliveryAddress
		if addressType == AddressTypeMailing {
			addr = office.MailingAddress
		}
		if addr == nil {
			return nil, dErrors.New(dErrors.KindDataError, fmt.Sprintf("business office has no address of type %s", addressType))
		}
		var doc ChangeAddress
		doc.Header = h
		doc.Body.Account = accountOf(tax)
		doc.Body.AddressTypeCode = addressType
		doc.Body.Address = Address{
			Line1:      addr.StreetAddress,
			Line2:      addr.StreetAddressAdditional,
			City:       addr.AddressCity,
			Province:   addr.AddressRegion,
			Country:    addr.AddressCountry,
			PostalCode: addr.PostalCode,
		}
		doc.Body.EffectiveDate = f.EffectiveDate.Format(dateLayout)
		return render("SBNChangeAddress", doc)
	}
}
