package bnhub

import "encoding/xml"

// AcknowledgementRoot is the only response root element that counts as
// success.
const AcknowledgementRoot = "SBNAcknowledgement"

// Request modes.
const (
	RequestModeAdd = "A"
)

// Status and reason codes used by change-status requests.
const (
	StatusActive   = "01"
	StatusInactive = "02"

	ReasonDissolved = "103"
	ReasonRestored  = "105"
)

// Address type codes used by change-address requests.
const (
	AddressTypeMailing  = "01"
	AddressTypeDelivery = "02"
)

// Header is common to every request document.
type Header struct {
	RequestMode   string `xml:"requestMode"`
	SubmitterID   string `xml:"submitterID"`
	TransactionID string `xml:"transactionID"`
	PartnerNote   string `xml:"partnerNote,omitempty"`
}

// Account addresses one program account of a business.
type Account struct {
	BusinessRegistrationNumber            string `xml:"businessRegistrationNumber"`
	BusinessProgramIdentifier             string `xml:"businessProgramIdentifier"`
	BusinessProgramAccountReferenceNumber string `xml:"businessProgramAccountReferenceNumber"`
}

func accountOf(t TaxID) Account {
	return Account{
		BusinessRegistrationNumber:            t.BN9,
		BusinessProgramIdentifier:             t.ProgramID,
		BusinessProgramAccountReferenceNumber: t.AccountNumber,
	}
}

// ChangeStatus reports a status change of a program account.
type ChangeStatus struct {
	XMLName xml.Name `xml:"SBNChangeStatus"`
	Header  Header   `xml:"header"`
	Body    struct {
		Account
		UpdateReasonCode string `xml:"updateReasonCode"`
		Status           struct {
			Code          string `xml:"programAccountStatusCode"`
			EffectiveDate string `xml:"effectiveDate"`
		} `xml:"programAccountStatus"`
	} `xml:"body"`
}

// ChangeName reports a new legal name.
type ChangeName struct {
	XMLName xml.Name `xml:"SBNChangeName"`
	Header  Header   `xml:"header"`
	Body    struct {
		Account
		Name          string `xml:"businessName"`
		EffectiveDate string `xml:"effectiveDate"`
	} `xml:"body"`
}

// ChangeAddress reports a new delivery or mailing address.
type ChangeAddress struct {
	XMLName xml.Name `xml:"SBNChangeAddress"`
	Header  Header   `xml:"header"`
	Body    struct {
		Account
		AddressTypeCode string  `xml:"addressTypeCode"`
		Address         Address `xml:"address"`
		EffectiveDate   string  `xml:"effectiveDate"`
	} `xml:"body"`
}

// Address is the registry's postal address layout.
type Address struct {
	Line1      string `xml:"addressLine1"`
	Line2      string `xml:"addressLine2,omitempty"`
	City       string `xml:"city"`
	Province   string `xml:"provinceStateCode,omitempty"`
	Country    string `xml:"countryCode"`
	PostalCode string `xml:"postalZipCode"`
}
