package models

import "fmt"

// FilingType is the closed set of legal filings the processor understands.
// Adding a value here without a case in handlers.Lookup fails the registry
// coverage test.
type FilingType string

const (
	TypeAdminFreeze              FilingType = "adminFreeze"
	TypeAGMExtension             FilingType = "agmExtension"
	TypeAGMLocationChange        FilingType = "agmLocationChange"
	TypeAlteration               FilingType = "alteration"
	TypeAmalgamationApplication  FilingType = "amalgamationApplication"
	TypeAmalgamationOut          FilingType = "amalgamationOut"
	TypeAnnualReport             FilingType = "annualReport"
	TypeAppointReceiver          FilingType = "appointReceiver"
	TypeCeaseReceiver            FilingType = "ceaseReceiver"
	TypeChangeOfAddress          FilingType = "changeOfAddress"
	TypeChangeOfDirectors        FilingType = "changeOfDirectors"
	TypeChangeOfName             FilingType = "changeOfName"
	TypeChangeOfRegistration     FilingType = "changeOfRegistration"
	TypeConsentAmalgamationOut   FilingType = "consentAmalgamationOut"
	TypeConsentContinuationOut   FilingType = "consentContinuationOut"
	TypeContinuationIn           FilingType = "continuationIn"
	TypeContinuationOut          FilingType = "continuationOut"
	TypeConversion               FilingType = "conversion"
	TypeCorrection               FilingType = "correction"
	TypeCourtOrder               FilingType = "courtOrder"
	TypeDissolution              FilingType = "dissolution"
	TypeIncorporationApplication FilingType = "incorporationApplication"
	TypeNoticeOfWithdrawal       FilingType = "noticeOfWithdrawal"
	TypePutBackOff               FilingType = "putBackOff"
	TypePutBackOn                FilingType = "putBackOn"
	TypeRegistrarsNotation       FilingType = "registrarsNotation"
	TypeRegistrarsOrder          FilingType = "registrarsOrder"
	TypeRegistration             FilingType = "registration"
	TypeRestoration              FilingType = "restoration"
	TypeSpecialResolution        FilingType = "specialResolution"
	TypeTransition               FilingType = "transition"
	TypeTransparencyRegister     FilingType = "transparencyRegister"
)

// AllFilingTypes enumerates the closed set.
var AllFilingTypes = []FilingType{
	TypeAdminFreeze,
	TypeAGMExtension,
	TypeAGMLocationChange,
	TypeAlteration,
	TypeAmalgamationApplication,
	TypeAmalgamationOut,
	TypeAnnualReport,
	TypeAppointReceiver,
	TypeCeaseReceiver,
	TypeChangeOfAddress,
	TypeChangeOfDirectors,
	TypeChangeOfName,
	TypeChangeOfRegistration,
	TypeConsentAmalgamationOut,
	TypeConsentContinuationOut,
	TypeContinuationIn,
	TypeContinuationOut,
	TypeConversion,
	TypeCorrection,
	TypeCourtOrder,
	TypeDissolution,
	TypeIncorporationApplication,
	TypeNoticeOfWithdrawal,
	TypePutBackOff,
	TypePutBackOn,
	TypeRegistrarsNotation,
	TypeRegistrarsOrder,
	TypeRegistration,
	TypeRestoration,
	TypeSpecialResolution,
	TypeTransition,
	TypeTransparencyRegister,
}

var filingTypeIndex = func() map[string]FilingType {
	m := make(map[string]FilingType, len(AllFilingTypes))
	for _, ft := range AllFilingTypes {
		m[string(ft)] = ft
	}
	return m
}()

// ParseFilingType validates a payload section name.
func ParseFilingType(s string) (FilingType, error) {
	ft, ok := filingTypeIndex[s]
	if !ok {
		return "", fmt.Errorf("unknown filing type %q", s)
	}
	return ft, nil
}

// CreatesBusiness reports whether the filing brings a new business into
// existence rather than mutating an existing one.
func (t FilingType) CreatesBusiness() bool {
	switch t {
	case TypeIncorporationApplication, TypeRegistration, TypeAmalgamationApplication, TypeContinuationIn:
		return true
	default:
		return false
	}
}

// RequiresManualCorrection reports whether a correction of this filing type
// must stop at PENDING_CORRECTION for staff review.
func (t FilingType) RequiresManualCorrection() bool {
	return t == TypeConversion
}

func (t FilingType) String() string {
	return string(t)
}
