// Package handlers maps each filing type to the function that turns a
// filing section into business changes. Handlers are pure with respect to
// storage: they read through a Reader and return a Result that the
// dispatcher applies.
package handlers

import (
	"context"
	"errors"
	"time"

	"filer/internal/bnhub"
	bizmodels "filer/internal/business/models"
	"filer/internal/filing/models"
	"filer/internal/filing/state"
	trackermodels "filer/internal/tracker/models"
	"filer/pkg/document"
	id "filer/pkg/domain"
	dErrors "filer/pkg/domain-errors"
	"filer/pkg/platform/sentinel"
)

// Reader gives handlers read access to the dispatch transaction.
type Reader interface {
	LoadFiling(ctx context.Context, filingID id.FilingID) (*models.Filing, error)
	LoadBusinessByIdentifier(ctx context.Context, identifier string) (*bizmodels.Business, error)
}

// Input is what a handler sees. Business is a clone of the working copy
// with every earlier handler's changes applied.
type Input struct {
	Type     models.FilingType
	Filing   *models.Filing
	Business *bizmodels.Business
	Section  *document.Object
	Meta     *models.Meta
	Reader   Reader
	Now      time.Time
}

// SyncRequest asks the dispatcher to reconcile a change with an external
// registry once all handlers have run.
type SyncRequest struct {
	Service     trackermodels.ServiceName
	RequestType trackermodels.RequestType
	Build       bnhub.BuildFunc
}

// RelatedChanges mutate another business, such as an amalgamating one.
type RelatedChanges struct {
	Identifier string
	Changes    []bizmodels.Change
}

// FilingUpdate moves another filing, such as the one being corrected.
type FilingUpdate struct {
	FilingID id.FilingID
	Trigger  state.Trigger
}

// Result is everything a handler wants done.
type Result struct {
	Changes       []bizmodels.Change
	Related       []RelatedChanges
	Sync          []SyncRequest
	FilingUpdates []FilingUpdate
	// ManualReview stops the filing at PENDING_CORRECTION.
	ManualReview bool
}

// Handler applies one legal filing section.
type Handler func(ctx context.Context, in Input) (Result, error)

// Lookup returns the handler for a filing type. Every value of
// models.AllFilingTypes has a case.
func Lookup(ft models.FilingType) (Handler, bool) {
	switch ft {
	case models.TypeAdminFreeze:
		return adminFreeze, true
	case models.TypeAGMExtension:
		return agmExtension, true
	case models.TypeAGMLocationChange:
		return agmLocationChange, true
	case models.TypeAlteration:
		return alteration, true
	case models.TypeAmalgamationApplication:
		return amalgamationApplication, true
	case models.TypeAmalgamationOut:
		return amalgamationOut, true
	case models.TypeAnnualReport:
		return annualReport, true
	case models.TypeAppointReceiver:
		return appointReceiver, true
	case models.TypeCeaseReceiver:
		return ceaseReceiver, true
	case models.TypeChangeOfAddress:
		return changeOfAddress, true
	case models.TypeChangeOfDirectors:
		return changeOfDirectors, true
	case models.TypeChangeOfName:
		return changeOfName, true
	case models.TypeChangeOfRegistration:
		return changeOfRegistration, true
	case models.TypeConsentAmalgamationOut:
		return consentAmalgamationOut, true
	case models.TypeConsentContinuationOut:
		return consentContinuationOut, true
	case models.TypeContinuationIn:
		return continuationIn, true
	case models.TypeContinuationOut:
		return continuationOut, true
	case models.TypeConversion:
		return conversion, true
	case models.TypeCorrection:
		return correction, true
	case models.TypeCourtOrder:
		return courtOrder, true
	case models.TypeDissolution:
		return dissolution, true
	case models.TypeIncorporationApplication:
		return incorporationApplication, true
	case models.TypeNoticeOfWithdrawal:
		return noticeOfWithdrawal, true
	case models.TypePutBackOff:
		return putBackOff, true
	case models.TypePutBackOn:
		return putBackOn, true
	case models.TypeRegistrarsNotation:
		return registrarsNotation, true
	case models.TypeRegistrarsOrder:
		return registrarsOrder, true
	case models.TypeRegistration:
		return registration, true
	case models.TypeRestoration:
		return restoration, true
	case models.TypeSpecialResolution:
		return specialResolution, true
	case models.TypeTransition:
		return transition, true
	case models.TypeTransparencyRegister:
		return transparencyRegister, true
	}
	return nil, false
}

func fatal(msg string) error {
	return dErrors.New(dErrors.KindFatal, msg)
}

func fatalf(format string, args ...any) error {
	return dErrors.Newf(dErrors.KindFatal, format, args...)
}

// readErr classifies a Reader failure: a missing row is the filing's fault,
// anything else is the database's.
func readErr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.KindFatal, msg)
	}
	return dErrors.Wrap(err, dErrors.KindRetryable, msg)
}

const dateLayout = "2006-01-02"

// effectiveDate is the date a section's changes take effect.
func effectiveDate(in Input) time.Time {
	if !in.Filing.EffectiveDate.IsZero() {
		return in.Filing.EffectiveDate
	}
	return in.Now
}

func bnhubSync(rt trackermodels.RequestType, build bnhub.BuildFunc) SyncRequest {
	return SyncRequest{Service: trackermodels.ServiceBNHub, RequestType: rt, Build: build}
}
