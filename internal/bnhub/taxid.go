package bnhub

import (
	"fmt"
	"strings"

	dErrors "filer/pkg/domain-errors"
)

// TaxID is a 15 character business number: a 9 digit BN9, a 2 letter
// program identifier and a 4 digit program account reference number.
type TaxID struct {
	BN9           string
	ProgramID     string
	AccountNumber string
}

func (t TaxID) String() string {
	return t.BN9 + t.ProgramID + t.AccountNumber
}

// ParseTaxID validates a BN15. Failures are data errors: the business has
// no number the registry can address.
func ParseTaxID(raw string) (TaxID, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return TaxID{}, dErrors.New(dErrors.KindDataError, "business has no tax id")
	}
	if len(s) != 15 {
		return TaxID{}, dErrors.Newf(dErrors.KindDataError, "tax id %q is not a 15 character business number", raw)
	}
	if !isDigits(s[:9]) || !isLetters(s[9:11]) || !isDigits(s[11:]) {
		return TaxID{}, dErrors.Newf(dErrors.KindDataError, "tax id %q is malformed", raw)
	}
	return TaxID{BN9: s[:9], ProgramID: s[9:11], AccountNumber: s[11:]}, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isLetters(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// TransactionID numbers a request so the registry can tell resubmissions apart.
func TransactionID(filingID fmt.Stringer, retry int) string {
	return fmt.Sprintf("%s-%d", filingID, retry)
}
